package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/models"
	"github.com/atinyakov/shorturl/internal/validator"
)

type PostHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewPost(s service.URLServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		service: s,
		logger:  l,
	}
}

// Create shortens the url field of a form or JSON body. Rejected URLs are
// reported as {"error":"invalid url"} with status 200.
func (h *PostHandler) Create(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	rawURL, err := readURL(res, req)
	if err != nil {
		var mr *malformedRequest
		if errors.As(err, &mr) {
			http.Error(res, mr.msg, mr.status)
			return
		}
		h.logger.Info("cannot read request body", zap.Error(err))
		http.Error(res, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	r, err := h.service.Shorten(ctx, rawURL)
	switch {
	case errors.Is(err, validator.ErrInvalidURL):
		h.logger.Debug("invalid url submitted", zap.String("url", rawURL), zap.Error(err))
		respondError(res, req, http.StatusOK, models.ErrMsgInvalidURL)
	case err != nil:
		h.logger.Error("unable to shorten url", zap.String("url", rawURL), zap.Error(err))
		respondError(res, req, http.StatusInternalServerError, models.ErrMsgServer)
	default:
		render.JSON(res, req, models.Response{OriginalURL: r.Original, ShortURL: r.ShortID})
	}
}

// readURL takes the url field from a JSON, multipart or urlencoded body.
func readURL(res http.ResponseWriter, req *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var body models.Request
		if err := decodeJSONBody(res, req, &body); err != nil {
			return "", err
		}
		return body.URL, nil

	case "multipart/form-data":
		if err := req.ParseMultipartForm(maxBodySize); err != nil {
			return "", &malformedRequest{status: http.StatusBadRequest, msg: "Request body is not a valid multipart form"}
		}

	default:
		req.Body = http.MaxBytesReader(res, req.Body, maxBodySize)
		if err := req.ParseForm(); err != nil {
			return "", &malformedRequest{status: http.StatusBadRequest, msg: "Request body is not a valid form"}
		}
	}

	return req.PostFormValue("url"), nil
}
