package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/models"
	"github.com/atinyakov/shorturl/internal/storage"
)

type GetHandler struct {
	service service.URLServiceIface
	logger  *zap.Logger
}

func NewGet(s service.URLServiceIface, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
	}
}

// ByShortID redirects to the original URL of the {id} path parameter.
func (h *GetHandler) ByShortID(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	param := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id < 1 {
		respondError(res, req, http.StatusBadRequest, models.ErrMsgInvalidShortURL)
		return
	}

	original, err := h.service.Resolve(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(res, req, http.StatusOK, models.ErrMsgNotFound)
		return
	}
	if err != nil {
		h.logger.Error("unable to resolve short url", zap.Int64("short_url", id), zap.Error(err))
		respondError(res, req, http.StatusInternalServerError, models.ErrMsgServer)
		return
	}

	http.Redirect(res, req, original, http.StatusFound)
}

func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := h.service.PingContext(ctx); err != nil {
		h.logger.Error("storage ping failed", zap.Error(err))
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// Stats reports the number of stored URLs.
func (h *GetHandler) Stats(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	n, err := h.service.Count(ctx)
	if err != nil {
		h.logger.Error("unable to count urls", zap.Error(err))
		respondError(res, req, http.StatusInternalServerError, models.ErrMsgServer)
		return
	}

	render.JSON(res, req, models.StatsResponse{URLs: n})
}

// Landing serves index.html from viewsDir.
func Landing(viewsDir string) http.HandlerFunc {
	page := filepath.Join(viewsDir, "index.html")
	return func(res http.ResponseWriter, req *http.Request) {
		http.ServeFile(res, req, page)
	}
}
