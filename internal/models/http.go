// Package models defines the request and response bodies of the HTTP API.
package models

// Request carries the URL to shorten when the body is JSON.
type Request struct {
	URL string `json:"url"`
}

// Response is returned for a shortened URL.
type Response struct {
	// OriginalURL is the URL as it was submitted.
	OriginalURL string `json:"original_url"`

	// ShortURL is the numeric short identifier.
	ShortURL int64 `json:"short_url"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse reports how many URLs are stored.
type StatsResponse struct {
	URLs int64 `json:"urls"`
}

// Error messages shared with clients.
const (
	ErrMsgInvalidURL      = "invalid url"
	ErrMsgInvalidShortURL = "Invalid short URL"
	ErrMsgNotFound        = "url not found"
	ErrMsgServer          = "Server error"
)
