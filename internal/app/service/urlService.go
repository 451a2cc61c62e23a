// Package service composes URL validation, shortening and resolution.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

type URLService struct {
	repository Storage
	validator  URLValidator
	shortener  *Shortener
	resolver   *Resolver
	logger     *zap.Logger
}

func NewURL(repo Storage, validator URLValidator, logger *zap.Logger) *URLService {
	return &URLService{
		repository: repo,
		validator:  validator,
		shortener:  NewShortener(repo),
		resolver:   NewURLResolver(repo),
		logger:     logger,
	}
}

// Shorten validates rawURL and returns its record. Validation errors wrap
// validator.ErrInvalidURL and nothing is stored for them.
func (s *URLService) Shorten(ctx context.Context, rawURL string) (*storage.URLRecord, error) {
	original := strings.TrimSpace(rawURL)

	host, err := s.validator.Validate(ctx, original)
	if err != nil {
		return nil, err
	}

	r, err := s.shortener.GetOrCreate(ctx, original)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("short url ready",
		zap.String("host", host),
		zap.Int64("short_url", r.ShortID),
	)
	return r, nil
}

func (s *URLService) Resolve(ctx context.Context, shortID int64) (string, error) {
	return s.resolver.Resolve(ctx, shortID)
}

func (s *URLService) Count(ctx context.Context) (int64, error) {
	return s.repository.Count(ctx)
}

func (s *URLService) PingContext(ctx context.Context) error {
	return s.repository.PingContext(ctx)
}
