// Package validator decides whether a submitted URL is acceptable for
// shortening. A Validator runs an ordered chain of checks; the first failing
// check rejects the candidate.
package validator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidURL is wrapped by every rejection.
var ErrInvalidURL = errors.New("invalid url")

// MaxURLLength is the longest candidate accepted, in bytes.
const MaxURLLength = 2048

// Policy names accepted by FromPolicy.
const (
	PolicyPattern = "pattern"
	PolicyResolve = "resolve"
)

// Candidate is a submitted URL that parsed and has a host.
type Candidate struct {
	Raw  string
	URL  *url.URL
	Host string // lower-cased hostname, no port
}

// Check accepts or rejects a candidate.
type Check interface {
	Check(ctx context.Context, c Candidate) error
}

// CheckFunc adapts a function to Check.
type CheckFunc func(ctx context.Context, c Candidate) error

func (f CheckFunc) Check(ctx context.Context, c Candidate) error {
	return f(ctx, c)
}

type Validator struct {
	checks []Check
	logger *zap.Logger
}

func New(logger *zap.Logger, checks ...Check) *Validator {
	return &Validator{checks: checks, logger: logger}
}

// FromPolicy builds the chain from configuration names, in the given order.
// An empty policy means pattern matching only.
func FromPolicy(policy []string, resolver HostResolver, timeout time.Duration, logger *zap.Logger) (*Validator, error) {
	if len(policy) == 0 {
		policy = []string{PolicyPattern}
	}

	checks := make([]Check, 0, len(policy))
	for _, name := range policy {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case PolicyPattern:
			checks = append(checks, PatternCheck{})
		case PolicyResolve:
			checks = append(checks, ResolveCheck{Resolver: resolver, Timeout: timeout})
		default:
			return nil, fmt.Errorf("unknown validation policy %q", name)
		}
	}
	return New(logger, checks...), nil
}

// Validate returns the normalized host of an accepted candidate. Anything that
// does not parse as a URL with a host is rejected, never a panic.
func (v *Validator) Validate(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if len(raw) > MaxURLLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidURL, MaxURLLength)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	c := Candidate{Raw: raw, URL: u, Host: host}
	for _, check := range v.checks {
		if err = check.Check(ctx, c); err != nil {
			v.logger.Debug("url rejected", zap.String("url", raw), zap.Error(err))
			if !errors.Is(err, ErrInvalidURL) {
				err = fmt.Errorf("%w: %v", ErrInvalidURL, err)
			}
			return "", err
		}
	}

	return host, nil
}
