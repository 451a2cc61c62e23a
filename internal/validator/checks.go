package validator

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"
)

// urlPattern is the HTTP(S) URL shape: scheme, optional www., a dotted host
// and an optional path or query.
var urlPattern = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)$`)

// PatternCheck requires the raw candidate to match urlPattern.
type PatternCheck struct{}

func (PatternCheck) Check(_ context.Context, c Candidate) error {
	if !urlPattern.MatchString(c.Raw) {
		return fmt.Errorf("%w: does not match url pattern", ErrInvalidURL)
	}
	return nil
}

// HostResolver is satisfied by *net.Resolver.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ResolveCheck requires the candidate host to resolve to at least one address.
type ResolveCheck struct {
	Resolver HostResolver  // net.DefaultResolver when nil
	Timeout  time.Duration // no extra deadline when zero
}

func (rc ResolveCheck) Check(ctx context.Context, c Candidate) error {
	resolver := rc.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	if rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.Timeout)
		defer cancel()
	}

	addrs, err := resolver.LookupHost(ctx, c.Host)
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %v", ErrInvalidURL, c.Host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s has no addresses", ErrInvalidURL, c.Host)
	}
	return nil
}
