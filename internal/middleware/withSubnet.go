package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// WithSubnet lets through only requests whose X-Real-IP lies inside the
// trusted CIDR. An empty or unparsable subnet forbids everything.
func WithSubnet(subnet string, log *zap.Logger) func(next http.Handler) http.Handler {
	var trusted *net.IPNet
	if subnet != "" {
		_, ipNet, err := net.ParseCIDR(subnet)
		if err != nil {
			log.Error("invalid trusted subnet", zap.String("subnet", subnet), zap.Error(err))
		} else {
			trusted = ipNet
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(r.Header.Get("X-Real-IP"))
			if trusted == nil || ip == nil || !trusted.Contains(ip) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
