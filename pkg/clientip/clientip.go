package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Proxy headers consulted in order. The first header carrying a valid IP
// wins; RemoteAddr is the fallback for direct connections.
var trustedHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
}

// GetIP resolves the originating client address of a request. Forwarding
// headers are checked first (single-value headers, then the first valid
// entry of X-Forwarded-For), falling back to the TCP peer address. Returns
// an empty string only when nothing parses as an IP.
func GetIP(r *http.Request) string {
	for _, header := range trustedHeaders {
		if ip := parseIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	// X-Forwarded-For may chain multiple proxies; the client is first.
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, entry := range strings.Split(forwarded, ",") {
			if ip := parseIP(entry); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates and normalizes one address, returning "" when invalid.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext stores the resolved client IP in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext retrieves the client IP stored by the middleware, or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Middleware resolves the client IP once and stores it in the request
// context so downstream code does not repeat header parsing.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), GetIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
