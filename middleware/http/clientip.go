package http

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Provider names the edge in front of the proxy that reports the client address.
type Provider uint8

const (
	NotProvided Provider = iota
	Cloudflare
	CloudFront
)

// ParseProvider maps a provider name to Provider. Empty name maps to NotProvided.
func ParseProvider(name string) (Provider, bool) {
	switch strings.ToLower(name) {
	case "", "none":
		return NotProvided, true
	case "cloudflare":
		return Cloudflare, true
	case "cloudfront":
		return CloudFront, true
	default:
		return NotProvided, false
	}
}

// NewClientIPMiddleware stores the client address of the inbound request in its context.
// The address can be read back with GetClientIP.
func NewClientIPMiddleware(provider Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ClientIP, getIPFromRequest(provider, r))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns client address stored by NewClientIPMiddleware or empty string.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ClientIP).(string); ok {
		return ip
	}

	return ""
}

func getIPFromRequest(provider Provider, r *http.Request) string {
	var ip string

	switch provider {
	case Cloudflare:
		ip = r.Header.Get("True-Client-IP")
		if ip == "" {
			ip = r.Header.Get("CF-Connecting-IP")
		}
	case CloudFront:
		if addr := r.Header.Get("CloudFront-Viewer-Address"); addr != "" {
			if host, _, err := net.SplitHostPort(addr); err == nil {
				ip = host
			} else {
				ip = addr
			}
		}
	default:
	}

	if ip != "" {
		return ip
	}

	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}

	return ""
}
