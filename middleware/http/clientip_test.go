package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetIPFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		headers  map[string]string
		remote   string
		want     string
	}{
		{name: "cloudflare connecting ip", provider: Cloudflare, headers: map[string]string{"CF-Connecting-IP": "192.168.0.2"}, want: "192.168.0.2"},
		{name: "cloudflare true client ip wins", provider: Cloudflare, headers: map[string]string{"CF-Connecting-IP": "192.168.0.2", "True-Client-IP": "192.168.0.1"}, want: "192.168.0.1"},
		{name: "cloudfront", provider: CloudFront, headers: map[string]string{"CloudFront-Viewer-Address": "192.168.0.3:1234"}, want: "192.168.0.3"},
		{name: "cloudfront ipv6", provider: CloudFront, headers: map[string]string{"CloudFront-Viewer-Address": "[2001:db8::1]:1234"}, want: "2001:db8::1"},
		{name: "x-real-ip", provider: NotProvided, headers: map[string]string{"X-Real-Ip": "192.168.0.4"}, want: "192.168.0.4"},
		{name: "x-forwarded-for", provider: NotProvided, headers: map[string]string{"X-Forwarded-For": "192.168.0.5, 192.168.0.6"}, want: "192.168.0.5"},
		{name: "remote addr", provider: NotProvided, remote: "192.168.0.7:1234", want: "192.168.0.7"},
		{name: "empty request", provider: NotProvided, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{Header: make(http.Header), RemoteAddr: tt.remote}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if ip := getIPFromRequest(tt.provider, r); ip != tt.want {
				t.Errorf("Expected IP to be %q, but got %q", tt.want, ip)
			}
		})
	}
}

func TestNewClientIPMiddleware(t *testing.T) {
	var got string

	handler := NewClientIPMiddleware(NotProvided)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "10.0.0.1:5555"

	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "10.0.0.1" {
		t.Errorf("Expected client IP 10.0.0.1, but got %q", got)
	}

	if ip := GetClientIP(context.Background()); ip != "" {
		t.Errorf("Expected empty client IP, but got %q", ip)
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		name string
		want Provider
		ok   bool
	}{
		{name: "", want: NotProvided, ok: true},
		{name: "none", want: NotProvided, ok: true},
		{name: "Cloudflare", want: Cloudflare, ok: true},
		{name: "cloudfront", want: CloudFront, ok: true},
		{name: "akamai", want: NotProvided, ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseProvider(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseProvider(%q) = %v, %v; expected %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
