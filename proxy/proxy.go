// Package proxy forwards inbound HTTP requests to an upstream with an opener
// and resolves upstream Basic auth challenges with the inbound credential.
//
// The credential is taken from the Authorization header of the inbound request
// and passed to the challenge responder explicitly, so a Proxy is safe to use
// for concurrent requests.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ksysoev/authopener"
	"github.com/ksysoev/authopener/challenge"
	mwhttp "github.com/ksysoev/authopener/middleware/http"
	"github.com/ksysoev/authopener/opener"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxBodyBytes limits request body forwarded as POST data.
	DefaultMaxBodyBytes = 10 << 20
	tracerName          = "github.com/ksysoev/authopener/proxy"
)

var errBodyTooLarge = errors.New("request body too large")

// forwardedHeaders are copied from inbound request to upstream request.
var forwardedHeaders = []string{
	"Accept",
	"Accept-Language",
	"If-Modified-Since",
	"If-None-Match",
	"Content-Type",
}

// Proxy forwards inbound requests to a single upstream.
type Proxy struct {
	upstream *url.URL
	tracer   trace.Tracer
	opts     []opener.Option
	maxBody  int64
}

// New creates new instance of Proxy
// upstream - base URL requests are forwarded to, inbound path and query are appended to it
// opts - options applied to opener of every request
func New(upstream string, opts ...opener.Option) (*Proxy, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", authopener.ErrUnknownScheme, u.Scheme)
	}

	return &Proxy{
		upstream: u,
		tracer:   otel.Tracer(tracerName),
		opts:     opts,
		maxBody:  DefaultMaxBodyBytes,
	}, nil
}

// ServeHTTP forwards request and writes outcome to w.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := p.Forward(r.Context(), r, NewResponseOutput(w)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to forward request", "path", r.URL.Path, "error", err)
	}
}

// Forward sends req upstream and writes the outcome to out.
// Returned error means that out could not be written.
func (p *Proxy) Forward(ctx context.Context, req *http.Request, out authopener.Output) error {
	target := p.target(req.URL)

	ctx, span := p.tracer.Start(ctx, "proxy.Forward", trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
	))
	defer span.End()

	responder := challenge.NewResponder(req.Header.Get("Authorization"), out)
	o := opener.New(responder, p.opts...)

	span.SetAttributes(attribute.String("opener.id", o.ID()))

	for _, h := range forwardedHeaders {
		for _, v := range req.Header.Values(h) {
			o.AddHeader(h, v)
		}
	}

	if ip := mwhttp.GetClientIP(ctx); ip != "" {
		o.AddHeader("X-Forwarded-For", ip)
	}

	data, err := readData(req, p.maxBody)
	switch {
	case errors.Is(err, errBodyTooLarge):
		slog.WarnContext(ctx, "Request body too large", "path", req.URL.Path, "limit", p.maxBody)
		return out.Fail(http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
	case err != nil:
		slog.WarnContext(ctx, "Failed to read request body", "path", req.URL.Path, "error", err)
		return out.Fail(http.StatusBadRequest, "failed to read request body")
	}

	resp, err := o.Open(ctx, target, data)
	if err == nil {
		defer resp.Body.Close()
		return out.Relay(resp)
	}

	var httpErr *authopener.HTTPError

	switch {
	case errors.Is(err, authopener.ErrChallengeSent), errors.Is(err, authopener.ErrNotModified):
		return nil
	case errors.As(err, &httpErr):
		return out.Fail(httpErr.Code, responder.Err())
	case errors.Is(err, authopener.ErrLocalFileRejected):
		return out.Fail(http.StatusForbidden, responder.Err())
	default:
		slog.WarnContext(ctx, "Upstream request failed", "opener", o.ID(), "error", err)
		return out.Fail(http.StatusBadGateway, http.StatusText(http.StatusBadGateway))
	}
}

// target joins upstream base URL with inbound path and query.
func (p *Proxy) target(in *url.URL) string {
	u := *p.upstream
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(in.Path, "/")
	u.RawPath = ""
	u.RawQuery = in.RawQuery
	u.Fragment = ""

	return u.String()
}

// readData returns request body for methods that carry one, nil otherwise.
// Empty body of such method is sent as empty POST data. Body longer than limit
// results in errBodyTooLarge.
func readData(req *http.Request, limit int64) ([]byte, error) {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, nil
	}

	if req.Body == nil {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}

	if data == nil {
		data = []byte{}
	}

	return data, nil
}
