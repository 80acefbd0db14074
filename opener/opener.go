// Package opener provides URL opener that performs HTTP requests and hands
// every condition it does not resolve itself over to authopener.Hooks.
//
// Opener is created per inbound request and is not safe for concurrent use.
// Headers added with AddHeader stick to the opener and are sent with every
// following request, including the ones made by hooks through the Fetcher
// interface.
//
// Usage:
//
//	o := opener.New(hooks, opener.WithTimeout(10*time.Second))
//	resp, err := o.Open(ctx, "http://backend/path", nil)
//	if err != nil {
//	    // inspect with errors.Is / errors.As
//	}
package opener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ksysoev/authopener"
	"github.com/ksysoev/authopener/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultUserAgent = "authopener/1.0"
	DefaultMaxTries  = 10
	defaultTimeout   = 30 * time.Second
	maxDrainBytes    = 64 << 10
	tracerName       = "github.com/ksysoev/authopener/opener"
	recursionMessage = "Internal Server Error: Redirect Recursion"
)

var basicChallenge = regexp.MustCompile(`^[ \t]*([^ \t]+)[ \t]+realm="([^"]*)"`)

// Opener performs upstream requests for a single inbound request and hands
// non-2xx outcomes over to hooks.
type Opener struct {
	hooks     authopener.Hooks
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	tracer    trace.Tracer
	header    http.Header
	id        string
	userAgent string
	maxTries  int
	tries     int
}

// Option configures Opener.
type Option func(*Opener)

// New creates new instance of Opener
// hooks - handlers for error, not modified, local file and auth challenge conditions
// returns new instance of Opener
func New(hooks authopener.Hooks, opts ...Option) *Opener {
	if hooks == nil {
		panic("nil hooks")
	}

	o := &Opener{
		hooks:     hooks,
		client:    &http.Client{Timeout: defaultTimeout},
		tracer:    otel.Tracer(tracerName),
		header:    make(http.Header),
		id:        uuid.New().String(),
		userAgent: DefaultUserAgent,
		maxTries:  DefaultMaxTries,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ID returns unique identifier of the opener.
func (o *Opener) ID() string {
	return o.id
}

// AddHeader adds header that is sent with every following request of the opener.
func (o *Opener) AddHeader(key, value string) {
	o.header.Add(key, value)
}

// Open performs request to rawURL. GET is used when data is nil, POST otherwise.
// Response is returned only for 2xx statuses, all other outcomes are decided by hooks.
func (o *Opener) Open(ctx context.Context, rawURL string, data []byte) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	switch u.Scheme {
	case "", "file":
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeLocalFile).Inc()
		return nil, o.hooks.OnLocalFileRequested(ctx, rawURL)
	case "http", "https":
	default:
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeUnknownScheme).Inc()
		return nil, fmt.Errorf("%w: %s", authopener.ErrUnknownScheme, u.Scheme)
	}

	ctx, span := o.tracer.Start(ctx, "opener.Open", trace.WithAttributes(
		attribute.String("opener.id", o.id),
		attribute.String("url.scheme", u.Scheme),
		attribute.String("server.address", u.Host),
	))
	defer span.End()

	req, err := o.newRequest(ctx, u, data)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Opening URL", "opener", o.id, "method", req.Method, "url", u.Redacted())

	resp, err := o.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	resp, err = o.dispatch(ctx, u, rawURL, resp, data)

	var httpErr *authopener.HTTPError
	if errors.As(err, &httpErr) {
		span.SetStatus(codes.Error, httpErr.Error())
	}

	return resp, err
}

func (o *Opener) newRequest(ctx context.Context, u *url.URL, data []byte) (*http.Request, error) {
	method := http.MethodGet

	var body io.Reader = http.NoBody

	if data != nil {
		method = http.MethodPost
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, values := range o.header {
		req.Header[key] = append([]string(nil), values...)
	}

	if data != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	return req, nil
}

func (o *Opener) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	send := func() (*http.Response, error) {
		return o.client.Do(req)
	}

	start := time.Now()

	var (
		resp *http.Response
		err  error
	)

	if o.breaker != nil {
		resp, err = o.breaker.Execute(send)
	} else {
		resp, err = send()
	}

	metrics.UpstreamDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeCircuitOpen).Inc()
		slog.WarnContext(ctx, "Circuit breaker rejected request", "opener", o.id, "host", req.URL.Host)

		return nil, fmt.Errorf("open %s: %w", req.URL.Redacted(), err)
	case err != nil:
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeTransportError).Inc()

		return nil, fmt.Errorf("open %s: %w", req.URL.Redacted(), err)
	}

	return resp, nil
}

func (o *Opener) dispatch(ctx context.Context, u *url.URL, rawURL string, resp *http.Response, data []byte) (*http.Response, error) {
	code := resp.StatusCode

	switch {
	case code >= 200 && code < 300:
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeOK).Inc()
		return resp, nil
	case code == http.StatusNotModified:
		discard(resp)
		metrics.OpenTotal.WithLabelValues(metrics.OutcomeNotModified).Inc()

		return nil, o.hooks.OnNotModified(ctx, rawURL)
	case code == http.StatusUnauthorized:
		if c, ok := parseChallenge(responseURL(u, resp), resp.Header); ok {
			discard(resp)
			metrics.OpenTotal.WithLabelValues(metrics.OutcomeChallenge).Inc()

			return o.retryAuth(ctx, c, data)
		}
	}

	discard(resp)
	metrics.OpenTotal.WithLabelValues(metrics.OutcomeHTTPError).Inc()

	return nil, o.hooks.OnHTTPError(ctx, rawURL, code, reasonPhrase(resp))
}

// retryAuth hands the challenge over to hooks. Nested challenges deeper than
// maxTries are reported as recursion error.
func (o *Opener) retryAuth(ctx context.Context, c authopener.Challenge, data []byte) (*http.Response, error) {
	o.tries++
	defer func() { o.tries-- }()

	if o.maxTries > 0 && o.tries >= o.maxTries {
		slog.WarnContext(ctx, "Auth challenge recursion", "opener", o.id, "tries", o.tries)
		return nil, o.hooks.OnHTTPError(ctx, c.Target(), http.StatusInternalServerError, recursionMessage)
	}

	return o.hooks.OnAuthChallenge(ctx, o, c, data)
}

// responseURL returns the URL that produced resp. It differs from requested u
// when the client followed redirects.
func responseURL(u *url.URL, resp *http.Response) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}

	return u
}

// parseChallenge looks for Basic challenge in WWW-Authenticate headers.
func parseChallenge(u *url.URL, header http.Header) (authopener.Challenge, bool) {
	for _, value := range header.Values("WWW-Authenticate") {
		match := basicChallenge.FindStringSubmatch(value)
		if match == nil || !strings.EqualFold(match[1], "basic") {
			continue
		}

		return authopener.Challenge{
			Scheme: u.Scheme,
			URL:    strings.TrimPrefix(u.String(), u.Scheme+":"),
			Realm:  match[2],
		}, true
	}

	return authopener.Challenge{}, false
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}

	return reason
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
