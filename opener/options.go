package opener

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
)

const (
	breakerTimeout     = 30 * time.Second
	breakerMaxFailures = 5
)

// WithHTTPClient sets client that is used for upstream requests.
func WithHTTPClient(client *http.Client) Option {
	if client == nil {
		panic("nil http client")
	}

	return func(o *Opener) {
		o.client = client
	}
}

// WithTimeout sets timeout of upstream requests. The client is copied, so clients
// passed with WithHTTPClient are not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opener) {
		client := *o.client
		client.Timeout = timeout
		o.client = &client
	}
}

// WithUserAgent sets User-Agent header for requests that don't have one.
func WithUserAgent(ua string) Option {
	return func(o *Opener) {
		o.userAgent = ua
	}
}

// WithMaxTries limits depth of nested auth challenges, zero disables the limit.
func WithMaxTries(n int) Option {
	return func(o *Opener) {
		o.maxTries = n
	}
}

// WithTracer sets tracer used for spans of upstream requests.
// By default tracer of the global otel provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Opener) {
		o.tracer = tracer
	}
}

// WithCircuitBreaker puts upstream requests behind the breaker.
// Breaker is shared between openers, so it is created once per upstream.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) Option {
	return func(o *Opener) {
		o.breaker = cb
	}
}

// NewCircuitBreaker creates breaker that opens after consecutive transport failures
// and lets a single request through after the timeout.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
