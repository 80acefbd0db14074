package authopener

import (
	"context"
	"net/http"
)

// Fetcher is the part of an opener visible to hooks that need to repeat a request.
type Fetcher interface {
	AddHeader(key, value string)
	Open(ctx context.Context, rawURL string, data []byte) (*http.Response, error)
}

// Hooks is interface for handling conditions that opener does not resolve itself
type Hooks interface {
	// OnHTTPError is called for every non-2xx response that has no dedicated hook.
	OnHTTPError(ctx context.Context, rawURL string, code int, message string) error
	// OnNotModified is called when upstream responds with 304.
	OnNotModified(ctx context.Context, rawURL string) error
	// OnLocalFileRequested is called for file URLs and URLs without scheme.
	OnLocalFileRequested(ctx context.Context, rawURL string) error
	// OnAuthChallenge is called when upstream responds with 401 and a Basic challenge.
	OnAuthChallenge(ctx context.Context, f Fetcher, c Challenge, data []byte) (*http.Response, error)
}

// Emitter is interface for writing responses that are produced locally instead of by upstream
type Emitter interface {
	EmitChallenge(c Challenge) error
	EmitNotModified() error
}

// Output is interface for destinations of a proxied exchange
type Output interface {
	Emitter
	Relay(resp *http.Response) error
	Fail(code int, message string) error
}
