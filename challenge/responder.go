// Package challenge implements authopener.Hooks for a proxy that either forwards
// the credential of the inbound request or answers with a Basic auth challenge.
package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ksysoev/authopener"
)

// Responder decides how an upstream auth challenge is resolved for a single inbound request.
// It keeps the last recorded error in the same way as the opener hooks report it.
type Responder struct {
	emitter    authopener.Emitter
	credential string
	err        string
}

// NewResponder creates Responder for one inbound request.
// credential is the raw Authorization header value of the inbound request, may be empty.
func NewResponder(credential string, emitter authopener.Emitter) *Responder {
	if emitter == nil {
		panic("nil emitter")
	}

	return &Responder{
		emitter:    emitter,
		credential: credential,
	}
}

// Err returns the last recorded error, empty if nothing was recorded.
func (r *Responder) Err() string {
	return r.err
}

// Credential returns credential that is not used yet. It is empty after the
// credential has been forwarded upstream.
func (r *Responder) Credential() string {
	return r.credential
}

// OnHTTPError records "code message" as the last error and returns it as *authopener.HTTPError.
func (r *Responder) OnHTTPError(ctx context.Context, rawURL string, code int, message string) error {
	httpErr := &authopener.HTTPError{Code: code, Message: message}
	r.err = httpErr.Error()

	slog.DebugContext(ctx, "Upstream error", "url", rawURL, "error", r.err)

	return httpErr
}

// OnNotModified passes 304 to the client.
func (r *Responder) OnNotModified(_ context.Context, _ string) error {
	if err := r.emitter.EmitNotModified(); err != nil {
		return fmt.Errorf("emit not modified: %w", err)
	}

	return authopener.ErrNotModified
}

// OnLocalFileRequested refuses every local file URL.
func (r *Responder) OnLocalFileRequested(ctx context.Context, rawURL string) error {
	r.err = authopener.LocalFileMessage

	slog.WarnContext(ctx, "Local file URL refused", "url", rawURL)

	return authopener.ErrLocalFileRejected
}

// OnAuthChallenge resolves the challenge with the retry method of its scheme.
func (r *Responder) OnAuthChallenge(ctx context.Context, f authopener.Fetcher, c authopener.Challenge, data []byte) (*http.Response, error) {
	switch c.Scheme {
	case "http":
		return r.RetryHTTPBasicAuth(ctx, f, c.URL, c.Realm, data)
	case "https":
		return r.RetryHTTPSBasicAuth(ctx, f, c.URL, c.Realm, data)
	default:
		return r.sendAuthChallenge(ctx, f, c.Scheme, c.URL, c.Realm, data)
	}
}

// RetryHTTPBasicAuth resolves Basic challenge for http URL.
// url is the scheme relative part, e.g. "//host/path".
func (r *Responder) RetryHTTPBasicAuth(ctx context.Context, f authopener.Fetcher, url, realm string, data []byte) (*http.Response, error) {
	return r.sendAuthChallenge(ctx, f, "http", url, realm, data)
}

// RetryHTTPSBasicAuth resolves Basic challenge for https URL.
// TODO: challenge for https URL is emitted on the same output as for http, it is not sent through a https specific channel yet.
func (r *Responder) RetryHTTPSBasicAuth(ctx context.Context, f authopener.Fetcher, url, realm string, data []byte) (*http.Response, error) {
	return r.sendAuthChallenge(ctx, f, "https", url, realm, data)
}

// sendAuthChallenge forwards the credential once if there is one, otherwise emits 401 challenge.
// Credential is cleared before the request, so nested challenge ends up with 401 instead of a loop.
func (r *Responder) sendAuthChallenge(
	ctx context.Context,
	f authopener.Fetcher,
	scheme, url, realm string,
	data []byte,
) (*http.Response, error) {
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s", authopener.ErrSchemeRejected, scheme)
	}

	c := authopener.Challenge{Scheme: scheme, URL: url, Realm: realm}

	if r.credential != "" {
		f.AddHeader("Authorization", r.credential)
		r.credential = ""

		slog.DebugContext(ctx, "Forwarding credential", "realm", realm)

		return f.Open(ctx, c.Target(), data)
	}

	if err := r.emitter.EmitChallenge(c); err != nil {
		return nil, fmt.Errorf("emit challenge: %w", err)
	}

	slog.DebugContext(ctx, "Auth challenge sent", "realm", realm)

	return nil, authopener.ErrChallengeSent
}
