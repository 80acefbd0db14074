package proxy

import (
	"io"
	"net/http"

	"github.com/ksysoev/authopener"
)

// ResponseOutput writes proxy outcomes with http.ResponseWriter.
type ResponseOutput struct {
	w http.ResponseWriter
}

// NewResponseOutput creates new instance of ResponseOutput
func NewResponseOutput(w http.ResponseWriter) *ResponseOutput {
	return &ResponseOutput{w: w}
}

// EmitChallenge sends 401 response with the Basic challenge of upstream realm.
func (o *ResponseOutput) EmitChallenge(c authopener.Challenge) error {
	unauthorized(o.w, c)

	_, err := io.WriteString(o.w, c.Page())

	return err
}

// EmitNotModified sends empty 304 response.
func (o *ResponseOutput) EmitNotModified() error {
	o.w.WriteHeader(http.StatusNotModified)
	return nil
}

// Relay copies upstream response except hop-by-hop headers.
func (o *ResponseOutput) Relay(resp *http.Response) error {
	relayed := resp.Header.Clone()
	authopener.RemoveHopHeaders(relayed)

	header := o.w.Header()
	for key, values := range relayed {
		header[key] = values
	}

	o.w.WriteHeader(resp.StatusCode)

	_, err := io.Copy(o.w, resp.Body)

	return err
}

// Fail sends plain text error response with the code.
func (o *ResponseOutput) Fail(code int, message string) error {
	http.Error(o.w, message, code)
	return nil
}

// unauthorized writes headers and status of 401 response with the specified challenge.
func unauthorized(w http.ResponseWriter, c authopener.Challenge) {
	w.Header().Set("WWW-Authenticate", c.Header())
	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
}
