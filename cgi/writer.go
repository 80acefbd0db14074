// Package cgi writes proxy outcomes as raw CGI response text.
//
// Writer is meant for the CGI mode of the proxy, where a process handles a single
// request and the response headers and body are written to standard output.
package cgi

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/ksysoev/authopener"
)

const (
	NotModifiedLine = "HTTP/1.1 304 Not Modified"
	challengeStatus = "401 Authorization Required"
)

// Writer implements authopener.Output on top of io.Writer.
type Writer struct {
	w          *bufio.Writer
	headerOpen bool
}

// NewWriter creates new instance of Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// EmitChallenge writes 401 status with Basic challenge and HTML page.
func (w *Writer) EmitChallenge(c authopener.Challenge) error {
	fmt.Fprintf(w.w, "Status: %s\n", challengeStatus)
	fmt.Fprintf(w.w, "WWW-Authenticate: %s\n", c.Header())
	fmt.Fprint(w.w, "Connection: close\n")
	fmt.Fprint(w.w, "Content-Type: text/html; charset=utf-8\n\n")
	fmt.Fprint(w.w, c.Page())

	return w.w.Flush()
}

// EmitNotModified writes the literal 304 status line. Header block stays open
// until Finish is called.
func (w *Writer) EmitNotModified() error {
	fmt.Fprintln(w.w, NotModifiedLine)
	w.headerOpen = true

	return w.w.Flush()
}

// Relay writes upstream response: status, end to end headers and body.
func (w *Writer) Relay(resp *http.Response) error {
	header := resp.Header.Clone()
	authopener.RemoveHopHeaders(header)

	status := resp.Status
	if status == "" {
		status = strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
	}

	fmt.Fprintf(w.w, "Status: %s\n", status)

	for _, key := range slices.Sorted(maps.Keys(header)) {
		for _, value := range header[key] {
			fmt.Fprintf(w.w, "%s: %s\n", key, value)
		}
	}

	fmt.Fprint(w.w, "\n")

	if _, err := io.Copy(w.w, resp.Body); err != nil {
		return fmt.Errorf("relay body: %w", err)
	}

	return w.w.Flush()
}

// Fail writes plain text error response.
func (w *Writer) Fail(code int, message string) error {
	fmt.Fprintf(w.w, "Status: %d %s\n", code, http.StatusText(code))
	fmt.Fprint(w.w, "Content-Type: text/plain; charset=utf-8\n\n")
	fmt.Fprintln(w.w, message)

	return w.w.Flush()
}

// Finish ends header block left open by EmitNotModified.
func (w *Writer) Finish() error {
	if !w.headerOpen {
		return nil
	}

	w.headerOpen = false

	fmt.Fprint(w.w, "\n")

	return w.w.Flush()
}
