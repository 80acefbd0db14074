package cgi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ksysoev/authopener"
)

func TestWriter_EmitChallenge(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)

	err := w.EmitChallenge(authopener.Challenge{Scheme: "http", URL: "//host/path", Realm: "Admin"})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()

	wantHeaders := "Status: 401 Authorization Required\n" +
		"WWW-Authenticate: Basic realm=\"Admin\"\n" +
		"Connection: close\n"

	if !strings.HasPrefix(out, wantHeaders) {
		t.Errorf("Unexpected headers:\n%s", out)
	}

	if !strings.Contains(out, "\n\n<!DOCTYPE html") {
		t.Errorf("Expected page after blank line:\n%s", out)
	}

	if !strings.Contains(out, "You need Admin access to http://host/path to use this service.") {
		t.Errorf("Expected access message in body:\n%s", out)
	}
}

func TestWriter_EmitNotModified(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)

	if err := w.EmitNotModified(); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "HTTP/1.1 304 Not Modified\n" {
		t.Errorf("Unexpected output: %q", buf.String())
	}

	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "HTTP/1.1 304 Not Modified\n\n" {
		t.Errorf("Unexpected output after finish: %q", buf.String())
	}

	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "HTTP/1.1 304 Not Modified\n\n" {
		t.Errorf("Finish must not write twice: %q", buf.String())
	}
}

func TestWriter_FinishWithoutOpenHeader(t *testing.T) {
	var buf bytes.Buffer

	if err := NewWriter(&buf).Finish(); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %q", buf.String())
	}
}

func TestWriter_Relay(t *testing.T) {
	var buf bytes.Buffer

	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type": []string{"text/plain"},
			"Connection":   []string{"keep-alive, X-Hop"},
			"X-Hop":        []string{"1"},
		},
		Body: io.NopCloser(strings.NewReader("hello")),
	}

	if err := NewWriter(&buf).Relay(resp); err != nil {
		t.Fatal(err)
	}

	want := "Status: 200 OK\nContent-Type: text/plain\n\nhello"
	if buf.String() != want {
		t.Errorf("Unexpected output: %q, expected %q", buf.String(), want)
	}
}

func TestWriter_Fail(t *testing.T) {
	var buf bytes.Buffer

	if err := NewWriter(&buf).Fail(http.StatusBadGateway, "500 Internal Error"); err != nil {
		t.Fatal(err)
	}

	want := "Status: 502 Bad Gateway\nContent-Type: text/plain; charset=utf-8\n\n500 Internal Error\n"
	if buf.String() != want {
		t.Errorf("Unexpected output: %q, expected %q", buf.String(), want)
	}
}

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("closed")
}

func TestWriter_ReportsWriteError(t *testing.T) {
	w := NewWriter(failingWriter{})

	if err := w.EmitChallenge(authopener.Challenge{Scheme: "http", URL: "//h/", Realm: "R"}); err == nil {
		t.Error("Expected error from failing writer")
	}
}
