package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	httpcgi "net/http/cgi"
	"os"
	"strings"

	"github.com/ksysoev/authopener/cgi"
	"github.com/ksysoev/authopener/proxy"
	"github.com/spf13/cobra"
)

func newCGICmd(cfg *appConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "cgi",
		Short: "Handle a single CGI request",
		Long: `Handle a single CGI request described by the process environment.
PATH_INFO and QUERY_STRING are forwarded to upstream, HTTP_AUTHORIZATION is used
as the credential. The response is written to stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCGI(cmd.Context(), cfg, environ(), os.Stdin, os.Stdout)
		},
	}
}

func runCGI(ctx context.Context, cfg *appConfig, env map[string]string, stdin io.Reader, stdout io.Writer) error {
	req, err := cgiRequest(env, stdin)
	if err != nil {
		return err
	}

	p, err := proxy.New(cfg.Upstream, cfg.openerOptions()...)
	if err != nil {
		return err
	}

	out := cgi.NewWriter(stdout)

	if err := p.Forward(ctx, req, out); err != nil {
		return fmt.Errorf("write cgi response: %w", err)
	}

	return out.Finish()
}

// cgiRequest builds request from CGI variables. Only PATH_INFO is used as the
// request path, script name is not part of upstream URL.
func cgiRequest(env map[string]string, stdin io.Reader) (*http.Request, error) {
	req, err := httpcgi.RequestFromMap(env)
	if err != nil {
		return nil, fmt.Errorf("read cgi request: %w", err)
	}

	req.URL.Path = env["PATH_INFO"]
	req.URL.RawPath = ""

	if req.ContentLength > 0 {
		req.Body = io.NopCloser(io.LimitReader(stdin, req.ContentLength))
	} else {
		req.Body = http.NoBody
	}

	return req, nil
}

func environ() map[string]string {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	return env
}
