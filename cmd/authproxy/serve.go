package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksysoev/authopener/metrics"
	mwhttp "github.com/ksysoev/authopener/middleware/http"
	"github.com/ksysoev/authopener/proxy"
	"github.com/ksysoev/authopener/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *appConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run proxy as HTTP server",
		Long:  "Run proxy as HTTP server. Prometheus metrics are exposed on /metrics, all other paths are proxied.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, nil)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", envOr(addrEnv, ":8080"), "address to listen on (env "+addrEnv+")")
	cmd.Flags().BoolVar(&cfg.Trace, "trace", false, "write traces to stdout")
	cmd.Flags().StringVar(&cfg.IPProvider, "ip-provider", "", "edge that reports client address: cloudflare, cloudfront")
	cmd.Flags().Uint64Var(&cfg.RateLimit, "rate-limit", 0, "requests allowed per client IP in rate period, 0 disables the limit")
	cmd.Flags().DurationVar(&cfg.RatePeriod, "rate-period", time.Minute, "period of the rate limit")

	return cmd
}

// middlewares returns the request pipeline in front of the proxy, outermost first.
func (c *appConfig) middlewares(provider mwhttp.Provider) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		mwhttp.NewClientIPMiddleware(provider),
		mwhttp.NewAccessLogMiddleware(slog.Default()),
		mwhttp.NewSpanMiddleware("authproxy.request"),
	}

	if c.RateLimit > 0 {
		mws = append(mws, mwhttp.NewRateLimiterMiddleware(mwhttp.ClientIPLimit(c.RatePeriod, c.RateLimit)))
	}

	return mws
}

// runServe runs server until ctx is done. ready is closed once server accepts connections.
func runServe(ctx context.Context, cfg *appConfig, ready chan<- struct{}) error {
	provider, ok := mwhttp.ParseProvider(cfg.IPProvider)
	if !ok {
		return fmt.Errorf("unknown ip provider %q", cfg.IPProvider)
	}

	if cfg.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}

		tp, err := proxy.NewTraceProvider(exp)
		if err != nil {
			return err
		}

		otel.SetTracerProvider(tp)

		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	p, err := proxy.New(cfg.Upstream, cfg.openerOptions()...)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithBaseContext(context.WithoutCancel(ctx))}
	if ready != nil {
		opts = append(opts, server.WithReadinessChan(ready))
	}

	srv := server.NewServer(cfg.Addr, opts...)
	srv.Handle("/", mwhttp.Chain(p, cfg.middlewares(provider)...))
	srv.Handle("/metrics", metrics.Handler())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()

		slog.Info("Shutting down proxy server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Close(shutdownCtx)
	})

	return g.Wait()
}
