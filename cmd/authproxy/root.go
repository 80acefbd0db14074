package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	cfg := &appConfig{}

	cmd := &cobra.Command{
		Use:   "authproxy",
		Short: "Proxy that answers upstream Basic auth challenges",
		Long: `authproxy forwards requests to an upstream server. When upstream asks for
Basic authentication, the credential of the inbound request is forwarded once,
or a 401 challenge with the upstream realm is sent back to the client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := initLogger(os.Stderr, cfg.LogLevel); err != nil {
				return err
			}

			return cfg.validate()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.Upstream, "upstream", envOr(upstreamEnv, ""), "upstream base URL (env "+upstreamEnv+")")
	flags.StringVar(&cfg.LogLevel, "log-level", envOr(logLevelEnv, "info"), "log level: debug, info, warn, error (env "+logLevelEnv+")")
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "upstream request timeout")
	flags.BoolVar(&cfg.Breaker, "breaker", false, "put upstream requests behind a circuit breaker")

	cmd.AddCommand(newServeCmd(cfg), newCGICmd(cfg))

	return cmd
}
