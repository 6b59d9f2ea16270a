package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logAdapter "github.com/bft-labs/oneshot/internal/adapters/log"
	"github.com/bft-labs/oneshot/internal/echo"
	"github.com/bft-labs/oneshot/internal/logging"
)

func newRootCmd() *cobra.Command {
	cfg := echo.DefaultConfig()
	var (
		logLevel = "debug"
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:           "oneshot-server",
		Short:         "Reply to each connection with its message reversed and title-cased",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			zl, err := logging.Init(logging.Options{Level: logLevel, NoColor: noColor})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					zl.Info().Str("signal", sig.String()).Msg("shutting down")
					cancel()
				case <-ctx.Done():
				}
			}()

			return echo.New(cfg, logAdapter.NewZerologAdapterWithLogger(zl)).ListenAndServe(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "how long to wait for a request (0 waits indefinitely)")
	f.DurationVar(&cfg.ReplyDelay, "reply-delay", cfg.ReplyDelay, "pause before replying")
	f.StringVar(&logLevel, "log-level", logLevel, "log level (trace, debug, info, warn, error)")
	f.BoolVar(&noColor, "no-color", noColor, "disable colored terminal output")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log := logging.Logger()
		log.Error().Err(err).Msg("oneshot-server")
		os.Exit(1)
	}
}
