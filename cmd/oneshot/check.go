package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/domain"
	"github.com/bft-labs/oneshot/internal/ports"
)

var errNoConfig = errors.New("no config file; run oneshot once to write the defaults")

func newCheckCmd(c *cli) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file without connecting or writing defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := c.setup(cmd, false)
			if err != nil {
				return err
			}
			path := c.opts.ConfigPath

			report := func(cfg cliconfig.Config, err error) {
				if err != nil {
					log.Error("config invalid", ports.String("config", path), ports.Err(err))
					return
				}
				log.Info("config valid",
					ports.String("config", path),
					ports.String("server", cfg.Server.String()),
					ports.Duration("initial_delay", cfg.InitialDelay),
				)
			}

			if !cliconfig.FileExists(path) {
				if !watch {
					return &domain.ConfigError{Kind: domain.ConfigUnreadable, Path: path, Err: errNoConfig}
				}
				log.Warn("config file does not exist yet", ports.String("config", path))
			}

			if !watch {
				cfg, err := cliconfig.LoadConfig(path)
				if err != nil {
					return err
				}
				report(cfg, nil)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("watching config for changes", ports.String("config", path))
			return cliconfig.NewWatcher(path, cliconfig.DefaultWatchDebounce, report).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "re-validate every time the file changes")
	return cmd
}
