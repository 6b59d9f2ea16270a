package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/oneshot/internal/adapters/log"
	"github.com/bft-labs/oneshot/internal/app"
	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/logging"
	"github.com/bft-labs/oneshot/internal/ports"
)

const helpDescription = `
Send one message to a TCP endpoint and log the reply.

On first run oneshot writes a default config.json and exits without
connecting. Edit the file, then run again: oneshot connects to "server",
waits "initial_delay", sends the payload once, reads a single response of
up to 1024 bytes and exits. Every step is logged to the terminal and to
log.txt. Any failure exits with status 1; nothing is retried.
`

var exampleUsage = strings.TrimSpace(`
  oneshot
  oneshot --config ./staging.toml --payload "ping"
  oneshot check --watch
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries options shared by the root command and its subcommands.
type cli struct {
	opts cliconfig.Options
}

// setup layers env over flags and starts the process log sink. The file
// sink is only opened when withFile is set.
func (c *cli) setup(cmd *cobra.Command, withFile bool) (ports.Logger, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := cliconfig.ApplyEnvConfig(&c.opts, changed); err != nil {
		return nil, err
	}
	if err := c.opts.Validate(); err != nil {
		return nil, err
	}

	lo := logging.Options{Level: c.opts.LogLevel, NoColor: c.opts.NoColor}
	if withFile {
		lo.File = c.opts.LogFile
	}
	zl, err := logging.Init(lo)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return logAdapter.NewZerologAdapterWithLogger(zl), nil
}

func newRootCmd() *cobra.Command {
	c := &cli{opts: cliconfig.DefaultOptions()}

	root := &cobra.Command{
		Use:           "oneshot",
		Short:         "Send one message to a TCP endpoint and log the reply",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := c.setup(cmd, true)
			if err != nil {
				return err
			}

			rep, err := app.NewRunner(c.opts, log).Run(context.Background())
			if err != nil {
				return err
			}
			if rep.Bootstrapped {
				log.Info("exiting after writing default configuration")
				return nil
			}
			log.Info("done", ports.Int("sent", rep.Exchange.Sent), ports.Int("received", len(rep.Exchange.Received)))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.opts.ConfigPath, "config", c.opts.ConfigPath, "path to config file (.json or .toml)")
	pf.StringVar(&c.opts.LogLevel, "log-level", c.opts.LogLevel, "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&c.opts.NoColor, "no-color", c.opts.NoColor, "disable colored terminal output")

	root.Flags().StringVar(&c.opts.Payload, "payload", c.opts.Payload, "message to send")
	root.Flags().StringVar(&c.opts.LogFile, "log-file", c.opts.LogFile, "log file, truncated on every run")
	root.Flags().DurationVar(&c.opts.DialTimeout, "dial-timeout", c.opts.DialTimeout, "connect timeout (0 waits indefinitely)")
	root.Flags().DurationVar(&c.opts.IOTimeout, "io-timeout", c.opts.IOTimeout, "timeout for the send and for the receive (0 waits indefinitely)")
	root.Flags().BoolVar(&c.opts.StrictUTF8, "strict-utf8", c.opts.StrictUTF8, "fail when the response is not valid UTF-8")

	root.AddCommand(newCheckCmd(c))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log := logging.Logger()
		log.Error().Err(err).Msg("oneshot")
		os.Exit(1)
	}
}
