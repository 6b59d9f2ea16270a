// Package oneshot sends one message to a TCP endpoint and reads one reply.
//
// Example usage:
//
//	cfg, created, err := oneshot.EnsureConfig("config.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if created {
//	    return // defaults written; edit the file and run again
//	}
//	res, err := oneshot.Exchange(context.Background(), cfg, "hello", zerolog.Nop())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes: %s\n", len(res.Received), res.Text)
package oneshot

import (
	"context"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/oneshot/internal/adapters/log"
	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/domain"
	"github.com/bft-labs/oneshot/internal/session"
)

// Errors returned by EnsureConfig and Exchange. Match them with errors.Is.
var (
	ErrConfigUnreadable = domain.ErrConfigUnreadable
	ErrConfigSchema     = domain.ErrConfigSchema
	ErrConfigValue      = domain.ErrConfigValue
	ErrConnect          = domain.ErrConnect
	ErrIO               = domain.ErrIO
	ErrDecode           = domain.ErrDecode
)

// Config holds the persisted connection parameters.
type Config = cliconfig.Config

// Result describes a completed exchange.
type Result = session.Result

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// EnsureConfig loads the config file at path, or writes DefaultConfig
// there and reports created = true when it does not exist yet.
func EnsureConfig(path string) (Config, bool, error) {
	return cliconfig.EnsureConfig(path)
}

// Exchange connects to cfg.Server, waits cfg.InitialDelay, sends payload,
// reads one reply and closes the connection.
func Exchange(ctx context.Context, cfg Config, payload string, logger zerolog.Logger) (Result, error) {
	l := logAdapter.NewZerologAdapterWithLogger(logger)
	s, err := session.Dial(ctx, nil, cfg, session.Options{Payload: payload}, l)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()
	return s.Exchange()
}
