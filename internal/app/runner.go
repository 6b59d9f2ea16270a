// Package app orchestrates one oneshot run: config bootstrap, then a single
// connection session.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/ports"
	"github.com/bft-labs/oneshot/internal/session"
)

// Report describes how a run ended without error.
type Report struct {
	// Bootstrapped is set when the config file was missing and defaults
	// were written instead of connecting.
	Bootstrapped bool

	Config   cliconfig.Config
	Exchange session.Result
}

// Runner performs one run. It holds no state between runs.
type Runner struct {
	opts   cliconfig.Options
	logger ports.Logger
	dialer ports.Dialer
	sleep  func(time.Duration)
}

// Option configures optional behavior of a Runner.
type Option func(*Runner)

// WithDialer replaces the default net.Dialer.
func WithDialer(d ports.Dialer) Option {
	return func(r *Runner) { r.dialer = d }
}

// WithSleep replaces time.Sleep for the initial delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// NewRunner creates a Runner. logger must not be nil.
func NewRunner(opts cliconfig.Options, logger ports.Logger, options ...Option) *Runner {
	r := &Runner{opts: opts, logger: logger}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run loads (or bootstraps) the config and, unless it was just written,
// runs the session to completion. Any returned error is fatal for the run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report

	r.logger.Info("starting the client", ports.String("config", r.opts.ConfigPath))

	cfg, created, err := cliconfig.EnsureConfig(r.opts.ConfigPath)
	if err != nil {
		return rep, fmt.Errorf("load config: %w", err)
	}
	rep.Config = cfg
	if created {
		r.logger.Warn("configuration file not found, wrote defaults; edit it and run again",
			ports.String("config", r.opts.ConfigPath),
			ports.String("server", cfg.Server.String()),
			ports.Duration("initial_delay", cfg.InitialDelay),
		)
		rep.Bootstrapped = true
		return rep, nil
	}

	r.logger.Info("read config",
		ports.String("server", cfg.Server.String()),
		ports.Duration("initial_delay", cfg.InitialDelay),
	)

	s, err := session.Dial(ctx, r.dialer, cfg, session.Options{
		Payload:     r.opts.Payload,
		DialTimeout: r.opts.DialTimeout,
		IOTimeout:   r.opts.IOTimeout,
		StrictUTF8:  r.opts.StrictUTF8,
		Sleep:       r.sleep,
	}, r.logger)
	if err != nil {
		return rep, err
	}
	defer func() {
		if err := s.Close(); err != nil {
			r.logger.Debug("close connection", ports.String("session", s.ID()), ports.Err(err))
		}
	}()

	res, err := s.Exchange()
	rep.Exchange = res
	if err != nil {
		return rep, err
	}
	return rep, nil
}
