package cliconfig

import (
	"fmt"
	"net/netip"
	"strconv"
	"time"
)

// Defaults written on first run and used for unset options.
const (
	DefaultConfigPath   = "config.json"
	DefaultLogFile      = "log.txt"
	DefaultLogLevel     = "trace"
	DefaultServer       = "127.0.0.1:7890"
	DefaultInitialDelay = 6 * time.Second

	// DefaultPayload is sent when no payload is given on the command line.
	DefaultPayload = "Привет, сервер!"
)

// Config is the persisted run configuration. It is immutable once loaded.
type Config struct {
	Server       netip.AddrPort
	InitialDelay time.Duration
}

// DefaultConfig returns the configuration written by the bootstrap step.
func DefaultConfig() Config {
	return Config{
		Server:       netip.MustParseAddrPort(DefaultServer),
		InitialDelay: DefaultInitialDelay,
	}
}

// Validate checks that the configuration can drive a session.
func (c Config) Validate() error {
	if !c.Server.IsValid() {
		return fmt.Errorf("server address is required")
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial delay must not be negative")
	}
	return nil
}

// Options holds process options. Unlike Config they are never persisted;
// they come from defaults, ONESHOT_* environment variables and flags.
type Options struct {
	ConfigPath  string
	Payload     string
	LogFile     string
	LogLevel    string
	NoColor     bool
	DialTimeout time.Duration
	IOTimeout   time.Duration
	StrictUTF8  bool
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		ConfigPath: DefaultConfigPath,
		Payload:    DefaultPayload,
		LogFile:    DefaultLogFile,
		LogLevel:   DefaultLogLevel,
	}
}

// Validate checks the options for errors.
func (o *Options) Validate() error {
	if o.ConfigPath == "" {
		return fmt.Errorf("config path is required")
	}
	if o.DialTimeout < 0 {
		return fmt.Errorf("dial timeout must not be negative")
	}
	if o.IOTimeout < 0 {
		return fmt.Errorf("io timeout must not be negative")
	}
	return nil
}

// configSetter applies values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
