package cliconfig

import "os"

// ApplyEnvConfig applies options from environment variables (ONESHOT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(opts *Options, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("config", os.Getenv("ONESHOT_CONFIG"), &opts.ConfigPath)
	s.setString("payload", os.Getenv("ONESHOT_PAYLOAD"), &opts.Payload)
	s.setString("log-file", os.Getenv("ONESHOT_LOG_FILE"), &opts.LogFile)
	s.setString("log-level", os.Getenv("ONESHOT_LOG_LEVEL"), &opts.LogLevel)

	if err := s.setDuration("dial-timeout", os.Getenv("ONESHOT_DIAL_TIMEOUT"), &opts.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("io-timeout", os.Getenv("ONESHOT_IO_TIMEOUT"), &opts.IOTimeout); err != nil {
		return err
	}

	if err := s.setBoolFromString("strict-utf8", os.Getenv("ONESHOT_STRICT_UTF8"), &opts.StrictUTF8); err != nil {
		return err
	}
	if err := s.setBoolFromString("no-color", os.Getenv("ONESHOT_NO_COLOR"), &opts.NoColor); err != nil {
		return err
	}

	return nil
}
