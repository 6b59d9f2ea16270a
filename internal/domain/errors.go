package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	// ErrConfigUnreadable is returned when the config file cannot be opened or read.
	ErrConfigUnreadable = errors.New("oneshot: config unreadable")

	// ErrConfigSchema is returned when the config file does not match the schema:
	// malformed document, unknown field or missing required field.
	ErrConfigSchema = errors.New("oneshot: config schema invalid")

	// ErrConfigValue is returned when a field decodes but holds an unusable value.
	ErrConfigValue = errors.New("oneshot: config value invalid")

	// ErrConnect is returned when the outbound connection fails.
	ErrConnect = errors.New("oneshot: connect failed")

	// ErrIO is returned when a write or read on the connection fails.
	ErrIO = errors.New("oneshot: connection i/o failed")

	// ErrDecode is returned when the response is not valid UTF-8 in strict mode.
	ErrDecode = errors.New("oneshot: response is not valid utf-8")

	// ErrInvalidPhase is returned on an illegal session phase transition.
	ErrInvalidPhase = errors.New("oneshot: invalid session phase transition")
)

// ConfigErrorKind classifies a ConfigError.
type ConfigErrorKind int

const (
	ConfigUnreadable ConfigErrorKind = iota
	ConfigSchema
	ConfigValue
)

// String returns a human-readable representation of the kind.
func (k ConfigErrorKind) String() string {
	switch k {
	case ConfigUnreadable:
		return "unreadable"
	case ConfigSchema:
		return "schema"
	case ConfigValue:
		return "value"
	default:
		return "unknown"
	}
}

func (k ConfigErrorKind) sentinel() error {
	switch k {
	case ConfigUnreadable:
		return ErrConfigUnreadable
	case ConfigSchema:
		return ErrConfigSchema
	default:
		return ErrConfigValue
	}
}

// ConfigError reports a failure to obtain a valid Config from a file.
type ConfigError struct {
	Kind  ConfigErrorKind
	Path  string
	Field string // empty unless a single field is at fault
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s (%s): field %q: %v", e.Kind, e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s (%s): %v", e.Kind, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == e.Kind.sentinel() }

// ConnectError reports a transport-level failure to reach Addr.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnect }

// IOError reports a failed send or receive. Deferred is set when the
// failure was picked up from the socket error slot after the call itself
// had returned successfully.
type IOError struct {
	Op       string // "send" or "receive"
	Deferred bool
	Err      error
}

func (e *IOError) Error() string {
	if e.Deferred {
		return fmt.Sprintf("%s: deferred socket error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// DecodeError reports a response that is not valid UTF-8.
type DecodeError struct {
	// Offset is the index of the first invalid byte.
	Offset int
	Len    int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: invalid utf-8 at byte %d of %d", e.Offset, e.Len)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
