// Package logging owns the process-wide log sink: one terminal stream and
// one persisted file receiving the same leveled messages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options configures the sink built by Init.
type Options struct {
	// File is truncated (or created) and receives every message without color.
	// Empty disables the file sink.
	File string

	// Level is a zerolog level name. Empty means trace.
	Level string

	// NoColor forces plain terminal output even on a TTY.
	NoColor bool

	// Terminal overrides the terminal stream. Defaults to stderr.
	Terminal io.Writer
}

var (
	once    sync.Once
	logger  zerolog.Logger
	initErr error
)

func init() {
	// Per-logger levels do the filtering; the global floor would drop trace.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Init builds the sink on the first call and returns it on every call.
// Later calls ignore opts. There is no teardown; the file stays open for
// the life of the process.
func Init(opts Options) (zerolog.Logger, error) {
	once.Do(func() {
		var l zerolog.Logger
		l, initErr = New(opts)
		if initErr == nil {
			logger = l
		}
	})
	return logger, initErr
}

// Logger returns the process logger. Before Init it writes to stderr only.
func Logger() zerolog.Logger {
	return logger
}

// New builds a logger from opts without touching the process logger.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	writers := []io.Writer{terminalWriter(opts)}

	if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("create log file: %w", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger(), nil
}

// ParseLevel maps a level name to a zerolog.Level. Empty means trace.
func ParseLevel(raw string) (zerolog.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zerolog.TraceLevel, nil
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func terminalWriter(opts Options) io.Writer {
	if opts.Terminal != nil {
		return zerolog.ConsoleWriter{Out: opts.Terminal, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.ConsoleWriter{
		Out:        colorable.NewColorable(os.Stderr),
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor || !isTerminal(os.Stderr),
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
