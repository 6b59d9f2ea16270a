// Package session owns the lifecycle of one outbound connection: connect,
// wait, send one payload, read one response, report.
//
// Every step blocks. A failure at any step is final for the session; there
// are no retries.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/domain"
	"github.com/bft-labs/oneshot/internal/ports"
)

// ReceiveBufferSize caps the single read of the response.
const ReceiveBufferSize = 1024

// Options tunes a session. The zero value has no timeouts, sleeps with
// time.Sleep and reports invalid UTF-8 without failing.
type Options struct {
	// Payload is sent as its UTF-8 bytes.
	Payload string

	// DialTimeout bounds the connect. Zero means none.
	DialTimeout time.Duration

	// IOTimeout bounds each write and read. Zero means none.
	IOTimeout time.Duration

	// StrictUTF8 turns a non-UTF-8 response into a *domain.DecodeError.
	StrictUTF8 bool

	// Sleep implements the initial delay. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Result describes a completed exchange.
type Result struct {
	Sent     int
	Received []byte

	// Text is the response decoded as UTF-8, with invalid sequences
	// replaced by U+FFFD when ValidUTF8 is false.
	Text      string
	ValidUTF8 bool
}

// Session owns one connection from connect through receive.
type Session struct {
	id     string
	cfg    cliconfig.Config
	opts   Options
	conn   net.Conn
	logger ports.Logger
	phase  phaseTracker

	pollErr func(net.Conn) error
}

// Dial connects to cfg.Server. A nil dialer uses net.Dialer. On failure
// the error is a *domain.ConnectError and no session exists.
func Dial(ctx context.Context, dialer ports.Dialer, cfg cliconfig.Config, opts Options, logger ports.Logger) (*Session, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	addr := cfg.Server.String()
	logger.Debug("connecting", ports.String("server", addr), ports.Duration("timeout", opts.DialTimeout))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &domain.ConnectError{Addr: addr, Err: err}
	}

	s := newSession(conn, cfg, opts, logger)
	_ = s.phase.transitionTo(PhaseConnected, "dial succeeded")
	logger.Info("connected",
		ports.String("session", s.id),
		ports.String("server", addr),
		ports.String("local", conn.LocalAddr().String()),
	)
	return s, nil
}

func newSession(conn net.Conn, cfg cliconfig.Config, opts Options, logger ports.Logger) *Session {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		cfg:     cfg,
		opts:    opts,
		conn:    conn,
		logger:  logger,
		phase:   phaseTracker{id: id, logger: logger},
		pollErr: pendingError,
	}
}

// ID returns the session id attached to every log line.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase.phase }

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Exchange waits the configured delay, sends the payload, reads one
// response and logs it. It may be called once per session.
func (s *Session) Exchange() (Result, error) {
	var res Result

	if s.conn == nil {
		return res, &domain.IOError{Op: "send", Err: net.ErrClosed}
	}
	if err := s.phase.transitionTo(PhaseWaiting, "exchange started"); err != nil {
		return res, err
	}
	s.logger.Info("waiting before send",
		ports.String("session", s.id),
		ports.Duration("delay", s.cfg.InitialDelay),
	)
	s.opts.Sleep(s.cfg.InitialDelay)

	if err := s.phase.transitionTo(PhaseSending, "delay elapsed"); err != nil {
		return res, err
	}
	s.logger.Info("sending",
		ports.String("session", s.id),
		ports.String("payload", s.opts.Payload),
	)
	sent, err := s.send([]byte(s.opts.Payload))
	res.Sent = sent
	if err != nil {
		return res, s.fail(err)
	}
	s.logger.Info("sent", ports.String("session", s.id), ports.Int("bytes", sent))

	if err := s.phase.transitionTo(PhaseReceiving, "payload written"); err != nil {
		return res, err
	}
	data, err := s.receive()
	res.Received = data
	if err != nil {
		return res, s.fail(err)
	}

	if err := s.report(&res); err != nil {
		return res, s.fail(err)
	}
	_ = s.phase.transitionTo(PhaseDone, "response received")
	return res, nil
}

func (s *Session) send(payload []byte) (int, error) {
	if s.opts.IOTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.IOTimeout)); err != nil {
			return 0, &domain.IOError{Op: "send", Err: err}
		}
	}
	n, err := s.conn.Write(payload)
	if err != nil {
		return n, &domain.IOError{Op: "send", Err: err}
	}
	if err := s.pollErr(s.conn); err != nil {
		return n, &domain.IOError{Op: "send", Deferred: true, Err: err}
	}
	return n, nil
}

// receive performs exactly one read. A peer that closes without sending
// yields zero bytes and no error.
func (s *Session) receive() ([]byte, error) {
	if s.opts.IOTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.IOTimeout)); err != nil {
			return nil, &domain.IOError{Op: "receive", Err: err}
		}
	}
	buf := make([]byte, ReceiveBufferSize)
	n, err := s.conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf[:n], &domain.IOError{Op: "receive", Err: err}
	}
	if err := s.pollErr(s.conn); err != nil {
		return buf[:n], &domain.IOError{Op: "receive", Deferred: true, Err: err}
	}
	return buf[:n], nil
}

// report decodes the response for logging. Transport success does not
// depend on the bytes being text unless StrictUTF8 is set.
func (s *Session) report(res *Result) error {
	data := res.Received
	if utf8.Valid(data) {
		res.Text = string(data)
		res.ValidUTF8 = true
		s.logger.Info("received",
			ports.String("session", s.id),
			ports.Int("bytes", len(data)),
			ports.String("text", res.Text),
		)
		return nil
	}

	if s.opts.StrictUTF8 {
		return &domain.DecodeError{Offset: firstInvalid(data), Len: len(data)}
	}
	res.Text = strings.ToValidUTF8(string(data), "\uFFFD")
	s.logger.Warn("received non-utf-8 response",
		ports.String("session", s.id),
		ports.Int("bytes", len(data)),
		ports.Bool("utf8", false),
		ports.Bytes("raw", data),
	)
	return nil
}

func (s *Session) fail(err error) error {
	_ = s.phase.transitionTo(PhaseFailed, err.Error())
	return err
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}
