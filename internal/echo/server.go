// Package echo is a companion server for trying the client by hand. Each
// connection gets one read, one transformed reply, and is closed.
package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/oneshot/internal/ports"
)

// Defaults for Config.
const (
	DefaultListen      = "0.0.0.0:7890"
	DefaultReadTimeout = 3 * time.Second
	DefaultReplyDelay  = 4 * time.Second

	// MaxMessage is the largest request read from a connection.
	MaxMessage = 1024
)

// Config holds server settings.
type Config struct {
	Listen      string
	ReadTimeout time.Duration
	ReplyDelay  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Listen:      DefaultListen,
		ReadTimeout: DefaultReadTimeout,
		ReplyDelay:  DefaultReplyDelay,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative")
	}
	if c.ReplyDelay < 0 {
		return fmt.Errorf("reply delay must not be negative")
	}
	return nil
}

// Server accepts connections until its context is canceled.
type Server struct {
	cfg    Config
	logger ports.Logger

	mu sync.Mutex
	ln net.Listener

	wg     sync.WaitGroup
	nextID atomic.Uint64
}

// New creates a server. Call Listen, then Serve.
func New(cfg Config, logger ports.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("started a tcp server", ports.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is done, then waits for in-flight
// connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve: not listening")
	}

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	b := newBackoff(acceptBackoffInitial, acceptBackoffMax)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := b.Next()
			s.logger.Warn("failed to accept connection", ports.Err(err), ports.Duration("retry_in", wait))
			time.Sleep(wait)
			continue
		}
		b.Reset()

		id := s.nextID.Add(1)
		s.logger.Info("accepted connection",
			ports.Int("conn", int(id)),
			ports.String("remote", conn.RemoteAddr().String()),
		)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn, int(id))
		}()
	}
}

// ListenAndServe binds and serves.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handle(ctx context.Context, conn net.Conn, id int) {
	defer conn.Close()

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			s.logger.Warn("set read deadline", ports.Int("conn", id), ports.Err(err))
			return
		}
	}

	buf := make([]byte, MaxMessage)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn("failed to read from client", ports.Int("conn", id), ports.Err(err))
		return
	}
	s.logger.Info("read client data", ports.Int("conn", id), ports.Int("bytes", n), ports.String("text", string(buf[:n])))

	reply := Transform(buf[:n])

	if s.cfg.ReplyDelay > 0 {
		t := time.NewTimer(s.cfg.ReplyDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	written, err := conn.Write(reply)
	if err != nil {
		s.logger.Warn("failed to write response", ports.Int("conn", id), ports.Err(err))
		return
	}
	s.logger.Info("wrote response", ports.Int("conn", id), ports.Int("bytes", written))
}
