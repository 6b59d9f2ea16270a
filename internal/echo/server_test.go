package echo

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	logAdapter "github.com/bft-labs/oneshot/internal/adapters/log"
)

func startServer(t *testing.T, cfg Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	cfg.Listen = "127.0.0.1:0"
	s := New(cfg, logAdapter.NewNoopLogger())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	t.Cleanup(cancel)
	return s, cancel, done
}

func TestServer_RepliesWithTransform(t *testing.T) {
	s, _, _ := startServer(t, Config{ReadTimeout: time.Second})

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello world")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	want := "Dlrow Olleh" + Signature
	if string(reply) != want {
		t.Errorf("reply = %q, want %q", reply, want)
	}
}

func TestServer_ReplyDelay(t *testing.T) {
	const delay = 100 * time.Millisecond
	s, _, _ := startServer(t, Config{ReadTimeout: time.Second, ReplyDelay: delay})

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	conn.Write([]byte("x"))
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("reply after %v, want >= %v", elapsed, delay)
	}
}

func TestServer_ReadTimeoutClosesConnection(t *testing.T) {
	s, _, _ := startServer(t, Config{ReadTimeout: 50 * time.Millisecond})

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("got %q from a silent client's connection, want nothing", data)
	}
}

func TestServer_ShutdownOnCancel(t *testing.T) {
	_, cancel, done := startServer(t, Config{})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestServer_ServeWithoutListen(t *testing.T) {
	s := New(DefaultConfig(), logAdapter.NewNoopLogger())
	if err := s.Serve(context.Background()); err == nil {
		t.Error("Serve() expected error before Listen")
	}
	if s.Addr() != nil {
		t.Errorf("Addr() = %v before Listen, want nil", s.Addr())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"empty listen", Config{}, true},
		{"negative read timeout", Config{Listen: ":0", ReadTimeout: -1}, true},
		{"negative reply delay", Config{Listen: ":0", ReplyDelay: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
