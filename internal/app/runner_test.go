package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	logAdapter "github.com/bft-labs/oneshot/internal/adapters/log"
	"github.com/bft-labs/oneshot/internal/cliconfig"
	"github.com/bft-labs/oneshot/internal/domain"
)

// countingDialer records dial attempts and refuses them.
type countingDialer struct {
	calls int
}

func (d *countingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls++
	return nil, errors.New("dial not expected")
}

func writeConfig(t *testing.T, dir string, cfg cliconfig.Config) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := cliconfig.WriteFileConfig(path, cfg); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func options(path string) cliconfig.Options {
	opts := cliconfig.DefaultOptions()
	opts.ConfigPath = path
	return opts
}

func TestRunner_BootstrapDoesNotConnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	dialer := &countingDialer{}

	r := NewRunner(options(path), logAdapter.NewNoopLogger(), WithDialer(dialer))
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !rep.Bootstrapped {
		t.Error("Bootstrapped = false on first run")
	}
	if dialer.calls != 0 {
		t.Errorf("dialed %d times during bootstrap", dialer.calls)
	}
	if !cliconfig.FileExists(path) {
		t.Fatal("config file not written")
	}

	// Second run loads the file and tries to connect.
	rep, err = r.Run(context.Background())
	if rep.Bootstrapped {
		t.Error("Bootstrapped = true on second run")
	}
	if dialer.calls != 1 {
		t.Errorf("dialed %d times on second run, want 1", dialer.calls)
	}
	if !errors.Is(err, domain.ErrConnect) {
		t.Errorf("Run() error = %v, want ErrConnect", err)
	}
}

func TestRunner_EchoScenario(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:19999")
	if err != nil {
		t.Skipf("port 19999 unavailable: %v", err)
	}
	defer ln.Close()

	payload := cliconfig.DefaultPayload
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, len(payload))
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		conn.Write([]byte("ok"))
	}()

	path := writeConfig(t, t.TempDir(), cliconfig.Config{
		Server:       netip.MustParseAddrPort("127.0.0.1:19999"),
		InitialDelay: 0,
	})

	r := NewRunner(options(path), logAdapter.NewNoopLogger())
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Exchange.Sent != len([]byte(payload)) {
		t.Errorf("Sent = %d, want %d", rep.Exchange.Sent, len([]byte(payload)))
	}
	if len(rep.Exchange.Received) != 2 || rep.Exchange.Text != "ok" {
		t.Errorf("Received = %q, want ok", rep.Exchange.Received)
	}
}

func TestRunner_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := netip.MustParseAddrPort(ln.Addr().String())
	ln.Close()

	path := writeConfig(t, t.TempDir(), cliconfig.Config{Server: addr})

	opts := options(path)
	opts.DialTimeout = 2 * time.Second
	r := NewRunner(opts, logAdapter.NewNoopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrConnect) {
			t.Errorf("Run() error = %v, want ErrConnect", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() hung on a closed port")
	}
}

func TestRunner_InvalidConfigDoesNotConnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server": "127.0.0.1:7890", "initial_delay": {"secs": 0, "nanos": 0}, "retries": 3}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	dialer := &countingDialer{}

	r := NewRunner(options(path), logAdapter.NewNoopLogger(), WithDialer(dialer))
	_, err := r.Run(context.Background())
	if !errors.Is(err, domain.ErrConfigSchema) {
		t.Errorf("Run() error = %v, want ErrConfigSchema", err)
	}
	if dialer.calls != 0 {
		t.Errorf("dialed %d times with an invalid config", dialer.calls)
	}
}

func TestRunner_UsesConfiguredDelayAndPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		io.ReadFull(conn, buf)
		got <- string(buf)
		conn.Write([]byte("pong"))
	}()

	path := writeConfig(t, t.TempDir(), cliconfig.Config{
		Server:       netip.MustParseAddrPort(ln.Addr().String()),
		InitialDelay: 42 * time.Second,
	})

	var slept time.Duration
	opts := options(path)
	opts.Payload = "ping"
	r := NewRunner(opts, logAdapter.NewNoopLogger(), WithSleep(func(d time.Duration) { slept = d }))

	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if slept != 42*time.Second {
		t.Errorf("slept %v, want 42s", slept)
	}
	if s := <-got; s != "ping" {
		t.Errorf("server got %q, want ping", s)
	}
	if rep.Exchange.Text != "pong" {
		t.Errorf("Text = %q, want pong", rep.Exchange.Text)
	}
}
