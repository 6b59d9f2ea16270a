package oneshot_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bft-labs/oneshot"
)

func TestExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		io.ReadFull(conn, buf)
		conn.Write(buf)
	}()

	cfg := oneshot.Config{Server: netip.MustParseAddrPort(ln.Addr().String())}
	res, err := oneshot.Exchange(context.Background(), cfg, "hello", zerolog.Nop())
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if res.Sent != 5 || res.Text != "hello" {
		t.Errorf("Exchange() = %+v, want hello echoed", res)
	}
}

func TestEnsureConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, created, err := oneshot.EnsureConfig(path)
	if err != nil || !created {
		t.Fatalf("EnsureConfig() created = %v, err = %v", created, err)
	}
	if cfg != oneshot.DefaultConfig() {
		t.Errorf("EnsureConfig() = %+v, want defaults", cfg)
	}
}

func TestExchange_ConnectError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg := oneshot.Config{Server: netip.MustParseAddrPort(ln.Addr().String())}
	ln.Close()

	_, err = oneshot.Exchange(context.Background(), cfg, "hello", zerolog.Nop())
	if !errors.Is(err, oneshot.ErrConnect) {
		t.Errorf("Exchange() error = %v, want ErrConnect", err)
	}
}
