//go:build unix

package session

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// pendingError reads and clears the socket error slot (SO_ERROR). Some
// stacks report a reset there instead of on the write or read that
// triggered it. Connections without a file descriptor report nil.
func pendingError(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("syscall conn: %w", err)
	}

	var soErr int
	var optErr error
	if err := raw.Control(func(fd uintptr) {
		soErr, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	}); err != nil {
		return fmt.Errorf("socket control: %w", err)
	}
	if optErr != nil {
		return fmt.Errorf("getsockopt SO_ERROR: %w", optErr)
	}
	if soErr != 0 {
		return syscall.Errno(soErr)
	}
	return nil
}
