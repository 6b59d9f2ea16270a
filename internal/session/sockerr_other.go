//go:build !unix

package session

import "net"

// pendingError is a no-op where SO_ERROR is not reachable through
// golang.org/x/sys/unix; write and read errors are still reported directly.
func pendingError(net.Conn) error { return nil }
