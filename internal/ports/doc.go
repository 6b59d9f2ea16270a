// Package ports defines the interfaces (ports) that connect the oneshot
// session and runner to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Logger]: Structured, leveled logging sink
//   - [Dialer]: Transport capability used to open the outbound connection
//
// # Usage
//
// The session (internal/session) and runner (internal/app) depend only on
// these interfaces. Adapters (internal/adapters) and the standard
// net.Dialer provide the concrete implementations, which lets tests swap in
// recording loggers and failing dialers.
package ports
