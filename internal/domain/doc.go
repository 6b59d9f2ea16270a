// Package domain contains the error taxonomy shared by every oneshot layer.
//
// It has no dependencies on infrastructure concerns (sockets, files,
// logging). Callers classify failures with errors.Is against the sentinel
// values and recover details with errors.As against the typed errors:
//
//   - [ConfigError]: the configuration file could not be read, decoded or
//     validated. Always raised before any network activity.
//   - [ConnectError]: the outbound connection could not be established.
//   - [IOError]: a write or read failed, or the socket reported a deferred
//     error after the call returned.
//   - [DecodeError]: the response is not valid UTF-8 and strict decoding
//     was requested.
//
// None of these are recovered locally. Each one ends the run.
package domain
