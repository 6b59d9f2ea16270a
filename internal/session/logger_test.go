package session

import (
	"sync"

	"github.com/bft-labs/oneshot/internal/ports"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger implements ports.Logger and keeps every entry.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *recordingLogger) Trace(msg string, fields ...ports.Field) { l.record("trace", msg, fields) }
func (l *recordingLogger) Debug(msg string, fields ...ports.Field) { l.record("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...ports.Field)  { l.record("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...ports.Field)  { l.record("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...ports.Field) { l.record("error", msg, fields) }

// find returns the first entry with msg.
func (l *recordingLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// messages returns the non-trace messages in order.
func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level != "trace" {
			out = append(out, e.msg)
		}
	}
	return out
}
