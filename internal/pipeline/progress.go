package pipeline

import (
	"fmt"
	"sync"
)

// ProgressLog is the append-only event stream for a run: an ordered sequence
// of human-readable lines plus a monotonically non-decreasing percentage.
// It is safe for concurrent use; entries are never rewritten, only appended
// or cleared wholesale on reset.
type ProgressLog struct {
	mu      sync.Mutex
	entries []string
	percent float64
}

// Append adds a line to the log.
func (l *ProgressLog) Append(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// SetPercent raises the progress percentage. Attempts to lower it are
// ignored so progress stays monotonic within a run.
func (l *ProgressLog) SetPercent(p float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p > l.percent {
		l.percent = p
	}
}

// Percent returns the current progress percentage.
func (l *ProgressLog) Percent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.percent
}

// Entries returns a copy of the log lines.
func (l *ProgressLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear wipes the log and resets the percentage to zero.
func (l *ProgressLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.percent = 0
}
