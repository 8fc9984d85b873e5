package snapshot

import (
	"sync/atomic"
	"time"
)

// Versioner hands out snapshot version numbers.
type Versioner interface {
	Next(now time.Time) int64
}

// Monotonic derives versions from Unix milliseconds and never repeats or
// goes backwards within a process, even when the clock does.  Separate
// processes may still collide; the store resolves that last-write-wins.
type Monotonic struct {
	last atomic.Int64
}

// Next returns max(now in ms, previous+1).
func (m *Monotonic) Next(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		prev := m.last.Load()
		v := ms
		if v <= prev {
			v = prev + 1
		}
		if m.last.CompareAndSwap(prev, v) {
			return v
		}
	}
}
