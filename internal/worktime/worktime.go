// Package worktime computes elapsed, paused and net durations of a work
// session.
package worktime

import (
	"fmt"
	"time"
)

// Interval is a pause interval. A nil To marks an open pause, which
// contributes nothing to the paused total.
type Interval struct {
	From time.Time
	To   *time.Time
}

// Breakdown is the result of Compute. The millisecond fields always
// satisfy TotalMs == PauseMs + NetMs.
type Breakdown struct {
	TotalMs int64
	PauseMs int64
	NetMs   int64
}

// Compute returns the durations of a session that started at start and
// ended at end. When end is nil the session is measured up to now.
func Compute(start time.Time, end *time.Time, pauses []Interval, now time.Time) Breakdown {
	stop := now
	if end != nil {
		stop = *end
	}

	var b Breakdown
	b.TotalMs = stop.Sub(start).Milliseconds()
	for _, p := range pauses {
		if p.To == nil {
			continue
		}
		b.PauseMs += p.To.Sub(p.From).Milliseconds()
	}
	b.NetMs = b.TotalMs - b.PauseMs
	return b
}

// Total returns the formatted total duration.
func (b Breakdown) Total() string { return FormatClock(b.TotalMs) }

// Pause returns the formatted paused duration.
func (b Breakdown) Pause() string { return FormatClock(b.PauseMs) }

// Net returns the formatted net duration.
func (b Breakdown) Net() string { return FormatClock(b.NetMs) }

// FormatClock renders milliseconds as HH:MM:SS. Hours are not wrapped at
// 24 and negative values render as 00:00:00.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
