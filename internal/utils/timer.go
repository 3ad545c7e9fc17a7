// Package utils holds small helpers shared by the command and the analytics
// packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowStage is the duration above which a stage is reported at warn level.
const SlowStage = 5 * time.Second

// Timer measures how long a named stage of a run takes
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
	now   func() time.Time
}

// NewTimer starts a timer for the given stage
func NewTimer(name string, log zerolog.Logger) *Timer {
	return newTimer(name, log, time.Now)
}

func newTimer(name string, log zerolog.Logger, now func() time.Time) *Timer {
	return &Timer{
		start: now(),
		name:  name,
		log:   log,
		now:   now,
	}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	duration := t.now().Sub(t.start)

	t.log.Debug().
		Str("stage", t.name).
		Dur("duration_ms", duration).
		Msg("Stage completed")

	if duration > SlowStage {
		t.log.Warn().
			Str("stage", t.name).
			Dur("duration", duration).
			Msg("Slow stage detected")
	}

	return duration
}

// Track provides a defer-friendly way to time a stage
//
// Usage:
//
//	defer utils.Track("load_prices", log)()
func Track(name string, log zerolog.Logger) func() {
	t := NewTimer(name, log)
	return func() { t.Stop() }
}
