package utils

import (
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/viewpoint/logging"
)

// Timer measures the wall time of a pipeline stage for diagnostics.
type Timer struct {
	clock clock.Clock
	start time.Time
}

// NewTimer returns a started timer reading from c, or from the real clock when c is nil.
func NewTimer(c clock.Clock) *Timer {
	if c == nil {
		c = clock.New()
	}
	return &Timer{clock: c, start: c.Now()}
}

// Elapsed returns the time since the timer was started or last reset.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Since(t.start)
}

// Reset restarts the timer.
func (t *Timer) Reset() {
	t.start = t.clock.Now()
}

// LogTiming logs the elapsed time of the named stage and restarts the timer.
func (t *Timer) LogTiming(logger logging.Logger, stage string) time.Duration {
	elapsed := t.Elapsed()
	logger.Infow(stage, "elapsed", elapsed)
	t.Reset()
	return elapsed
}
