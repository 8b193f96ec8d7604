package robot

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ElapsedTime measures time since the last Reset.
type ElapsedTime struct {
	clock clock.Clock
	start time.Time
}

// NewElapsedTime returns a timer started now.
func NewElapsedTime(clk clock.Clock) *ElapsedTime {
	return &ElapsedTime{clock: clk, start: clk.Now()}
}

// Reset restarts the timer.
func (e *ElapsedTime) Reset() {
	e.start = e.clock.Now()
}

// Elapsed returns the time since the last reset.
func (e *ElapsedTime) Elapsed() time.Duration {
	return e.clock.Since(e.start)
}

// Seconds returns the time since the last reset in seconds.
func (e *ElapsedTime) Seconds() float64 {
	return e.Elapsed().Seconds()
}
