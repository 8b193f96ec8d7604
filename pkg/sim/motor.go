// Package sim provides a simulated robot so the control code can run
// without hardware.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ftc10546/pushbot/pkg/robot"
)

const (
	// DefaultMaxCountsPerSecond is the encoder rate at full power.
	DefaultMaxCountsPerSecond = 600

	// DefaultTolerance is how close a position move must get to finish.
	DefaultTolerance = 5
)

// Motor is a simulated encoder motor. Its position is integrated from the
// commanded power each time it is observed.
type Motor struct {
	clock clock.Clock

	mu        sync.Mutex
	mode      robot.RunMode
	power     float64
	target    int
	position  float64
	last      time.Time
	maxRate   float64
	tolerance int
	stalled   bool
}

// NewMotor returns a motor at position zero in velocity mode.
func NewMotor(clk clock.Clock) *Motor {
	return &Motor{
		clock:     clk,
		last:      clk.Now(),
		maxRate:   DefaultMaxCountsPerSecond,
		tolerance: DefaultTolerance,
	}
}

// update integrates motion up to now. Caller must hold mu.
func (m *Motor) update() {
	now := m.clock.Now()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if dt <= 0 || m.stalled {
		return
	}

	switch m.mode {
	case robot.VelocityControl, robot.OpenLoop:
		m.position += m.power * m.maxRate * dt
	case robot.PositionControl:
		remaining := float64(m.target) - m.position
		travel := math.Abs(m.power) * m.maxRate * dt
		if math.Abs(remaining) <= travel {
			m.position = float64(m.target)
		} else {
			m.position += math.Copysign(travel, remaining)
		}
	}
}

func (m *Motor) SetPower(ctx context.Context, power float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.update()
	m.power = robot.ClipPower(power)
	return nil
}

func (m *Motor) SetMode(ctx context.Context, mode robot.RunMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.update()
	if mode == robot.ResetEncoder {
		m.position = 0
		m.power = 0
	}
	m.mode = mode
	return nil
}

func (m *Motor) SetTargetPosition(ctx context.Context, counts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.update()
	m.target = counts
	return nil
}

func (m *Motor) CurrentPosition(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.update()
	return int(math.Round(m.position)), nil
}

func (m *Motor) IsBusy(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.update()
	if m.mode != robot.PositionControl {
		return false, nil
	}
	return math.Abs(float64(m.target)-m.position) > float64(m.tolerance), nil
}

// Power returns the last commanded power.
func (m *Motor) Power() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.power
}

// Mode returns the current run mode.
func (m *Motor) Mode() robot.RunMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Target returns the last target position.
func (m *Motor) Target() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// SetPosition moves the encoder to an absolute count, e.g. to model drift.
func (m *Motor) SetPosition(counts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.update()
	m.position = float64(counts)
}

// SetStalled freezes the motor in place; a stalled motor never reaches its target.
func (m *Motor) SetStalled(stalled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.update()
	m.stalled = stalled
}

// SetMaxRate changes the full-power encoder rate in counts per second.
func (m *Motor) SetMaxRate(countsPerSecond float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.update()
	m.maxRate = countsPerSecond
}
