package robot

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

// Hardware is the single handle to the robot's motors and clock for one run.
// It is built once by a backend and closed when the run ends.
type Hardware struct {
	motors map[MotorName]Motor
	clock  clock.Clock
	closer io.Closer
}

// NewHardware builds a handle from a complete set of motors. The closer, if
// non-nil, is closed by Close.
func NewHardware(motors map[MotorName]Motor, clk clock.Clock, closer io.Closer) (*Hardware, error) {
	for _, name := range AllMotors() {
		if motors[name] == nil {
			return nil, fmt.Errorf("missing motor %s", name)
		}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Hardware{
		motors: motors,
		clock:  clk,
		closer: closer,
	}, nil
}

// Motor returns the named motor.
func (h *Hardware) Motor(name MotorName) Motor {
	return h.motors[name]
}

// Clock returns the clock all timing on this robot is measured with.
func (h *Hardware) Clock() clock.Clock {
	return h.clock
}

// Idle yields the control goroutine once.
func (h *Hardware) Idle() {
	runtime.Gosched()
}

// SetMode sets the run mode on each named motor.
func (h *Hardware) SetMode(ctx context.Context, mode RunMode, names ...MotorName) error {
	var errs error
	for _, name := range names {
		if err := h.motors[name].SetMode(ctx, mode); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: set mode %s: %w", name, mode, err))
		}
	}
	return errs
}

// SetPower sets the same power on each named motor.
func (h *Hardware) SetPower(ctx context.Context, power float64, names ...MotorName) error {
	var errs error
	for _, name := range names {
		if err := h.motors[name].SetPower(ctx, power); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: set power: %w", name, err))
		}
	}
	return errs
}

// Positions reads the current encoder position of each named motor.
func (h *Hardware) Positions(ctx context.Context, names ...MotorName) (map[MotorName]int, error) {
	positions := make(map[MotorName]int, len(names))
	for _, name := range names {
		pos, err := h.motors[name].CurrentPosition(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: read position: %w", name, err)
		}
		positions[name] = pos
	}
	return positions, nil
}

// Stop zeroes the power on every motor.
func (h *Hardware) Stop(ctx context.Context) error {
	return h.SetPower(ctx, 0, AllMotors()...)
}

// Close stops all motors and releases the backend.
func (h *Hardware) Close() error {
	err := h.Stop(context.Background())
	if h.closer != nil {
		err = multierr.Append(err, h.closer.Close())
	}
	return err
}
