// Package teleop provides the driver-controlled drive, shooter and lift loop.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ftc10546/pushbot/pkg/gamepad"
	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

// DefaultHz is the nominal loop rate: one 40 ms tick.
const DefaultHz = 25

// State represents the outcome of one tick.
type State struct {
	Command   DriveCommand
	Timestamp time.Time
	Error     error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	hw  *robot.Hardware
	pad gamepad.Source
	tel telemetry.Sink
	log *zap.SugaredLogger
	hz  int

	mu       sync.RWMutex
	running  bool
	lastLift float64
	stateCh  chan State
}

// Config holds configuration for the controller.
type Config struct {
	Hz        int
	Telemetry telemetry.Sink
	Logger    *zap.SugaredLogger
}

// NewController creates a teleop controller over an already opened robot.
func NewController(hw *robot.Hardware, pad gamepad.Source, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Controller{
		hw:      hw,
		pad:     pad,
		tel:     cfg.Telemetry,
		log:     cfg.Logger,
		hz:      cfg.Hz,
		stateCh: make(chan State, 1),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Start runs the control loop until ctx is cancelled, then stops every motor.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.hw.SetMode(ctx, robot.VelocityControl, robot.DriveMotors()...); err != nil {
		c.log.Warnw("drive motors not in velocity mode", "error", err)
	}
	if err := c.hw.SetMode(ctx, robot.OpenLoop, robot.Shooter1, robot.Shooter2, robot.Lift); err != nil {
		c.log.Warnw("shooter and lift not in open loop mode", "error", err)
	}

	c.tel.AddField("Say", "Hello Driver")
	c.tel.Flush()
	c.log.Infof("Teleop started at %d Hz", c.hz)

	// Control loop
	ticker := c.hw.Clock().Ticker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step runs a single tick: poll, mix, write, report.
func (c *Controller) Step(ctx context.Context) {
	pads, err := c.pad.Poll(ctx)
	if err != nil {
		c.log.Warnw("input poll failed", "error", err)
		c.sendState(State{Error: err, Timestamp: c.hw.Clock().Now()})
		return
	}

	c.mu.Lock()
	cmd := Mix(pads, c.lastLift)
	c.lastLift = cmd.Lift
	c.mu.Unlock()

	err = c.write(ctx, cmd)
	if err != nil {
		c.log.Warnw("write failed", "error", err)
	}

	c.tel.AddField("left", "%.2f", cmd.Left)
	c.tel.AddField("right", "%.2f", cmd.Right)
	c.tel.AddField("shooter", "%.2f", cmd.Shooter)
	c.tel.AddField("intake", "%.2f", cmd.Intake)
	c.tel.AddField("lift", "%.2f", cmd.Lift)
	c.tel.Flush()

	c.sendState(State{
		Command:   cmd,
		Timestamp: c.hw.Clock().Now(),
		Error:     err,
	})
}

func (c *Controller) write(ctx context.Context, cmd DriveCommand) error {
	writes := []struct {
		power float64
		names []robot.MotorName
	}{
		{cmd.Left, []robot.MotorName{robot.LeftDrive1, robot.LeftDrive2}},
		{cmd.Right, []robot.MotorName{robot.RightDrive1, robot.RightDrive2}},
		{cmd.Shooter, []robot.MotorName{robot.Shooter1, robot.Shooter2}},
		{cmd.Lift, []robot.MotorName{robot.Lift}},
	}

	var errs error
	for _, w := range writes {
		errs = multierr.Append(errs, c.hw.SetPower(ctx, w.power, w.names...))
	}
	return errs
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.lastLift = 0
	c.mu.Unlock()

	if err := c.hw.Stop(context.Background()); err != nil {
		c.log.Warnw("failed to stop motors", "error", err)
	}
	c.log.Info("Teleop stopped")
}
