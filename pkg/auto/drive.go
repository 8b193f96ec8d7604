// Package auto runs the autonomous period: encoder-counted drive moves and
// timed shooter bursts executed as a fixed sequence of steps.
package auto

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

// Progress is one sample of an encoder move.
type Progress struct {
	Targets   map[robot.MotorName]int
	Positions map[robot.MotorName]int
	Elapsed   time.Duration
}

// Remaining returns target minus position for the named motor.
func (p Progress) Remaining(name robot.MotorName) int {
	return p.Targets[name] - p.Positions[name]
}

// Driver performs relative encoder moves on the four drive motors.
type Driver struct {
	hw            *robot.Hardware
	countsPerInch float64
	pollInterval  time.Duration
	tel           telemetry.Sink
	log           *zap.SugaredLogger
	progressCh    chan Progress
	timer         *robot.ElapsedTime // restarted by each move
}

// DriverConfig holds the Driver's collaborators.
type DriverConfig struct {
	CountsPerInch float64
	// PollInterval is the wait between completion checks. Zero polls
	// continuously.
	PollInterval time.Duration
	Telemetry    telemetry.Sink
	Logger       *zap.SugaredLogger
}

// NewDriver returns a Driver for hw.
func NewDriver(hw *robot.Hardware, cfg DriverConfig) *Driver {
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Driver{
		hw:            hw,
		countsPerInch: cfg.CountsPerInch,
		pollInterval:  cfg.PollInterval,
		tel:           cfg.Telemetry,
		log:           cfg.Logger,
		progressCh:    make(chan Progress, 1),
		timer:         robot.NewElapsedTime(hw.Clock()),
	}
}

// Progress returns a channel that receives the latest move sample.
func (d *Driver) Progress() <-chan Progress {
	return d.progressCh
}

// Targets computes each drive motor's target from its own current position.
func (d *Driver) Targets(ctx context.Context, leftInches, rightInches float64) (map[robot.MotorName]int, error) {
	positions, err := d.hw.Positions(ctx, robot.DriveMotors()...)
	if err != nil {
		return nil, err
	}
	targets := make(map[robot.MotorName]int, len(positions))
	for name, pos := range positions {
		inches := rightInches
		if name.IsLeft() {
			inches = leftInches
		}
		targets[name] = pos + robot.TargetCounts(inches, d.countsPerInch)
	}
	return targets, nil
}

// EncoderDrive moves the left and right sides by the given distances relative
// to where they are now, at |speed|. Direction comes from the sign of the
// distances. The move ends when ctx is done, when timeout elapses, or when
// the first motor reaches its target. In every case all four drive motors
// are left at zero power in velocity mode.
//
// Stopping and timing out are not errors; only hardware failures are
// returned. If ctx is already done EncoderDrive does nothing. A Driver runs
// one move at a time.
func (d *Driver) EncoderDrive(ctx context.Context, speed, leftInches, rightInches float64, timeout time.Duration) (err error) {
	if ctx.Err() != nil {
		return nil
	}

	drive := robot.DriveMotors()

	// Halt even if the move was cancelled.
	defer func() {
		stopCtx := context.WithoutCancel(ctx)
		err = multierr.Combine(err,
			d.hw.SetPower(stopCtx, 0, drive...),
			d.hw.SetMode(stopCtx, robot.VelocityControl, drive...),
		)
	}()

	targets, err := d.Targets(ctx, leftInches, rightInches)
	if err != nil {
		return fmt.Errorf("compute targets: %w", err)
	}
	for _, name := range drive {
		if err := d.hw.Motor(name).SetTargetPosition(ctx, targets[name]); err != nil {
			return fmt.Errorf("%s: set target: %w", name, err)
		}
	}
	if err := d.hw.SetMode(ctx, robot.PositionControl, drive...); err != nil {
		return err
	}

	timer := d.timer
	timer.Reset()
	if err := d.hw.SetPower(ctx, math.Abs(speed), drive...); err != nil {
		return err
	}

	reason := "stopped"
	for ctx.Err() == nil {
		if timer.Elapsed() >= timeout {
			reason = "timeout"
			break
		}
		busy, err := d.allBusy(ctx, drive)
		if err != nil {
			return err
		}
		if !busy {
			reason = "arrived"
			break
		}

		positions, err := d.hw.Positions(ctx, drive...)
		if err != nil {
			return err
		}
		d.report(targets, positions, timer.Elapsed())

		if d.pollInterval > 0 {
			select {
			case <-ctx.Done():
			case <-d.hw.Clock().After(d.pollInterval):
			}
		}
	}

	d.log.Debugw("encoder drive finished",
		"reason", reason,
		"left_inches", leftInches,
		"right_inches", rightInches,
		"seconds", timer.Seconds(),
	)
	return nil
}

// allBusy reports whether every motor is still moving.
func (d *Driver) allBusy(ctx context.Context, names []robot.MotorName) (bool, error) {
	for _, name := range names {
		busy, err := d.hw.Motor(name).IsBusy(ctx)
		if err != nil {
			return false, fmt.Errorf("%s: busy: %w", name, err)
		}
		if !busy {
			return false, nil
		}
	}
	return true, nil
}

func (d *Driver) report(targets, positions map[robot.MotorName]int, elapsed time.Duration) {
	d.tel.AddField("Path1", "Running to %7d :%7d :%7d :%7d",
		targets[robot.LeftDrive1], targets[robot.LeftDrive2],
		targets[robot.RightDrive1], targets[robot.RightDrive2])
	d.tel.AddField("Path2", "Running at %7d :%7d :%7d :%7d",
		positions[robot.LeftDrive1], positions[robot.LeftDrive2],
		positions[robot.RightDrive1], positions[robot.RightDrive2])
	d.tel.Flush()

	p := Progress{Targets: targets, Positions: positions, Elapsed: elapsed}
	select {
	case d.progressCh <- p:
	default:
		select {
		case <-d.progressCh:
		default:
		}
		select {
		case d.progressCh <- p:
		default:
		}
	}
}
