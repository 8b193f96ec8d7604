package auto

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

// Step is one entry of an autonomous routine.
type Step interface {
	Run(ctx context.Context, r *Runner) error
	String() string
}

// DriveStep is a relative encoder move.
type DriveStep struct {
	Speed       float64
	LeftInches  float64
	RightInches float64
	Timeout     time.Duration
}

func (s DriveStep) Run(ctx context.Context, r *Runner) error {
	return r.driver.EncoderDrive(ctx, s.Speed, s.LeftInches, s.RightInches, s.Timeout)
}

func (s DriveStep) String() string {
	return fmt.Sprintf("drive %.2f: left %.1fin right %.1fin (timeout %s)", s.Speed, s.LeftInches, s.RightInches, s.Timeout)
}

// ShootStep spins up the shooters, then runs the lift to feed balls into them.
type ShootStep struct {
	ShooterSpeed float64
	LiftSpeed    float64
	SpinUp       time.Duration
	Feed         time.Duration
}

// Shoot returns a ShootStep with the standard 2 s spin-up and 5 s feed.
func Shoot(shooterSpeed, liftSpeed float64) ShootStep {
	return ShootStep{
		ShooterSpeed: shooterSpeed,
		LiftSpeed:    liftSpeed,
		SpinUp:       2 * time.Second,
		Feed:         5 * time.Second,
	}
}

func (s ShootStep) Run(ctx context.Context, r *Runner) (err error) {
	hw := r.hw
	defer func() {
		stopCtx := context.WithoutCancel(ctx)
		err = multierr.Append(err, hw.SetPower(stopCtx, 0, robot.Shooter1, robot.Shooter2, robot.Lift))
	}()

	if err := hw.SetPower(ctx, s.ShooterSpeed, robot.Shooter1, robot.Shooter2); err != nil {
		return err
	}
	if !r.wait(ctx, s.SpinUp) {
		return nil
	}
	if err := hw.SetPower(ctx, s.LiftSpeed, robot.Lift); err != nil {
		return err
	}
	r.wait(ctx, s.Feed)
	return nil
}

func (s ShootStep) String() string {
	return fmt.Sprintf("shoot %.2f lift %.2f (spin up %s, feed %s)", s.ShooterSpeed, s.LiftSpeed, s.SpinUp, s.Feed)
}

// Routine is a named, fixed list of steps.
type Routine struct {
	Name  string
	Steps []Step
}

// Autonomous drive and turn speeds.
const (
	DriveSpeed   = 0.6
	TurnSpeed    = 0.5
	ShooterSpeed = 1.0
	LiftSpeed    = 1.0
)

// RedCorner shoots the preloaded balls then drives off the corner.
func RedCorner() Routine {
	return Routine{
		Name: "red-corner",
		Steps: []Step{
			Shoot(ShooterSpeed, LiftSpeed),
			DriveStep{Speed: DriveSpeed, LeftInches: 48, RightInches: 48, Timeout: 5 * time.Second},
			DriveStep{Speed: TurnSpeed, LeftInches: -18.8, RightInches: 18.8, Timeout: 4 * time.Second},
			DriveStep{Speed: DriveSpeed, LeftInches: 48, RightInches: 48, Timeout: 5 * time.Second},
		},
	}
}

// Runner executes routines on one robot.
type Runner struct {
	hw     *robot.Hardware
	driver *Driver
	tel    telemetry.Sink
	log    *zap.SugaredLogger
}

// NewRunner returns a Runner that drives with driver.
func NewRunner(hw *robot.Hardware, driver *Driver, tel telemetry.Sink, logger *zap.SugaredLogger) *Runner {
	if tel == nil {
		tel = telemetry.Discard
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{hw: hw, driver: driver, tel: tel, log: logger}
}

// Init zeroes the drive encoders and puts every motor in its run mode.
func (r *Runner) Init(ctx context.Context) error {
	r.tel.AddField("Status", "Resetting Encoders")
	r.tel.Flush()

	drive := robot.DriveMotors()
	if err := r.hw.SetMode(ctx, robot.ResetEncoder, drive...); err != nil {
		return fmt.Errorf("reset encoders: %w", err)
	}
	r.hw.Idle()
	if err := r.hw.SetMode(ctx, robot.VelocityControl, drive...); err != nil {
		return err
	}
	if err := r.hw.SetMode(ctx, robot.OpenLoop, robot.Shooter1, robot.Shooter2, robot.Lift); err != nil {
		return err
	}

	positions, err := r.hw.Positions(ctx, drive...)
	if err != nil {
		return err
	}
	r.tel.AddField("Path0", "Starting at %7d :%7d :%7d :%7d",
		positions[robot.LeftDrive1], positions[robot.LeftDrive2],
		positions[robot.RightDrive1], positions[robot.RightDrive2])
	r.tel.Flush()
	return nil
}

// Run executes each step in order. A step that times out does not stop the
// routine; a hardware error does. Cancelling ctx ends the routine quietly at
// the next step boundary.
func (r *Runner) Run(ctx context.Context, routine Routine) error {
	r.log.Infow("routine started", "name", routine.Name, "steps", len(routine.Steps))
	start := r.hw.Clock().Now()

	for i, step := range routine.Steps {
		if ctx.Err() != nil {
			r.log.Infow("routine stopped", "name", routine.Name, "completed", i)
			return nil
		}
		r.log.Infof("S%d: %s", i+1, step)
		if err := step.Run(ctx, r); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step, err)
		}
	}

	r.tel.AddField("Path", "Complete")
	r.tel.Flush()
	r.log.Infow("routine complete", "name", routine.Name, "elapsed", r.hw.Clock().Since(start))
	return nil
}

// wait blocks for d on the robot clock. It returns false if ctx ended first.
func (r *Runner) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.hw.Clock().After(d):
		return true
	}
}
