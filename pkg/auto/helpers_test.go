package auto

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/sim"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

// pollStep is how far the mock clock moves on every completion check.
const pollStep = 50 * time.Millisecond

// tickingMotor advances the mock clock each time it is polled for busy, so
// a move progresses without a second goroutine driving time.
type tickingMotor struct {
	robot.Motor
	clk    *clock.Mock
	onPoll func()
}

func (m *tickingMotor) IsBusy(ctx context.Context) (bool, error) {
	if m.clk != nil {
		m.clk.Add(pollStep)
	}
	if m.onPoll != nil {
		m.onPoll()
	}
	return m.Motor.IsBusy(ctx)
}

// brokenMotor fails every busy check.
type brokenMotor struct {
	robot.Motor
}

func (brokenMotor) IsBusy(ctx context.Context) (bool, error) {
	return false, errors.New("bus timeout")
}

type powerEvent struct {
	at    time.Time
	power float64
}

// recordingMotor logs every power command with the clock time.
type recordingMotor struct {
	robot.Motor
	clk clock.Clock

	mu     sync.Mutex
	events []powerEvent
}

func (m *recordingMotor) SetPower(ctx context.Context, p float64) error {
	m.mu.Lock()
	m.events = append(m.events, powerEvent{at: m.clk.Now(), power: p})
	m.mu.Unlock()
	return m.Motor.SetPower(ctx, p)
}

func (m *recordingMotor) Events() []powerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]powerEvent(nil), m.events...)
}

type rig struct {
	clk    *clock.Mock
	sim    *sim.Robot
	hw     *robot.Hardware
	ticker *tickingMotor
	rec    *telemetry.Recorder
	driver *Driver
	runner *Runner
}

type rigOptions struct {
	// wrap may replace any motor before the hardware handle is assembled.
	wrap func(robot.MotorName, robot.Motor) robot.Motor

	// backgroundClock leaves time to runWithClock instead of advancing it on
	// every busy poll. The mock clock must only be advanced from one goroutine.
	backgroundClock bool
	pollInterval    time.Duration
}

// newRig builds a simulated robot on a mock clock.
func newRig(t *testing.T, opts rigOptions) *rig {
	t.Helper()

	clk := clock.NewMock()
	sr := sim.New(clk)
	r := &rig{clk: clk, sim: sr, rec: &telemetry.Recorder{}}

	motors := make(map[robot.MotorName]robot.Motor)
	for _, name := range robot.AllMotors() {
		var m robot.Motor = sr.Motors[name]
		if name == robot.LeftDrive1 {
			r.ticker = &tickingMotor{Motor: m}
			if !opts.backgroundClock {
				r.ticker.clk = clk
			}
			m = r.ticker
		}
		if opts.wrap != nil {
			m = opts.wrap(name, m)
		}
		motors[name] = m
	}

	hw, err := robot.NewHardware(motors, clk, nil)
	if err != nil {
		t.Fatalf("NewHardware: %v", err)
	}
	r.hw = hw

	logger := zaptest.NewLogger(t).Sugar()
	tel := telemetry.New(clk, r.rec)
	r.driver = NewDriver(hw, DriverConfig{
		CountsPerInch: robot.DefaultGeometry().CountsPerInch(),
		PollInterval:  opts.pollInterval,
		Telemetry:     tel,
		Logger:        logger,
	})
	r.runner = NewRunner(hw, r.driver, tel, logger)
	return r
}

func (r *rig) stallAll(stalled bool) {
	for _, name := range robot.DriveMotors() {
		r.sim.Motors[name].SetStalled(stalled)
	}
}

// assertHalted checks the drive motors were left stopped in velocity mode.
func (r *rig) assertHalted(t *testing.T) {
	t.Helper()
	for _, name := range robot.DriveMotors() {
		m := r.sim.Motors[name]
		if p := m.Power(); p != 0 {
			t.Errorf("%s power = %f, want 0", name, p)
		}
		if mode := m.Mode(); mode != robot.VelocityControl {
			t.Errorf("%s mode = %s, want velocity", name, mode)
		}
	}
}

// runWithClock runs fn in the background and keeps advancing the clock
// until it returns.
func runWithClock(t *testing.T, clk *clock.Mock, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-deadline:
			t.Fatal("timed out waiting for background run")
			return nil
		default:
			clk.Add(10 * time.Millisecond)
		}
	}
}
