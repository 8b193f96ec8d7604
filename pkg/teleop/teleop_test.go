package teleop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/ftc10546/pushbot/pkg/gamepad"
	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/sim"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

func TestController_Step(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	r := sim.New(clk)
	rec := &telemetry.Recorder{}

	pad := gamepad.NewScript(
		gamepad.Pads{
			Driver:   gamepad.Gamepad{LeftStickY: -1},
			Operator: gamepad.Gamepad{LeftStickY: 0.5, LeftTrigger: 0.05, RightTrigger: 0.8},
		},
		gamepad.Pads{
			Driver:   gamepad.Gamepad{RightStickX: 1},
			Operator: gamepad.Gamepad{LeftTrigger: 0.5, RightTrigger: 0.8},
		},
	)
	ctrl := NewController(r.Hardware, pad, Config{
		Telemetry: telemetry.New(clk, rec),
		Logger:    zaptest.NewLogger(t).Sugar(),
	})

	ctrl.Step(ctx)

	want := map[robot.MotorName]float64{
		robot.LeftDrive1:  1,
		robot.LeftDrive2:  1,
		robot.RightDrive1: 1,
		robot.RightDrive2: 1,
		robot.Shooter1:    0.5,
		robot.Shooter2:    0.5,
		robot.Lift:        0.05,
	}
	for name, p := range want {
		if got := r.Motors[name].Power(); got != p {
			t.Errorf("tick 1: %s power = %f, want %f", name, got, p)
		}
	}
	if v, _ := rec.Last("left"); v != "1.00" {
		t.Errorf("telemetry left = %q, want 1.00", v)
	}

	st := <-ctrl.States()
	if st.Error != nil || st.Command.Lift != 0.05 {
		t.Errorf("state = %+v, want lift 0.05 and no error", st)
	}

	// Spin in place; both triggers pressed holds the previous lift power.
	ctrl.Step(ctx)
	if got := r.Motors[robot.LeftDrive1].Power(); got != 1 {
		t.Errorf("tick 2: left power = %f, want 1", got)
	}
	if got := r.Motors[robot.RightDrive2].Power(); got != -1 {
		t.Errorf("tick 2: right power = %f, want -1", got)
	}
	if got := r.Motors[robot.Lift].Power(); got != 0.05 {
		t.Errorf("tick 2: lift power = %f, want held 0.05", got)
	}
}

type failingSource struct{}

func (failingSource) Poll(ctx context.Context) (gamepad.Pads, error) {
	return gamepad.Pads{}, errors.New("gamepad disconnected")
}

func TestController_StepPollError(t *testing.T) {
	r := sim.New(clock.NewMock())
	ctrl := NewController(r.Hardware, failingSource{}, Config{Logger: zaptest.NewLogger(t).Sugar()})

	ctrl.Step(context.Background())

	st := <-ctrl.States()
	if st.Error == nil {
		t.Error("expected state with error")
	}
}

func TestController_Start(t *testing.T) {
	clk := clock.NewMock()
	r := sim.New(clk)
	rec := &telemetry.Recorder{}
	pad := gamepad.NewScript(gamepad.Pads{Driver: gamepad.Gamepad{LeftStickY: -0.5}})

	ctrl := NewController(r.Hardware, pad, Config{
		Telemetry: telemetry.New(clk, rec),
		Logger:    zaptest.NewLogger(t).Sugar(),
	})
	if ctrl.Hz() != DefaultHz {
		t.Errorf("Hz() = %d, want %d", ctrl.Hz(), DefaultHz)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Start(ctx)
	}()

	// Advance one tick at a time until the loop reports a state.
	deadline := time.After(5 * time.Second)
	var st State
	for received := false; !received; {
		clk.Add(40 * time.Millisecond)
		select {
		case st = <-ctrl.States():
			received = true
		case <-deadline:
			t.Fatal("no state from control loop")
		default:
		}
	}
	if st.Command.Left != 0.5 || st.Command.Right != 0.5 {
		t.Errorf("command = %+v, want left and right 0.5", st.Command)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}

	for _, name := range robot.AllMotors() {
		if p := r.Motors[name].Power(); p != 0 {
			t.Errorf("%s power = %f after stop, want 0", name, p)
		}
	}
	if r.Motors[robot.LeftDrive1].Mode() != robot.VelocityControl {
		t.Errorf("drive mode = %s, want velocity", r.Motors[robot.LeftDrive1].Mode())
	}
	if r.Motors[robot.Lift].Mode() != robot.OpenLoop {
		t.Errorf("lift mode = %s, want open_loop", r.Motors[robot.Lift].Mode())
	}
	if v, ok := rec.Last("Say"); !ok || v != "Hello Driver" {
		t.Errorf("Say = %q, want Hello Driver", v)
	}
}

var errBusTimeout = errors.New("bus timeout")

// stuckMotor rejects every power command.
type stuckMotor struct {
	robot.Motor
}

func (stuckMotor) SetPower(ctx context.Context, p float64) error {
	return errBusTimeout
}

func TestController_StepWriteErrors(t *testing.T) {
	clk := clock.NewMock()
	r := sim.New(clk)

	motors := make(map[robot.MotorName]robot.Motor)
	for _, name := range robot.AllMotors() {
		motors[name] = r.Motors[name]
	}
	motors[robot.RightDrive1] = stuckMotor{r.Motors[robot.RightDrive1]}
	motors[robot.Lift] = stuckMotor{r.Motors[robot.Lift]}
	hw, err := robot.NewHardware(motors, clk, nil)
	if err != nil {
		t.Fatalf("NewHardware: %v", err)
	}

	pad := gamepad.NewScript(gamepad.Pads{Driver: gamepad.Gamepad{LeftStickY: -1}})
	ctrl := NewController(hw, pad, Config{Logger: zaptest.NewLogger(t).Sugar()})
	ctrl.Step(context.Background())

	st := <-ctrl.States()
	if !errors.Is(st.Error, errBusTimeout) {
		t.Fatalf("state error = %v, want it to wrap the motor error", st.Error)
	}
	if n := len(multierr.Errors(st.Error)); n != 2 {
		t.Errorf("got %d combined errors, want 2", n)
	}
	// The healthy motors were still written.
	if got := r.Motors[robot.LeftDrive1].Power(); got != 1 {
		t.Errorf("left power = %f, want 1", got)
	}
}
