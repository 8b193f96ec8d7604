package auto

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ftc10546/pushbot/pkg/robot"
)

// stepFunc lets a test insert arbitrary actions between steps.
type stepFunc func(ctx context.Context, r *Runner) error

func (f stepFunc) Run(ctx context.Context, r *Runner) error { return f(ctx, r) }
func (f stepFunc) String() string                           { return "func" }

func within(got, want, tol int) bool {
	d := got - want
	return d >= -tol && d <= tol
}

func TestRunner_Init(t *testing.T) {
	r := newRig(t, rigOptions{})
	ctx := context.Background()
	for i, name := range robot.DriveMotors() {
		r.sim.Motors[name].SetPosition(100 * (i + 1))
	}

	if err := r.runner.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, name := range robot.DriveMotors() {
		m := r.sim.Motors[name]
		if pos, _ := m.CurrentPosition(ctx); pos != 0 {
			t.Errorf("%s position = %d, want 0 after reset", name, pos)
		}
		if m.Mode() != robot.VelocityControl {
			t.Errorf("%s mode = %s, want velocity", name, m.Mode())
		}
	}
	for _, name := range []robot.MotorName{robot.Shooter1, robot.Shooter2, robot.Lift} {
		if mode := r.sim.Motors[name].Mode(); mode != robot.OpenLoop {
			t.Errorf("%s mode = %s, want open_loop", name, mode)
		}
	}

	if status, _ := r.rec.Last("Status"); status != "Resetting Encoders" {
		t.Errorf("Status = %q", status)
	}
	path0, ok := r.rec.Last("Path0")
	if !ok {
		t.Fatal("no Path0 telemetry")
	}
	if got := strings.Join(strings.Fields(path0), " "); got != "Starting at 0 : 0 : 0 : 0" {
		t.Errorf("Path0 = %q", path0)
	}
}

func TestRunner_RedCorner(t *testing.T) {
	r := newRig(t, rigOptions{backgroundClock: true, pollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	err := runWithClock(t, r.clk, func() error {
		if err := r.runner.Init(ctx); err != nil {
			return err
		}
		return r.runner.Run(ctx, RedCorner())
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Each leg may stop up to the tolerance short, and the next leg
	// starts from wherever the last one ended.
	const slack = 15
	for _, name := range robot.DriveMotors() {
		want := 1279
		if name.IsLeft() {
			want = 861
		}
		if got := r.sim.Motors[name].Target(); !within(got, want, slack) {
			t.Errorf("%s final target = %d, want %d±%d", name, got, want, slack)
		}
	}
	if v, _ := r.rec.Last("Path"); v != "Complete" {
		t.Errorf("Path = %q, want Complete", v)
	}
	r.assertHalted(t)
	for _, name := range []robot.MotorName{robot.Shooter1, robot.Shooter2, robot.Lift} {
		if p := r.sim.Motors[name].Power(); p != 0 {
			t.Errorf("%s power = %f, want 0", name, p)
		}
	}
}

func TestShootStep_Phases(t *testing.T) {
	var shooter, lift *recordingMotor
	r := newRig(t, rigOptions{
		backgroundClock: true,
		wrap: func(name robot.MotorName, m robot.Motor) robot.Motor {
			switch name {
			case robot.Shooter1:
				shooter = &recordingMotor{Motor: m}
				return shooter
			case robot.Lift:
				lift = &recordingMotor{Motor: m}
				return lift
			}
			return m
		},
	})
	shooter.clk = r.clk
	lift.clk = r.clk

	routine := Routine{Name: "shoot", Steps: []Step{Shoot(1, 0.8)}}
	if err := runWithClock(t, r.clk, func() error {
		return r.runner.Run(context.Background(), routine)
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	se := shooter.Events()
	le := lift.Events()
	if len(se) != 2 || len(le) != 2 {
		t.Fatalf("got %d shooter and %d lift commands, want 2 each", len(se), len(le))
	}
	t0 := se[0].at
	const tol = 100 * time.Millisecond

	tests := []struct {
		name  string
		ev    powerEvent
		power float64
		at    time.Duration
	}{
		{"shooter on", se[0], 1, 0},
		{"lift on", le[0], 0.8, 2 * time.Second},
		{"lift off", le[1], 0, 7 * time.Second},
		{"shooter off", se[1], 0, 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ev.power != tt.power {
				t.Errorf("power = %f, want %f", tt.ev.power, tt.power)
			}
			at := tt.ev.at.Sub(t0)
			if at < tt.at || at > tt.at+tol {
				t.Errorf("at %v, want %v (+%v)", at, tt.at, tol)
			}
		})
	}
}

func TestShootStep_Cancelled(t *testing.T) {
	r := newRig(t, rigOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Shoot(1, 1).Run(ctx, r.runner); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []robot.MotorName{robot.Shooter1, robot.Shooter2, robot.Lift} {
		if p := r.sim.Motors[name].Power(); p != 0 {
			t.Errorf("%s power = %f, want 0", name, p)
		}
	}
}

func TestRunner_ContinuesAfterTimeout(t *testing.T) {
	r := newRig(t, rigOptions{})
	ctx := context.Background()
	r.stallAll(true)

	routine := Routine{Name: "recover", Steps: []Step{
		DriveStep{Speed: 0.6, LeftInches: 48, RightInches: 48, Timeout: time.Second},
		stepFunc(func(context.Context, *Runner) error {
			r.stallAll(false)
			return nil
		}),
		DriveStep{Speed: 0.6, LeftInches: 12, RightInches: 12, Timeout: 5 * time.Second},
	}}
	if err := r.runner.Run(ctx, routine); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range robot.DriveMotors() {
		m := r.sim.Motors[name]
		if got := m.Target(); got != 134 {
			t.Errorf("%s target = %d, want 134 measured from the stalled position", name, got)
		}
		if pos, _ := m.CurrentPosition(ctx); pos != 134 {
			t.Errorf("%s position = %d, want 134", name, pos)
		}
	}
	if v, _ := r.rec.Last("Path"); v != "Complete" {
		t.Errorf("Path = %q, want Complete", v)
	}
}

func TestRunner_StoppedBeforeStart(t *testing.T) {
	r := newRig(t, rigOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.runner.Run(ctx, RedCorner()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range robot.AllMotors() {
		m := r.sim.Motors[name]
		if m.Power() != 0 || m.Target() != 0 {
			t.Errorf("%s was commanded after stop", name)
		}
	}
	if _, ok := r.rec.Last("Path"); ok {
		t.Error("stopped routine reported Complete")
	}
}

func TestRunner_HardwareErrorAborts(t *testing.T) {
	r := newRig(t, rigOptions{
		wrap: func(name robot.MotorName, m robot.Motor) robot.Motor {
			if name == robot.RightDrive2 {
				return brokenMotor{m}
			}
			return m
		},
	})

	ran := false
	routine := Routine{Name: "broken", Steps: []Step{
		DriveStep{Speed: 0.6, LeftInches: 48, RightInches: 48, Timeout: 5 * time.Second},
		stepFunc(func(context.Context, *Runner) error {
			ran = true
			return nil
		}),
	}}
	err := r.runner.Run(context.Background(), routine)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "step 1") || !strings.Contains(err.Error(), "bus timeout") {
		t.Errorf("error = %q, want step number and cause", err)
	}
	if ran {
		t.Error("routine continued after a hardware error")
	}
	r.assertHalted(t)
}
