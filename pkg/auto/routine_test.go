package auto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const redCornerTOML = `
name = "red-corner"

[[step]]
type = "shoot"
shooter_speed = 1.0
lift_speed = 1

[[step]]
type = "drive"
speed = 0.6
left_inches = 48
right_inches = 48
timeout_seconds = 5

[[step]]
type = "drive"
speed = 0.5
left_inches = -18.8
right_inches = 18.8
timeout_seconds = 4

[[step]]
type = "drive"
speed = 0.6
left_inches = 48
right_inches = 48
timeout_seconds = 5
`

func TestParseRoutine_MatchesBuiltin(t *testing.T) {
	got, err := ParseRoutine(redCornerTOML)
	if err != nil {
		t.Fatalf("ParseRoutine: %v", err)
	}
	want := RedCorner()
	if got.Name != want.Name {
		t.Errorf("name = %q, want %q", got.Name, want.Name)
	}
	if len(got.Steps) != len(want.Steps) {
		t.Fatalf("got %d steps, want %d", len(got.Steps), len(want.Steps))
	}
	for i := range want.Steps {
		if got.Steps[i] != want.Steps[i] {
			t.Errorf("step %d = %v, want %v", i+1, got.Steps[i], want.Steps[i])
		}
	}
}

func TestParseRoutine_ShootOverrides(t *testing.T) {
	got, err := ParseRoutine(`
[[step]]
type = "shoot"
shooter_speed = 0.9
lift_speed = 0.5
spin_up_seconds = 1.5
feed_seconds = 3
`)
	if err != nil {
		t.Fatalf("ParseRoutine: %v", err)
	}
	s, ok := got.Steps[0].(ShootStep)
	if !ok {
		t.Fatalf("step is %T, want ShootStep", got.Steps[0])
	}
	if s.SpinUp != 1500*time.Millisecond || s.Feed != 3*time.Second {
		t.Errorf("phases = %v/%v, want 1.5s/3s", s.SpinUp, s.Feed)
	}
	if s.ShooterSpeed != 0.9 || s.LiftSpeed != 0.5 {
		t.Errorf("speeds = %v/%v", s.ShooterSpeed, s.LiftSpeed)
	}
}

func TestParseRoutine_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"empty", `name = "x"`, "no steps"},
		{"syntax", `[[step]`, "parse routine"},
		{"missing type", "[[step]]\nspeed = 0.5", "missing step type"},
		{"unknown type", "[[step]]\ntype = \"dance\"", "unknown step type"},
		{"unknown key", "[[step]]\ntype = \"drive\"\nspeed = 0.5\ntimeout_seconds = 1\ncolour = \"red\"", "unknown routine keys"},
		{"speed range", "[[step]]\ntype = \"drive\"\nspeed = 1.5\ntimeout_seconds = 1", "speed must be in"},
		{"no timeout", "[[step]]\ntype = \"drive\"\nspeed = 0.5", "timeout_seconds must be positive"},
		{"lift range", "[[step]]\ntype = \"shoot\"\nshooter_speed = 1\nlift_speed = -2", "lift_speed must be in"},
		{"zero feed", "[[step]]\ntype = \"shoot\"\nshooter_speed = 1\nlift_speed = 1\nfeed_seconds = 0", "feed_seconds must be positive"},
		{"nan speed", "[[step]]\ntype = \"drive\"\nspeed = nan\ntimeout_seconds = 1", "speed must be in"},
		{"nan distance", "[[step]]\ntype = \"drive\"\nspeed = 0.5\nleft_inches = nan\ntimeout_seconds = 1", "left_inches must be a finite number"},
		{"inf distance", "[[step]]\ntype = \"drive\"\nspeed = 0.5\nright_inches = -inf\ntimeout_seconds = 1", "right_inches must be a finite number"},
		{"nan timeout", "[[step]]\ntype = \"drive\"\nspeed = 0.5\ntimeout_seconds = nan", "timeout_seconds must be positive"},
		{"inf timeout", "[[step]]\ntype = \"drive\"\nspeed = 0.5\ntimeout_seconds = inf", "timeout_seconds is too large"},
		{"huge timeout", "[[step]]\ntype = \"drive\"\nspeed = 0.5\ntimeout_seconds = 1e12", "timeout_seconds is too large"},
		{"nan shooter", "[[step]]\ntype = \"shoot\"\nshooter_speed = nan\nlift_speed = 1", "shooter_speed must be in"},
		{"huge spin up", "[[step]]\ntype = \"shoot\"\nshooter_speed = 1\nlift_speed = 1\nspin_up_seconds = 1e12", "spin_up_seconds is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutine(tt.toml)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadRoutine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.toml")
	if err := os.WriteFile(path, []byte(redCornerTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRoutine(path)
	if err != nil {
		t.Fatalf("LoadRoutine: %v", err)
	}
	if len(r.Steps) != 4 {
		t.Errorf("got %d steps, want 4", len(r.Steps))
	}

	if _, err := LoadRoutine(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRedCorner_Shape(t *testing.T) {
	r := RedCorner()
	if len(r.Steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(r.Steps))
	}
	if _, ok := r.Steps[0].(ShootStep); !ok {
		t.Errorf("first step is %T, want ShootStep", r.Steps[0])
	}
	turn, ok := r.Steps[2].(DriveStep)
	if !ok {
		t.Fatalf("third step is %T, want DriveStep", r.Steps[2])
	}
	if turn.LeftInches != -turn.RightInches || turn.Speed != TurnSpeed {
		t.Errorf("turn = %+v", turn)
	}
}

func TestLoadRoutine_ShippedFile(t *testing.T) {
	got, err := LoadRoutine(filepath.Join("..", "..", "routines", "red_corner.toml"))
	if err != nil {
		t.Fatalf("LoadRoutine: %v", err)
	}
	want := RedCorner()
	if len(got.Steps) != len(want.Steps) {
		t.Fatalf("got %d steps, want %d", len(got.Steps), len(want.Steps))
	}
	for i := range want.Steps {
		if got.Steps[i] != want.Steps[i] {
			t.Errorf("step %d = %v, want %v", i+1, got.Steps[i], want.Steps[i])
		}
	}
}
