package auto

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// routineFile is the TOML layout of a routine:
//
//	name = "red-corner"
//
//	[[step]]
//	type = "shoot"
//	shooter_speed = 1.0
//	lift_speed = 1.0
//
//	[[step]]
//	type = "drive"
//	speed = 0.6
//	left_inches = 48
//	right_inches = 48
//	timeout_seconds = 5
type routineFile struct {
	Name  string       `toml:"name"`
	Steps []stepRecord `toml:"step"`
}

type stepRecord struct {
	Type string `toml:"type"`

	// drive
	Speed          float64 `toml:"speed"`
	LeftInches     float64 `toml:"left_inches"`
	RightInches    float64 `toml:"right_inches"`
	TimeoutSeconds float64 `toml:"timeout_seconds"`

	// shoot
	ShooterSpeed  float64  `toml:"shooter_speed"`
	LiftSpeed     float64  `toml:"lift_speed"`
	SpinUpSeconds *float64 `toml:"spin_up_seconds"`
	FeedSeconds   *float64 `toml:"feed_seconds"`
}

// LoadRoutine reads a routine from a TOML file.
func LoadRoutine(path string) (Routine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Routine{}, fmt.Errorf("read routine: %w", err)
	}
	r, err := ParseRoutine(string(data))
	if err != nil {
		return Routine{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseRoutine parses a routine from TOML text.
func ParseRoutine(data string) (Routine, error) {
	var f routineFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return Routine{}, fmt.Errorf("parse routine: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Routine{}, fmt.Errorf("unknown routine keys: %v", undecoded)
	}
	if len(f.Steps) == 0 {
		return Routine{}, errors.New("routine has no steps")
	}

	routine := Routine{Name: f.Name, Steps: make([]Step, 0, len(f.Steps))}
	for i, rec := range f.Steps {
		step, err := rec.step()
		if err != nil {
			return Routine{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		routine.Steps = append(routine.Steps, step)
	}
	return routine, nil
}

func (rec stepRecord) step() (Step, error) {
	switch rec.Type {
	case "drive":
		if err := checkSpeed("speed", rec.Speed); err != nil {
			return nil, err
		}
		if err := checkFinite("left_inches", rec.LeftInches); err != nil {
			return nil, err
		}
		if err := checkFinite("right_inches", rec.RightInches); err != nil {
			return nil, err
		}
		timeout, err := duration("timeout_seconds", rec.TimeoutSeconds)
		if err != nil {
			return nil, err
		}
		return DriveStep{
			Speed:       rec.Speed,
			LeftInches:  rec.LeftInches,
			RightInches: rec.RightInches,
			Timeout:     timeout,
		}, nil

	case "shoot":
		if err := checkSpeed("shooter_speed", rec.ShooterSpeed); err != nil {
			return nil, err
		}
		if err := checkSpeed("lift_speed", rec.LiftSpeed); err != nil {
			return nil, err
		}
		s := Shoot(rec.ShooterSpeed, rec.LiftSpeed)
		if rec.SpinUpSeconds != nil {
			d, err := duration("spin_up_seconds", *rec.SpinUpSeconds)
			if err != nil {
				return nil, err
			}
			s.SpinUp = d
		}
		if rec.FeedSeconds != nil {
			d, err := duration("feed_seconds", *rec.FeedSeconds)
			if err != nil {
				return nil, err
			}
			s.Feed = d
		}
		return s, nil

	case "":
		return nil, errors.New("missing step type")
	default:
		return nil, fmt.Errorf("unknown step type %q", rec.Type)
	}
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite number, got %g", field, v)
	}
	return nil
}

func checkSpeed(field string, v float64) error {
	if math.IsNaN(v) || v < -1 || v > 1 {
		return fmt.Errorf("%s must be in [-1, 1], got %g", field, v)
	}
	return nil
}

// duration converts a positive number of seconds, rejecting values that
// would overflow a time.Duration.
func duration(field string, s float64) (time.Duration, error) {
	if math.IsNaN(s) || s <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %g", field, s)
	}
	ns := s * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0, fmt.Errorf("%s is too large, got %g", field, s)
	}
	return time.Duration(ns), nil
}
