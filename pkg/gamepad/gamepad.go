// Package gamepad provides the polled driver and operator inputs for teleop.
package gamepad

import (
	"context"
	"sync"
)

// Gamepad is one controller's analog state. Sticks are in [-1, 1] with the
// Y axes negative when pushed forward; triggers are in [0, 1].
type Gamepad struct {
	LeftStickX   float64
	LeftStickY   float64
	RightStickX  float64
	RightStickY  float64
	LeftTrigger  float64
	RightTrigger float64
}

// Pads is the input for one teleop tick.
type Pads struct {
	Driver   Gamepad
	Operator Gamepad
}

// Source is polled once per teleop tick.
type Source interface {
	Poll(ctx context.Context) (Pads, error)
}

// Script replays a fixed list of inputs, one per poll, then repeats the last.
type Script struct {
	mu    sync.Mutex
	steps []Pads
	next  int
}

// NewScript returns a Script over steps.
func NewScript(steps ...Pads) *Script {
	return &Script{steps: steps}
}

func (s *Script) Poll(ctx context.Context) (Pads, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return Pads{}, nil
	}
	p := s.steps[min(s.next, len(s.steps)-1)]
	if s.next < len(s.steps) {
		s.next++
	}
	return p, nil
}
