package gamepad

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultHold is how long a key press keeps its axis deflected. Terminals
// only report presses, so an axis is released when repeats stop arriving.
const DefaultHold = 500 * time.Millisecond

type axis int

const (
	leftStickX axis = iota
	leftStickY
	rightStickX
	rightStickY
	leftTrigger
	rightTrigger
)

// binding maps a key to a deflection of one axis on one pad.
type binding struct {
	operator bool
	axis     axis
	value    float64
}

// Drive with WASD, shooter on IJKL, lift triggers on U/O.
func defaultBindings() map[string]binding {
	return map[string]binding{
		"w": {axis: leftStickY, value: -1},
		"s": {axis: leftStickY, value: 1},
		"a": {axis: rightStickX, value: -1},
		"d": {axis: rightStickX, value: 1},
		"i": {operator: true, axis: leftStickY, value: -1},
		"k": {operator: true, axis: leftStickY, value: 1},
		"j": {operator: true, axis: rightStickX, value: -1},
		"l": {operator: true, axis: rightStickX, value: 1},
		"u": {operator: true, axis: leftTrigger, value: 1},
		"o": {operator: true, axis: rightTrigger, value: 1},
	}
}

type axisKey struct {
	operator bool
	axis     axis
}

type deflection struct {
	value float64
	at    time.Time
}

// Keyboard turns key presses into gamepad input. It is safe for a UI
// goroutine to Press while the control loop polls.
type Keyboard struct {
	clock    clock.Clock
	hold     time.Duration
	bindings map[string]binding

	mu     sync.Mutex
	active map[axisKey]deflection
}

// NewKeyboard returns a Keyboard with the default bindings.
func NewKeyboard(clk clock.Clock) *Keyboard {
	if clk == nil {
		clk = clock.New()
	}
	return &Keyboard{
		clock:    clk,
		hold:     DefaultHold,
		bindings: defaultBindings(),
		active:   make(map[axisKey]deflection),
	}
}

// Press deflects the axis bound to key. It reports whether key is bound.
func (k *Keyboard) Press(key string) bool {
	b, ok := k.bindings[key]
	if !ok {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.active[axisKey{b.operator, b.axis}] = deflection{value: b.value, at: k.clock.Now()}
	return true
}

// Release centres every axis.
func (k *Keyboard) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.active)
}

func (k *Keyboard) Poll(ctx context.Context) (Pads, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var p Pads
	now := k.clock.Now()
	for key, d := range k.active {
		if now.Sub(d.at) >= k.hold {
			delete(k.active, key)
			continue
		}
		pad := &p.Driver
		if key.operator {
			pad = &p.Operator
		}
		switch key.axis {
		case leftStickX:
			pad.LeftStickX = d.value
		case leftStickY:
			pad.LeftStickY = d.value
		case rightStickX:
			pad.RightStickX = d.value
		case rightStickY:
			pad.RightStickY = d.value
		case leftTrigger:
			pad.LeftTrigger = d.value
		case rightTrigger:
			pad.RightTrigger = d.value
		}
	}
	return p, nil
}
