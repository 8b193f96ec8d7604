// Package telemetry is the write-only diagnostic channel from the control
// loops to the driver: fields are staged with AddField and published as one
// frame on Flush.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Field is a single formatted telemetry value.
type Field struct {
	Key   string
	Value string
}

// Frame is the set of fields published by one Flush.
type Frame struct {
	Time   time.Time
	Fields []Field
}

// Get returns the value for key.
func (f Frame) Get(key string) (string, bool) {
	for _, field := range f.Fields {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Sink accepts telemetry from control code.
type Sink interface {
	AddField(key, format string, args ...any)
	Flush()
}

// Output receives published frames.
type Output interface {
	Publish(Frame)
}

// OutputFunc adapts a function to an Output.
type OutputFunc func(Frame)

func (f OutputFunc) Publish(frame Frame) { f(frame) }

// Telemetry stages fields and fans frames out to its outputs.
type Telemetry struct {
	clock   clock.Clock
	outputs []Output

	mu      sync.Mutex
	pending []Field
}

// New returns a Telemetry publishing to outputs.
func New(clk clock.Clock, outputs ...Output) *Telemetry {
	if clk == nil {
		clk = clock.New()
	}
	return &Telemetry{clock: clk, outputs: outputs}
}

// AddField stages a field. Adding a key twice before Flush keeps the last value.
func (t *Telemetry) AddField(key, format string, args ...any) {
	value := fmt.Sprintf(format, args...)

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.pending {
		if t.pending[i].Key == key {
			t.pending[i].Value = value
			return
		}
	}
	t.pending = append(t.pending, Field{Key: key, Value: value})
}

// Flush publishes the staged fields as one frame and clears them.
func (t *Telemetry) Flush() {
	t.mu.Lock()
	frame := Frame{Time: t.clock.Now(), Fields: t.pending}
	t.pending = nil
	t.mu.Unlock()

	if len(frame.Fields) == 0 {
		return
	}
	for _, out := range t.outputs {
		out.Publish(frame)
	}
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) AddField(string, string, ...any) {}
func (discard) Flush()                          {}
