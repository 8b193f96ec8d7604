package telemetry

import (
	"sync"

	"go.uber.org/zap"
)

// Channel delivers frames on a channel, keeping only the newest when the
// reader falls behind.
type Channel struct {
	ch chan Frame
}

// NewChannel returns an empty Channel output.
func NewChannel() *Channel {
	return &Channel{ch: make(chan Frame, 1)}
}

// Frames returns the channel frames are delivered on.
func (c *Channel) Frames() <-chan Frame {
	return c.ch
}

func (c *Channel) Publish(f Frame) {
	select {
	case c.ch <- f:
	default:
		// Drop old frame if channel full, replace with new
		select {
		case <-c.ch:
		default:
		}
		select {
		case c.ch <- f:
		default:
		}
	}
}

// Log writes each frame to a logger at debug level.
type Log struct {
	log *zap.SugaredLogger
}

// NewLog returns a Log output.
func NewLog(logger *zap.SugaredLogger) *Log {
	return &Log{log: logger}
}

func (l *Log) Publish(f Frame) {
	kv := make([]any, 0, 2*len(f.Fields))
	for _, field := range f.Fields {
		kv = append(kv, field.Key, field.Value)
	}
	l.log.Debugw("telemetry", kv...)
}

// Recorder keeps every frame for a summary once the run is over.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *Recorder) Publish(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Values returns every recorded value for key, oldest first.
func (r *Recorder) Values(key string) []string {
	var values []string
	for _, f := range r.Frames() {
		if v, ok := f.Get(key); ok {
			values = append(values, v)
		}
	}
	return values
}

// Last returns the most recent value for key.
func (r *Recorder) Last(key string) (string, bool) {
	values := r.Values(key)
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}
