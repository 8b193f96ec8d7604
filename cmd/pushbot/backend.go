package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/sim"
)

// loadConfig reads the configuration file. A missing file gives the default
// simulator configuration.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "No configuration at %s, using the simulator. Run 'pushbot setup' to configure hardware.\n", opts.Config)
		return robot.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Config, err)
	}
	return cfg, nil
}

// openRobot returns the simulator when asked to or when no port is
// configured, and the servo bus otherwise.
func openRobot(ctx context.Context, cfg *robot.Config, simulate bool, logger *zap.SugaredLogger) (*robot.Hardware, error) {
	if simulate || cfg.IsSimulated() {
		logger.Infow("using simulated robot", "counts_per_second", opts.SimRate)
		r := sim.New(clock.New())
		if opts.SimRate > 0 {
			for _, m := range r.Motors {
				m.SetMaxRate(opts.SimRate)
			}
		}
		return r.Hardware, nil
	}
	hw, err := robot.OpenServoBus(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open servo bus on %s: %w", cfg.Port, err)
	}
	return hw, nil
}

// newLogger returns a console logger writing to w.
func newLogger(w zapcore.WriteSyncer) *zap.SugaredLogger {
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), w, level)
	return zap.New(core).Sugar()
}

// logLines collects log output for display in the dashboard log box.
type logLines struct {
	ch chan string
}

func newLogLines() *logLines {
	return &logLines{ch: make(chan string, 64)}
}

func (l *logLines) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	select {
	case l.ch <- line:
	default:
		// Drop when the UI falls behind
	}
	return len(p), nil
}

func (l *logLines) Sync() error { return nil }

func (l *logLines) Lines() <-chan string { return l.ch }
