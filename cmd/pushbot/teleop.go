package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftc10546/pushbot/pkg/gamepad"
	"github.com/ftc10546/pushbot/pkg/telemetry"
	"github.com/ftc10546/pushbot/pkg/teleop"
)

type TeleopCommand struct {
	Hz   int  `long:"hz" default:"25" description:"Control loop frequency"`
	Sim  bool `long:"sim" description:"Drive the simulated robot even if a port is configured"`
	Demo bool `long:"demo" description:"Replay a short scripted drive instead of reading the keyboard"`
}

// Motor colors - one per commanded output
var teleopSeries = []series{
	{name: "left", color: "196"},    // red
	{name: "right", color: "46"},    // green
	{name: "shooter", color: "226"}, // yellow
	{name: "lift", color: "51"},     // cyan
}

const teleopHelp = "W/S drive  A/D turn  I/K shooter  J/L intake  U/O lift  space release  q quit"

func (c *TeleopCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lines := newLogLines()
	logger := newLogger(lines)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hw, err := openRobot(ctx, cfg, c.Sim, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	keyboard := gamepad.NewKeyboard(hw.Clock())
	var source gamepad.Source = keyboard
	help := teleopHelp
	if c.Demo {
		source = demoScript(c.Hz)
		help = "Scripted demo. Press 'q' to stop."
	}
	frames := telemetry.NewChannel()
	tel := telemetry.New(hw.Clock(), frames, telemetry.NewLog(logger))

	ctrl := teleop.NewController(hw, source, teleop.Config{
		Hz:        c.Hz,
		Telemetry: tel,
		Logger:    logger,
	})

	// Start controller in background
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("controller error", "error", err)
		}
	}()

	samples := make(chan map[string]float64, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ctrl.States():
				if s.Error != nil {
					continue
				}
				sample := map[string]float64{
					"left":    s.Command.Left,
					"right":   s.Command.Right,
					"shooter": s.Command.Shooter,
					"lift":    s.Command.Lift,
				}
				select {
				case samples <- sample:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// Run TUI
	model := newDashboard(dashboardConfig{
		title:    "Pushbot Teleop",
		subtitle: fmt.Sprintf("%d Hz", ctrl.Hz()),
		help:     help,
		series:   teleopSeries,
		minY:     -1,
		maxY:     1,
		samples:  samples,
		frames:   frames.Frames(),
		logs:     lines.Lines(),
		onKey: func(key string) {
			if c.Demo {
				return
			}
			if key == " " {
				keyboard.Release()
				return
			}
			keyboard.Press(key)
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}

	// Stop the loop and wait for it to halt the motors
	cancel()
	<-stopped
	return nil
}

// demoScript drives forward, turns in place and runs the shooter, then rests
// with everything stopped. Each phase is held for whole seconds at hz.
func demoScript(hz int) *gamepad.Script {
	if hz <= 0 {
		hz = teleop.DefaultHz
	}
	phases := []struct {
		seconds int
		pads    gamepad.Pads
	}{
		{2, gamepad.Pads{Driver: gamepad.Gamepad{LeftStickY: -0.5}}},
		{1, gamepad.Pads{Driver: gamepad.Gamepad{RightStickX: 0.5}}},
		{2, gamepad.Pads{Operator: gamepad.Gamepad{LeftStickY: 1}}},
		{0, gamepad.Pads{}},
	}
	var steps []gamepad.Pads
	for _, p := range phases {
		for range max(p.seconds*hz, 1) {
			steps = append(steps, p.pads)
		}
	}
	return gamepad.NewScript(steps...)
}
