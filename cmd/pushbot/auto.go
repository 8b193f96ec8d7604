package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ftc10546/pushbot/pkg/auto"
	"github.com/ftc10546/pushbot/pkg/robot"
	"github.com/ftc10546/pushbot/pkg/telemetry"
)

type AutoCommand struct {
	Routine string        `short:"r" long:"routine" env:"PUSHBOT_ROUTINE" description:"Routine file (TOML); defaults to the built-in red corner routine"`
	Sim     bool          `long:"sim" description:"Run on the simulated robot even if a port is configured"`
	Wait    bool          `long:"wait" description:"Wait for confirmation before starting"`
	Poll    time.Duration `long:"poll" default:"10ms" description:"Interval between encoder checks during a move"`
	NoTUI   bool          `long:"no-tui" description:"Log progress instead of showing the dashboard"`
}

var autoSeries = []series{
	{name: string(robot.LeftDrive1), color: "196"}, // red
	{name: string(robot.LeftDrive2), color: "208"}, // orange
	{name: string(robot.RightDrive1), color: "46"}, // green
	{name: string(robot.RightDrive2), color: "51"}, // cyan
}

// loadRoutine returns the routine named on the command line or the built-in one.
func (c *AutoCommand) loadRoutine() (auto.Routine, error) {
	if c.Routine == "" {
		return auto.RedCorner(), nil
	}
	return auto.LoadRoutine(c.Routine)
}

func (c *AutoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	routine, err := c.loadRoutine()
	if err != nil {
		return err
	}

	if c.Wait {
		start := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Run %s (%d steps)?", routine.Name, len(routine.Steps))).
					Affirmative("Start").
					Negative("Cancel").
					Value(&start),
			),
		)
		if err := form.Run(); err != nil || !start {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if c.NoTUI {
		return c.runPlain(cfg, routine)
	}
	return c.runDashboard(cfg, routine)
}

// setup opens the robot and builds the driver and runner.
func (c *AutoCommand) setup(ctx context.Context, cfg *robot.Config, logger *zap.SugaredLogger, outputs ...telemetry.Output) (*robot.Hardware, *auto.Driver, *auto.Runner, error) {
	hw, err := openRobot(ctx, cfg, c.Sim, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	outputs = append(outputs, telemetry.NewLog(logger))
	tel := telemetry.New(hw.Clock(), outputs...)

	driver := auto.NewDriver(hw, auto.DriverConfig{
		CountsPerInch: cfg.Geometry.CountsPerInch(),
		PollInterval:  c.Poll,
		Telemetry:     tel,
		Logger:        logger,
	})
	return hw, driver, auto.NewRunner(hw, driver, tel, logger), nil
}

func run(ctx context.Context, runner *auto.Runner, routine auto.Routine) error {
	if err := runner.Init(ctx); err != nil {
		return err
	}
	return runner.Run(ctx, routine)
}

func (c *AutoCommand) runPlain(cfg *robot.Config, routine auto.Routine) error {
	logger := newLogger(zapcore.Lock(os.Stderr))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := &telemetry.Recorder{}
	hw, _, runner, err := c.setup(ctx, cfg, logger, rec)
	if err != nil {
		return err
	}
	defer hw.Close()

	err = run(ctx, runner, routine)
	fmt.Println(summary(rec))
	if err != nil {
		logger.Errorw("routine failed", "error", err)
		return err
	}
	return nil
}

// summaryKeys are the fields shown after a plain run, in order.
var summaryKeys = []string{"Path0", "Path1", "Path2", "Path"}

// summary renders the last value of each path field the run reported.
func summary(rec *telemetry.Recorder) string {
	var rows [][]string
	for _, key := range summaryKeys {
		if v, ok := rec.Last(key); ok {
			rows = append(rows, []string{key, v})
		}
	}
	if len(rows) == 0 {
		return dimStyle.Render("no telemetry recorded")
	}
	title := subHeaderStyle.Render(fmt.Sprintf("Summary (%d frames)", len(rec.Frames())))
	return title + "\n" + styleTable(rows, "Field", "Value").Render()
}

func (c *AutoCommand) runDashboard(cfg *robot.Config, routine auto.Routine) error {
	lines := newLogLines()
	logger := newLogger(lines)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := telemetry.NewChannel()
	hw, driver, runner, err := c.setup(ctx, cfg, logger, frames)
	if err != nil {
		return err
	}
	defer hw.Close()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, runner, routine)
	}()

	samples := make(chan map[string]float64, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-driver.Progress():
				sample := make(map[string]float64, len(p.Targets))
				for _, name := range robot.DriveMotors() {
					sample[string(name)] = float64(p.Remaining(name))
				}
				select {
				case samples <- sample:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// The dashboard reports the result; keep a copy to return after it exits.
	result := make(chan error, 1)
	watched := make(chan error, 1)
	go func() {
		err := <-done
		result <- err
		watched <- err
	}()

	span := chartSpan(routine, cfg.Geometry.CountsPerInch())
	model := newDashboard(dashboardConfig{
		title:    "Pushbot Auto",
		subtitle: routine.Name,
		help:     "Remaining counts per drive motor. Press 'q' to stop.",
		series:   autoSeries,
		minY:     -span,
		maxY:     span,
		samples:  samples,
		frames:   frames.Frames(),
		logs:     lines.Lines(),
		done:     watched,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}

	// Quitting early stops the routine; it halts the motors on its way out.
	cancel()
	err = <-result
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// chartSpan returns the largest single move of routine in encoder counts,
// with some headroom for the chart.
func chartSpan(routine auto.Routine, countsPerInch float64) float64 {
	span := 100.0
	for _, step := range routine.Steps {
		d, ok := step.(auto.DriveStep)
		if !ok {
			continue
		}
		for _, inches := range []float64{d.LeftInches, d.RightInches} {
			counts := math.Abs(float64(robot.TargetCounts(inches, countsPerInch)))
			span = max(span, counts)
		}
	}
	return span * 1.1
}
