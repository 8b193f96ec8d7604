package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/ftc10546/pushbot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var errAborted = errors.New("setup aborted")

type SetupCommand struct {
	MaxID int `long:"max-id" default:"16" description:"Highest servo ID to scan for"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Pushbot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	// Start from the existing configuration, if any
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		cfg = robot.DefaultConfig()
	}

	// Step 1: Find the servo bus
	found := findBuses(c.MaxID)
	bus, err := chooseBus(found)
	switch {
	case errors.Is(err, errAborted):
		return nil
	case err != nil:
		fmt.Println(err)
		fmt.Println("Make sure the servo controller is connected and powered on.")
		fmt.Println()
		if !confirm("Save a simulator configuration instead?") {
			return nil
		}
		cfg.Port = ""
	default:
		cfg.Port = bus.port

		// Step 2: Identify motors
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Identifying Motors ━━━"))
		fmt.Println()
		mapping, err := identifyMotors(bus, cfg.Motors)
		bus.bus.Close()
		if errors.Is(err, errAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		cfg.Motors = mapping
	}

	// Step 3: Drivetrain geometry
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Drivetrain ━━━"))
	fmt.Println()
	if err := askGeometry(&cfg.Geometry); err != nil {
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s (%.2f counts/inch)\n", opts.Config, cfg.Geometry.CountsPerInch())
	fmt.Println()
	fmt.Println("Drive with: " + headerStyle.Render("pushbot teleop"))
	fmt.Println("Run autonomous with: " + headerStyle.Render("pushbot auto"))

	return nil
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findBuses(maxID int) []busInfo {
	fmt.Println("Scanning serial ports for servos...")

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, maxID)
		cancel()

		// A pushbot needs one servo per motor
		if err != nil || len(servos) < len(robot.AllMotors()) {
			bus.Close()
			continue
		}

		fmt.Printf("  Found %d servos on %s\n", len(servos), port)
		buses = append(buses, busInfo{port: port, servos: servos, bus: bus})
	}

	return buses
}

// chooseBus picks one bus and closes the rest.
func chooseBus(buses []busInfo) (busInfo, error) {
	switch len(buses) {
	case 0:
		return busInfo{}, fmt.Errorf("no servo bus with at least %d servos found", len(robot.AllMotors()))
	case 1:
		return buses[0], nil
	}

	options := make([]huh.Option[string], 0, len(buses))
	for _, b := range buses {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%d servos)", b.port, len(b.servos)), b.port))
	}

	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the robot on?").
				Options(options...).
				Value(&port),
		),
	)
	err := form.Run()

	var chosen busInfo
	for _, b := range buses {
		if err == nil && b.port == port {
			chosen = b
			continue
		}
		b.bus.Close()
	}
	if err != nil {
		return busInfo{}, errAborted
	}
	return chosen, nil
}

// identifyMotors wiggles each servo in turn and asks which motor it drives.
// A servo already in previous starts with its old motor selected.
func identifyMotors(b busInfo, previous robot.Mapping) (robot.Mapping, error) {
	mapping := make(robot.Mapping, len(robot.AllMotors()))
	defaults := robot.DefaultMapping()

	for _, s := range b.servos {
		remaining := unassigned(mapping)
		if len(remaining) == 0 {
			break
		}

		wiggle(b.bus, s)

		options := make([]huh.Option[string], 0, len(remaining)+1)
		for _, name := range remaining {
			options = append(options, huh.NewOption(string(name), string(name)))
		}
		options = append(options, huh.NewOption("Skip this servo", "skip"))

		role := suggestRole(previous, remaining, s.ID)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(fmt.Sprintf("Which motor is servo %d?", s.ID)).
					Description("The servo that just wiggled").
					Options(options...).
					Value(&role),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			return nil, errAborted
		}
		if role == "skip" {
			continue
		}

		name := robot.MotorName(role)
		reversed := defaults[name].Reversed
		if slices.Contains(robot.DriveMotors(), name) {
			reversed = confirmDefault(fmt.Sprintf("Reverse %s?", name), reversed)
		}
		mapping[name] = robot.MotorConfig{ID: s.ID, Reversed: reversed}
		fmt.Printf("  %s -> servo %d\n", name, s.ID)
	}

	if missing := unassigned(mapping); len(missing) > 0 {
		return nil, fmt.Errorf("motors not assigned: %v", missing)
	}
	return mapping, nil
}

// suggestRole returns the motor id was mapped to before, if that motor is
// still unassigned.
func suggestRole(previous robot.Mapping, remaining []robot.MotorName, id int) string {
	name, _, ok := previous.ByID(id)
	if !ok || !slices.Contains(remaining, name) {
		return ""
	}
	return string(name)
}

func unassigned(m robot.Mapping) []robot.MotorName {
	var names []robot.MotorName
	for _, name := range robot.AllMotors() {
		if _, ok := m[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}

// wiggle turns a servo slightly back and forth so it can be identified.
func wiggle(bus *feetech.Bus, s feetech.FoundServo) {
	ctx := context.Background()
	servo := feetech.NewServo(bus, s.ID, s.Model)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading servo %d: %v\n", s.ID, err)
		return
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo %d: %v\n", s.ID, err)
		return
	}

	fmt.Printf("\n  Wiggling servo %d...\n", s.ID)

	wiggleAmount := 200
	moveTimeMs := 400
	servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.Disable(ctx)
}

func askGeometry(g *robot.Geometry) error {
	cpr := strconv.FormatFloat(g.CountsPerMotorRev, 'g', -1, 64)
	reduction := strconv.FormatFloat(g.DriveGearReduction, 'g', -1, 64)
	diameter := strconv.FormatFloat(g.WheelDiameterInches, 'g', -1, 64)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Encoder counts per motor revolution").
				Value(&cpr).
				Validate(positiveNumber),
			huh.NewInput().
				Title("Drive gear reduction").
				Description("Less than 1 if geared up").
				Value(&reduction).
				Validate(positiveNumber),
			huh.NewInput().
				Title("Wheel diameter (inches)").
				Value(&diameter).
				Validate(positiveNumber),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		return errAborted
	}

	// Already validated
	g.CountsPerMotorRev, _ = strconv.ParseFloat(strings.TrimSpace(cpr), 64)
	g.DriveGearReduction, _ = strconv.ParseFloat(strings.TrimSpace(reduction), 64)
	g.WheelDiameterInches, _ = strconv.ParseFloat(strings.TrimSpace(diameter), 64)
	return nil
}

func positiveNumber(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("enter a number")
	}
	if v <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func confirm(title string) bool {
	return confirmDefault(title, true)
}

func confirmDefault(title string, value bool) bool {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return value
}
