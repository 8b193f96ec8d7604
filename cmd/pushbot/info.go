package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ftc10546/pushbot/pkg/auto"
	"github.com/ftc10546/pushbot/pkg/robot"
)

type InfoCommand struct {
	Routine string `short:"r" long:"routine" env:"PUSHBOT_ROUTINE" description:"Routine file (TOML) to plan; defaults to the built-in red corner routine"`
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableNameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func styleTable(rows [][]string, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableNameStyle
			default:
				return tableCellStyle
			}
		})
}

func (c *InfoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	routine := auto.RedCorner()
	if c.Routine != "" {
		if routine, err = auto.LoadRoutine(c.Routine); err != nil {
			return err
		}
	}

	fmt.Println(headerStyle.Render("Pushbot"))
	fmt.Println(dimStyle.Render("━━━━━━━"))
	fmt.Println()

	port := cfg.Port
	if cfg.IsSimulated() {
		port = "(simulator)"
	}
	fmt.Printf("Config:  %s\n", opts.Config)
	fmt.Printf("Port:    %s\n", port)
	g := cfg.Geometry
	fmt.Printf("Drive:   %g counts/rev x %g reduction, %g\" wheels = %.2f counts/inch\n",
		g.CountsPerMotorRev, g.DriveGearReduction, g.WheelDiameterInches, g.CountsPerInch())
	fmt.Println()

	// Motor mapping
	motorRows := make([][]string, 0, len(robot.AllMotors()))
	for _, name := range robot.AllMotors() {
		mc := cfg.Motors[name]
		reversed := ""
		if mc.Reversed {
			reversed = "yes"
		}
		motorRows = append(motorRows, []string{string(name), fmt.Sprintf("%d", mc.ID), reversed})
	}
	fmt.Println(subHeaderStyle.Render("Motors"))
	fmt.Println(styleTable(motorRows, "Motor", "Servo ID", "Reversed").Render())
	fmt.Println()

	// Routine plan
	cpi := g.CountsPerInch()
	stepRows := make([][]string, 0, len(routine.Steps))
	for i, step := range routine.Steps {
		left, right := "", ""
		if d, ok := step.(auto.DriveStep); ok {
			left = fmt.Sprintf("%+d", robot.TargetCounts(d.LeftInches, cpi))
			right = fmt.Sprintf("%+d", robot.TargetCounts(d.RightInches, cpi))
		}
		stepRows = append(stepRows, []string{fmt.Sprintf("S%d", i+1), step.String(), left, right})
	}
	fmt.Println(subHeaderStyle.Render("Routine: " + routine.Name))
	fmt.Println(styleTable(stepRows, "Step", "Action", "Left counts", "Right counts").Render())

	return nil
}
