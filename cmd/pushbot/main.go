package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string  `short:"c" long:"config" env:"PUSHBOT_CONFIG" default:"pushbot.json" description:"Robot configuration file"`
	Verbose bool    `short:"v" long:"verbose" description:"Log debug output, including every telemetry frame"`
	SimRate float64 `long:"sim-rate" default:"600" description:"Full-power encoder rate of the simulated motors, in counts per second"`

	Setup  SetupCommand  `command:"setup" description:"Find the servo bus, identify motors and save the configuration"`
	Teleop TeleopCommand `command:"teleop" alias:"teleoperate" description:"Drive the robot from the keyboard"`
	Auto   AutoCommand   `command:"auto" alias:"autonomous" description:"Run an autonomous routine"`
	Info   InfoCommand   `command:"info" description:"Show the configuration and routine plan"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Pushbot - drive, shoot and run autonomous routines on a servo-bus robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
