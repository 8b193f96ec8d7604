// Package pushbot drives a two-sided pushbot with a shooter and a ball lift
// over a Feetech servo bus, or in simulation when no bus is configured.
//
// # Installation
//
//	go install github.com/ftc10546/pushbot/cmd/pushbot@latest
//
// # Usage
//
// First, run setup to find the servo bus, identify each motor and enter the
// drivetrain geometry:
//
//	pushbot setup
//
// Then drive from the keyboard:
//
//	pushbot teleop
//
// or run an autonomous routine, either the built-in one or a TOML file:
//
//	pushbot auto --routine routines/red_corner.toml
//
// teleop and auto accept --sim to run against the simulator.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pushbot: CLI with setup, teleop, auto and info commands
//   - pkg/robot: Motor interface, hardware handle, servo bus backend and configuration
//   - pkg/sim: Simulated motors for running without hardware
//   - pkg/gamepad: Driver and operator gamepad input
//   - pkg/telemetry: Driver station telemetry frames
//   - pkg/teleop: Teleoperation controller
//   - pkg/auto: Encoder drive and autonomous routines
package pushbot
