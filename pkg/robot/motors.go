// Package robot provides the hardware gateway for the pushbot: motors,
// drive geometry, configuration and the servo-bus backend.
package robot

import (
	"context"
	"fmt"
)

// MotorName identifies a motor on the robot.
type MotorName string

// Motor names for the pushbot.
const (
	LeftDrive1  MotorName = "left_drive_1"
	LeftDrive2  MotorName = "left_drive_2"
	RightDrive1 MotorName = "right_drive_1"
	RightDrive2 MotorName = "right_drive_2"
	Shooter1    MotorName = "shooter_1"
	Shooter2    MotorName = "shooter_2"
	Lift        MotorName = "lift"
)

// AllMotors returns all motor names in order (matching servo IDs 1-7).
func AllMotors() []MotorName {
	return []MotorName{
		LeftDrive1,
		LeftDrive2,
		RightDrive1,
		RightDrive2,
		Shooter1,
		Shooter2,
		Lift,
	}
}

// DriveMotors returns the four drive motor names, left side first.
func DriveMotors() []MotorName {
	return []MotorName{LeftDrive1, LeftDrive2, RightDrive1, RightDrive2}
}

// IsLeft reports whether the motor is on the left side of the drivetrain.
func (n MotorName) IsLeft() bool {
	return n == LeftDrive1 || n == LeftDrive2
}

// RunMode selects how a motor interprets its power command.
type RunMode int

const (
	// VelocityControl drives at a speed proportional to power using the encoder.
	VelocityControl RunMode = iota
	// PositionControl drives toward the target position, power caps the speed.
	PositionControl
	// ResetEncoder stops the motor and zeroes its encoder.
	ResetEncoder
	// OpenLoop applies power directly without using the encoder.
	OpenLoop
)

func (m RunMode) String() string {
	switch m {
	case VelocityControl:
		return "velocity"
	case PositionControl:
		return "position"
	case ResetEncoder:
		return "reset"
	case OpenLoop:
		return "open_loop"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// Motor is the capability set the control code needs from a single motor.
type Motor interface {
	SetPower(ctx context.Context, power float64) error
	SetMode(ctx context.Context, mode RunMode) error
	SetTargetPosition(ctx context.Context, counts int) error
	CurrentPosition(ctx context.Context) (int, error)
	IsBusy(ctx context.Context) (bool, error)
}

// ClipPower limits a power command to [-1, 1].
func ClipPower(p float64) float64 {
	switch {
	case p > 1:
		return 1
	case p < -1:
		return -1
	default:
		return p
	}
}
