package teleop

import (
	"math"

	"github.com/ftc10546/pushbot/pkg/gamepad"
)

// LiftDeadZone is the trigger travel below which a trigger counts as released.
const LiftDeadZone = 0.1

// DriveCommand is the set of power levels written in one tick.
type DriveCommand struct {
	Left    float64
	Right   float64
	Shooter float64
	Intake  float64 // reported only, there is no intake motor
	Lift    float64
}

// Mix maps the pads to motor powers. lastLift is the previous tick's lift
// power, which LiftPower may hold.
func Mix(p gamepad.Pads, lastLift float64) DriveCommand {
	// POV mode: left stick drives, right stick turns. Stick Y is negative forward.
	left := -p.Driver.LeftStickY + p.Driver.RightStickX
	right := -p.Driver.LeftStickY - p.Driver.RightStickX
	left, right = Normalize(left, right)

	return DriveCommand{
		Left:    left,
		Right:   right,
		Shooter: p.Operator.LeftStickY + p.Operator.RightStickX,
		Intake:  p.Operator.RightStickY - p.Operator.RightStickX,
		Lift:    LiftPower(p.Operator.LeftTrigger, p.Operator.RightTrigger, lastLift),
	}
}

// Normalize scales both values down by the larger magnitude when it exceeds
// 1.0, preserving their ratio. It never scales up.
func Normalize(left, right float64) (float64, float64) {
	m := math.Max(math.Abs(left), math.Abs(right))
	if m > 1.0 {
		left /= m
		right /= m
	}
	return left, right
}

// LiftPower picks the lift power from the two triggers. When exactly one
// trigger is pressed the lift follows the released one, and with both
// released it stops. With both pressed nothing is selected and last is kept.
//
// Following the released trigger looks unintended but is the behaviour the
// drivers trained on; keep it until that is confirmed otherwise.
func LiftPower(leftTrigger, rightTrigger, last float64) float64 {
	power := last
	if leftTrigger < LiftDeadZone {
		if rightTrigger > LiftDeadZone {
			power = leftTrigger
		} else {
			power = 0
		}
	}
	if rightTrigger < LiftDeadZone {
		if leftTrigger > LiftDeadZone {
			power = rightTrigger
		} else {
			power = 0
		}
	}
	return power
}
