package sim

import (
	"github.com/benbjohnson/clock"

	"github.com/ftc10546/pushbot/pkg/robot"
)

// Robot is a fully simulated pushbot.
type Robot struct {
	*robot.Hardware
	Motors map[robot.MotorName]*Motor
}

// New builds a simulated robot whose motors integrate against clk.
func New(clk clock.Clock) *Robot {
	if clk == nil {
		clk = clock.New()
	}

	sims := make(map[robot.MotorName]*Motor, len(robot.AllMotors()))
	motors := make(map[robot.MotorName]robot.Motor, len(robot.AllMotors()))
	for _, name := range robot.AllMotors() {
		m := NewMotor(clk)
		sims[name] = m
		motors[name] = m
	}

	// Every motor is present, so NewHardware cannot fail.
	hw, err := robot.NewHardware(motors, clk, nil)
	if err != nil {
		panic(err)
	}
	return &Robot{Hardware: hw, Motors: sims}
}
