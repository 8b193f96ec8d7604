package robot

import "math"

// Geometry describes the drivetrain and converts distances to encoder counts.
type Geometry struct {
	CountsPerMotorRev   float64 `json:"counts_per_motor_rev"`
	DriveGearReduction  float64 `json:"drive_gear_reduction"` // < 1.0 if geared up
	WheelDiameterInches float64 `json:"wheel_diameter_inches"`
}

// DefaultGeometry is a 7 count encoder behind a 20:1 gearbox on 4" wheels.
func DefaultGeometry() Geometry {
	return Geometry{
		CountsPerMotorRev:   7,
		DriveGearReduction:  20,
		WheelDiameterInches: 4.0,
	}
}

// CountsPerInch returns encoder counts per inch of wheel travel.
func (g Geometry) CountsPerInch() float64 {
	if g.WheelDiameterInches == 0 {
		return 0
	}
	return (g.CountsPerMotorRev * g.DriveGearReduction) / (g.WheelDiameterInches * math.Pi)
}

// TargetCounts converts a travel distance to a relative encoder count.
func TargetCounts(inches, countsPerInch float64) int {
	return int(math.Round(inches * countsPerInch))
}
