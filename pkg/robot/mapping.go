package robot

import "fmt"

// MotorConfig maps a motor role to a servo on the bus.
type MotorConfig struct {
	ID       int  `json:"id"`
	Reversed bool `json:"reversed,omitempty"`
}

// Mapping holds the servo assignment for all motors, keyed by motor name.
type Mapping map[MotorName]MotorConfig

// DefaultMapping assigns servo IDs 1-7 in AllMotors order with the right side reversed.
func DefaultMapping() Mapping {
	m := make(Mapping, len(AllMotors()))
	for i, name := range AllMotors() {
		m[name] = MotorConfig{
			ID:       i + 1,
			Reversed: name == RightDrive1 || name == RightDrive2,
		}
	}
	return m
}

// MotorIDs returns the servo IDs for all mapped motors.
func (m Mapping) MotorIDs() []int {
	ids := make([]int, 0, len(m))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := m[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and config for a given servo ID.
func (m Mapping) ByID(id int) (MotorName, MotorConfig, bool) {
	for name, mc := range m {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorConfig{}, false
}

// Validate checks that every motor is mapped to a distinct servo ID.
func (m Mapping) Validate() error {
	seen := make(map[int]MotorName, len(m))
	for _, name := range AllMotors() {
		mc, ok := m[name]
		if !ok {
			return fmt.Errorf("motor %s not mapped", name)
		}
		if mc.ID <= 0 {
			return fmt.Errorf("motor %s: invalid servo id %d", name, mc.ID)
		}
		if other, dup := seen[mc.ID]; dup {
			return fmt.Errorf("servo id %d used by both %s and %s", mc.ID, other, name)
		}
		seen[mc.ID] = name
	}
	return nil
}
