package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "pushbot.json"

// Config holds the robot configuration
type Config struct {
	// Port is the servo bus serial port. Empty selects the simulator.
	Port     string   `json:"port"`
	BaudRate int      `json:"baud_rate,omitempty"`
	Motors   Mapping  `json:"motors,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// DefaultConfig returns a simulator config with the default mapping and geometry.
func DefaultConfig() *Config {
	return &Config{
		Motors:   DefaultMapping(),
		Geometry: DefaultGeometry(),
	}
}

// IsSimulated returns true if no servo bus port is configured
func (c *Config) IsSimulated() bool {
	return c.Port == ""
}

// Validate checks the mapping and geometry
func (c *Config) Validate() error {
	if err := c.Motors.Validate(); err != nil {
		return fmt.Errorf("motors: %w", err)
	}
	if c.Geometry.CountsPerInch() <= 0 {
		return fmt.Errorf("geometry: counts per inch must be positive, got %f", c.Geometry.CountsPerInch())
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Missing sections
// fall back to the defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
