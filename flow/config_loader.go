package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseMachineConfig parses YAML or JSON machine configuration.
func ParseMachineConfig(data []byte) (MachineConfig, error) {
	var cfg MachineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MachineConfig{}, fmt.Errorf("parse machine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return MachineConfig{}, err
	}
	return cfg, nil
}

// LoadMachineConfig reads and parses a machine configuration file.
func LoadMachineConfig(path string) (MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MachineConfig{}, fmt.Errorf("read machine config: %w", err)
	}
	return ParseMachineConfig(data)
}
