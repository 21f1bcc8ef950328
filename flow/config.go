package flow

import (
	"fmt"
	"strings"
)

// MachineConfig is the declarative configuration of a Machine.
type MachineConfig struct {
	EntryStep       string         `json:"entry_step" yaml:"entry_step"`
	Waypoints       []string       `json:"waypoints" yaml:"waypoints"`
	Progress        map[string]int `json:"progress" yaml:"progress"`
	HookFailureMode string         `json:"hook_failure_mode" yaml:"hook_failure_mode"`
}

// Validate checks step names and progress bounds.
func (c MachineConfig) Validate() error {
	if strings.TrimSpace(c.EntryStep) != "" {
		if _, err := ParseStep(c.EntryStep); err != nil {
			return fmt.Errorf("entry_step: %w", err)
		}
	}
	for _, name := range c.Waypoints {
		if _, err := ParseStep(name); err != nil {
			return fmt.Errorf("waypoints: %w", err)
		}
	}
	for name, value := range c.Progress {
		if _, err := ParseStep(name); err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		if value < 0 || value > 100 {
			return fmt.Errorf("progress %s: %d outside 0..100", name, value)
		}
	}
	switch HookFailureMode(strings.ToLower(strings.TrimSpace(c.HookFailureMode))) {
	case "", HookFailureModeFailOpen, HookFailureModeFailClosed:
	default:
		return fmt.Errorf("hook_failure_mode %q not supported", c.HookFailureMode)
	}
	return nil
}

// Options converts the config into machine options. Call Validate first.
func (c MachineConfig) Options() ([]MachineOption, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var opts []MachineOption
	if strings.TrimSpace(c.EntryStep) != "" {
		step, _ := ParseStep(c.EntryStep)
		opts = append(opts, WithEntryStep(step))
	}
	if c.Waypoints != nil {
		steps := make([]Step, 0, len(c.Waypoints))
		for _, name := range c.Waypoints {
			step, _ := ParseStep(name)
			steps = append(steps, step)
		}
		opts = append(opts, WithWaypoints(steps...))
	}
	if len(c.Progress) > 0 {
		table := DefaultProgress()
		for name, value := range c.Progress {
			step, _ := ParseStep(name)
			table[step] = value
		}
		opts = append(opts, WithProgressTable(table))
	}
	if c.HookFailureMode != "" {
		opts = append(opts, WithHookFailureMode(HookFailureMode(c.HookFailureMode)))
	}
	return opts, nil
}
