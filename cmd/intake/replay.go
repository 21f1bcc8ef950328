package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goliatone/go-intake/flow"
	"gopkg.in/yaml.v3"
)

type ReplayCmd struct {
	File        string `arg:"" type:"existingfile" help:"YAML or JSON action log."`
	Mode        string `help:"Initial mode, overrides the log." placeholder:"MODE"`
	Config      string `help:"Machine config file." type:"existingfile" env:"INTAKE_MACHINE_CONFIG"`
	ShowDisplay bool   `help:"Print the display flags after each action."`
}

// actionLog is either a bare list of actions or a document with a mode.
type actionLog struct {
	Mode    string          `yaml:"mode"`
	Actions []flow.Envelope `yaml:"actions"`
}

func parseActionLog(data []byte) (actionLog, error) {
	var doc actionLog
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	var list []flow.Envelope
	if err := yaml.Unmarshal(data, &list); err != nil {
		return actionLog{}, fmt.Errorf("parse action log: %w", err)
	}
	return actionLog{Actions: list}, nil
}

func (c ReplayCmd) Run(rt *runtime) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	doc, err := parseActionLog(data)
	if err != nil {
		return err
	}

	modeName := doc.Mode
	if c.Mode != "" {
		modeName = c.Mode
	}
	if modeName == "" {
		modeName = string(flow.ModeGuest)
	}
	mode, err := flow.ParseMode(modeName)
	if err != nil {
		return err
	}

	opts, err := machineOptions(c.Config)
	if err != nil {
		return err
	}
	opts = append(opts, flow.WithLogger(rt.logger))
	machine := flow.NewMachine(opts...)

	ctx := context.Background()
	state := flow.NewState(mode)
	for i, env := range doc.Actions {
		action, err := flow.DecodeEnvelope(env)
		if err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
		next, err := machine.Apply(ctx, state, action)
		if err != nil {
			return fmt.Errorf("action %d (%s): %w", i+1, action.Type(), err)
		}
		fmt.Fprintf(rt.out, "%3d %-26s step=%s progress=%d", i+1, action.Type(), next.Step, next.Progress)
		if next.TS != state.TS && next.SideEffect != flow.SideEffectNone {
			fmt.Fprintf(rt.out, " effect=%s", next.SideEffect)
		}
		if next.SubmissionError != "" {
			fmt.Fprintf(rt.out, " error=%q", next.SubmissionError)
		}
		fmt.Fprintln(rt.out)
		if c.ShowDisplay {
			raw, err := json.Marshal(next.Display)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "    display %s\n", raw)
		}
		state = next
	}
	return nil
}

func machineOptions(path string) ([]flow.MachineOption, error) {
	if path == "" {
		return nil, nil
	}
	cfg, err := flow.LoadMachineConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Options()
}
