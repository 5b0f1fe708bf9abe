package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"

	"github.com/zde37/chordsim/internal/chord"
	"github.com/zde37/chordsim/internal/script"
)

const (
	actionShow    = "🪐 show ring"
	actionJoin    = "👫 join a node"
	actionLeave   = "🚪 leave a node"
	actionInsert  = "📥 insert a key"
	actionRemove  = "🗑  remove a key"
	actionFind    = "🔎 find a key"
	actionFingers = "📋 show finger tables"
	actionKeys    = "🔑 show key distribution"
	actionExit    = "👋 exit"
)

// menu drives the ring from survey prompts. Every action is turned into a
// script statement so the menu and scripts share one code path.
type menu struct {
	ring   *chord.Ring
	runner *script.Runner
}

func newMenu(ring *chord.Ring, runner *script.Runner) *menu {
	return &menu{ring: ring, runner: runner}
}

func (m *menu) loop() {
	prompt := &survey.Select{
		Message: "What do you want to do ?",
		Options: []string{
			actionShow, actionJoin, actionLeave, actionInsert, actionRemove,
			actionFind, actionFingers, actionKeys, actionExit,
		},
	}

	for {
		var action string
		if err := survey.AskOne(prompt, &action); err != nil {
			if !errors.Is(err, terminal.InterruptErr) {
				color.Red("%v\n", err)
			}
			return
		}

		if action == actionExit {
			color.HiYellow("=======  Bye 👋")
			return
		}

		if err := m.do(action); err != nil {
			color.Red("%v\n", err)
		}
	}
}

func (m *menu) do(action string) error {
	if action == actionShow {
		tree, err := renderRing(m.ring)
		if err != nil {
			return err
		}
		color.HiYellow("%s", tree)
		return nil
	}

	stmt, err := m.ask(action)
	if err != nil {
		return err
	}
	return m.runner.Run("interactive", stmt)
}

// ask collects the operands for action and returns it as a script statement.
func (m *menu) ask(action string) (string, error) {
	switch action {
	case actionJoin:
		id, err := askInt("Node id to join:", m.idValidator)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("join %d", id), nil

	case actionLeave:
		id, err := askInt("Node id to leave:", m.idValidator)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("leave %d", id), nil

	case actionInsert:
		answers := struct {
			Key   string
			Value string
			From  string
		}{}
		err := survey.Ask([]*survey.Question{
			{Name: "key", Prompt: &survey.Input{Message: "Key:"}, Validate: m.idValidator},
			{Name: "value", Prompt: &survey.Input{Message: "Value (empty for none):"}, Validate: optionalIntValidator},
			{Name: "from", Prompt: &survey.Input{Message: "Route from node:"}, Validate: m.idValidator},
		}, &answers)
		if err != nil {
			return "", err
		}
		if answers.Value == "" {
			return fmt.Sprintf("insert %s at %s", answers.Key, answers.From), nil
		}
		return fmt.Sprintf("insert %s = %s at %s", answers.Key, answers.Value, answers.From), nil

	case actionRemove, actionFind:
		answers := struct {
			Key  string
			From string
		}{}
		err := survey.Ask([]*survey.Question{
			{Name: "key", Prompt: &survey.Input{Message: "Key:"}, Validate: m.idValidator},
			{Name: "from", Prompt: &survey.Input{Message: "Route from node:"}, Validate: m.idValidator},
		}, &answers)
		if err != nil {
			return "", err
		}
		if action == actionRemove {
			return fmt.Sprintf("remove %s at %s", answers.Key, answers.From), nil
		}
		return fmt.Sprintf("find %s from %s", answers.Key, answers.From), nil

	case actionFingers:
		return "fingers", nil

	case actionKeys:
		return "keys", nil
	}
	return "", fmt.Errorf("unknown action %q", action)
}

func askInt(message string, validator survey.Validator) (int, error) {
	var raw string
	if err := survey.AskOne(&survey.Input{Message: message}, &raw, survey.WithValidator(validator)); err != nil {
		return 0, fmt.Errorf("failed to get the answer: %w", err)
	}
	return strconv.Atoi(raw)
}

// idValidator accepts integers inside the ring's identifier space.
func (m *menu) idValidator(ans interface{}) error {
	raw, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected text input")
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	if !m.ring.Space().Valid(v) {
		return fmt.Errorf("%d is outside [0, %d)", v, m.ring.Space().Size())
	}
	return nil
}

func optionalIntValidator(ans interface{}) error {
	raw, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected text input")
	}
	if raw == "" {
		return nil
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}
