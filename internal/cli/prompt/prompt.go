// Package prompt wraps promptui for interactive commands.
package prompt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

func wrap(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}

// Input asks for a line of text. validate may be nil.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue, Validate: validate}
	v, err := p.Run()
	return v, wrap(err)
}

// InputInt asks for an integer between min and max.
func InputInt(label string, defaultValue, min, max int) (int, error) {
	v, err := Input(label, strconv.Itoa(defaultValue), func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("must be an integer")
		}
		if n < min || n > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(v)
	return n, nil
}

// Select asks the user to pick one of items and returns it.
func Select(label string, items []string) (string, error) {
	s := promptui.Select{
		Label: label,
		Items: items,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "* {{ . | green }}",
		},
	}
	_, v, err := s.Run()
	return v, wrap(err)
}

// Confirm asks a yes/no question.
func Confirm(label string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}
	p := promptui.Prompt{Label: label, IsConfirm: true, Default: def}
	_, err := p.Run()
	if err == nil {
		return true, nil
	}
	// promptui reports a "no" answer as ErrAbort.
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	return false, wrap(err)
}
