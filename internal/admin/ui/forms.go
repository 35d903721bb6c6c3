package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

// stepForm advances a huh form and reports whether it completed.
func stepForm(f *huh.Form, msg tea.Msg) (*huh.Form, tea.Cmd, bool, error) {
	if f == nil {
		return nil, nil, false, fmt.Errorf("internal error: form not initialized")
	}
	updated, cmd := f.Update(msg)
	next, ok := updated.(*huh.Form)
	if !ok {
		return nil, nil, false, fmt.Errorf("internal error: unexpected form model type")
	}
	return next, cmd, next.State == huh.StateCompleted, nil
}

func confirmForm(title string, value *bool) *huh.Form {
	*value = false
	return huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(title).Value(value)))
}
