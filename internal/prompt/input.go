package prompt

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const inputCharLimit = 1024

// inputModel reads one line of text.
type inputModel struct {
	label   string
	input   textinput.Model
	done    bool
	aborted bool
}

func newInputModel(label, placeholder string, secret bool) inputModel {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = inputCharLimit
	input.Prompt = "> "

	if secret {
		input.EchoMode = textinput.EchoPassword
		input.EchoCharacter = '*'
	}

	input.Focus()

	return inputModel{
		label: label,
		input: input,
	}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type { //nolint:exhaustive // Every other key is typed into the field.
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true

			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true

			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	return titleStyle.Render(m.label) + "\n" + m.input.View() + "\n" + dimStyle.Render("enter to confirm, esc to quit") + "\n"
}

// Value returns the entered text.
func (m inputModel) Value() string {
	return m.input.Value()
}
