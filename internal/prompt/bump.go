package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/javelin/internal/domain/release"
)

//nolint:gochecknoglobals // Shared styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
)

// bumpModel is the version bump menu.
type bumpModel struct {
	current string
	kinds   []release.BumpKind
	cursor  int
	chosen  release.BumpKind
	aborted bool
}

func newBumpModel(current string) bumpModel {
	return bumpModel{
		current: current,
		kinds:   release.BumpKinds(),
	}
}

func (m bumpModel) Init() tea.Cmd {
	return nil
}

func (m bumpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true

		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.kinds)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = m.kinds[m.cursor]

		return m, tea.Quit
	default:
		kind, err := release.ParseBumpKind(key.String())
		if err != nil {
			return m, nil
		}

		m.chosen = kind

		return m, tea.Quit
	}

	return m, nil
}

func (m bumpModel) View() string {
	if m.chosen != 0 || m.aborted {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Current version: "+m.current) + "\n\n")

	for i, kind := range m.kinds {
		line := fmt.Sprintf("%d) %-8s %s", int(kind), kind.String(), preview(m.current, kind))

		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + selectedStyle.Render(line) + "\n")

			continue
		}

		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("1-4 or arrows + enter to choose, q to quit") + "\n")

	return b.String()
}

func preview(current string, kind release.BumpKind) string {
	next, err := release.Bump(current, kind)
	if err != nil {
		return ""
	}

	return dimStyle.Render("→ " + next)
}
