package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/javelin/internal/domain/release"
)

// maskVisible is how many leading characters of a secret stay readable.
const maskVisible = 5

// ErrAborted is returned when the operator quits a dialog.
var ErrAborted = errors.New("aborted by operator")

// Terminal runs dialogs on the given input and output.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a terminal prompter.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  in,
		out: out,
	}
}

// ChooseBump shows the bump menu for the current version.
func (t *Terminal) ChooseBump(ctx context.Context, current string) (release.BumpKind, error) {
	final, err := t.run(ctx, newBumpModel(current))
	if err != nil {
		return 0, release.Wrap(release.KindAborted, "choose version bump", err)
	}

	m, _ := final.(bumpModel)
	if m.aborted || m.chosen == 0 {
		return 0, release.Wrap(release.KindAborted, "choose version bump", ErrAborted)
	}

	return m.chosen, nil
}

// Notes asks for the release notes. An empty answer yields fallback.
func (t *Terminal) Notes(ctx context.Context, fallback string) (string, error) {
	notes, err := t.Value(ctx, "Release notes (empty for default)", fallback, false)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(notes) == "" {
		return fallback, nil
	}

	return notes, nil
}

// Value asks for one line of text. Secret input is not echoed.
func (t *Terminal) Value(ctx context.Context, label, placeholder string, secret bool) (string, error) {
	final, err := t.run(ctx, newInputModel(label, placeholder, secret))
	if err != nil {
		return "", release.Wrap(release.KindAborted, "read "+label, err)
	}

	m, _ := final.(inputModel)
	if m.aborted || !m.done {
		return "", release.Wrap(release.KindAborted, "read "+label, ErrAborted)
	}

	return strings.TrimSpace(m.Value()), nil
}

// Show prints text to the terminal output.
func (t *Terminal) Show(text string) {
	fmt.Fprintln(t.out, text)
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out))

	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("run dialog: %w", err)
	}

	return final, nil
}

// Row is one line of the run summary.
type Row struct {
	Label string
	Value string
}

// Summary renders rows in a rounded box.
func Summary(title string, rows []Row) string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row.Label))
	}

	labelStyle := lipgloss.NewStyle().Width(width + 2).Foreground(lipgloss.Color("#AAAAAA"))
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, titleStyle.Render(title))

	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row.Label)+row.Value)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// Mask hides all but the first characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}

	runes := []rune(secret)
	if len(runes) > maskVisible {
		runes = runes[:maskVisible]
	}

	return string(runes) + "**********"
}
