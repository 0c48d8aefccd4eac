package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/picker"
	"github.com/yiblet/rewind/internal/store"
)

// Selector runs the full-screen picker. It draws on Output so stdout stays
// free for the selected command.
type Selector struct {
	Input  io.Reader
	Output io.Writer
}

var _ picker.Selector = (*Selector)(nil)

// NewSelector returns a selector reading the terminal and drawing on stderr
func NewSelector() *Selector {
	return &Selector{Input: os.Stdin, Output: os.Stderr}
}

// Select shows items until the user acts. Cancelling ctx aborts.
func (s *Selector) Select(ctx context.Context, mode store.Mode, items <-chan candidate.Candidate) (picker.Result, error) {
	model := NewAppModel(mode, items, NewStyles(lipgloss.NewRenderer(s.Output)))

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(s.Input),
		tea.WithOutput(s.Output),
	)

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return picker.Result{Action: picker.ActionAbort}, nil
		}
		return picker.Result{}, fmt.Errorf("failed to run selector: %w", err)
	}

	app, ok := final.(*AppModel)
	if !ok {
		return picker.Result{}, fmt.Errorf("unexpected selector model %T", final)
	}
	return app.Result, nil
}
