package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/rewind/internal/candidate"
)

// LeftPaneMsg represents messages that the candidate list handles
type LeftPaneMsg interface {
	isLeftPaneMsg()
}

// Left pane message implementations
type NavigateUpMsg struct {
	Lines int
}

func (NavigateUpMsg) isLeftPaneMsg() {}

type NavigateDownMsg struct {
	Lines    int
	MaxIndex int // Maximum valid index for bounds checking
}

func (NavigateDownMsg) isLeftPaneMsg() {}

type GoToTopMsg struct{}

func (GoToTopMsg) isLeftPaneMsg() {}

type GoToBottomMsg struct {
	MaxIndex int
}

func (GoToBottomMsg) isLeftPaneMsg() {}

type ClampCursorMsg struct {
	MaxIndex int
}

func (ClampCursorMsg) isLeftPaneMsg() {}

type ResizeLeftPaneMsg struct {
	Width  int
	Height int
}

func (ResizeLeftPaneMsg) isLeftPaneMsg() {}

// LeftPaneModel holds the state for the candidate list
type LeftPaneModel struct {
	Cursor int // Index into the filtered candidates
	Width  int // Pane width including border
	Height int // Pane height including border
}

// NewLeftPaneModel creates a new left pane model with default values
func NewLeftPaneModel(width, height int) LeftPaneModel {
	return LeftPaneModel{
		Width:  width,
		Height: height,
	}
}

// Update applies msg to the list state
func (l *LeftPaneModel) Update(msg LeftPaneMsg) {
	switch m := msg.(type) {
	case NavigateUpMsg:
		l.Cursor = max(l.Cursor-max(m.Lines, 1), 0)
	case NavigateDownMsg:
		l.Cursor = max(min(l.Cursor+max(m.Lines, 1), m.MaxIndex), 0)
	case GoToTopMsg:
		l.Cursor = 0
	case GoToBottomMsg:
		l.Cursor = max(m.MaxIndex, 0)
	case ClampCursorMsg:
		l.Cursor = max(min(l.Cursor, m.MaxIndex), 0)
	case ResizeLeftPaneMsg:
		l.Width = m.Width
		l.Height = m.Height
	}
}

// visibleRows is the number of list rows inside the border
func (l LeftPaneModel) visibleRows() int {
	return max(l.Height-2, 1)
}

// LeftPaneView renders the filtered candidates as a pure function. The
// window scrolls so the cursor row is always visible.
func LeftPaneView(model LeftPaneModel, items []candidate.Candidate, filtered []int, styles Styles) string {
	innerWidth := max(model.Width-4, 1) // borders and padding
	rows := model.visibleRows()

	start := 0
	if model.Cursor >= rows {
		start = model.Cursor - rows + 1
	}
	end := min(start+rows, len(filtered))

	var content strings.Builder
	if len(filtered) == 0 {
		content.WriteString(styles.Dim.Render("no matches"))
	}
	for i := start; i < end; i++ {
		label := candidate.TruncateLabel(items[filtered[i]].Label(), innerWidth-2)
		if i == model.Cursor {
			content.WriteString(styles.Cursor.Width(innerWidth).Render(fmt.Sprintf("> %s", label)))
		} else {
			content.WriteString("  " + label)
		}
		if i < end-1 {
			content.WriteString("\n")
		}
	}

	return styles.Pane.
		Width(model.Width - 2).
		Height(rows).
		Render(content.String())
}

// paneStyle is the bordered box shared by both panes
func paneStyle(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)
}
