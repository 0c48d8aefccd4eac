package tui

import (
	"fmt"
	"strings"

	"github.com/yiblet/rewind/internal/candidate"
)

// RightPaneMsg represents messages that the preview pane handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

// Right pane message implementations
type PageUpMsg struct{}

func (PageUpMsg) isRightPaneMsg() {}

type PageDownMsg struct {
	MaxScroll int
}

func (PageDownMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

type UpdateContentMsg struct{}

func (UpdateContentMsg) isRightPaneMsg() {}

// RightPaneModel holds the state for the preview pane
type RightPaneModel struct {
	Width   int // Pane width including border
	Height  int // Pane height including border
	ViewPos int // First visible preview line
}

// NewRightPaneModel creates a new right pane model with default values
func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{
		Width:  width,
		Height: height,
	}
}

// Update applies msg to the preview state
func (r *RightPaneModel) Update(msg RightPaneMsg) {
	switch m := msg.(type) {
	case PageUpMsg:
		// Page up (half page)
		r.ViewPos = max(r.ViewPos-r.pageSize(), 0)
	case PageDownMsg:
		// Page down (half page)
		r.ViewPos = max(min(r.ViewPos+r.pageSize(), m.MaxScroll), 0)
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	case UpdateContentMsg:
		r.ViewPos = 0 // Reset view position when the selection changes
	}
}

func (r RightPaneModel) pageSize() int {
	return max(r.visibleRows()/2, 1)
}

func (r RightPaneModel) visibleRows() int {
	return max(r.Height-2, 1)
}

func (r RightPaneModel) innerWidth() int {
	return max(r.Width-4, 1)
}

// previewLines wraps the preview of c for the pane width
func previewLines(model RightPaneModel, c candidate.Candidate) []string {
	if c == nil {
		return nil
	}
	return WrapText(c.Preview(), model.innerWidth())
}

// getMaxScroll returns the maximum scroll position (pure function)
func getMaxScroll(model RightPaneModel, c candidate.Candidate) int {
	return max(len(previewLines(model, c))-model.visibleRows(), 0)
}

// RightPaneView renders the preview of the selected candidate
func RightPaneView(model RightPaneModel, c candidate.Candidate, styles Styles) string {
	rows := model.visibleRows()
	lines := previewLines(model, c)

	var content string
	if c == nil {
		content = styles.Dim.Render("nothing selected")
	} else {
		start := min(model.ViewPos, max(len(lines)-rows, 0))
		end := min(start+rows, len(lines))
		visible := lines[start:end]

		if len(lines) > rows {
			// Last row shows the scroll position
			visible = visible[:len(visible)-1]
			visible = append(visible, styles.Dim.Render(
				fmt.Sprintf("(%d-%d/%d)", start+1, start+len(visible), len(lines))))
		}
		content = strings.Join(visible, "\n")
	}

	return styles.Pane.
		Width(model.Width - 2).
		Height(rows).
		Render(content)
}
