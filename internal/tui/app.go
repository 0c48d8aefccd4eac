// Package tui is the default interactive selector: a query prompt, a list
// of candidates filtered as they stream in, and a preview of the selected
// candidate.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/picker"
	"github.com/yiblet/rewind/internal/store"
)

// maxBatch bounds how many streamed candidates are folded into one update
const maxBatch = 512

// itemsMsg carries candidates read from the stream
type itemsMsg struct {
	items  []candidate.Candidate
	closed bool
}

// Styles holds the lipgloss styles bound to one renderer
type Styles struct {
	Pane   lipgloss.Style
	Cursor lipgloss.Style
	Prompt lipgloss.Style
	Dim    lipgloss.Style
	Status lipgloss.Style
}

// NewStyles builds the styles for output rendered by r
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Pane: paneStyle(r),
		Cursor: r.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")),
		Prompt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Dim:    r.NewStyle().Foreground(lipgloss.Color("241")),
		Status: r.NewStyle(),
	}
}

// AppModel is the selector state for one pipeline run
type AppModel struct {
	Width        int // Window width
	Height       int // Window height
	LeftWidth    int // Candidate list width
	RightWidth   int // Preview width
	ShowPreview  bool
	Mode         store.Mode
	Items        []candidate.Candidate // Everything received so far
	Filtered     []int                 // Indexes into Items matching the query
	Loading      bool                  // The stream is still open
	Result       picker.Result
	Search       SearchModel
	LeftPane     LeftPaneModel
	RightPane    RightPaneModel
	Styles       Styles
	stream       <-chan candidate.Candidate
	selectedItem candidate.Candidate
}

// NewAppModel creates a selector reading candidates from stream
func NewAppModel(mode store.Mode, stream <-chan candidate.Candidate, styles Styles) *AppModel {
	// Default dimensions that will be properly set on first resize
	a := &AppModel{
		Mode:    mode,
		Loading: true,
		Result:  picker.Result{Action: picker.ActionAbort},
		Search:  NewSearchModel(),
		Styles:  styles,
		stream:  stream,
	}
	a.resize(100, 20)
	return a
}

// Init starts reading the stream
func (a *AppModel) Init() tea.Cmd {
	return waitForItems(a.stream)
}

// waitForItems blocks for one candidate, then takes whatever else is
// already buffered so a fast query is folded into few updates.
func waitForItems(stream <-chan candidate.Candidate) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-stream
		if !ok {
			return itemsMsg{closed: true}
		}

		batch := []candidate.Candidate{c}
		for len(batch) < maxBatch {
			select {
			case c, ok := <-stream:
				if !ok {
					return itemsMsg{items: batch, closed: true}
				}
				batch = append(batch, c)
			default:
				return itemsMsg{items: batch}
			}
		}
		return itemsMsg{items: batch}
	}
}

// Update handles bubbletea messages
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case itemsMsg:
		return a, a.handleItems(m)
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	}
	return a, nil
}

// handleItems appends streamed candidates and filters only the new ones
func (a *AppModel) handleItems(msg itemsMsg) tea.Cmd {
	from := len(a.Items)
	a.Items = append(a.Items, msg.items...)
	a.Filtered = append(a.Filtered, FilterItems(a.Items, a.Search.Input, from)...)
	a.syncSelection()

	if msg.closed {
		a.Loading = false
		return nil
	}
	return waitForItems(a.stream)
}

// resize recomputes pane widths for a new window size
func (a *AppModel) resize(width, height int) {
	a.Width = max(width, 20)
	a.Height = max(height, 5)

	// Narrow windows drop the preview and give the list everything
	minLeftWidth := 20
	minRightWidth := 30
	a.ShowPreview = a.Width >= minLeftWidth+minRightWidth
	if a.ShowPreview {
		a.LeftWidth = max(a.Width*55/100, minLeftWidth)
		a.RightWidth = a.Width - a.LeftWidth
		if a.RightWidth < minRightWidth {
			a.RightWidth = minRightWidth
			a.LeftWidth = a.Width - a.RightWidth
		}
	} else {
		a.LeftWidth = a.Width
		a.RightWidth = 0
	}

	// prompt line above, status line below
	paneHeight := a.Height - 2
	a.LeftPane.Update(ResizeLeftPaneMsg{Width: a.LeftWidth, Height: paneHeight})
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: paneHeight})
}

// handleKeyPress maps keys onto selector actions, list movement and
// query editing
func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxIndex := len(a.Filtered) - 1

	switch key := msg.String(); key {
	case "ctrl+c", "esc":
		return a.finish(picker.ActionAbort)
	case "enter":
		return a.finish(picker.ActionAccept)
	case "ctrl+e":
		return a.finish(picker.ActionEdit)
	case "tab", "ctrl+r":
		return a.finish(picker.ActionCycleMode)
	case "up", "ctrl+p", "ctrl+k":
		a.LeftPane.Update(NavigateUpMsg{Lines: 1})
	case "down", "ctrl+n", "ctrl+j":
		a.LeftPane.Update(NavigateDownMsg{Lines: 1, MaxIndex: maxIndex})
	case "pgup":
		a.LeftPane.Update(NavigateUpMsg{Lines: a.LeftPane.visibleRows()})
	case "pgdown":
		a.LeftPane.Update(NavigateDownMsg{Lines: a.LeftPane.visibleRows(), MaxIndex: maxIndex})
	case "home":
		a.LeftPane.Update(GoToTopMsg{})
	case "end":
		a.LeftPane.Update(GoToBottomMsg{MaxIndex: maxIndex})
	case "shift+up", "alt+k":
		a.RightPane.Update(PageUpMsg{})
		return a, nil
	case "shift+down", "alt+j":
		a.RightPane.Update(PageDownMsg{MaxScroll: getMaxScroll(a.RightPane, a.Selected())})
		return a, nil
	case "backspace", "ctrl+h":
		a.updateQuery(DeleteCharMsg{})
	case "ctrl+w":
		a.updateQuery(DeleteWordMsg{})
	case "ctrl+u":
		a.updateQuery(ClearInputMsg{})
	default:
		switch msg.Type {
		case tea.KeyRunes:
			a.updateQuery(AppendInputMsg{Text: string(msg.Runes)})
		case tea.KeySpace:
			a.updateQuery(AppendInputMsg{Text: " "})
		}
	}

	a.syncSelection()
	return a, nil
}

// updateQuery edits the query and refilters everything received so far
func (a *AppModel) updateQuery(msg SearchMsg) {
	if !a.Search.Update(msg) {
		return
	}
	a.Filtered = FilterItems(a.Items, a.Search.Input, 0)
	a.LeftPane.Update(GoToTopMsg{})
}

// syncSelection keeps the cursor in range and resets the preview scroll
// when the selected candidate changes
func (a *AppModel) syncSelection() {
	a.LeftPane.Update(ClampCursorMsg{MaxIndex: len(a.Filtered) - 1})
	if selected := a.Selected(); selected != a.selectedItem {
		a.selectedItem = selected
		a.RightPane.Update(UpdateContentMsg{})
	}
}

// Selected returns the candidate under the cursor, or nil
func (a *AppModel) Selected() candidate.Candidate {
	if a.LeftPane.Cursor < 0 || a.LeftPane.Cursor >= len(a.Filtered) {
		return nil
	}
	return a.Items[a.Filtered[a.LeftPane.Cursor]]
}

func (a *AppModel) finish(action picker.Action) (tea.Model, tea.Cmd) {
	a.Result = picker.Result{Action: action}
	if action == picker.ActionAccept || action == picker.ActionEdit {
		a.Result.Selected = a.Selected()
	}
	return a, tea.Quit
}

// View renders the prompt, the panes and the status line
func (a *AppModel) View() string {
	return AppView(a)
}

// AppView renders the complete selector
func AppView(a *AppModel) string {
	var b strings.Builder

	b.WriteString(a.Styles.Prompt.Render(a.Mode.String() + "> "))
	b.WriteString(a.Search.Input)
	b.WriteString("\n")

	left := LeftPaneView(a.LeftPane, a.Items, a.Filtered, a.Styles)
	if a.ShowPreview {
		right := RightPaneView(a.RightPane, a.Selected(), a.Styles)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(left)
	}
	b.WriteString("\n")

	b.WriteString(renderStatusLine(a))
	return b.String()
}

// renderStatusLine renders counts and key hints
func renderStatusLine(a *AppModel) string {
	count := fmt.Sprintf("%d/%d", len(a.Filtered), len(a.Items))
	if a.Loading {
		count += "+"
	}
	hints := "enter run  ctrl+e edit  tab mode  esc quit"
	return a.Styles.Status.Width(a.Width).Render(count + "  " + a.Styles.Dim.Render(hints))
}
