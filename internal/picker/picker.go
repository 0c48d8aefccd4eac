// Package picker is the control loop between the streaming pipeline and an
// interactive selector. Each mode gets its own pipeline run; cycling the
// mode closes the current run and starts a fresh one.
package picker

import (
	"context"
	"fmt"

	"github.com/yiblet/rewind/internal/candidate"
	"github.com/yiblet/rewind/internal/pipeline"
	"github.com/yiblet/rewind/internal/store"
)

// Action is the terminal action a selector reports.
type Action int

const (
	ActionAccept Action = iota
	ActionEdit
	ActionCycleMode
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionEdit:
		return "edit"
	case ActionCycleMode:
		return "cycle-mode"
	case ActionAbort:
		return "abort"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Result is what a selector returns for one pipeline run. Selected is set
// for ActionAccept and ActionEdit.
type Result struct {
	Action   Action
	Selected candidate.Candidate
}

// Selector ranks and displays candidates as they arrive and reports the
// user's action. A closed items channel means no more candidates, not the
// end of the selection.
type Selector interface {
	Select(ctx context.Context, mode store.Mode, items <-chan candidate.Candidate) (Result, error)
}

// StartFunc starts a pipeline run for mode.
type StartFunc func(ctx context.Context, mode store.Mode) *pipeline.Handle

// Outcome is the result of a whole picking session.
type Outcome struct {
	// Command is the selected command text.
	Command string

	// Edit is true when the user asked to edit rather than execute.
	Edit bool

	// Aborted is true when the user left without choosing.
	Aborted bool

	// Empty is true when the initial mode had no rows and no selector was shown.
	Empty bool

	// Mode is the mode that was active when the session ended.
	Mode store.Mode
}

// Run drives sel starting in mode until the user accepts, edits or aborts.
// A query failure in the initial mode is returned; failures after a mode
// cycle only leave the selector with fewer candidates.
func Run(ctx context.Context, start StartFunc, sel Selector, mode store.Mode) (Outcome, error) {
	if !mode.Valid() {
		return Outcome{}, store.NewError("search", store.KindInvalid, fmt.Errorf("unknown mode %v", mode))
	}

	handle := start(ctx, mode)
	if !handle.HasRows() {
		handle.Close()
		<-handle.Done()
		if err := handle.Err(); err != nil {
			return Outcome{}, fmt.Errorf("failed to query %s history: %w", mode, err)
		}
		return Outcome{Empty: true, Mode: mode}, nil
	}

	for {
		result, err := sel.Select(ctx, mode, handle.Items())
		handle.Close()
		if err != nil {
			return Outcome{Mode: mode}, fmt.Errorf("selector failed: %w", err)
		}

		switch result.Action {
		case ActionAccept, ActionEdit:
			if result.Selected == nil {
				return Outcome{Aborted: true, Mode: mode}, nil
			}
			return Outcome{
				Command: result.Selected.Payload(),
				Edit:    result.Action == ActionEdit,
				Mode:    mode,
			}, nil
		case ActionCycleMode:
			mode = mode.Next()
			handle = start(ctx, mode)
		default:
			return Outcome{Aborted: true, Mode: mode}, nil
		}
	}
}
