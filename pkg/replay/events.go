package replay

import (
	"time"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// StartedEvent fires when a run begins.
type StartedEvent struct {
	RecordingID string
	Total       int
	StartIndex  int
}

// ProgressEvent fires immediately before each action's pre-dispatch delay.
type ProgressEvent struct {
	Cursor   int
	Percent  float64
	Elapsed  time.Duration
	Action   *action.Action
	Progress Progress
}

// PausedEvent fires on an operator-requested pause.
type PausedEvent struct {
	Cursor int
}

// ResumedEvent fires when a paused run continues.
type ResumedEvent struct {
	Cursor int
}

// PausedOnErrorEvent fires when the pause error policy parks the run at a
// failing action.
type PausedOnErrorEvent struct {
	Cursor int
	Err    string
}

// CompletedEvent is the terminal event of a run whose cursor passed the last
// action.
type CompletedEvent struct {
	Duration time.Duration
	Progress Progress
	Results  []Result
}

// StoppedEvent is the terminal event of an operator-stopped run.
type StoppedEvent struct {
	Cursor   int
	Progress Progress
}

// ErrorEvent is the terminal event of a run halted by the fail policy (or by
// retry exhaustion).
type ErrorEvent struct {
	Cursor   int
	Err      string
	Progress Progress
}
