package recorder

import (
	"time"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// Interaction events fed into the machine by the execution surface.

// ClickEvent is a captured click.
type ClickEvent struct {
	Selector   string
	X, Y       float64
	Button     string
	ClickCount int
	PageURL    string
	PageTitle  string
}

// TypeEvent is a captured burst of typed text.
type TypeEvent struct {
	Selector  string
	Text      string
	PageURL   string
	PageTitle string
}

// ScrollEvent is a captured scroll; X/Y are the resulting positions, the
// deltas drive the minimum-distance filter.
type ScrollEvent struct {
	X, Y           float64
	DeltaX, DeltaY float64
	Selector       string
	PageURL        string
	PageTitle      string
}

// NavigateEvent is a captured page navigation.
type NavigateEvent struct {
	URL   string
	Title string
}

// KeyPressEvent is a captured special-key press.
type KeyPressEvent struct {
	Key       string
	Selector  string
	Modifiers []string
	PageURL   string
	PageTitle string
}

// Events published on the recorder hub.

// StartedEvent fires when a recording session begins.
type StartedEvent struct {
	RecordingID string
	Name        string
}

// ActionRecordedEvent fires for every appended action.
type ActionRecordedEvent struct {
	Index  int
	Action *action.Action
}

// PausedEvent fires when the session pauses.
type PausedEvent struct {
	RecordingID string
}

// ResumedEvent fires when the session resumes.
type ResumedEvent struct {
	RecordingID string
}

// StoppedEvent fires when the session ends.
type StoppedEvent struct {
	RecordingID string
	ActionCount int
	Duration    time.Duration
}
