// Package codec converts action logs between the in-memory model, the
// portable wire format and generated automation scripts.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ivikasavnish/go-replay/pkg/action"
)

// PortableAction is the plain serializable record for one action. Timing
// fields are integer milliseconds.
type PortableAction struct {
	ID                string         `json:"id"`
	Kind              string         `json:"kind"`
	Timestamp         time.Time      `json:"timestamp"`
	TimeSinceStart    int64          `json:"timeSinceStart"`
	TimeSincePrevious int64          `json:"timeSincePrevious"`
	Payload           map[string]any `json:"payload"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	PageURL           string         `json:"pageUrl,omitempty"`
	PageTitle         string         `json:"pageTitle,omitempty"`
}

// ToPortable renders an action sequence as portable records.
func ToPortable(actions []*action.Action) []PortableAction {
	out := make([]PortableAction, len(actions))
	for i, a := range actions {
		out[i] = PortableAction{
			ID:                a.ID,
			Kind:              string(a.Kind),
			Timestamp:         a.Timestamp,
			TimeSinceStart:    a.TimeSinceStart.Milliseconds(),
			TimeSincePrevious: a.TimeSincePrevious.Milliseconds(),
			Payload:           a.Payload.Map(),
			Metadata:          a.Metadata,
			PageURL:           a.PageURL,
			PageTitle:         a.PageTitle,
		}
	}
	return out
}

// FromPortable reconstructs the action sequence from portable records. The
// round trip is field-identical: FromPortable(ToPortable(a)) == a.
func FromPortable(records []PortableAction) []*action.Action {
	out := make([]*action.Action, len(records))
	for i, rec := range records {
		a := action.New(action.Kind(rec.Kind), rec.Payload)
		a.ID = rec.ID
		a.Timestamp = rec.Timestamp
		a.TimeSinceStart = time.Duration(rec.TimeSinceStart) * time.Millisecond
		a.TimeSincePrevious = time.Duration(rec.TimeSincePrevious) * time.Millisecond
		a.Metadata = rec.Metadata
		a.PageURL = rec.PageURL
		a.PageTitle = rec.PageTitle
		out[i] = a
	}
	return out
}

// Bundle is the full export record for one recording.
type Bundle struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	StartURL    string            `json:"startUrl,omitempty"`
	Actions     []PortableAction  `json:"actions"`
	Variables   map[string]string `json:"variables,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Duration    int64             `json:"duration"`
	Screenshots []string          `json:"screenshots,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	ActionCount int               `json:"actionCount"`
}

// ExportBundle renders a recording as its export bundle.
func ExportBundle(rec *action.Recording) Bundle {
	return Bundle{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		StartURL:    rec.StartURL,
		Actions:     ToPortable(rec.Actions),
		Variables:   rec.Variables,
		Metadata:    rec.Metadata,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		Duration:    rec.Duration.Milliseconds(),
		Screenshots: rec.Screenshots,
		Tags:        rec.Tags,
		ActionCount: len(rec.Actions),
	}
}

// MarshalBundle renders a recording's export bundle as indented JSON.
func MarshalBundle(rec *action.Recording) ([]byte, error) {
	data, err := json.MarshalIndent(ExportBundle(rec), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return append(data, '\n'), nil
}
