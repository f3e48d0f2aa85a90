package action

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action is one normalized recorded step. Once appended to a Recording it is
// treated as immutable; SubstituteVariables returns a fresh copy for replay.
type Action struct {
	ID                string
	Kind              Kind
	Timestamp         time.Time
	TimeSinceStart    time.Duration
	TimeSincePrevious time.Duration
	Payload           Payload
	Metadata          map[string]any
	PageURL           string
	PageTitle         string
}

// New creates an Action of the given kind from loosely typed params.
// Construction never fails: missing payload fields take their defaults and an
// unrecognized kind is retained as an opaque passthrough payload.
func New(kind Kind, params map[string]any) *Action {
	return &Action{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   newPayload(kind, params),
	}
}

// Clone returns a deep copy of the action.
func (a *Action) Clone() *Action {
	out := *a
	out.Payload = newPayload(a.Kind, a.Payload.Map())
	if a.Metadata != nil {
		out.Metadata = cloneMap(a.Metadata)
	}
	return &out
}

// SubstituteVariables returns a new Action whose payload has every
// {{name}} placeholder replaced with vars[name]. Unresolved placeholders are
// left verbatim. Identity, metadata and timing are preserved unchanged.
func (a *Action) SubstituteVariables(vars map[string]string) *Action {
	out := a.Clone()
	if len(vars) == 0 {
		return out
	}
	substituted := substituteValue(a.Payload.Map(), vars).(map[string]any)
	out.Payload = newPayload(a.Kind, substituted)
	return out
}

// actionWire is the JSON form of an Action. Timing fields travel as integer
// milliseconds, matching the portable export format.
type actionWire struct {
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

// MarshalJSON implements json.Marshaler.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionWire{
		ID:                a.ID,
		Kind:              string(a.Kind),
		Timestamp:         a.Timestamp,
		TimeSinceStart:    a.TimeSinceStart.Milliseconds(),
		TimeSincePrevious: a.TimeSincePrevious.Milliseconds(),
		Payload:           a.Payload.Map(),
		Metadata:          a.Metadata,
		PageURL:           a.PageURL,
		PageTitle:         a.PageTitle,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.ID = w.ID
	a.Kind = Kind(w.Kind)
	a.Timestamp = w.Timestamp
	a.TimeSinceStart = time.Duration(w.TimeSinceStart) * time.Millisecond
	a.TimeSincePrevious = time.Duration(w.TimeSincePrevious) * time.Millisecond
	a.Payload = newPayload(a.Kind, w.Payload)
	a.Metadata = w.Metadata
	a.PageURL = w.PageURL
	a.PageTitle = w.PageTitle
	return nil
}
