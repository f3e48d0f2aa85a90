package action

import (
	"encoding/json"
	"time"
)

// Recording is a named, ordered sequence of Actions plus the variables and
// metadata needed to replay them.
type Recording struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	StartURL    string            `json:"startUrl,omitempty"`
	Actions     []*Action         `json:"actions"`
	Variables   map[string]string `json:"variables,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Duration    time.Duration     `json:"-"`
	Screenshots []string          `json:"screenshots,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

// Clone returns a deep copy of the recording.
func (r *Recording) Clone() *Recording {
	out := *r
	out.Actions = make([]*Action, len(r.Actions))
	for i, a := range r.Actions {
		out.Actions[i] = a.Clone()
	}
	if r.Variables != nil {
		out.Variables = make(map[string]string, len(r.Variables))
		for k, v := range r.Variables {
			out.Variables[k] = v
		}
	}
	if r.Metadata != nil {
		out.Metadata = cloneMap(r.Metadata)
	}
	out.Screenshots = cloneStrings(r.Screenshots)
	out.Tags = cloneStrings(r.Tags)
	return &out
}

// recordingAlias breaks the MarshalJSON recursion; duration travels as
// integer milliseconds like all other timing fields.
type recordingAlias Recording

type recordingWire struct {
	*recordingAlias
	DurationMS int64 `json:"duration"`
}

// MarshalJSON implements json.Marshaler.
func (r *Recording) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordingWire{
		recordingAlias: (*recordingAlias)(r),
		DurationMS:     r.Duration.Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recording) UnmarshalJSON(data []byte) error {
	w := recordingWire{recordingAlias: (*recordingAlias)(r)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Duration = time.Duration(w.DurationMS) * time.Millisecond
	return nil
}
