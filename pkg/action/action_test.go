package action

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	a := New(KindClick, map[string]any{"selector": "#btn"})

	p, ok := a.Payload.(*ClickPayload)
	require.True(t, ok)
	assert.Equal(t, "#btn", p.Selector)
	assert.Equal(t, "left", p.Button)
	assert.Equal(t, 1, p.ClickCount)
	assert.True(t, p.Humanize)
	assert.NotEmpty(t, a.ID)
}

func TestNewWaitDefaults(t *testing.T) {
	a := New(KindWait, map[string]any{"selector": ".spinner"})

	p, ok := a.Payload.(*WaitPayload)
	require.True(t, ok)
	assert.Equal(t, 0, p.Duration)
	assert.Equal(t, ".spinner", p.Selector)
	assert.Equal(t, "visible", p.Condition)
	assert.Equal(t, 30000, p.Timeout)
}

func TestNewUnknownKindIsOpaque(t *testing.T) {
	params := map[string]any{"gesture": "pinch", "fingers": 2}
	a := New(Kind("pinch_zoom"), params)

	p, ok := a.Payload.(*OpaquePayload)
	require.True(t, ok)
	assert.Equal(t, Kind("pinch_zoom"), p.Kind())
	assert.Equal(t, "pinch", p.Fields["gesture"])
	assert.False(t, Known(a.Kind))
}

func TestNewNumericCoercion(t *testing.T) {
	// JSON decoding produces float64 for every number.
	a := New(KindClick, map[string]any{"selector": "#a", "clickCount": float64(2), "x": 10})

	p := a.Payload.(*ClickPayload)
	assert.Equal(t, 2, p.ClickCount)
	assert.Equal(t, 10.0, p.X)
}

func TestSelectAcceptsSingleValue(t *testing.T) {
	a := New(KindSelect, map[string]any{"selector": "#dd", "value": "red"})

	p := a.Payload.(*SelectPayload)
	assert.Equal(t, []string{"red"}, p.Values)
	assert.Equal(t, "red", p.First())
}

func TestActionJSONRoundTrip(t *testing.T) {
	a := New(KindType, map[string]any{"selector": "#field", "text": "hi", "clearFirst": true})
	a.TimeSinceStart = 1500 * time.Millisecond
	a.TimeSincePrevious = 300 * time.Millisecond
	a.PageURL = "https://a.test"
	a.PageTitle = "A"
	a.Metadata = map[string]any{"source": "test"}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var back Action
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, a.ID, back.ID)
	assert.Equal(t, a.Kind, back.Kind)
	assert.Equal(t, a.TimeSinceStart, back.TimeSinceStart)
	assert.Equal(t, a.TimeSincePrevious, back.TimeSincePrevious)
	assert.Equal(t, a.PageURL, back.PageURL)
	assert.Equal(t, a.PageTitle, back.PageTitle)
	assert.Equal(t, a.Payload, back.Payload)
	assert.True(t, a.Timestamp.Equal(back.Timestamp))
}

func TestOpaqueJSONRoundTrip(t *testing.T) {
	a := New(Kind("gesture"), map[string]any{"direction": "up", "nested": map[string]any{"speed": "fast"}})

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var back Action
	require.NoError(t, json.Unmarshal(data, &back))

	p, ok := back.Payload.(*OpaquePayload)
	require.True(t, ok)
	assert.Equal(t, "up", p.Fields["direction"])
	nested, ok := p.Fields["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fast", nested["speed"])
}

func TestCloneIsDeep(t *testing.T) {
	a := New(KindClick, map[string]any{"selector": "#x"})
	a.Metadata = map[string]any{"tag": "orig"}

	c := a.Clone()
	c.Payload.(*ClickPayload).Selector = "#changed"
	c.Metadata["tag"] = "changed"

	assert.Equal(t, "#x", a.Payload.(*ClickPayload).Selector)
	assert.Equal(t, "orig", a.Metadata["tag"])
}

func TestRecordingJSONRoundTrip(t *testing.T) {
	rec := &Recording{
		ID:        "rec-1",
		Name:      "checkout",
		StartURL:  "https://shop.test",
		Actions:   []*Action{New(KindNavigate, map[string]any{"url": "https://shop.test"})},
		Variables: map[string]string{"user": "alice"},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Duration:  42 * time.Second,
		Tags:      []string{"smoke"},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Recording
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.Name, back.Name)
	assert.Equal(t, 42*time.Second, back.Duration)
	assert.Equal(t, rec.Variables, back.Variables)
	require.Len(t, back.Actions, 1)
	assert.Equal(t, rec.Actions[0].Payload, back.Actions[0].Payload)
}
