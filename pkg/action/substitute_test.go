package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteVariables(t *testing.T) {
	a := New(KindType, map[string]any{"selector": "#user", "text": "{{username}}"})

	sub := a.SubstituteVariables(map[string]string{"username": "alice"})

	assert.Equal(t, "alice", sub.Payload.(*TypePayload).Text)
	// The original is untouched and identity is preserved.
	assert.Equal(t, "{{username}}", a.Payload.(*TypePayload).Text)
	assert.Equal(t, a.ID, sub.ID)
}

func TestSubstituteMultipleOccurrences(t *testing.T) {
	a := New(KindNavigate, map[string]any{"url": "https://{{host}}/{{host}}/login"})

	sub := a.SubstituteVariables(map[string]string{"host": "a.test"})

	assert.Equal(t, "https://a.test/a.test/login", sub.Payload.(*NavigatePayload).URL)
}

func TestSubstituteUnresolvedLeftVerbatim(t *testing.T) {
	a := New(KindType, map[string]any{"selector": "#f", "text": "{{known}} and {{unknown}}"})

	sub := a.SubstituteVariables(map[string]string{"known": "yes"})

	assert.Equal(t, "yes and {{unknown}}", sub.Payload.(*TypePayload).Text)
}

func TestSubstituteEmptyVarsIsIdentity(t *testing.T) {
	a := New(KindClick, map[string]any{"selector": "{{sel}}"})

	sub := a.SubstituteVariables(map[string]string{})

	require.NotSame(t, a, sub)
	assert.Equal(t, a.Payload, sub.Payload)
}

func TestSubstituteNestedStructures(t *testing.T) {
	a := New(Kind("custom"), map[string]any{
		"outer": map[string]any{
			"inner": []any{"{{v}}", map[string]any{"deep": "{{v}}"}},
		},
		"plain": 7,
	})

	sub := a.SubstituteVariables(map[string]string{"v": "filled"})

	fields := sub.Payload.(*OpaquePayload).Fields
	outer := fields["outer"].(map[string]any)
	inner := outer["inner"].([]any)
	assert.Equal(t, "filled", inner[0])
	assert.Equal(t, "filled", inner[1].(map[string]any)["deep"])
	assert.Equal(t, 7, fields["plain"])
}

func TestSubstituteSelectValues(t *testing.T) {
	a := New(KindSelect, map[string]any{"selector": "#dd", "values": []string{"{{color}}", "blue"}})

	sub := a.SubstituteVariables(map[string]string{"color": "red"})

	assert.Equal(t, []string{"red", "blue"}, sub.Payload.(*SelectPayload).Values)
}

func TestSubstituteWhitespaceInsidePlaceholder(t *testing.T) {
	a := New(KindType, map[string]any{"selector": "#f", "text": "{{ name }}"})

	sub := a.SubstituteVariables(map[string]string{"name": "x"})

	assert.Equal(t, "x", sub.Payload.(*TypePayload).Text)
}
