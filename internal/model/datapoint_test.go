package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence_Valid(t *testing.T) {
	for _, c := range []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnverified} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Confidence("certain").Valid())
	assert.False(t, Confidence("").Valid())
}

func TestValidationStatus_Valid(t *testing.T) {
	for _, s := range []ValidationStatus{StatusPending, StatusInReview, StatusValidated, StatusRejected, StatusOutdated} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, ValidationStatus("approved").Valid())
}

func TestValue_Constructors(t *testing.T) {
	n := NumberValue(52.8)
	assert.Equal(t, ValueNumber, n.Kind)
	require.NotNil(t, n.NumberPtr())
	assert.Equal(t, 52.8, *n.NumberPtr())

	txt := TextValue("growing")
	assert.Equal(t, ValueText, txt.Kind)
	assert.Nil(t, txt.NumberPtr())

	st := StructuredValue(map[string]any{"low": 48.0})
	assert.Equal(t, ValueStructured, st.Kind)
	assert.False(t, st.IsZero())

	assert.True(t, Value{}.IsZero())
}

func TestValue_Validate(t *testing.T) {
	assert.NoError(t, NumberValue(1).Validate())
	assert.NoError(t, TextValue("x").Validate())
	assert.NoError(t, StructuredValue(map[string]any{"a": 1}).Validate())
	assert.NoError(t, Value{}.Validate())

	// Mixed representations are rejected.
	assert.Error(t, Value{Kind: ValueNumber, Number: 1, Text: "also"}.Validate())
	assert.Error(t, Value{Kind: ValueText, Text: "x", Structured: map[string]any{}}.Validate())
	assert.Error(t, Value{Kind: ValueStructured}.Validate())
	assert.Error(t, Value{Kind: "blob"}.Validate())
}

func TestValue_JSONRoundTrip(t *testing.T) {
	orig := StructuredValue(map[string]any{"low": 48.0, "high": 56.0})

	b, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, orig, decoded)
}
