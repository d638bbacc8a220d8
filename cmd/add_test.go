package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
)

func newValueFlagCmd() *cobra.Command {
	c := &cobra.Command{}
	c.Flags().Float64("value", 0, "")
	c.Flags().String("text", "", "")
	c.Flags().String("json", "", "")
	return c
}

func TestValueFromFlags_Number(t *testing.T) {
	c := newValueFlagCmd()
	require.NoError(t, c.Flags().Set("value", "52.8"))

	v, err := valueFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, model.ValueNumber, v.Kind)
	assert.InDelta(t, 52.8, v.Number, 1e-9)
}

func TestValueFromFlags_Zero(t *testing.T) {
	// An explicit zero is still a numeric value.
	c := newValueFlagCmd()
	require.NoError(t, c.Flags().Set("value", "0"))

	v, err := valueFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, model.ValueNumber, v.Kind)
	assert.Equal(t, 0.0, v.Number)
}

func TestValueFromFlags_Text(t *testing.T) {
	c := newValueFlagCmd()
	require.NoError(t, c.Flags().Set("text", "growing steadily"))

	v, err := valueFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, model.ValueText, v.Kind)
	assert.Equal(t, "growing steadily", v.Text)
}

func TestValueFromFlags_JSON(t *testing.T) {
	c := newValueFlagCmd()
	require.NoError(t, c.Flags().Set("json", `{"low": 48, "high": 56}`))

	v, err := valueFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, model.ValueStructured, v.Kind)
	assert.Equal(t, 48.0, v.Structured["low"])
}

func TestValueFromFlags_ExactlyOneRequired(t *testing.T) {
	c := newValueFlagCmd()
	_, err := valueFromFlags(c)
	require.Error(t, err)

	c = newValueFlagCmd()
	require.NoError(t, c.Flags().Set("value", "1"))
	require.NoError(t, c.Flags().Set("text", "also text"))
	_, err = valueFromFlags(c)
	require.Error(t, err)
}

func TestValueFromFlags_BadJSON(t *testing.T) {
	c := newValueFlagCmd()
	require.NoError(t, c.Flags().Set("json", "{broken"))
	_, err := valueFromFlags(c)
	require.Error(t, err)
}
