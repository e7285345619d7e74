package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGuess_PlainJSON(t *testing.T) {
	g, err := parseGuess(`{"field": "customer", "confidence": 0.85}`)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "customer", g.Field)
	assert.InDelta(t, 0.85, g.Confidence, 1e-9)
}

func TestParseGuess_SurroundingProse(t *testing.T) {
	g, err := parseGuess("The best match is:\n```json\n{\"field\": \"load_number\", \"confidence\": 0.9}\n```\n")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "load_number", g.Field)
}

func TestParseGuess_NoneIsNilNotError(t *testing.T) {
	g, err := parseGuess(`{"field": "none", "confidence": 0.2}`)
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = parseGuess(`{"field": "None", "confidence": 0}`)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestParseGuess_ClampsConfidence(t *testing.T) {
	g, err := parseGuess(`{"field": "customer", "confidence": 1.7}`)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 1.0, g.Confidence)

	g, err = parseGuess(`{"field": "customer", "confidence": -0.3}`)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Zero(t, g.Confidence)
}

func TestParseGuess_NoJSON(t *testing.T) {
	_, err := parseGuess("sorry, I cannot help with that")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON object")
}

func TestParseGuess_MalformedJSON(t *testing.T) {
	_, err := parseGuess(`{"field": customer}`)
	require.Error(t, err)
}

func TestParseGuess_EmptyField(t *testing.T) {
	g, err := parseGuess(`{"field": "", "confidence": 0.9}`)
	require.NoError(t, err)
	assert.Nil(t, g)
}
