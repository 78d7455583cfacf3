package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsAndValidate(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, "info", c.Level)
	assert.Equal(t, "console", c.Format)
	assert.Equal(t, "stderr", c.Output)
	require.NoError(t, c.Validate())

	c.Level = "loud"
	assert.Error(t, c.Validate())
	c.Level = "debug"
	c.Format = "xml"
	assert.Error(t, c.Validate())
	c.Format = "json"
	c.Output = "syslog"
	assert.Error(t, c.Validate())
}

func TestJSONOutputCarriesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", Format: "json"}, "slice", &buf)
	lg := Component(l, "backend")
	lg.Warn().Int(FieldIndex, 3).Msg("item failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "slice", rec[FieldService])
	assert.Equal(t, "backend", rec[FieldComponent])
	assert.Equal(t, float64(3), rec[FieldIndex])
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "item failed", rec["message"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn", Format: "json"}, "", &buf)
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "nope", Format: "json"}, "", &buf)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
