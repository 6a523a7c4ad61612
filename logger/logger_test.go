package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetWriter(&buf)
	t.Cleanup(func() {
		_ = SetLevel("info")
		SetConsoleWriter()
	})
	return &buf
}

func TestKeyValueFields(t *testing.T) {
	buf := capture(t)
	require.NoError(t, SetLevel("debug"))

	Info("inserted", 3, "updated", 1, "batch applied")

	out := buf.String()
	assert.Contains(t, out, `"severity":"INFO"`)
	assert.Contains(t, out, `"inserted":3`)
	assert.Contains(t, out, `"updated":1`)
	assert.Contains(t, out, `"message":"batch applied"`)
}

func TestFormatTemplate(t *testing.T) {
	buf := capture(t)

	Warn("dropped %d records", 2)

	assert.Contains(t, buf.String(), `"message":"dropped 2 records"`)
	assert.Contains(t, buf.String(), `"severity":"WARN"`)
}

func TestLeadingError(t *testing.T) {
	buf := capture(t)

	Error(errors.New("boom"), "apply failed")

	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"message":"apply failed"`)
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)
	require.NoError(t, SetLevel("warn"))

	Info("hidden")
	Debug("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	require.ErrorIs(t, SetLevel("chatty"), ErrUnknownLevel)
}
