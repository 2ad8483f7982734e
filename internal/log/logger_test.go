package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgeto/internal/core"
)

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf}).WithComponent(ComponentState)

	l.Info("state initialized", NewFields().WithMoney(core.DKKMoney(4500)).ToSlice()...)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "state initialized", rec["msg"])
	assert.Equal(t, ComponentState, rec[FieldComponent])
	assert.Equal(t, "DKK", rec[FieldCurrency])
	assert.EqualValues(t, 4500, rec[FieldAmount])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=app")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard().WithComponent(ComponentCLI)
	ctx := ToContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithOperation(OpMigrate).
		WithVersion(1, 2).
		WithError(errors.New("boom")).
		WithError(nil)
	assert.Equal(t, OpMigrate, f[FieldOperation])
	assert.Equal(t, 1, f[FieldFrom])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 8)
}
