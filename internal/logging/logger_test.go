package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fieldErr struct{}

func (fieldErr) Error() string { return "boom" }

func (fieldErr) LogFields() map[string]any {
	return map[string]any{"plugin": "autosave"}
}

func TestLoggerInfoWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.WithFields(map[string]any{"event": "input"}).Info("dispatched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "dispatched", entry["message"])
	require.Equal(t, "input", entry["event"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.Debug("hidden")
	require.Empty(t, strings.TrimSpace(buf.String()))
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	log.Info("ignored")
	log.Error(errors.New("x"), "ignored")
	require.Nil(t, log.WithFields(map[string]any{"a": 1}))
}

func TestDiagnosticsKeepsBoundedHistory(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	d := NewDiagnostics(log, 2)
	d.Report(errors.New("one"))
	d.Report(errors.New("two"))
	d.Report(fieldErr{})
	d.Report(nil)

	recent := d.Recent()
	require.Len(t, recent, 2)
	require.EqualError(t, recent[0], "two")
	require.EqualError(t, recent[1], "boom")
	require.Equal(t, uint64(3), d.Total())
	require.Contains(t, buf.String(), `"plugin":"autosave"`)

	d.Reset()
	require.Empty(t, d.Recent())
	require.Zero(t, d.Total())
}
