package colors

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLog struct {
	level string
	msg   string
}

type recordingLogger struct {
	entries []recordedLog
}

func (r *recordingLogger) Debug(msg string, args ...any) {
	r.entries = append(r.entries, recordedLog{"debug", msg})
}
func (r *recordingLogger) Info(msg string, args ...any) {
	r.entries = append(r.entries, recordedLog{"info", msg})
}
func (r *recordingLogger) Warn(msg string, args ...any) {
	r.entries = append(r.entries, recordedLog{"warn", msg})
}
func (r *recordingLogger) Error(msg string, args ...any) {
	r.entries = append(r.entries, recordedLog{"error", msg})
}

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() {
		SetOutput(nil, nil)
		SetDebug(false)
		SetQuiet(false)
		SetLogger(nil)
	})
	return &out, &errOut
}

func TestError(t *testing.T) {
	out, errOut := capture(t)

	Error("something", "went wrong")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error:")
	assert.Contains(t, errOut.String(), "something went wrong")
	assert.Contains(t, errOut.String(), Red)
}

func TestSuccessAndInfo(t *testing.T) {
	out, _ := capture(t)

	Success("operation completed")
	Info("listening")

	assert.Contains(t, out.String(), checkmark)
	assert.Contains(t, out.String(), "operation completed")
	assert.Contains(t, out.String(), Green)
	assert.Contains(t, out.String(), Blue+"listening")
}

func TestWarning(t *testing.T) {
	_, errOut := capture(t)

	Warning("careful")

	assert.Contains(t, errOut.String(), Yellow+"Warning:")
	assert.Contains(t, errOut.String(), "careful")
}

func TestDebugOnlyWhenEnabled(t *testing.T) {
	_, errOut := capture(t)

	Debug("hidden")
	require.Empty(t, errOut.String())

	SetDebug(true)
	Debug("shown")
	assert.Contains(t, errOut.String(), "Debug:")
	assert.Contains(t, errOut.String(), "shown")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestQuietSuppressesStdoutOnly(t *testing.T) {
	out, errOut := capture(t)
	SetQuiet(true)

	Info("info")
	Success("done")
	Warning("still here")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "still here")
}

func TestMirrorsIntoLogger(t *testing.T) {
	capture(t)
	rec := &recordingLogger{}
	SetLogger(rec)

	Info("a")
	Success("b")
	Warning("c")
	Error("d")
	Debug("skipped")

	assert.Equal(t, []recordedLog{
		{"info", "a"},
		{"info", "b"},
		{"warn", "c"},
		{"error", "d"},
	}, rec.entries)
}

func TestQuietStillMirrors(t *testing.T) {
	capture(t)
	SetQuiet(true)
	rec := &recordingLogger{}
	SetLogger(rec)

	Info("quiet info")

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "quiet info", rec.entries[0].msg)
}
