package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	got []ancs.Resolved
}

func (c *collector) Emit(_ context.Context, n ancs.Resolved) error {
	c.got = append(c.got, n)
	return nil
}

func newTestFilter(opts Options) (*Filter, *collector, *time.Time) {
	next := &collector{}
	f := New(next, opts, logging.Noop())
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	return f, next, &now
}

func note(id ancs.NotificationID, title string) ancs.Resolved {
	return ancs.Resolved{ID: id, AppID: "com.apple.MobileSMS", AppName: "Messages", Date: "20261019T101500", Title: title, Message: "hi"}
}

func TestParseCriteria(t *testing.T) {
	tests := map[string]Criteria{
		"exact":   CriteriaExact,
		"CONTENT": CriteriaContent,
		"off":     CriteriaOff,
		"none":    CriteriaOff,
		"":        CriteriaOff,
		"bogus":   CriteriaExact,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCriteria(in), in)
	}
}

func TestKey(t *testing.T) {
	a, b := note(1, "Alice"), note(2, "Alice")
	assert.NotEqual(t, Key(a, CriteriaExact), Key(b, CriteriaExact))
	assert.Equal(t, Key(a, CriteriaContent), Key(b, CriteriaContent))
	assert.Empty(t, Key(a, CriteriaOff))
}

func TestFilterSuppressesWithinWindow(t *testing.T) {
	f, next, now := newTestFilter(Options{Criteria: CriteriaExact, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, f.Emit(ctx, note(1, "Alice")))
	require.NoError(t, f.Emit(ctx, note(1, "Alice")))
	require.NoError(t, f.Emit(ctx, note(2, "Alice")))
	assert.Len(t, next.got, 2)
	assert.Equal(t, 1, f.Suppressed())

	*now = now.Add(2 * time.Minute)
	require.NoError(t, f.Emit(ctx, note(1, "Alice")))
	assert.Len(t, next.got, 3, "window elapsed")
}

func TestFilterContentCriteria(t *testing.T) {
	f, next, _ := newTestFilter(Options{Criteria: CriteriaContent, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, f.Emit(ctx, note(1, "Alice")))
	require.NoError(t, f.Emit(ctx, note(9, "Alice")))
	require.NoError(t, f.Emit(ctx, note(10, "Bob")))
	assert.Equal(t, []ancs.NotificationID{1, 10}, []ancs.NotificationID{next.got[0].ID, next.got[1].ID})
}

func TestFilterDisabled(t *testing.T) {
	for _, opts := range []Options{
		{Criteria: CriteriaOff, Window: time.Minute},
		{Criteria: CriteriaExact, Window: 0},
	} {
		f, next, _ := newTestFilter(opts)
		assert.False(t, f.Enabled())
		require.NoError(t, f.Emit(context.Background(), note(1, "Alice")))
		require.NoError(t, f.Emit(context.Background(), note(1, "Alice")))
		assert.Len(t, next.got, 2)
	}
}

func TestOptionsFromGlobal(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("XDG_STATE_HOME", tmp)
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("ANCS_INTRAY_DEDUP_CRITERIA", "content")
	t.Setenv("ANCS_INTRAY_DEDUP_WINDOW_SECONDS", "30")
	config.Load()

	assert.Equal(t, Options{Criteria: CriteriaContent, Window: 30 * time.Second}, OptionsFromGlobal())
}
