package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
	"github.com/cristianoliveira/ancs-intray/internal/tui/state"
	"github.com/cristianoliveira/ancs-intray/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	actions []ancs.Action
	waited  bool
	waitErr error
}

func (h *fakeHandle) Snapshot(context.Context) (ancs.Snapshot, error) {
	return ancs.Snapshot{State: ancs.StateBrowseComplete}, nil
}

func (h *fakeHandle) Trigger(_ context.Context, a ancs.Action) error {
	h.actions = append(h.actions, a)
	return nil
}

func (h *fakeHandle) Wait() error {
	h.waited = true
	return h.waitErr
}

// fakeStarter hands every notification in emit to the caller sinks before returning.
type fakeStarter struct {
	opts   startOptions
	emit   []ancs.Resolved
	err    error
	handle *fakeHandle
}

func (s *fakeStarter) Start(ctx context.Context, opts startOptions) (daemonHandle, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	for _, n := range s.emit {
		for _, sink := range opts.Sinks {
			if err := sink.Emit(ctx, n); err != nil {
				return nil, err
			}
		}
	}
	if s.handle == nil {
		s.handle = &fakeHandle{}
	}
	return s.handle, nil
}

func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	colors.SetOutput(&buf, &buf)
	t.Cleanup(func() { colors.SetOutput(nil, nil) })
	return &buf
}

func alice() ancs.Resolved {
	return ancs.Resolved{ID: 1, AppID: "com.apple.MobileSMS", AppName: "Messages",
		Category: ancs.CategorySocial, Date: "20261019T101500", Title: "Alice", Message: "Lunch at noon?"}
}

func TestConstructorsRejectNilDependencies(t *testing.T) {
	assert.PanicsWithValue(t, "NewRunCmd: starter dependency cannot be nil", func() { NewRunCmd(nil) })
	assert.PanicsWithValue(t, "NewConsoleCmd: starter dependency cannot be nil", func() { NewConsoleCmd(nil) })
	assert.PanicsWithValue(t, "NewListCmd: opener dependency cannot be nil", func() { NewListCmd(nil) })
	assert.PanicsWithValue(t, "NewClearCmd: opener dependency cannot be nil", func() { NewClearCmd(nil) })
}

func TestRunPrintsNotifications(t *testing.T) {
	console := captureConsole(t)
	starter := &fakeStarter{emit: []ancs.Resolved{alice()}}

	var out bytes.Buffer
	cmd := NewRunCmd(starter)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--simulate", "--scenario", "phone.toml", "--listen", "127.0.0.1:7878", "--no-color"})
	require.NoError(t, cmd.Execute())

	assert.True(t, starter.opts.Simulate)
	assert.Equal(t, "phone.toml", starter.opts.Scenario)
	assert.Equal(t, "127.0.0.1:7878", starter.opts.Listen)
	assert.Nil(t, starter.opts.TraceOut)
	assert.True(t, starter.handle.waited)
	assert.Contains(t, out.String(), "Notification from Messages (com.apple.MobileSMS)")
	assert.Contains(t, out.String(), "Title: Alice")
	assert.Contains(t, console.String(), "stopped after 1 notifications")
}

func TestRunTraceGoesToStderr(t *testing.T) {
	captureConsole(t)
	starter := &fakeStarter{}

	var errOut bytes.Buffer
	cmd := NewRunCmd(starter)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--simulate", "--trace"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, &errOut, starter.opts.TraceOut)
}

func TestRunErrors(t *testing.T) {
	captureConsole(t)

	cmd := NewRunCmd(&fakeStarter{err: errNoTransport})
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.ErrorIs(t, err, errNoTransport)
	assert.Contains(t, err.Error(), "use --simulate")

	starter := &fakeStarter{handle: &fakeHandle{waitErr: errors.New("link lost")}}
	cmd = NewRunCmd(starter)
	cmd.SetArgs([]string{"--simulate"})
	assert.EqualError(t, cmd.Execute(), "run: link lost")
}

func TestSimulationStarterRequiresSimulate(t *testing.T) {
	_, err := simulationStarter{}.Start(context.Background(), startOptions{})
	assert.ErrorIs(t, err, errNoTransport)
}

func TestConsoleDrivesEngine(t *testing.T) {
	orig := programRunner
	t.Cleanup(func() { programRunner = orig })

	starter := &fakeStarter{emit: []ancs.Resolved{alice()}}
	var seen []ancs.Resolved
	programRunner = func(ctx context.Context, m tea.Model) error {
		model, ok := m.(*state.Model)
		require.True(t, ok)

		feed := starter.opts.Sinks[0].(*state.Feed)
		model.Update(state.NotificationMsg{Notification: <-feed.C()})
		for _, e := range model.Entries() {
			seen = append(seen, e.Notification)
		}

		_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
		require.NotNil(t, cmd)
		cmd()
		return nil
	}

	cmd := NewConsoleCmd(starter)
	cmd.SetArgs([]string{"--simulate"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []ancs.Resolved{alice()}, seen)
	assert.Equal(t, []ancs.Action{ancs.ActionNegative}, starter.handle.actions)
	assert.True(t, starter.handle.waited)
}

func TestConsoleReportsProgramFailure(t *testing.T) {
	orig := programRunner
	t.Cleanup(func() { programRunner = orig })
	programRunner = func(context.Context, tea.Model) error { return errors.New("no tty") }

	cmd := NewConsoleCmd(&fakeStarter{})
	cmd.SetArgs([]string{"--simulate"})
	assert.EqualError(t, cmd.Execute(), "console: no tty")
}

type fakeStore struct {
	entries []inbox.Entry
	filter  inbox.Filter
	cleared bool
	cutoff  time.Time
	closed  bool
}

func (s *fakeStore) List(_ context.Context, f inbox.Filter) ([]inbox.Entry, error) {
	s.filter = f
	return s.entries, nil
}

func (s *fakeStore) Clear(context.Context) (int64, error) {
	s.cleared = true
	return int64(len(s.entries)), nil
}

func (s *fakeStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 1, nil
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

type fakeOpener struct {
	store *fakeStore
	err   error
}

func (o fakeOpener) Open() (inboxStore, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.store, nil
}

func TestListAppliesFilters(t *testing.T) {
	store := &fakeStore{entries: []inbox.Entry{{ID: 7, AppID: "com.apple.mobilemail", AppName: "Mail", Title: "Invoice", ReceivedAt: time.Now()}}}

	var out bytes.Buffer
	cmd := NewListCmd(fakeOpener{store: store})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--app", "com.apple.mobilemail", "--category", "e-mail", "--newer-than", "24h", "--limit", "5", "--format", "json"})
	before := time.Now()
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "com.apple.mobilemail", store.filter.AppID)
	require.NotNil(t, store.filter.Category)
	assert.Equal(t, ancs.CategoryEmail, *store.filter.Category)
	assert.Equal(t, 5, store.filter.Limit)
	assert.WithinDuration(t, before.Add(-24*time.Hour), store.filter.Since, time.Second)
	assert.True(t, store.closed)
	assert.Contains(t, out.String(), `"title": "Invoice"`)
}

func TestListValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown format", []string{"--format", "xml"}, `invalid format "xml"`},
		{"unknown category", []string{"--category", "Gossip"}, `unknown category "Gossip"`},
		{"negative limit", []string{"--limit", "-1"}, "invalid limit -1"},
		{"bad pattern", []string{"--search", "(lunch", "--regex"}, "invalid --search pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			cmd := NewListCmd(fakeOpener{store: store})
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, store.closed, "inbox is not opened")
		})
	}
}

func TestListSearchAppliesLimitToMatches(t *testing.T) {
	now := time.Now()
	store := &fakeStore{entries: []inbox.Entry{
		{ID: 3, AppName: "Messages", Title: "Alice", Message: "Lunch moved", ReceivedAt: now},
		{ID: 2, AppName: "Mail", Title: "Invoice", Message: "Due today", ReceivedAt: now},
		{ID: 1, AppName: "Messages", Title: "Alice", Message: "Lunch at noon?", ReceivedAt: now},
	}}

	var out bytes.Buffer
	cmd := NewListCmd(fakeOpener{store: store})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--search", "LUNCH", "-i", "--limit", "1"})
	require.NoError(t, cmd.Execute())

	assert.Zero(t, store.filter.Limit)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "3 "))

	out.Reset()
	cmd = NewListCmd(fakeOpener{store: store})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--search", "^Due", "--regex"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Mail: Invoice")
	assert.NotContains(t, out.String(), "Alice")
}

func TestListEmptyAndOpenFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := NewListCmd(fakeOpener{store: &fakeStore{}})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Empty(t, out.String())
	assert.Equal(t, "No notifications\n", errOut.String())

	cmd = NewListCmd(fakeOpener{err: errors.New("locked")})
	cmd.SetArgs([]string{})
	assert.EqualError(t, cmd.Execute(), "list: locked")
}

func TestClear(t *testing.T) {
	console := captureConsole(t)

	store := &fakeStore{entries: make([]inbox.Entry, 3)}
	cmd := NewClearCmd(fakeOpener{store: store})
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.True(t, store.cleared)
	assert.Contains(t, console.String(), "removed 3 notifications")

	store = &fakeStore{}
	cmd = NewClearCmd(fakeOpener{store: store})
	cmd.SetArgs([]string{"--older-than", "168h"})
	before := time.Now()
	require.NoError(t, cmd.Execute())
	assert.False(t, store.cleared)
	assert.WithinDuration(t, before.Add(-168*time.Hour), store.cutoff, time.Second)

	cmd = NewClearCmd(fakeOpener{store: &fakeStore{}})
	cmd.SetArgs([]string{"--older-than", "-1h"})
	assert.Error(t, cmd.Execute())
}

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit := version.Version, version.Commit
	t.Cleanup(func() { version.Version, version.Commit = origVersion, origCommit })
	version.Version, version.Commit = "1.2.3", "abc1234"

	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "ancs-intray version 1.2.3+abc1234\n", out.String())
}

func TestHelpListsCommandsInOrder(t *testing.T) {
	var out bytes.Buffer
	printHelpText(RootCmd, &out)
	help := out.String()

	assert.True(t, strings.HasPrefix(help, "ancs-intray v"))
	last := -1
	for _, name := range []string{"run", "console", "list", "clear", "version"} {
		idx := strings.Index(help, "    "+name+" ")
		require.NotEqual(t, -1, idx, name)
		assert.Greater(t, idx, last, name)
		last = idx
	}
}

func TestSimulationStarterRejectsBadFeedAddress(t *testing.T) {
	captureConsole(t)
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("ANCS_INTRAY_INBOX_ENABLED", "false")
	config.Load()

	_, err := simulationStarter{}.Start(context.Background(), startOptions{Simulate: true, Listen: "not-an-address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed:")
}

func TestRunSimulatedScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the engine against the simulated phone")
	}
	console := captureConsole(t)
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("ANCS_INTRAY_BROWSE_DELAY_MS", "1")
	config.Load()

	hookOut := filepath.Join(tmp, "titles.txt")
	hookDir := filepath.Join(config.Get("hooks_dir", ""), "on-notification")
	require.NoError(t, os.MkdirAll(hookDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "10-record"),
		[]byte("#!/bin/sh\necho \"$ANCS_TITLE\" >> "+hookOut+"\n"), 0755))

	scenario := filepath.Join(tmp, "phone.toml")
	require.NoError(t, os.WriteFile(scenario, []byte(`
peer = "Test Phone"

[apps]
"com.apple.MobileSMS" = "Messages"

[[notifications]]
app_id = "com.apple.MobileSMS"
category = "Social"
title = "Alice"
message = "Lunch at noon?"

[[notifications]]
app_id = "com.apple.MobileSMS"
category = "Social"
title = "Bob"
message = "On my way"
`), 0644))

	var out bytes.Buffer
	cmd := NewRunCmd(simulationStarter{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--simulate", "--scenario", scenario, "--duration", "1500ms", "--no-color"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 2, strings.Count(out.String(), "Notification from Messages (com.apple.MobileSMS)"))
	assert.Contains(t, console.String(), "stopped after 2 notifications")

	in, err := inbox.Open(config.Get("inbox_path", ""))
	require.NoError(t, err)
	defer in.Close()
	entries, err := in.List(context.Background(), inbox.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bob", entries[0].Title)
	assert.Equal(t, "Alice", entries[1].Title)

	titles, err := os.ReadFile(hookOut)
	require.NoError(t, err)
	assert.Equal(t, "Alice\nBob\n", string(titles))
}
