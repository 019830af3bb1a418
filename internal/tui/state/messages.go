package state

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/ancs-intray/internal/ancs"
)

// SnapshotMsg carries a fresh engine snapshot.
type SnapshotMsg struct {
	Snapshot ancs.Snapshot
	Err      error
}

// NotificationMsg is sent for every resolved notification received from the feed.
type NotificationMsg struct {
	Notification ancs.Resolved
}

// ActionDoneMsg reports the outcome of queueing a user action.
type ActionDoneMsg struct {
	Action ancs.Action
	Err    error
}

// pollMsg asks for the next snapshot.
type pollMsg struct{}

// clearMessageMsg clears the footer message if it is still the one identified by seq.
type clearMessageMsg struct {
	seq int
}

func snapshotCmd(ctx context.Context, engine Engine) tea.Cmd {
	return func() tea.Msg {
		s, err := engine.Snapshot(ctx)
		return SnapshotMsg{Snapshot: s, Err: err}
	}
}

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollMsg{} })
}

func waitForNotification(feed *Feed) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-feed.C()
		if !ok {
			return nil
		}
		return NotificationMsg{Notification: n}
	}
}

func triggerCmd(ctx context.Context, engine Engine, a ancs.Action) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Action: a, Err: engine.Trigger(ctx, a)}
	}
}

func clearMessageCmd(seq int) tea.Cmd {
	return tea.Tick(messageClearDuration, func(time.Time) tea.Msg { return clearMessageMsg{seq: seq} })
}
