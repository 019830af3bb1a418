// Package state holds the bubbletea model of the live console: engine status, the most
// recent resolved notifications and the positive/negative action keys.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/tui/render"
)

const (
	headerFooterLines     = 3
	defaultViewportWidth  = 80
	defaultViewportHeight = 22
	pollInterval          = 500 * time.Millisecond
	messageClearDuration  = 5 * time.Second
	maxEntries            = 200
)

// Engine is the part of the engine the console drives.
type Engine interface {
	Snapshot(ctx context.Context) (ancs.Snapshot, error)
	Trigger(ctx context.Context, a ancs.Action) error
}

// Model represents the console model for bubbletea.
type Model struct {
	ctx    context.Context
	engine Engine
	feed   *Feed

	snapshot ancs.Snapshot
	stopped  bool
	entries  []render.Entry // newest first
	cursor   int

	viewport viewport.Model
	keys     keyMap
	help     help.Model
	width    int
	height   int

	message    string
	messageSeq int

	now func() time.Time
}

// NewModel creates a console bound to engine, showing notifications from feed.
func NewModel(ctx context.Context, engine Engine, feed *Feed) *Model {
	return &Model{
		ctx:      ctx,
		engine:   engine,
		feed:     feed,
		viewport: viewport.New(defaultViewportWidth, defaultViewportHeight),
		keys:     defaultKeyMap(),
		help:     help.New(),
		now:      time.Now,
	}
}

// Init starts snapshot polling and the notification feed.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(snapshotCmd(m.ctx, m.engine), waitForNotification(m.feed))
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-headerFooterLines)
		m.refresh()
		return m, nil
	case SnapshotMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, ancs.ErrEngineStopped) || errors.Is(msg.Err, context.Canceled) {
				m.stopped = true
				return m, m.setMessage("engine stopped")
			}
			return m, tea.Batch(m.setMessage("snapshot failed: "+msg.Err.Error()), pollCmd(pollInterval))
		}
		m.snapshot = msg.Snapshot
		return m, pollCmd(pollInterval)
	case pollMsg:
		if m.stopped {
			return m, nil
		}
		return m, snapshotCmd(m.ctx, m.engine)
	case NotificationMsg:
		m.add(msg.Notification)
		return m, waitForNotification(m.feed)
	case ActionDoneMsg:
		if msg.Err != nil {
			return m, m.setMessage(fmt.Sprintf("%s action failed: %v", msg.Action, msg.Err))
		}
		return m, m.setMessage(fmt.Sprintf("%s action sent", msg.Action))
	case clearMessageMsg:
		if msg.seq == m.messageSeq {
			m.message = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Positive):
		return m, triggerCmd(m.ctx, m.engine, ancs.ActionPositive)
	case key.Matches(msg, m.keys.Negative):
		return m, triggerCmd(m.ctx, m.engine, ancs.ActionNegative)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// add prepends n. A cursor away from the top keeps pointing at the same entry.
func (m *Model) add(n ancs.Resolved) {
	m.entries = append([]render.Entry{{Notification: n, ReceivedAt: m.now()}}, m.entries...)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[:maxEntries]
	}
	if m.cursor > 0 {
		m.cursor = min(m.cursor+1, len(m.entries)-1)
	}
	m.refresh()
}

func (m *Model) moveCursor(delta int) {
	if len(m.entries) == 0 {
		return
	}
	m.cursor = max(0, min(m.cursor+delta, len(m.entries)-1))
	m.refresh()
}

func (m *Model) setMessage(text string) tea.Cmd {
	m.message = text
	m.messageSeq++
	return clearMessageCmd(m.messageSeq)
}

// refresh re-renders the rows into the viewport and keeps the cursor visible.
func (m *Model) refresh() {
	if len(m.entries) == 0 {
		m.viewport.SetContent(render.Empty())
		return
	}
	var content strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(render.Row(render.RowState{Entry: e, Width: m.viewport.Width, Selected: i == m.cursor}))
	}
	m.viewport.SetContent(content.String())

	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

// View renders the console.
func (m *Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultViewportWidth
	}
	if len(m.entries) == 0 {
		m.viewport.SetContent(render.Empty())
	}

	var s strings.Builder
	s.WriteString(render.Status(m.snapshot, width))
	s.WriteString("\n")
	s.WriteString(render.Header(width))
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(render.Footer(m.help.View(m.keys), m.message))
	return s.String()
}

// Entries returns the notifications shown, newest first.
func (m *Model) Entries() []render.Entry {
	return append([]render.Entry(nil), m.entries...)
}
