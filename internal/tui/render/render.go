// Package render draws the pieces of the live console: the engine status line, the table of
// resolved notifications and the footer.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/colors"
)

const (
	timeWidth            = 8
	appWidth             = 16
	categoryWidth        = 12
	titleWidth           = 20
	spacesBetweenColumns = 8
	defaultMessageWidth  = 40
	minMessageWidth      = 10
)

// Entry is a resolved notification as shown in the console.
type Entry struct {
	Notification ancs.Resolved
	ReceivedAt   time.Time
}

// RowState defines the inputs needed to render a notification row.
type RowState struct {
	Entry    Entry
	Width    int
	Selected bool
}

// Header renders the table header.
func Header(width int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ansiColorNumber(colors.Blue)))

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %s",
		timeWidth, "TIME",
		appWidth, "APP",
		categoryWidth, "CATEGORY",
		titleWidth, "TITLE",
		"MESSAGE",
	)
	return headerStyle.Render(truncate(header, width))
}

// Row renders a single notification row.
func Row(state RowState) string {
	rowStyle := lipgloss.NewStyle()
	if state.Selected {
		rowStyle = rowStyle.Background(lipgloss.Color(ansiColorNumber(colors.Blue))).Foreground(lipgloss.Color("0"))
	}
	n := state.Entry.Notification

	messageWidth := calculateMessageWidth(state.Width)
	if state.Width == 0 || messageWidth < minMessageWidth {
		messageWidth = defaultMessageWidth
	}

	row := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %s",
		timeWidth, state.Entry.ReceivedAt.Format(time.TimeOnly),
		appWidth, ellipsis(n.AppName, appWidth),
		categoryWidth, ellipsis(n.Category.String(), categoryWidth),
		titleWidth, ellipsis(n.Title, titleWidth),
		ellipsis(oneLine(n.Message), messageWidth),
	)
	return rowStyle.Render(row)
}

// Status renders the engine status line.
func Status(s ancs.Snapshot, width int) string {
	stateStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(stateColor(s.State)))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	parts := []string{
		stateStyle.Render(s.State.String()),
		fmt.Sprintf("queued %d", s.Queued),
		fmt.Sprintf("apps %d", s.Applications),
	}
	if s.FetchInFlight {
		parts = append(parts, "fetching")
	}
	if s.PendingDisplay {
		parts = append(parts, "resolving app")
	}
	if s.PendingBrowses > 0 {
		parts = append(parts, fmt.Sprintf("browses %d", s.PendingBrowses))
	}
	if s.PendingSecurity != "" && s.PendingSecurity != "none" {
		parts = append(parts, "security: "+s.PendingSecurity)
	}
	if !s.ProviderBound && s.State != ancs.StateDisconnected {
		parts = append(parts, dim.Render("provider not bound"))
	}
	if s.HasLast {
		parts = append(parts, dim.Render("last "+s.LastID.String()))
	}
	return truncateStyled(strings.Join(parts, "  |  "), width)
}

// Footer renders the footer: help text and an optional status message.
func Footer(help, message string) string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	out := helpStyle.Render(help)
	if message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ansiColorNumber(colors.Yellow)))
		out = msgStyle.Render(message) + "\n" + out
	}
	return out
}

// Empty renders the placeholder shown before the first notification.
func Empty() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("No notifications yet")
}

func stateColor(s ancs.ConnState) string {
	switch s {
	case ancs.StateBrowseComplete:
		return ansiColorNumber(colors.Green)
	case ancs.StateDisconnected:
		return ansiColorNumber(colors.Red)
	default:
		return ansiColorNumber(colors.Yellow)
	}
}

func calculateMessageWidth(width int) int {
	totalFixedWidth := timeWidth + appWidth + categoryWidth + titleWidth
	return width - totalFixedWidth - spacesBetweenColumns
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ellipsis shortens value to width runes, marking the cut with "...".
func ellipsis(value string, width int) string {
	if width <= 3 || utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width-3]) + "..."
}

func truncate(value string, width int) string {
	if width <= 0 || utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width])
}

// truncateStyled cuts a rendered line by display width so escape sequences are kept intact.
func truncateStyled(value string, width int) string {
	if width <= 0 || lipgloss.Width(value) <= width {
		return value
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(value)
}

// ansiColorNumber extracts the color number from an ANSI escape sequence.
// Example: "\033[0;34m" -> "34"
func ansiColorNumber(ansi string) string {
	if len(ansi) < 2 {
		return ""
	}
	lastSemicolon := strings.LastIndex(ansi, ";")
	if lastSemicolon == -1 {
		return ""
	}
	return ansi[lastSemicolon+1 : len(ansi)-1]
}
