package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
)

// Column is one table column.
type Column struct {
	// Name is the column name displayed in the header.
	Name string
	// Width is the column width in characters.
	Width int
	// Right aligns the value to the right edge.
	Right bool
	// Extract returns the cell value for an entry.
	Extract func(inbox.Entry) string
}

// TableFormatter prints entries as aligned columns.
type TableFormatter struct {
	columns []Column
	color   bool
}

// NewTable returns a table with the default columns.
func NewTable(color bool) *TableFormatter {
	return &TableFormatter{
		color: color,
		columns: []Column{
			{Name: "ID", Width: 4, Right: true, Extract: func(e inbox.Entry) string { return strconv.FormatInt(e.ID, 10) }},
			{Name: "RECEIVED", Width: 19, Extract: func(e inbox.Entry) string { return e.ReceivedAt.Local().Format(timeLayout) }},
			{Name: "APP", Width: 16, Extract: appLabel},
			{Name: "CATEGORY", Width: 12, Extract: inbox.Entry.CategoryName},
			{Name: "TITLE", Width: 20, Extract: func(e inbox.Entry) string { return e.Title }},
			{Name: "MESSAGE", Width: 40, Extract: func(e inbox.Entry) string { return e.Message }},
		},
	}
}

// WithColumns appends custom columns.
func (f *TableFormatter) WithColumns(columns ...Column) *TableFormatter {
	f.columns = append(f.columns, columns...)
	return f
}

// Format implements Formatter. An empty list prints nothing.
func (f *TableFormatter) Format(entries []inbox.Entry, w io.Writer) error {
	if len(entries) == 0 {
		return nil
	}
	header := make([]string, len(f.columns))
	rule := make([]string, len(f.columns))
	for i, col := range f.columns {
		header[i] = pad(col.Name, col.Width, false)
		rule[i] = strings.Repeat("-", col.Width)
	}
	if err := f.writeLine(w, strings.Join(header, "  "), true); err != nil {
		return err
	}
	if err := f.writeLine(w, strings.Join(rule, "  "), true); err != nil {
		return err
	}

	cells := make([]string, len(f.columns))
	for _, e := range entries {
		for i, col := range f.columns {
			cells[i] = pad(truncate(oneLine(col.Extract(e)), col.Width), col.Width, col.Right)
		}
		if err := f.writeLine(w, strings.Join(cells, "  "), false); err != nil {
			return err
		}
	}
	return nil
}

func (f *TableFormatter) writeLine(w io.Writer, line string, header bool) error {
	line = strings.TrimRight(line, " ")
	if header && f.color {
		line = colors.Blue + line + colors.Reset
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func pad(s string, width int, right bool) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	if right {
		return strings.Repeat(" ", width-n) + s
	}
	return s + strings.Repeat(" ", width-n)
}
