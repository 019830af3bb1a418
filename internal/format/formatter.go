// Package format renders inbox entries for the list command.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
)

// Formatter writes entries to a writer.
type Formatter interface {
	Format(entries []inbox.Entry, w io.Writer) error
}

// Type names an output format.
type Type string

const (
	// TypeSimple prints one line per entry: id, time, app and title.
	TypeSimple Type = "simple"
	// TypeTable prints aligned columns under a header.
	TypeTable Type = "table"
	// TypeJSON prints the entries as an indented JSON array.
	TypeJSON Type = "json"
)

// Types lists the supported formats.
var Types = []Type{TypeSimple, TypeTable, TypeJSON}

// New returns the formatter for t. color enables ANSI headers for the table format.
func New(t Type, color bool) (Formatter, error) {
	switch t {
	case TypeSimple, "":
		return simpleFormatter{}, nil
	case TypeTable:
		return NewTable(color), nil
	case TypeJSON:
		return jsonFormatter{}, nil
	default:
		names := make([]string, len(Types))
		for i, t := range Types {
			names[i] = string(t)
		}
		return nil, fmt.Errorf("invalid format %q (must be %s)", t, strings.Join(names, ", "))
	}
}

type simpleFormatter struct{}

func (simpleFormatter) Format(entries []inbox.Entry, w io.Writer) error {
	for _, e := range entries {
		label := appLabel(e)
		if e.Title != "" {
			label += ": " + oneLine(e.Title)
		}
		line := fmt.Sprintf("%-4d  %s  %s", e.ID, e.ReceivedAt.Local().Format(timeLayout), label)
		if _, err := fmt.Fprintln(w, truncate(line, 100)); err != nil {
			return err
		}
	}
	return nil
}

type jsonFormatter struct{}

func (jsonFormatter) Format(entries []inbox.Entry, w io.Writer) error {
	if entries == nil {
		entries = []inbox.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

const timeLayout = "2006-01-02 15:04:05"

// appLabel is the display name, or the bundle id when the name never resolved.
func appLabel(e inbox.Entry) string {
	if e.AppName == "" || e.AppName == ancs.UnknownName {
		if e.AppID != "" {
			return e.AppID
		}
	}
	return e.AppName
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
