// Package search matches inbox entries against a query. The list command uses it for
// --search; substring and regex strategies share the Provider interface.
package search

import (
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
)

// Provider matches entries against a query.
type Provider interface {
	// Match returns true if the entry matches the query. An empty query matches everything.
	Match(e inbox.Entry, query string) bool

	// Name returns the provider name for identification and debugging.
	Name() string
}

// Options holds configuration options for creating search providers.
type Options struct {
	CaseInsensitive bool
	// Fields to search in: "title", "message", "app", "category".
	Fields []string
}

// DefaultOptions returns the default search options.
func DefaultOptions() Options {
	return Options{
		Fields: []string{"title", "message", "app"},
	}
}

// Option is a function that modifies search options.
type Option func(*Options)

// WithCaseInsensitive sets case-insensitive search.
func WithCaseInsensitive(enabled bool) Option {
	return func(o *Options) {
		o.CaseInsensitive = enabled
	}
}

// WithFields sets the fields to search in.
func WithFields(fields []string) Option {
	return func(o *Options) {
		o.Fields = fields
	}
}

func applyOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fieldValues returns the non-empty values of one field. "app" covers both the
// identifier and the display name.
func fieldValues(e inbox.Entry, field string) []string {
	var values []string
	switch field {
	case "title":
		values = []string{e.Title}
	case "message":
		values = []string{e.Message}
	case "app":
		values = []string{e.AppID, e.AppName}
	case "category":
		values = []string{e.CategoryName()}
	}
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns the entries p matches, keeping their order.
func Filter(entries []inbox.Entry, p Provider, query string) []inbox.Entry {
	if query == "" {
		return entries
	}
	var out []inbox.Entry
	for _, e := range entries {
		if p.Match(e, query) {
			out = append(out, e)
		}
	}
	return out
}
