// Package dedup suppresses notifications that were already delivered recently. A phone
// that reconnects announces everything it still holds again; with drop_preexisting off,
// those replays would otherwise reach the inbox and hooks twice.
package dedup

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/logging"
)

// Criteria defines how duplicates are detected.
type Criteria string

const (
	// CriteriaExact matches the provider id and every resolved attribute.
	CriteriaExact Criteria = "exact"
	// CriteriaContent matches the application, title and message, ignoring the id and date.
	CriteriaContent Criteria = "content"
	// CriteriaOff disables deduplication.
	CriteriaOff Criteria = "off"
)

// Options configure a Filter.
type Options struct {
	Criteria Criteria
	// Window is how long a delivered notification suppresses its duplicates; 0 disables.
	Window time.Duration
}

// ParseCriteria converts user-provided strings into a Criteria value.
func ParseCriteria(value string) Criteria {
	switch strings.ToLower(value) {
	case string(CriteriaContent):
		return CriteriaContent
	case string(CriteriaOff), "none", "":
		return CriteriaOff
	default:
		return CriteriaExact
	}
}

// OptionsFromGlobal reads dedup options from the global configuration.
func OptionsFromGlobal() Options {
	return Options{
		Criteria: ParseCriteria(config.Get("dedup_criteria", string(CriteriaExact))),
		Window:   time.Duration(config.GetInt("dedup_window_seconds", 600)) * time.Second,
	}
}

// Key returns the dedup key of n under criteria.
func Key(n ancs.Resolved, criteria Criteria) string {
	switch criteria {
	case CriteriaContent:
		return joinParts(n.AppID, n.Title, n.Message)
	case CriteriaExact:
		return joinParts(strconv.FormatUint(uint64(n.ID), 10), n.AppID, n.Category.String(), n.Date, n.Title, n.Message)
	default:
		return ""
	}
}

func joinParts(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Filter is an ancs.Sink passing each notification on to next unless an identical one was
// passed within the window.
type Filter struct {
	next   ancs.Sink
	opts   Options
	logger logging.Logger
	now    func() time.Time

	mu         sync.Mutex
	seen       map[string]time.Time
	suppressed int
}

// New wraps next.
func New(next ancs.Sink, opts Options, logger logging.Logger) *Filter {
	if logger == nil {
		logger = logging.GetGlobal()
	}
	return &Filter{
		next:   next,
		opts:   opts,
		logger: logger.With("component", "dedup"),
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// Enabled reports whether the filter can suppress anything.
func (f *Filter) Enabled() bool {
	return f.opts.Criteria != CriteriaOff && f.opts.Criteria != "" && f.opts.Window > 0
}

// Emit implements ancs.Sink.
func (f *Filter) Emit(ctx context.Context, n ancs.Resolved) error {
	if !f.Enabled() {
		return f.next.Emit(ctx, n)
	}
	key := Key(n, f.opts.Criteria)
	now := f.now()

	f.mu.Lock()
	f.expire(now)
	if _, dup := f.seen[key]; dup {
		f.suppressed++
		f.mu.Unlock()
		f.logger.Debug("duplicate suppressed", "id", n.ID.String(), "app_id", n.AppID)
		return nil
	}
	f.seen[key] = now
	f.mu.Unlock()

	return f.next.Emit(ctx, n)
}

// expire forgets keys older than the window. Callers hold f.mu.
func (f *Filter) expire(now time.Time) {
	for key, at := range f.seen {
		if now.Sub(at) > f.opts.Window {
			delete(f.seen, key)
		}
	}
}

// Suppressed returns how many duplicates were dropped.
func (f *Filter) Suppressed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suppressed
}
