package hooks

import (
	"context"
	"strconv"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
)

// Sink runs the on-notification hook point for each resolved notification.
type Sink struct {
	runner *Runner
}

// NewSink wraps a Runner as an ancs.Sink.
func NewSink(r *Runner) *Sink {
	return &Sink{runner: r}
}

// Emit implements ancs.Sink.
func (s *Sink) Emit(ctx context.Context, n ancs.Resolved) error {
	return s.runner.Run(ctx, OnNotification, Env(n))
}

// Env returns the ANCS_* variables describing n.
func Env(n ancs.Resolved) map[string]string {
	return map[string]string{
		"ANCS_NOTIFICATION_ID": strconv.FormatUint(uint64(n.ID), 10),
		"ANCS_APP_ID":          n.AppID,
		"ANCS_APP_NAME":        n.AppName,
		"ANCS_CATEGORY":        n.Category.String(),
		"ANCS_CATEGORY_ID":     strconv.Itoa(int(n.Category)),
		"ANCS_FLAGS":           strconv.Itoa(int(n.Flags)),
		"ANCS_DATE":            n.Date,
		"ANCS_TITLE":           n.Title,
		"ANCS_MESSAGE":         n.Message,
	}
}
