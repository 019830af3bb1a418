package ancs

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cristianoliveira/ancs-intray/internal/colors"
)

// Printer is a Sink writing each notification as a block of text:
//
//	Notification from Messages (com.apple.MobileSMS)
//		Category: Social
//		    Date: 20261019T101500
//		   Title: Alice
//		 Message: see you at 5
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewPrinter returns a Printer writing to w, with ANSI colors when color is set.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + colors.Reset
}

// Emit implements Sink.
func (p *Printer) Emit(_ context.Context, n Resolved) error {
	// The app id is only meaningful next to a resolved name.
	appID := UnknownName
	if n.AppName != UnknownName && n.AppID != "" {
		appID = n.AppID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "%s %s (%s)\n\tCategory: %s\n\t    Date: %s\n\t   Title: %s\n\t Message: %s\n\n",
		p.paint(colors.Bold, "Notification from"),
		p.paint(colors.Green, n.AppName),
		appID,
		p.paint(colors.Cyan, n.Category.String()),
		n.Date,
		n.Title,
		n.Message)
	return err
}
