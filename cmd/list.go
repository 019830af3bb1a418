package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/cristianoliveira/ancs-intray/internal/config"
	"github.com/cristianoliveira/ancs-intray/internal/format"
	"github.com/cristianoliveira/ancs-intray/internal/inbox"
	"github.com/cristianoliveira/ancs-intray/internal/search"
	"github.com/spf13/cobra"
)

const listCommandLong = `List stored notifications, newest first.

USAGE:
    ancs-intray list [OPTIONS]

OPTIONS:
    --app <bundle id>       Filter by application identifier
    --category <name>       Filter by category name, e.g. Social or E-mail
    --session <id>          Filter by daemon session
    --newer-than <d>        Only notifications received within the duration, e.g. 24h
    --search <pattern>      Only notifications whose title, message or app contains pattern
    --regex                 Treat --search as a regular expression
    -i, --ignore-case       Case-insensitive --search
    --limit <n>             Show at most n notifications
    --format=<format>       Output format: simple (default), table, json
    --no-color              Print table headers without colors
    -h, --help              Show this help`

// inboxStore is the part of the inbox the list and clear commands use.
type inboxStore interface {
	List(ctx context.Context, f inbox.Filter) ([]inbox.Entry, error)
	Clear(ctx context.Context) (int64, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

type storeOpener interface {
	Open() (inboxStore, error)
}

// inboxOpener opens the configured inbox database.
type inboxOpener struct{}

func (inboxOpener) Open() (inboxStore, error) {
	return inbox.Open(config.Get("inbox_path", ""))
}

// NewListCmd creates the list command with explicit dependencies.
func NewListCmd(opener storeOpener) *cobra.Command {
	if opener == nil {
		panic("NewListCmd: opener dependency cannot be nil")
	}

	var (
		app       string
		category  string
		session   string
		newerThan time.Duration
		limit     int
		query     string
		regex     bool
		noCase    bool
		outFormat string
		noColor   bool
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored notifications",
		Long:  listCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.New(format.Type(outFormat), !noColor)
			if err != nil {
				return err
			}
			filter := inbox.Filter{AppID: app, Session: session, Limit: limit}
			if category != "" {
				c, err := ancs.ParseCategory(category)
				if err != nil {
					return err
				}
				filter.Category = &c
			}
			if newerThan > 0 {
				filter.Since = time.Now().Add(-newerThan)
			}
			if limit < 0 {
				return fmt.Errorf("invalid limit %d: must not be negative", limit)
			}
			provider, err := searchProvider(query, regex, noCase)
			if err != nil {
				return err
			}
			if query != "" {
				// The limit applies to matches.
				filter.Limit = 0
			}

			store, err := opener.Open()
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			entries = search.Filter(entries, provider, query)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if len(entries) == 0 && outFormat != string(format.TypeJSON) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No notifications")
				return nil
			}
			return f.Format(entries, cmd.OutOrStdout())
		},
	}

	listCmd.Flags().StringVar(&app, "app", "", "Filter by application identifier")
	listCmd.Flags().StringVar(&category, "category", "", "Filter by category name")
	listCmd.Flags().StringVar(&session, "session", "", "Filter by daemon session")
	listCmd.Flags().DurationVar(&newerThan, "newer-than", 0, "Only notifications received within the duration")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Show at most n notifications")
	listCmd.Flags().StringVar(&query, "search", "", "Only notifications whose title, message or app contains pattern")
	listCmd.Flags().BoolVar(&regex, "regex", false, "Treat --search as a regular expression")
	listCmd.Flags().BoolVarP(&noCase, "ignore-case", "i", false, "Case-insensitive --search")
	listCmd.Flags().StringVar(&outFormat, "format", string(format.TypeSimple), "Output format: simple, table, json")
	listCmd.Flags().BoolVar(&noColor, "no-color", false, "Print table headers without colors")

	return listCmd
}

func searchProvider(query string, regex, ignoreCase bool) (search.Provider, error) {
	if !regex {
		return search.NewSubstringProvider(search.WithCaseInsensitive(ignoreCase)), nil
	}
	p := search.NewRegexProvider(search.WithCaseInsensitive(ignoreCase))
	if err := p.Compile(query); err != nil {
		return nil, fmt.Errorf("invalid --search pattern: %w", err)
	}
	return p, nil
}
