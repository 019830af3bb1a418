// Package inbox provides a SQLite-backed store of resolved notifications.
package inbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cristianoliveira/ancs-intray/internal/ancs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that received_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ErrNotFound indicates that an entry cannot be found.
var ErrNotFound = errors.New("inbox entry not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notifications (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session     TEXT NOT NULL,
	provider_id INTEGER NOT NULL,
	app_id      TEXT NOT NULL DEFAULT '',
	app_name    TEXT NOT NULL DEFAULT '',
	category    INTEGER NOT NULL DEFAULT 0,
	flags       INTEGER NOT NULL DEFAULT 0,
	date        TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	received_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_received_at ON notifications(received_at);
CREATE INDEX IF NOT EXISTS idx_notifications_app_id ON notifications(app_id);
`

// Entry is one stored notification.
type Entry struct {
	ID         int64           `json:"id"`
	Session    string          `json:"session"`
	ProviderID uint32          `json:"provider_id"`
	AppID      string          `json:"app_id"`
	AppName    string          `json:"app_name"`
	Category   ancs.Category   `json:"category_id"`
	Flags      ancs.EventFlags `json:"flags"`
	Date       string          `json:"date"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	ReceivedAt time.Time       `json:"received_at"`
}

// CategoryName is the display name of the entry category.
func (e Entry) CategoryName() string {
	return e.Category.String()
}

// Inbox stores resolved notifications. Every Inbox tags its rows with a session id so one
// daemon run can be told apart from the next.
type Inbox struct {
	db      *sql.DB
	session string
	now     func() time.Time
}

// Open creates or opens the inbox database at path.
func Open(path string) (*Inbox, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("inbox: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("inbox: create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("inbox: open db: %w", err)
	}
	in := &Inbox{db: db, session: uuid.NewString(), now: time.Now}
	if err := in.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return in, nil
}

func (in *Inbox) init() error {
	if _, err := in.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("inbox: set busy timeout: %w", err)
	}
	if _, err := in.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("inbox: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying SQLite connection.
func (in *Inbox) Close() error {
	if in == nil || in.db == nil {
		return nil
	}
	return in.db.Close()
}

// Session returns the session id stamped on rows added through this Inbox.
func (in *Inbox) Session() string {
	return in.session
}

// Add stores n and returns its row id.
func (in *Inbox) Add(ctx context.Context, n ancs.Resolved) (int64, error) {
	res, err := in.db.ExecContext(ctx, `
INSERT INTO notifications (session, provider_id, app_id, app_name, category, flags, date, title, message, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.session, int64(n.ID), n.AppID, n.AppName, int(n.Category), int(n.Flags),
		n.Date, n.Title, n.Message, in.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("inbox: add notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inbox: add notification: %w", err)
	}
	return id, nil
}

// Emit implements ancs.Sink.
func (in *Inbox) Emit(ctx context.Context, n ancs.Resolved) error {
	_, err := in.Add(ctx, n)
	return err
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	AppID    string
	Session  string
	Category *ancs.Category
	Since    time.Time
	// Limit keeps the newest Limit entries; 0 means no limit.
	Limit int
}

// List returns entries matching f, newest first.
func (in *Inbox) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.AppID != "" {
		where = append(where, "app_id = ?")
		args = append(args, f.AppID)
	}
	if f.Session != "" {
		where = append(where, "session = ?")
		args = append(args, f.Session)
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, int(*f.Category))
	}
	if !f.Since.IsZero() {
		where = append(where, "received_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	query := "SELECT id, session, provider_id, app_id, app_name, category, flags, date, title, message, received_at FROM notifications"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := in.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inbox: list notifications: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("inbox: list notifications: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inbox: list notifications: %w", err)
	}
	return entries, nil
}

// Get returns the entry with row id id.
func (in *Inbox) Get(ctx context.Context, id int64) (Entry, error) {
	row := in.db.QueryRowContext(ctx, "SELECT id, session, provider_id, app_id, app_name, category, flags, date, title, message, received_at FROM notifications WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("inbox: entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("inbox: get entry %d: %w", id, err)
	}
	return e, nil
}

// Count returns the number of stored entries.
func (in *Inbox) Count(ctx context.Context) (int, error) {
	var n int
	if err := in.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&n); err != nil {
		return 0, fmt.Errorf("inbox: count notifications: %w", err)
	}
	return n, nil
}

// Clear deletes every entry and returns how many were removed.
func (in *Inbox) Clear(ctx context.Context) (int64, error) {
	res, err := in.db.ExecContext(ctx, "DELETE FROM notifications")
	if err != nil {
		return 0, fmt.Errorf("inbox: clear notifications: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes entries received before cutoff and returns how many were removed.
func (in *Inbox) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := in.db.ExecContext(ctx, "DELETE FROM notifications WHERE received_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("inbox: prune notifications: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e          Entry
		providerID int64
		category   int
		flags      int
		receivedAt string
	)
	if err := s.Scan(&e.ID, &e.Session, &providerID, &e.AppID, &e.AppName, &category, &flags,
		&e.Date, &e.Title, &e.Message, &receivedAt); err != nil {
		return Entry{}, err
	}
	e.ProviderID = uint32(providerID)
	e.Category = ancs.Category(category)
	e.Flags = ancs.EventFlags(flags)
	t, err := time.Parse(timeLayout, receivedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse received_at %q: %w", receivedAt, err)
	}
	e.ReceivedAt = t
	return e, nil
}
