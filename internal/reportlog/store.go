// Package reportlog keeps an audit trail of generated reports in PostgreSQL.
package reportlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/labstock/labstock/internal/platform/db"
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	db.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Entry is one generated report.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Entity      string    `json:"entity"`
	RecordID    string    `json:"record_id,omitempty"`
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	PaperSize   string    `json:"paper_size,omitempty"`
	Orientation string    `json:"orientation,omitempty"`
	Engine      string    `json:"engine"`
	Rows        int       `json:"rows"`
	Pages       int       `json:"pages"`
	Bytes       int       `json:"bytes"`
	SessionID   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrInvalidEntry is returned for entries missing the entity or format.
var ErrInvalidEntry = errors.New("reportlog: entity and format required")

// Store persists entries. A nil *Store discards writes and reads nothing.
type Store struct {
	db        DB
	retention int
}

// NewStore constructs a store keeping at most retention rows (0 keeps all).
func NewStore(conn DB, retention int) *Store {
	return &Store{db: conn, retention: retention}
}

const insertEntry = `INSERT INTO report_logs
    (id, entity, record_id, title, format, paper_size, orientation, engine, rows, pages, bytes, session_id, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''), $13)`

const pruneEntries = `DELETE FROM report_logs WHERE id IN (
    SELECT id FROM report_logs ORDER BY created_at DESC OFFSET $1)`

const selectRecent = `SELECT id, entity, COALESCE(record_id, ''), title, format,
    COALESCE(paper_size, ''), COALESCE(orientation, ''), engine, rows, pages, bytes, created_at
FROM report_logs ORDER BY created_at DESC LIMIT $1`

// Record stores entry, filling ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if s == nil || s.db == nil {
		return entry, nil
	}
	entry, err := prepare(entry, time.Now())
	if err != nil {
		return entry, err
	}
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertEntry,
			entry.ID, entry.Entity, entry.RecordID, entry.Title, entry.Format,
			entry.PaperSize, entry.Orientation, entry.Engine,
			entry.Rows, entry.Pages, entry.Bytes, entry.SessionID, entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("reportlog: insert: %w", err)
		}
		if s.retention > 0 {
			if _, err := tx.Exec(ctx, pruneEntries, s.retention); err != nil {
				return fmt.Errorf("reportlog: prune: %w", err)
			}
		}
		return nil
	})
	return entry, err
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return []Entry{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("reportlog: recent: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Entity, &e.RecordID, &e.Title, &e.Format,
			&e.PaperSize, &e.Orientation, &e.Engine, &e.Rows, &e.Pages, &e.Bytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("reportlog: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func prepare(entry Entry, now time.Time) (Entry, error) {
	entry.Entity = strings.TrimSpace(entry.Entity)
	entry.Format = strings.TrimSpace(entry.Format)
	if entry.Entity == "" || entry.Format == "" {
		return entry, ErrInvalidEntry
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now.UTC()
	}
	return entry, nil
}
