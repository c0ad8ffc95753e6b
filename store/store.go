// Package store persists the item log and sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"d2sync/entity"
	"d2sync/itemlog"
	"d2sync/log"
	"d2sync/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it when needed, and applies the
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		migration, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession records a session. Saving the same session twice is a no-op.
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	q := `
	INSERT OR IGNORE INTO sessions (session_id, process_id, game_name, started_at)
	VALUES (?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, sess.ID.String(), sess.ProcessID, sess.GameName, sess.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SessionCount returns how many sessions were recorded for a process.
func (s *Store) SessionCount(ctx context.Context, pid int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE process_id = ?;`, pid).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func (s *Store) SaveEntry(ctx context.Context, e itemlog.Entry) error {
	q := `
	INSERT INTO item_log (process_id, hash, unit_id, txt_file_no, quality, ethereal, placement, vendor, area, difficulty, logged_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q,
		e.ProcessID, e.Hash, e.UnitID, e.TxtFileNo, int(e.Quality), e.Ethereal,
		int(e.Placement), int(e.Vendor), int(e.Area), int(e.Difficulty), e.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item log entry: %w", err)
	}
	return nil
}

// Query selects logged entries. Zero fields match everything.
type Query struct {
	ProcessID  int
	MinQuality entity.ItemQuality
	Since      time.Time
	Limit      int
}

// Entries returns the matching entries in logging order.
func (s *Store) Entries(ctx context.Context, q Query) ([]itemlog.Entry, error) {
	stmt := `
	SELECT process_id, hash, unit_id, txt_file_no, quality, ethereal, placement, vendor, area, difficulty, logged_at
	FROM item_log
	WHERE (? = 0 OR process_id = ?) AND quality >= ? AND logged_at >= ?
	ORDER BY id
	`
	args := []any{q.ProcessID, q.ProcessID, int(q.MinQuality), sinceNanos(q.Since)}
	if q.Limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query item log: %w", err)
	}
	defer rows.Close()

	var out []itemlog.Entry
	for rows.Next() {
		var (
			e                                            itemlog.Entry
			quality, placement, vendor, area, difficulty int
			loggedAt                                     int64
		)
		err := rows.Scan(&e.ProcessID, &e.Hash, &e.UnitID, &e.TxtFileNo, &quality, &e.Ethereal,
			&placement, &vendor, &area, &difficulty, &loggedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item log entry: %w", err)
		}
		e.Quality = entity.ItemQuality(quality)
		e.Placement = entity.Placement(placement)
		e.Vendor = entity.Npc(vendor)
		e.Area = entity.Area(area)
		e.Difficulty = entity.Difficulty(difficulty)
		e.Time = time.Unix(0, loggedAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func sinceNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// Recorder returns an itemlog.Options.OnLogged callback that saves every
// entry. Failures are logged and do not stop the tick.
func (s *Store) Recorder(ctx context.Context, l *log.Logger) func(itemlog.Entry) {
	return func(e itemlog.Entry) {
		if err := s.SaveEntry(ctx, e); err != nil {
			l.Error("Failed to persist item %d: %v", e.UnitID, err)
		}
	}
}
