// Package sqlite implements storage.Storage on SQLite.
//
// The default database is ":memory:", so toasts live only as long as the
// process unless storage_path points to a file.
package sqlite

import (
	"database/sql"
	"fmt"
	_ "github.com/mattn/go-sqlite3"
	"log/slog"
	"time"
	"wallet/internal/models"
	"wallet/internal/storage"
)

type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStorage(db *sql.DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

// Open opens the database at path. An in-memory database is limited to one
// connection so every query sees the same data.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Init creates the tables on first start.
func (s *Storage) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS toasts (
		    id TEXT NOT NULL PRIMARY KEY,
		    message TEXT NOT NULL,
		    duration_ms INTEGER NOT NULL,
		    position TEXT NOT NULL,
		    created_at INTEGER NOT NULL,
		    expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS toasts_expires_at ON toasts (expires_at);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// SaveToast stores a toast for its display duration.
func (s *Storage) SaveToast(toast models.Toast) error {
	if toast.ID == "" || toast.Duration <= 0 {
		return storage.ErrInvalidToast
	}

	_, err := s.db.Exec(
		"INSERT INTO toasts (id, message, duration_ms, position, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)",
		toast.ID,
		toast.Message,
		toast.Duration.Milliseconds(),
		string(toast.Position),
		toast.CreatedAt.UnixNano(),
		toast.ExpiresAt().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert toast: %w", err)
	}
	return nil
}

// ActiveToasts returns the toasts still displayed at now, oldest first.
func (s *Storage) ActiveToasts(now time.Time) ([]models.Toast, error) {
	rows, err := s.db.Query(`
		SELECT id, message, duration_ms, position, created_at
		FROM toasts
		WHERE created_at <= ? AND expires_at > ?
		ORDER BY created_at ASC`, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query toasts: %w", err)
	}
	defer rows.Close()

	var toasts []models.Toast
	for rows.Next() {
		var (
			t          models.Toast
			durationMs int64
			position   string
			createdAt  int64
		)
		if err := rows.Scan(&t.ID, &t.Message, &durationMs, &position, &createdAt); err != nil {
			return nil, fmt.Errorf("scan toast: %w", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		t.Position = models.Position(position)
		t.CreatedAt = time.Unix(0, createdAt)
		toasts = append(toasts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate toasts: %w", err)
	}
	return toasts, nil
}

// PurgeExpired deletes toasts whose display window ended before now.
func (s *Storage) PurgeExpired(now time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM toasts WHERE expires_at <= ?", now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge toasts: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("expired toasts purged", "count", n)
	}
	return n, nil
}
