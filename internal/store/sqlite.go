package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/i474232898/weatherpulse/internal/weather"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_key_fetched ON snapshots(key, fetched_at)`,
}

// SQLiteStore implements weather.Store on SQLite (pure Go driver
// modernc.org/sqlite). Dashboards are kept as JSON payloads.
type SQLiteStore struct {
	db         *sql.DB
	maxHistory int
	maxAge     time.Duration
	now        func() time.Time
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string, maxHistory int, maxAge time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("Could not enable WAL mode", zap.String("path", path), zap.Error(err))
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying sqlite schema: %w", err)
		}
	}

	return &SQLiteStore{
		db:         db,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

func (s *SQLiteStore) SaveSnapshot(q weather.Query, d weather.Dashboard) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dashboard: %w", err)
	}

	key := q.Key()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO snapshots(id, key, fetched_at, payload) VALUES(?,?,?,?)`,
		d.ID, key, d.FetchedAt.UnixNano(), string(payload)); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	if s.maxHistory > 0 {
		if _, err := tx.Exec(`DELETE FROM snapshots WHERE key = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE key = ? ORDER BY fetched_at DESC LIMIT ?)`,
			key, key, s.maxHistory); err != nil {
			return fmt.Errorf("enforcing history limit: %w", err)
		}
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge).UnixNano()
		if _, err := tx.Exec(`DELETE FROM snapshots WHERE key = ? AND fetched_at < ? AND id <> ?`,
			key, cutoff, d.ID); err != nil {
			return fmt.Errorf("enforcing max age: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetLatest(q weather.Query) (weather.Dashboard, error) {
	row := s.db.QueryRow(`SELECT payload FROM snapshots WHERE key = ? ORDER BY fetched_at DESC LIMIT 1`, q.Key())

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Dashboard{}, ErrNotFound
		}
		return weather.Dashboard{}, err
	}
	return decodeDashboard(payload)
}

func (s *SQLiteStore) GetRange(q weather.Query, from, to time.Time) ([]weather.Dashboard, error) {
	out, err := s.query(`SELECT payload FROM snapshots WHERE key = ? AND fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at`, q.Key(), from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *SQLiteStore) Recent(limit int) ([]weather.Dashboard, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	return s.query(`SELECT payload FROM snapshots s
		WHERE fetched_at = (SELECT MAX(fetched_at) FROM snapshots WHERE key = s.key)
		ORDER BY fetched_at DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) query(stmt string, args ...interface{}) ([]weather.Dashboard, error) {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []weather.Dashboard
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		d, err := decodeDashboard(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeDashboard(payload string) (weather.Dashboard, error) {
	var d weather.Dashboard
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return weather.Dashboard{}, fmt.Errorf("decoding stored dashboard: %w", err)
	}
	return d, nil
}
