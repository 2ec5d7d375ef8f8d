package savedfilter

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"propdesk/internal/domain"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the saved-filter database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS saved_filters (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL,
		criteria   TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_saved_filters_kind ON saved_filters(kind);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Save(kind domain.Kind, name string, criteria domain.Criteria) (domain.SavedFilter, error) {
	f, err := newSavedFilter(kind, name, criteria, s.now().UTC())
	if err != nil {
		return domain.SavedFilter{}, err
	}
	data, err := json.Marshal(f.Criteria)
	if err != nil {
		return domain.SavedFilter{}, fmt.Errorf("encode criteria: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO saved_filters (id, kind, name, criteria, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, string(f.Kind), f.Name, string(data), f.CreatedAt,
	)
	if err != nil {
		return domain.SavedFilter{}, err
	}
	s.logger.Debug("saved filter stored",
		zap.String("id", f.ID),
		zap.String("kind", string(kind)),
		zap.String("name", f.Name))
	return f, nil
}

func (s *SQLiteStore) List(kind domain.Kind) ([]domain.SavedFilter, error) {
	query := `SELECT id, kind, name, criteria, created_at FROM saved_filters`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedFilter
	for rows.Next() {
		var f domain.SavedFilter
		var k, raw string
		if err := rows.Scan(&f.ID, &k, &f.Name, &raw, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Kind = domain.Kind(k)
		if err := json.Unmarshal([]byte(raw), &f.Criteria); err != nil {
			s.logger.Warn("skipping saved filter with unreadable criteria",
				zap.String("id", f.ID), zap.Error(err))
			continue
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM saved_filters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLiteStore) Apply(id string) (domain.Criteria, error) {
	var raw string
	err := s.db.QueryRow(`SELECT criteria FROM saved_filters WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.Criteria{}, notFound(id)
	}
	if err != nil {
		return domain.Criteria{}, err
	}
	var c domain.Criteria
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Criteria{}, fmt.Errorf("decode criteria for %q: %w", id, err)
	}
	return c, nil
}
