package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"markup/internal/domain"
)

// ExportRunStore implements domain.ExportRunStore using SQLite.
type ExportRunStore struct {
	db *DB
}

func NewExportRunStore(db *DB) *ExportRunStore {
	return &ExportRunStore{db: db}
}

func (s *ExportRunStore) CreateExportRun(r *domain.ExportRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO export_runs (id, document, format, pages, path, duration_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Document, r.Format, r.Pages, r.Path, r.DurationMS, r.Error, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create export run: %w", err)
	}
	return nil
}

// ListExportRuns returns the most recent runs first.
func (s *ExportRunStore) ListExportRuns(limit int) ([]domain.ExportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.conn.Query(
		`SELECT id, document, format, pages, path, duration_ms, error, created_at
		 FROM export_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ExportRun
	for rows.Next() {
		var r domain.ExportRun
		if err := rows.Scan(&r.ID, &r.Document, &r.Format, &r.Pages, &r.Path, &r.DurationMS, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *ExportRunStore) DeleteExportRunsBefore(t time.Time) (int64, error) {
	res, err := s.db.conn.Exec(`DELETE FROM export_runs WHERE created_at < ?`, t)
	if err != nil {
		return 0, fmt.Errorf("prune export runs: %w", err)
	}
	return res.RowsAffected()
}
