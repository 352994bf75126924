package domain

import "time"

// ExportRun records one export attempt.
type ExportRun struct {
	ID         string    `json:"id"`
	Document   string    `json:"document"`
	Format     string    `json:"format"`
	Pages      int       `json:"pages"`
	Path       string    `json:"path"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ExportRunStore interface {
	CreateExportRun(r *ExportRun) error
	ListExportRuns(limit int) ([]ExportRun, error)
	DeleteExportRunsBefore(t time.Time) (int64, error)
}

// SettingsStore is a string key-value store for application settings.
type SettingsStore interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
}
