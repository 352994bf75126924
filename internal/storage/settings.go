package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// SettingsStore implements domain.SettingsStore using SQLite.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) GetSetting(key string) (string, bool, error) {
	var v string
	err := s.db.conn.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SettingsStore) SetSetting(key, value string) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
