package service

import (
	"fmt"
	"strconv"

	"markup/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main Wails window size between sessions as two
// rows in app_settings.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	store domain.SettingsStore
}

// NewWindowSettingsService creates a WindowSettingsService.
func NewWindowSettingsService(store domain.SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{store: store}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if s.store == nil {
		return size
	}
	if w, ok := s.intSetting(settingWindowWidth); ok && w >= minWindowWidth {
		size.Width = w
	}
	if h, ok := s.intSetting(settingWindowHeight); ok && h >= minWindowHeight {
		size.Height = h
	}
	return size
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.store == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.store.SetSetting(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return fmt.Errorf("save window width: %w", err)
	}
	if err := s.store.SetSetting(settingWindowHeight, strconv.Itoa(height)); err != nil {
		return fmt.Errorf("save window height: %w", err)
	}
	return nil
}

func (s *WindowSettingsService) intSetting(key string) (int, bool) {
	v, ok, err := s.store.GetSetting(key)
	if err != nil || !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
