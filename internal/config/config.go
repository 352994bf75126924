package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"markup/internal/camera"
	"markup/internal/domain"
)

// Config holds application configuration.
type Config struct {
	Camera  CameraConfig  `mapstructure:"camera"`
	Import  ImportConfig  `mapstructure:"import"`
	Export  ExportConfig  `mapstructure:"export"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	MCP     MCPConfig     `mapstructure:"mcp"`
}

// CameraConfig holds the camera constraint constants.
type CameraConfig struct {
	CompactThreshold float64 `mapstructure:"compact_threshold"`
	CompactPaddingX  float64 `mapstructure:"compact_padding_x"`
	RegularPaddingX  float64 `mapstructure:"regular_padding_x"`
	PaddingY         float64 `mapstructure:"padding_y"`
	OriginX          float64 `mapstructure:"origin_x"`
	OriginY          float64 `mapstructure:"origin_y"`
	MinZoom          float64 `mapstructure:"min_zoom"`
	MaxZoom          float64 `mapstructure:"max_zoom"`
}

// ImportConfig holds page layout settings.
type ImportConfig struct {
	PageSpacing float64 `mapstructure:"page_spacing"`
	RenderScale float64 `mapstructure:"render_scale"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	Scale float64 `mapstructure:"scale"`
	Dir   string  `mapstructure:"dir"`
	// HistoryDays is how long export runs are kept.
	HistoryDays int `mapstructure:"history_days"`
	// PruneSchedule is a cron expression for pruning export history.
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// StorageConfig holds sqlite settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Locale     string  `mapstructure:"locale"`
	DateOffset float64 `mapstructure:"date_offset"`
}

// MCPConfig controls the MCP endpoint served by the desktop app.
type MCPConfig struct {
	// Addr is the listen address, e.g. 127.0.0.1:7331. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// CameraPolicy converts the camera section into the controller's config.
func (c Config) CameraPolicy() camera.Config {
	p := camera.DefaultConfig()
	p.CompactThreshold = c.Camera.CompactThreshold
	p.CompactPadding = domain.Vec{X: c.Camera.CompactPaddingX, Y: c.Camera.PaddingY}
	p.RegularPadding = domain.Vec{X: c.Camera.RegularPaddingX, Y: c.Camera.PaddingY}
	p.Origin = domain.Vec{X: c.Camera.OriginX, Y: c.Camera.OriginY}
	p.MinZoom = c.Camera.MinZoom
	p.MaxZoom = c.Camera.MaxZoom
	return p
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")
	v.SetDefault("camera.compact_threshold", 840)
	v.SetDefault("camera.compact_padding_x", 16)
	v.SetDefault("camera.regular_padding_x", 164)
	v.SetDefault("camera.padding_y", 64)
	v.SetDefault("camera.origin_x", 0.5)
	v.SetDefault("camera.origin_y", 0)
	v.SetDefault("camera.min_zoom", 0.25)
	v.SetDefault("camera.max_zoom", 5)
	v.SetDefault("import.page_spacing", 32)
	v.SetDefault("import.render_scale", 1.5)
	v.SetDefault("export.scale", 2)
	v.SetDefault("export.dir", filepath.Join(home, "Downloads"))
	v.SetDefault("export.history_days", 90)
	v.SetDefault("export.prune_schedule", "@daily")
	v.SetDefault("storage.path", filepath.Join(home, ".local", "share", "markup", "markup.db"))
	v.SetDefault("ui.locale", "ko-KR")
	v.SetDefault("ui.date_offset", 12)
	v.SetDefault("mcp.addr", "")
}

// New returns a viper instance with defaults, file and env sources set up.
// Env var overrides use prefix MARKUP_.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if p := os.Getenv("MARKUP_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "markup"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MARKUP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Default returns the built-in configuration with no file or env sources.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	c, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return c
}

// Load reads configuration from file and env.
func Load() (Config, error) {
	return Read(New())
}

// Read loads v's config file if present and decodes it.
func Read(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.Camera.CompactThreshold <= 0:
		return fmt.Errorf("config: camera.compact_threshold must be positive")
	case c.Camera.MinZoom <= 0 || c.Camera.MaxZoom < c.Camera.MinZoom:
		return fmt.Errorf("config: invalid zoom range [%v, %v]", c.Camera.MinZoom, c.Camera.MaxZoom)
	case c.Import.RenderScale <= 0 || c.Export.Scale <= 0:
		return fmt.Errorf("config: scales must be positive")
	case c.Export.HistoryDays <= 0:
		return fmt.Errorf("config: export.history_days must be positive")
	}
	return nil
}

// Watch reloads the config file on change and passes every valid result
// to fn. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, fn func(Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		c, err := decode(v)
		if err != nil {
			log.Printf("[CONFIG] ignoring %s: %v", e.Name, err)
			return
		}
		log.Printf("[CONFIG] reloaded %s", e.Name)
		fn(c)
	})
	v.WatchConfig()
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("MARKUP_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "markup", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("camera.compact_threshold", cfg.Camera.CompactThreshold)
	v.Set("camera.compact_padding_x", cfg.Camera.CompactPaddingX)
	v.Set("camera.regular_padding_x", cfg.Camera.RegularPaddingX)
	v.Set("camera.padding_y", cfg.Camera.PaddingY)
	v.Set("camera.origin_x", cfg.Camera.OriginX)
	v.Set("camera.origin_y", cfg.Camera.OriginY)
	v.Set("camera.min_zoom", cfg.Camera.MinZoom)
	v.Set("camera.max_zoom", cfg.Camera.MaxZoom)
	v.Set("import.page_spacing", cfg.Import.PageSpacing)
	v.Set("import.render_scale", cfg.Import.RenderScale)
	v.Set("export.scale", cfg.Export.Scale)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("export.history_days", cfg.Export.HistoryDays)
	v.Set("export.prune_schedule", cfg.Export.PruneSchedule)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("ui.locale", cfg.UI.Locale)
	v.Set("ui.date_offset", cfg.UI.DateOffset)
	v.Set("mcp.addr", cfg.MCP.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
