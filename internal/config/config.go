package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"calboard/internal/model"
)

const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultTodayCron       = "0 0 * * *"
	DefaultCategoryID      = "personal"
	DefaultErrorClearDelay = 5 * time.Second
	DefaultSaveDelay       = 500 * time.Millisecond
	DefaultCacheDir        = "/var/lib/calboard/ics-cache"
)

// CategoryConfig seeds one event category. Its ID is derived from Name.
type CategoryConfig struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// ImportConfig describes an ICS feed imported into the board at startup.
type ImportConfig struct {
	// ID is an internal identifier used for logging and the disk cache.
	ID string `yaml:"id" json:"id"`
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// Category is the category ID assigned to imported events. Empty means
	// the default category.
	Category string `yaml:"category" json:"category"`
}

// BasicAuthConfig protects the API. Password is either plaintext or an
// argon2id hash produced by `calboard hash-password`.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose wall clock decides "today". Empty
	// means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ErrorClearDelay is how long a validation message stays visible.
	ErrorClearDelay time.Duration `yaml:"error_clear_delay" json:"error_clear_delay"`

	// SaveDelay models the latency of committing an event from the dialog.
	SaveDelay time.Duration `yaml:"save_delay" json:"save_delay"`

	// TodayCron re-anchors the board on the current month. Empty disables.
	TodayCron string `yaml:"today_cron" json:"today_cron"`

	Categories      []CategoryConfig `yaml:"categories" json:"categories"`
	DefaultCategory string           `yaml:"default_category" json:"default_category"`

	Import   []ImportConfig `yaml:"import" json:"import"`
	CacheDir string         `yaml:"cache_dir" json:"cache_dir"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

func defaultCategoryConfigs() []CategoryConfig {
	defaults := model.DefaultCategories()
	out := make([]CategoryConfig, 0, len(defaults))
	for _, c := range defaults {
		out = append(out, CategoryConfig{Name: c.Name, Color: c.Color})
	}
	return out
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		LogLevel:        "info",
		ErrorClearDelay: DefaultErrorClearDelay,
		SaveDelay:       DefaultSaveDelay,
		TodayCron:       DefaultTodayCron,
		Categories:      defaultCategoryConfigs(),
		DefaultCategory: DefaultCategoryID,
		Import:          []ImportConfig{},
		CacheDir:        DefaultCacheDir,
	}
}

// Normalize fills in missing values so partially written files behave
// like the defaults. TodayCron is left alone: empty is a valid choice.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ErrorClearDelay <= 0 {
		c.ErrorClearDelay = DefaultErrorClearDelay
	}
	if c.SaveDelay <= 0 {
		c.SaveDelay = DefaultSaveDelay
	}
	if len(c.Categories) == 0 {
		c.Categories = defaultCategoryConfigs()
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = DefaultCategoryID
	}
	if c.Import == nil {
		c.Import = []ImportConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
}

// Validate reports settings that cannot be normalized away.
func (c *Config) Validate() error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		id := model.CategoryID(cat.Name)
		if id == "" {
			return fmt.Errorf("categories[%d]: name is empty", i)
		}
		if seen[id] {
			return fmt.Errorf("categories[%d]: duplicate category %q", i, cat.Name)
		}
		seen[id] = true
	}
	for i, imp := range c.Import {
		if imp.URL == "" {
			return fmt.Errorf("import[%d]: url is empty", i)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SeedCategories converts the configured categories to model categories.
func (c *Config) SeedCategories() []model.Category {
	out := make([]model.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, model.Category{
			ID:    model.CategoryID(cat.Name),
			Name:  cat.Name,
			Color: cat.Color,
		})
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
