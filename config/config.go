package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nourish/models"
)

// Base URLs per build environment.
var baseURLs = map[string]string{
	"development": "http://localhost:5001/api",
	"production":  "https://nourish-muv1.onrender.com/api",
}

// Config is the client configuration. Values come from an optional YAML
// file, then a .env file, then the process environment; later sources win.
type Config struct {
	Env            string        `yaml:"env"`
	APIURL         string        `yaml:"api_url"`
	SessionDB      string        `yaml:"session_db"`
	Timeout        time.Duration `yaml:"timeout"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
	SearchMinChars int           `yaml:"search_min_chars"`
	LiveUpdates    bool          `yaml:"live_updates"`

	// Dev server only.
	DevAddr   string `yaml:"dev_addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns the development configuration.
func Default() *Config {
	return &Config{
		Env:            "development",
		SessionDB:      defaultSessionDB(),
		SearchDebounce: 300 * time.Millisecond,
		SearchMinChars: 2,
		DevAddr:        ":5001",
	}
}

func defaultSessionDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "nourish-session.db"
	}
	return filepath.Join(dir, "nourish", "session.db")
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NOURISH_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("NOURISH_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("NOURISH_SESSION_DB"); v != "" {
		c.SessionDB = v
	}
	if v := os.Getenv("NOURISH_LIVE_UPDATES"); v != "" {
		c.LiveUpdates = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("NOURISH_DEV_ADDR"); v != "" {
		c.DevAddr = v
	}
	if v := os.Getenv("NOURISH_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	for name, dst := range map[string]*time.Duration{
		"NOURISH_TIMEOUT":         &c.Timeout,
		"NOURISH_SEARCH_DEBOUNCE": &c.SearchDebounce,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		u, ok := baseURLs[c.Env]
		if !ok {
			return fmt.Errorf("config: unknown env %q and no api_url set", c.Env)
		}
		c.APIURL = u
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.SearchMinChars <= 0 {
		c.SearchMinChars = 2
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = 300 * time.Millisecond
	}
	return nil
}

// OpenDB opens the session database and migrates the token table.
func OpenDB(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("config: create session dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("config: open session db: %w", err)
	}
	if err := db.AutoMigrate(&models.TokenRecord{}); err != nil {
		return nil, fmt.Errorf("config: migrate session db: %w", err)
	}
	return db, nil
}
