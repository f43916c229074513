// Package config loads jobboard settings. Sources are applied in order, each
// overriding the previous: built-in defaults, an optional YAML file, a .env
// file, JOBBOARD_* environment variables, then command-line flags (applied by
// the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StoreKind selects the token storage backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreBolt     StoreKind = "bbolt"
	StorePostgres StoreKind = "postgres"
)

// DefaultEnvFile is read when present; a missing default file is not an error.
const DefaultEnvFile = ".env"

// Config holds every setting the CLI and gateway need.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	Store          StoreKind     `yaml:"store"`
	DataDir        string        `yaml:"data_dir"`
	PostgresDSN    string        `yaml:"postgres_dsn"`
	SealPassphrase string        `yaml:"seal_passphrase"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Listen         string        `yaml:"listen"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:         "http://localhost:5000",
		Store:          StoreBolt,
		DataDir:        defaultDataDir(),
		RefreshTimeout: 10 * time.Second,
		RequestTimeout: 30 * time.Second,
		Listen:         "127.0.0.1:8080",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "jobboard")
	}
	return ".jobboard"
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), the env file at envFile and the process environment. Flags are
// applied by the caller afterwards, followed by Validate.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !(envFile == DefaultEnvFile && errors.Is(err, fs.ErrNotExist)) {
				return cfg, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from JOBBOARD_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.APIURL = envString(getenv, "JOBBOARD_API_URL", c.APIURL)
	c.Store = StoreKind(envString(getenv, "JOBBOARD_STORE", string(c.Store)))
	c.DataDir = envString(getenv, "JOBBOARD_DATA_DIR", c.DataDir)
	c.PostgresDSN = envString(getenv, "JOBBOARD_POSTGRES_DSN", c.PostgresDSN)
	c.SealPassphrase = envString(getenv, "JOBBOARD_SEAL_PASSPHRASE", c.SealPassphrase)
	c.RefreshTimeout = envDuration(getenv, "JOBBOARD_REFRESH_TIMEOUT", c.RefreshTimeout)
	c.RequestTimeout = envDuration(getenv, "JOBBOARD_REQUEST_TIMEOUT", c.RequestTimeout)
	c.Listen = envString(getenv, "JOBBOARD_LISTEN", c.Listen)
	c.LogLevel = envString(getenv, "JOBBOARD_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envString(getenv, "JOBBOARD_LOG_FORMAT", c.LogFormat)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http or https URL, got %q", c.APIURL)
	}
	switch c.Store {
	case StoreMemory:
	case StoreBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("data_dir is required for the bbolt store")
		}
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres_dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, bbolt or postgres)", c.Store)
	}
	if c.RefreshTimeout <= 0 {
		return errors.New("refresh_timeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// BoltPath is the session database location under DataDir.
func (c Config) BoltPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// Namespace is the storage namespace for the configured backend: its origin,
// so sessions for different backends never collide.
func (c Config) Namespace() string {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" {
		return c.APIURL
	}
	return u.Scheme + "://" + u.Host
}
