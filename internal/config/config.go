// Package config loads postdesk settings from defaults, a YAML file, a
// .env file and POSTDESK_* environment variables, later sources winning.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"

	envPrefix = "POSTDESK_"
)

type Config struct {
	DataDir        string        `yaml:"data_dir"`
	Backend        string        `yaml:"backend"`
	APIBaseURL     string        `yaml:"api_base_url"`
	APIToken       string        `yaml:"api_token"`
	UserID         string        `yaml:"user_id"`
	AuthorName     string        `yaml:"author_name"`
	AutosaveSpec   string        `yaml:"autosave"`
	RecoveryKeep   int           `yaml:"recovery_keep"`
	LogLevel       string        `yaml:"log_level"`
	Development    bool          `yaml:"development"`
	Editor         string        `yaml:"editor"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MCPAddr, when set, serves MCP over HTTP from the running app,
	// e.g. 127.0.0.1:7424.
	MCPAddr string `yaml:"mcp_addr"`
}

// Options points Load at its sources. Empty fields use the defaults:
// <user config dir>/postdesk/config.yaml and ./.env.
type Options struct {
	ConfigFile string
	EnvFile    string
	// Getenv replaces os.Getenv, mostly for tests.
	Getenv func(string) string
}

func Defaults() Config {
	dataDir := "postdesk-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".postdesk")
	}
	return Config{
		DataDir:        dataDir,
		Backend:        BackendLocal,
		UserID:         "local",
		AuthorName:     "Me",
		AutosaveSpec:   "@every 30s",
		RecoveryKeep:   20,
		LogLevel:       "info",
		Editor:         "nvim",
		RequestTimeout: 15 * time.Second,
	}
}

// DefaultConfigFile returns <user config dir>/postdesk/config.yaml.
func DefaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "postdesk", "config.yaml")
}

// Load merges the configured sources. Missing files are skipped.
func Load(opts Options) (Config, error) {
	cfg := Defaults()

	file := opts.ConfigFile
	if file == "" {
		file = DefaultConfigFile()
	}
	if file != "" {
		if err := loadYAML(file, &cfg); err != nil {
			return cfg, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: read %s: %w", envFile, err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(key string) string {
		if v := getenv(envPrefix + key); v != "" {
			return v
		}
		return dotenv[envPrefix+key]
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) string) error {
	str := func(key string, dst *string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	str("DATA_DIR", &cfg.DataDir)
	str("BACKEND", &cfg.Backend)
	str("API_BASE_URL", &cfg.APIBaseURL)
	str("API_TOKEN", &cfg.APIToken)
	str("USER_ID", &cfg.UserID)
	str("AUTHOR_NAME", &cfg.AuthorName)
	str("AUTOSAVE", &cfg.AutosaveSpec)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("EDITOR", &cfg.Editor)
	str("MCP_ADDR", &cfg.MCPAddr)

	if v := lookup("RECOVERY_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sRECOVERY_KEEP: %w", envPrefix, err)
		}
		cfg.RecoveryKeep = n
	}
	if v := lookup("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RequestTimeout = d
	}
	if v := lookup("DEVELOPMENT"); v != "" {
		cfg.Development = v == "true" || v == "1" || v == "yes"
	}
	return nil
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.APIBaseURL == "" {
			return errors.New("config: remote backend needs api_base_url")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("config: user_id is required")
	}
	if c.RecoveryKeep < 0 {
		return errors.New("config: recovery_keep must not be negative")
	}
	return nil
}

// DBPath is the SQLite file inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "postdesk.db")
}

// DraftsDir holds the files handed to the external editor.
func (c Config) DraftsDir() string {
	return filepath.Join(c.DataDir, "drafts")
}
