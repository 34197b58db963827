package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tgienger/strack/internal/db"
	"github.com/tgienger/strack/internal/reports"
)

// Config holds all strack configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"` // overrides data_dir when set
}

// ExportConfig controls where exports are written.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty: stderr for commands, nothing for the TUI
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Export: ExportConfig{
			Dir:      ".",
			Filename: reports.ExportFilename,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in order of increasing precedence: defaults, the
// YAML file at path (DefaultPath when empty; a missing file is fine), a .env
// file in the working directory, then STRACK_* environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.applyFile(path); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STRACK_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("STRACK_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("STRACK_EXPORT_DIR"); v != "" {
		c.Export.Dir = v
	}
	if v := os.Getenv("STRACK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STRACK_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q (want debug, info, warn or error)", c.Logging.Level)
	}
	if c.DBFile() == "" {
		return fmt.Errorf("missing storage.data_dir or storage.db_path")
	}
	return nil
}

// DBFile returns the database path.
func (c Config) DBFile() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	if c.Storage.DataDir == "" {
		return ""
	}
	return filepath.Join(c.Storage.DataDir, "strack.db")
}

// ExportFile returns the default export destination.
func (c Config) ExportFile() string {
	name := c.Export.Filename
	if name == "" {
		name = reports.ExportFilename
	}
	return filepath.Join(c.Export.Dir, name)
}

// DefaultPath returns $XDG_CONFIG_HOME/strack/config.yaml, falling back to
// ~/.config/strack/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "strack", "config.yaml")
}

func defaultDataDir() string {
	path, err := db.DefaultPath()
	if err != nil {
		return ""
	}
	return filepath.Dir(path)
}

// YAML renders c as it would appear in the config file.
func (c Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
