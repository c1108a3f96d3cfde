package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir        string `toml:"work_dir"`
	LogDir         string `toml:"log_dir"`
	CredentialsDir string `toml:"credentials_dir"`
	CatalogRoot    string `toml:"catalog_root"`
}

// Feed contains configuration for the approval-status feed reader.
type Feed struct {
	ExportPath       string `toml:"export_path"`
	HeaderRows       int    `toml:"header_rows"`
	DisapprovedValue string `toml:"disapproved_value"`
}

// Catalog contains configuration for the source asset catalog.
type Catalog struct {
	// Folders overrides the per-project subdirectory name under catalog_root.
	Folders map[string]string `toml:"folders"`
}

// Composer contains configuration for background composition.
type Composer struct {
	Binary          string  `toml:"binary"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	MainScale       float64 `toml:"main_scale"`
	DisclaimerText  string  `toml:"disclaimer_text"`
	DurationSeconds int     `toml:"duration_seconds"`
	Style           string  `toml:"style"`
}

// Uploader contains configuration for the replacement upload service.
type Uploader struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Visibility     string `toml:"visibility"`
}

// Workflow contains batch timing and interval configuration.
type Workflow struct {
	ItemDelaySeconds     int `toml:"item_delay_seconds"`
	WatchIntervalSeconds int `toml:"watch_interval_seconds"`
	ErrorRetrySeconds    int `toml:"error_retry_seconds"`
	MinFreeDiskGiB       int `toml:"min_free_disk_gib"`
}

// Notifications contains ntfy push notification configuration.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains log output configuration.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for adrescue.
//
// Sections by subsystem:
//   - Paths: work/log/credentials directories and the catalog root
//   - Feed: approval-status export location and filter values
//   - Catalog: per-project folder overrides
//   - Channels: project tag to credential-handle bindings
//   - Composer: background composition subprocess settings
//   - Uploader: replacement upload endpoint settings
//   - Workflow: batch pacing and watch-mode intervals
//   - Notifications: ntfy settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths             `toml:"paths"`
	Feed          Feed              `toml:"feed"`
	Catalog       Catalog           `toml:"catalog"`
	Channels      map[string]string `toml:"channels"`
	Composer      Composer          `toml:"composer"`
	Uploader      Uploader          `toml:"uploader"`
	Workflow      Workflow          `toml:"workflow"`
	Notifications Notifications     `toml:"notifications"`
	Logging       Logging           `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/adrescue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("adrescue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for a run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CredentialPath returns the on-disk location for a credential handle.
func (c *Config) CredentialPath(handle string) string {
	return filepath.Join(c.Paths.CredentialsDir, handle+".json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
