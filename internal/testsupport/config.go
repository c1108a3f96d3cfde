// Package testsupport provides helpers shared by package tests: temp-backed
// configurations and queue stores with cleanup registered.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"adrescue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CredentialsDir = filepath.Join(base, "credentials")
	cfgVal.Paths.CatalogRoot = filepath.Join(base, "catalog")
	cfgVal.Feed.ExportPath = filepath.Join(base, "status.csv")
	cfgVal.Channels = map[string]string{"NB": "token_NB"}
	cfgVal.Uploader.Endpoint = "http://127.0.0.1:0"
	cfgVal.Workflow.ItemDelaySeconds = 0

	if err := os.MkdirAll(cfgVal.Paths.CatalogRoot, 0o755); err != nil {
		t.Fatalf("mkdir catalog root: %v", err)
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithChannels replaces the channel bindings on the test config.
func WithChannels(channels map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Channels = channels
	}
}

// WithCatalogFolders sets per-project folder overrides on the test config.
func WithCatalogFolders(folders map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Folders = folders
	}
}

// WithUploaderEndpoint points the test config at the provided upload API.
func WithUploaderEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Uploader.Endpoint = endpoint
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
