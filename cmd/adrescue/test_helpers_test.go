package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"adrescue/internal/config"
	"adrescue/internal/queue"
	"adrescue/internal/testsupport"
)

type cliEnv struct {
	configPath string
	cfg        *config.Config
	store      *queue.Store
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	contents := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q
credentials_dir = %q
catalog_root = %q

[feed]
export_path = %q

[channels]
NB = "token_NB"

[uploader]
endpoint = "http://127.0.0.1:9"
`,
		filepath.Join(base, "work"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "credentials"),
		filepath.Join(base, "catalog"),
		filepath.Join(base, "status.csv"),
	)
	testsupport.WriteFile(t, configPath, contents)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	return &cliEnv{configPath: configPath, cfg: cfg, store: store}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output missing %q:\n%s", want, output)
	}
}
