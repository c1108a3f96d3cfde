package composer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adrescue/internal/services"
	"adrescue/internal/services/composer"
	"adrescue/internal/testsupport"
)

const probeJSON = `{"streams":[{"width":%WIDTH%,"height":%HEIGHT%}],"format":{"duration":"12.5"}}`

type fakeExecutor struct {
	probeOutput string
	runErr      error
	calls       [][]string
	createDest  bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	f.calls = append(f.calls, append([]string{binary}, args...))
	if strings.Contains(binary, "ffprobe") {
		if onStdout != nil {
			for _, line := range strings.Split(f.probeOutput, "\n") {
				onStdout(line)
			}
		}
		return nil
	}
	if f.runErr != nil {
		return f.runErr
	}
	if f.createDest {
		dest := args[len(args)-1]
		if err := os.WriteFile(dest, []byte("video"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func probeOutput(width, height string) string {
	out := strings.Replace(probeJSON, "%WIDTH%", width, 1)
	return strings.Replace(out, "%HEIGHT%", height, 1)
}

func newClient(t *testing.T, exec *fakeExecutor) *composer.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	client, err := composer.New(cfg, composer.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestProbeParsesDimensions(t *testing.T) {
	exec := &fakeExecutor{probeOutput: probeOutput("1080", "1920")}
	client := newClient(t, exec)

	info, err := client.Probe(context.Background(), "/videos/source.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Width != 1080 || info.Height != 1920 {
		t.Fatalf("dimensions = %dx%d", info.Width, info.Height)
	}
	if !info.Vertical {
		t.Fatal("1080x1920 should be vertical")
	}
	if info.Duration != 12.5 {
		t.Fatalf("duration = %f", info.Duration)
	}
}

func TestComposeBuildsFfmpegInvocation(t *testing.T) {
	exec := &fakeExecutor{probeOutput: probeOutput("1920", "1080"), createDest: true}
	client := newClient(t, exec)
	destDir := t.TempDir()

	path, err := client.Compose(context.Background(), "/videos/老後は考えるな.mp4", destDir)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if filepath.Base(path) != "老後は考えるな_recovered.mp4" {
		t.Fatalf("output name = %q", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("calls = %d, want probe + render", len(exec.calls))
	}
	render := strings.Join(exec.calls[1], " ")
	if !strings.Contains(render, "color=c=") || !strings.Contains(render, "s=1920x1080") {
		t.Fatalf("expected landscape background in %q", render)
	}
	if !strings.Contains(render, "scale=1536:864") {
		t.Fatalf("expected 80%% scaled main video in %q", render)
	}
	if !strings.Contains(render, "drawtext") {
		t.Fatalf("expected disclaimer drawtext in %q", render)
	}
	if !strings.Contains(render, "overlay=(W-w)/2:(H-h)/2") {
		t.Fatalf("expected centered overlay in %q", render)
	}
}

func TestComposeVerticalSwapsCanvas(t *testing.T) {
	exec := &fakeExecutor{probeOutput: probeOutput("1080", "1920"), createDest: true}
	client := newClient(t, exec)

	if _, err := client.Compose(context.Background(), "/videos/v.mp4", t.TempDir()); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	render := strings.Join(exec.calls[1], " ")
	if !strings.Contains(render, "s=1080x1920") {
		t.Fatalf("expected portrait background in %q", render)
	}
}

func TestComposeWrapsRenderFailure(t *testing.T) {
	exec := &fakeExecutor{probeOutput: probeOutput("1920", "1080"), runErr: errors.New("exit status 1")}
	client := newClient(t, exec)

	_, err := client.Compose(context.Background(), "/videos/v.mp4", t.TempDir())
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestComposeMissingOutputFails(t *testing.T) {
	exec := &fakeExecutor{probeOutput: probeOutput("1920", "1080")}
	client := newClient(t, exec)

	if _, err := client.Compose(context.Background(), "/videos/v.mp4", t.TempDir()); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error for missing output, got %v", err)
	}
}

func TestProbeRejectsStreamlessFile(t *testing.T) {
	exec := &fakeExecutor{probeOutput: `{"streams":[],"format":{"duration":"1"}}`}
	client := newClient(t, exec)

	if _, err := client.Probe(context.Background(), "/videos/v.mp4"); !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}
