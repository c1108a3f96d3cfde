// Package composer rebuilds a policy-compliant creative from a source video.
// The source is centered over a generated background, scaled down, and
// stamped with a disclaimer, using ffmpeg as the composition engine.
package composer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"adrescue/internal/config"
	"adrescue/internal/services"
)

// Info describes a probed source video.
type Info struct {
	Width    int
	Height   int
	Duration float64
	Vertical bool
}

// Composer produces a recovered creative file from a source video.
type Composer interface {
	Compose(ctx context.Context, sourcePath, destDir string) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg and ffprobe invocations.
type Client struct {
	binary     string
	timeout    time.Duration
	mainScale  float64
	disclaimer string
	duration   int
	style      string
	exec       Executor
}

// New constructs a composition client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Composer.Binary)
	if binary == "" {
		return nil, errors.New("composer binary required")
	}
	client := &Client{
		binary:     binary,
		timeout:    time.Duration(cfg.Composer.TimeoutSeconds) * time.Second,
		mainScale:  cfg.Composer.MainScale,
		disclaimer: cfg.Composer.DisclaimerText,
		duration:   cfg.Composer.DurationSeconds,
		style:      cfg.Composer.Style,
		exec:       commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Canvas dimensions follow the source orientation.
const (
	landscapeWidth  = 1920
	landscapeHeight = 1080
)

var styleColors = map[string]string{
	"auto": "0x1a2a4a",
	"warm": "0x4a2a1a",
	"cool": "0x1a3a4a",
	"mono": "0x2a2a2a",
}

// Probe inspects the source video's dimensions and duration.
func (c *Client) Probe(ctx context.Context, sourcePath string) (Info, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		sourcePath,
	}

	var output strings.Builder
	if err := c.exec.Run(ctx, c.probeBinary(), args, func(line string) {
		output.WriteString(line)
		output.WriteByte('\n')
	}); err != nil {
		return Info{}, services.Wrap(services.ErrExternalService, "compose", "probe", sourcePath, err)
	}

	var parsed struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(output.String()), &parsed); err != nil {
		return Info{}, services.Wrap(services.ErrExternalService, "compose", "probe", "parse output", err)
	}
	if len(parsed.Streams) == 0 {
		return Info{}, services.Wrap(services.ErrExternalService, "compose", "probe", "no video stream", nil)
	}

	info := Info{
		Width:  parsed.Streams[0].Width,
		Height: parsed.Streams[0].Height,
	}
	info.Vertical = info.Height > info.Width
	if duration, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64); err == nil {
		info.Duration = duration
	}
	return info, nil
}

// Compose renders the recovered creative into destDir and returns its path.
func (c *Client) Compose(ctx context.Context, sourcePath, destDir string) (string, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return "", errors.New("source path required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	info, err := c.Probe(runCtx, sourcePath)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	destPath := filepath.Join(destDir, stem+"_recovered.mp4")

	args := c.composeArgs(sourcePath, destPath, info)
	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		return "", services.Wrap(services.ErrExternalService, "compose", "render", sourcePath, err)
	}

	if _, err := os.Stat(destPath); errors.Is(err, os.ErrNotExist) {
		return "", services.Wrap(services.ErrExternalService, "compose", "render", "no output file produced", nil)
	}
	return destPath, nil
}

func (c *Client) composeArgs(sourcePath, destPath string, info Info) []string {
	width, height := landscapeWidth, landscapeHeight
	fontSize := 32
	if info.Vertical {
		width, height = landscapeHeight, landscapeWidth
		fontSize = 28
	}

	targetWidth := int(float64(width) * c.mainScale)
	targetHeight := int(float64(height) * c.mainScale)

	duration := info.Duration
	if duration <= 0 {
		duration = float64(c.duration)
	}

	color, ok := styleColors[strings.ToLower(c.style)]
	if !ok {
		color = styleColors["auto"]
	}

	filters := []string{
		fmt.Sprintf("[1:v]scale=%d:%d:force_original_aspect_ratio=decrease[scaled]", targetWidth, targetHeight),
		"[0:v][scaled]overlay=(W-w)/2:(H-h)/2[composite]",
	}
	mapTarget := "[composite]"
	if c.disclaimer != "" {
		filters = append(filters, fmt.Sprintf(
			"[composite]drawtext=text='%s':fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=20:box=1:boxcolor=gray@0.7:boxborderw=15[v]",
			escapeDrawtext(c.disclaimer), fontSize,
		))
		mapTarget = "[v]"
	}

	return []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%s", color, width, height, formatSeconds(duration)),
		"-i", sourcePath,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", mapTarget,
		"-map", "1:a?",
		"-t", formatSeconds(duration),
		"-c:v", "libx264",
		"-preset", "faster",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-y",
		destPath,
	}
}

func (c *Client) probeBinary() string {
	dir, base := filepath.Split(c.binary)
	if strings.Contains(base, "ffmpeg") {
		return dir + strings.Replace(base, "ffmpeg", "ffprobe", 1)
	}
	return "ffprobe"
}

func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return replacer.Replace(text)
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var stderrTail strings.Builder

	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if stderrTail.Len() < 4096 {
				stderrTail.WriteString(line)
				stderrTail.WriteByte('\n')
			}
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if tail := strings.TrimSpace(stderrTail.String()); tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}
