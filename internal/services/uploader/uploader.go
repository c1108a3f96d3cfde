// Package uploader publishes recovered creatives to the upload API and
// returns the URL of the registered replacement video.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adrescue/internal/config"
	"adrescue/internal/services"
)

// Uploader publishes a composed video under a channel credential.
type Uploader interface {
	Upload(ctx context.Context, req Request) (Result, error)
}

// Request describes a single upload.
type Request struct {
	FilePath         string
	Title            string
	CredentialHandle string
}

// Result reports the registered replacement video.
type Result struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// credential is the stored per-channel token file.
type credential struct {
	AccessToken string `json:"access_token"`
	ChannelID   string `json:"channel_id"`
}

// Client implements Uploader against the configured endpoint.
type Client struct {
	endpoint   string
	visibility string
	cfg        *config.Config
	client     HTTPDoer
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP backend (primarily for tests).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// New constructs an upload client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Uploader.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("uploader endpoint required")
	}
	client := &Client{
		endpoint:   endpoint,
		visibility: cfg.Uploader.Visibility,
		cfg:        cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Uploader.TimeoutSeconds) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Upload streams the file to the upload API as a multipart request.
func (c *Client) Upload(ctx context.Context, req Request) (Result, error) {
	cred, err := c.loadCredential(req.CredentialHandle)
	if err != nil {
		return Result{}, err
	}

	file, err := os.Open(req.FilePath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "open", req.FilePath, err)
	}
	defer file.Close()

	body, contentType, err := buildMultipart(file, req, c.visibility, cred.ChannelID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "encode", req.FilePath, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/videos", body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "request", req.FilePath, err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "post", req.FilePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "post", detail, nil)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "decode", req.FilePath, err)
	}
	if result.URL == "" {
		return Result{}, services.Wrap(services.ErrExternalService, "upload", "decode", "missing url in response", nil)
	}
	return result, nil
}

func (c *Client) loadCredential(handle string) (credential, error) {
	if strings.TrimSpace(handle) == "" {
		return credential{}, services.Wrap(services.ErrConfiguration, "upload", "credential", "empty credential handle", nil)
	}
	path := c.cfg.CredentialPath(handle)
	data, err := os.ReadFile(path)
	if err != nil {
		return credential{}, services.Wrap(services.ErrConfiguration, "upload", "credential", path, err)
	}
	var cred credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return credential{}, services.Wrap(services.ErrConfiguration, "upload", "credential", path, err)
	}
	if cred.AccessToken == "" {
		return credential{}, services.Wrap(services.ErrConfiguration, "upload", "credential", "missing access_token in "+path, nil)
	}
	return cred, nil
}

func buildMultipart(file *os.File, req Request, visibility, channelID string) (io.Reader, string, error) {
	// The composed files are a few megabytes at most, so buffering the whole
	// request keeps retries and content length simple.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":      req.Title,
		"visibility": visibility,
	}
	if channelID != "" {
		fields["channel_id"] = channelID
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("video", filepath.Base(req.FilePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
