package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marketcast/internal/config"
)

// anonymousProvider posts the file to a public no-account upload host. It is
// the last resort before giving up on a public URL.
type anonymousProvider struct {
	uploadURL string
	client    *http.Client
}

func newAnonymousProvider(cfg *config.Config) *anonymousProvider {
	timeout := time.Duration(cfg.Hosting.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &anonymousProvider{
		uploadURL: strings.TrimSpace(cfg.Hosting.FallbackUploadURL),
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *anonymousProvider) Name() string { return "anonymous" }

func (p *anonymousProvider) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Status string `json:"status"`
		Data   struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	url := strings.TrimSpace(parsed.Data.URL)
	if url == "" {
		return "", fmt.Errorf("upload succeeded but no url in response")
	}
	return directURL(url), nil
}

// directURL rewrites the host's landing-page URL into the direct-download
// form the platform APIs can fetch.
func directURL(url string) string {
	if strings.Contains(url, "tmpfiles.org/") && !strings.Contains(url, "/dl/") {
		return strings.Replace(url, "tmpfiles.org/", "tmpfiles.org/dl/", 1)
	}
	return url
}
