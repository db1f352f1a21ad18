package publish

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

	"github.com/dghubble/oauth1"

	"marketcast/internal/caption"
	"marketcast/internal/config"
)

// twitterAdapter posts via the OAuth1-signed v1.1 media upload and v2 tweet
// endpoints. Captions are truncated to the hard post limit with an ellipsis.
type twitterAdapter struct {
	cfg        *config.Config
	httpClient *http.Client
}

func newTwitterAdapter(cfg *config.Config) *twitterAdapter {
	return &twitterAdapter{cfg: cfg}
}

func (t *twitterAdapter) Name() string { return "twitter" }

func (t *twitterAdapter) Configured() bool { return t.cfg.TwitterConfigured() }

func (t *twitterAdapter) client(ctx context.Context) *http.Client {
	if t.httpClient != nil {
		return t.httpClient
	}
	creds := t.cfg.Platforms.Twitter
	oauthCfg := oauth1.NewConfig(creds.AppKey, creds.AppSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := oauthCfg.Client(ctx, token)
	client.Timeout = 60 * time.Second
	return client
}

func (t *twitterAdapter) Publish(ctx context.Context, artifactPath string, content Content) (string, error) {
	client := t.client(ctx)

	var mediaID string
	if artifactPath != "" {
		id, err := t.uploadMedia(ctx, client, artifactPath)
		if err != nil {
			return "", fmt.Errorf("media upload: %w", err)
		}
		mediaID = id
	}

	text := caption.TruncateWithEllipsis(content.Caption, caption.TwitterLimit)
	return t.createPost(ctx, client, text, mediaID)
}

// uploadMedia performs a simple (non-chunked) upload and returns the media
// id string.
func (t *twitterAdapter) uploadMedia(ctx context.Context, client *http.Client, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish form: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.Platforms.TwitterUploadBaseURL, "/") + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.MediaIDString == "" {
		return "", fmt.Errorf("no media id in response")
	}
	return parsed.MediaIDString, nil
}

func (t *twitterAdapter) createPost(ctx context.Context, client *http.Client, text, mediaID string) (string, error) {
	payload := map[string]any{"text": text}
	if mediaID != "" {
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode tweet: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.Platforms.TwitterAPIBaseURL, "/") + "/2/tweets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Data.ID == "" {
		return "", fmt.Errorf("no post id in response")
	}
	return parsed.Data.ID, nil
}
