package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketcast/internal/caption"
	"marketcast/internal/config"
)

const (
	containerPollInterval = 5 * time.Second
	containerPollAttempts = 24
)

// instagramAdapter publishes through the Graph API two-step flow: create a
// media container, wait for it to finish processing, then publish it.
// Container creation and publish are distinct error points; the artifact must
// be reachable at a public URL, which the hosting resolver supplies.
type instagramAdapter struct {
	cfg      *config.Config
	resolver URLResolver
	client   *http.Client
	sleep    func(time.Duration)
}

func newInstagramAdapter(cfg *config.Config, resolver URLResolver) *instagramAdapter {
	return &instagramAdapter{
		cfg:      cfg,
		resolver: resolver,
		client:   &http.Client{Timeout: 60 * time.Second},
		sleep:    time.Sleep,
	}
}

func (i *instagramAdapter) Name() string { return "instagram" }

func (i *instagramAdapter) Configured() bool { return i.cfg.InstagramConfigured() }

func (i *instagramAdapter) Publish(ctx context.Context, artifactPath string, content Content) (string, error) {
	publicURL := i.resolver.UploadToTempHost(ctx, artifactPath)
	if publicURL == "" {
		return "", fmt.Errorf("no public url for artifact %s", artifactPath)
	}

	containerID, err := i.createContainer(ctx, publicURL, content)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}

	if content.Kind == KindVideo {
		if err := i.awaitContainer(ctx, containerID); err != nil {
			return "", fmt.Errorf("container processing: %w", err)
		}
	}

	postID, err := i.publishContainer(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("publish container: %w", err)
	}
	return postID, nil
}

func (i *instagramAdapter) createContainer(ctx context.Context, publicURL string, content Content) (string, error) {
	creds := i.cfg.Platforms.Instagram
	params := url.Values{}
	params.Set("access_token", creds.AccessToken)
	params.Set("caption", caption.TruncateWithEllipsis(content.Caption, caption.InstagramLimit))
	if content.Kind == KindVideo {
		params.Set("media_type", "REELS")
		params.Set("video_url", publicURL)
	} else {
		params.Set("image_url", publicURL)
	}

	endpoint := fmt.Sprintf("%s/%s/media", i.graphBase(), creds.BusinessID)
	var parsed struct {
		ID string `json:"id"`
	}
	if err := i.postForm(ctx, endpoint, params, &parsed); err != nil {
		return "", err
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("no container id in response")
	}
	return parsed.ID, nil
}

// awaitContainer polls the container status until the video finishes
// processing.
func (i *instagramAdapter) awaitContainer(ctx context.Context, containerID string) error {
	creds := i.cfg.Platforms.Instagram
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		i.graphBase(), containerID, url.QueryEscape(creds.AccessToken))

	for attempt := 0; attempt < containerPollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		resp, err := i.client.Do(req)
		if err != nil {
			return fmt.Errorf("status check: %w", err)
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("read status: %w", readErr)
		}

		var parsed struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		switch parsed.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("container entered state %s", parsed.StatusCode)
		}
		i.sleep(containerPollInterval)
	}
	return fmt.Errorf("container not ready after %d checks", containerPollAttempts)
}

func (i *instagramAdapter) publishContainer(ctx context.Context, containerID string) (string, error) {
	creds := i.cfg.Platforms.Instagram
	params := url.Values{}
	params.Set("access_token", creds.AccessToken)
	params.Set("creation_id", containerID)

	endpoint := fmt.Sprintf("%s/%s/media_publish", i.graphBase(), creds.BusinessID)
	var parsed struct {
		ID string `json:"id"`
	}
	if err := i.postForm(ctx, endpoint, params, &parsed); err != nil {
		return "", err
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("no post id in response")
	}
	return parsed.ID, nil
}

func (i *instagramAdapter) postForm(ctx context.Context, endpoint string, params url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (i *instagramAdapter) graphBase() string {
	return strings.TrimRight(i.cfg.Platforms.GraphAPIBaseURL, "/")
}
