// Package publish fans an artifact out to every enabled platform. Platforms
// are independent: a missing credential records SKIPPED_NOT_CONFIGURED, an
// adapter failure records FAILED with detail, and neither prevents the other
// platforms from being attempted.
package publish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marketcast/internal/config"
	"marketcast/internal/logging"
	"marketcast/internal/queue"
)

// ArtifactKind selects the platform media flow.
type ArtifactKind string

const (
	KindImage ArtifactKind = "image"
	KindVideo ArtifactKind = "video"
)

// Content carries the text and classification for one publish pass. Captions
// may vary per platform; Caption is the default when no platform-specific
// text exists.
type Content struct {
	ContentType string
	Caption     string
	Captions    map[string]string
	Kind        ArtifactKind
}

// captionFor resolves the caption for a platform.
func (c Content) captionFor(platform string) string {
	if text, ok := c.Captions[platform]; ok && text != "" {
		return text
	}
	return c.Caption
}

// Adapter is one platform integration.
type Adapter interface {
	Name() string
	Configured() bool
	Publish(ctx context.Context, artifactPath string, content Content) (postID string, err error)
}

// Publisher runs every enabled adapter against an artifact.
type Publisher struct {
	logger   *slog.Logger
	adapters []Adapter
}

// NewPublisher wires the adapters for the platforms enabled in configuration.
// The hosting resolver serves adapters that need a public URL.
func NewPublisher(cfg *config.Config, logger *slog.Logger, resolver URLResolver) *Publisher {
	log := logging.WithComponent(logger, "publish")
	var adapters []Adapter
	for _, name := range cfg.Platforms.Enabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "twitter":
			adapters = append(adapters, newTwitterAdapter(cfg))
		case "instagram":
			adapters = append(adapters, newInstagramAdapter(cfg, resolver))
		}
	}
	return &Publisher{logger: log, adapters: adapters}
}

// NewPublisherWithAdapters wires an explicit adapter list. Tests use this.
func NewPublisherWithAdapters(logger *slog.Logger, adapters ...Adapter) *Publisher {
	return &Publisher{
		logger:   logging.WithComponent(logger, "publish"),
		adapters: adapters,
	}
}

// URLResolver resolves a public URL for a local file, empty on failure.
type URLResolver interface {
	UploadToTempHost(ctx context.Context, path string) string
}

// PostToAll publishes the artifact on every adapter and returns the result
// per platform. It never returns an error; per-platform outcomes are the
// result.
func (p *Publisher) PostToAll(ctx context.Context, artifactPath string, content Content) map[string]queue.PublishResult {
	results := make(map[string]queue.PublishResult, len(p.adapters))
	for _, adapter := range p.adapters {
		name := adapter.Name()
		log := p.logger.With(
			slog.String("platform", name),
			slog.String("content_type", content.ContentType))

		if !adapter.Configured() {
			log.Info("platform not configured, skipping")
			results[name] = queue.PublishResult{
				Platform:  name,
				Status:    queue.PublishSkipped,
				CreatedAt: time.Now().UTC(),
			}
			continue
		}

		platformContent := content
		platformContent.Caption = content.captionFor(name)

		postID, err := adapter.Publish(ctx, artifactPath, platformContent)
		if err != nil {
			log.Error("publish failed", logging.Error(err))
			results[name] = queue.PublishResult{
				Platform:    name,
				Status:      queue.PublishFailed,
				ErrorDetail: err.Error(),
				CreatedAt:   time.Now().UTC(),
			}
			continue
		}

		log.Info("published", slog.String("post_id", postID))
		results[name] = queue.PublishResult{
			Platform:  name,
			PostID:    postID,
			Status:    queue.PublishOK,
			CreatedAt: time.Now().UTC(),
		}
	}
	return results
}
