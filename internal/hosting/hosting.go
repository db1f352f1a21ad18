// Package hosting resolves a public URL for a local artifact. Providers are
// tried in order, primary managed object store first, then an anonymous
// public host; when every provider fails the resolver returns no URL and
// callers treat that as a hard failure for the platform that needed it.
package hosting

import (
	"context"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"marketcast/internal/config"
	"marketcast/internal/logging"
)

// Provider uploads one file and returns a publicly fetchable URL.
type Provider interface {
	Name() string
	Upload(ctx context.Context, path string) (string, error)
}

// Resolver walks an ordered provider chain, short-circuiting on the first
// success.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver builds the chain from configuration: the object store when its
// credentials are present, then the anonymous host when an upload URL is
// configured.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	log := logging.WithComponent(logger, "hosting")
	var providers []Provider
	if cfg.S3Configured() {
		providers = append(providers, newS3Provider(cfg))
	}
	if strings.TrimSpace(cfg.Hosting.FallbackUploadURL) != "" {
		providers = append(providers, newAnonymousProvider(cfg))
	}
	return &Resolver{providers: providers, logger: log}
}

// NewResolverWithProviders wires an explicit chain. Tests use this.
func NewResolverWithProviders(logger *slog.Logger, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		logger:    logging.WithComponent(logger, "hosting"),
	}
}

// UploadToTempHost tries each provider in order and returns the first public
// URL obtained, or empty when every provider failed.
func (r *Resolver) UploadToTempHost(ctx context.Context, path string) string {
	if len(r.providers) == 0 {
		r.logger.Warn("no hosting providers configured", slog.String("path", path))
		return ""
	}
	for _, provider := range r.providers {
		start := time.Now()
		url, err := provider.Upload(ctx, path)
		if err != nil {
			r.logger.Warn("hosting provider failed",
				slog.String("provider", provider.Name()),
				slog.String("path", path),
				logging.Error(err))
			continue
		}
		r.logger.Info("artifact hosted",
			slog.String("provider", provider.Name()),
			slog.String("url", url),
			logging.Duration("elapsed", time.Since(start)))
		return url
	}
	r.logger.Error("all hosting providers failed", slog.String("path", path))
	return ""
}

// contentTypeFor guesses a MIME type from the file extension, defaulting to
// binary.
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
