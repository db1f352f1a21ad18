package workflow

import (
	"log/slog"

	"marketcast/internal/acquire"
	"marketcast/internal/brand"
	"marketcast/internal/caption"
	"marketcast/internal/config"
	"marketcast/internal/hosting"
	"marketcast/internal/marketdata"
	"marketcast/internal/publish"
	"marketcast/internal/render"
)

// NewDefaultDeps wires the production stage implementations from
// configuration. Both binaries build their runner from this.
func NewDefaultDeps(cfg *config.Config, logger *slog.Logger) Deps {
	resolver := hosting.NewResolver(cfg, logger)
	return Deps{
		Data:      marketdata.NewAggregator(cfg.Site.BaseURL, logger),
		Renderer:  render.NewRenderer(cfg, logger),
		Acquirer:  acquire.NewAcquirer(cfg, logger),
		Brander:   brand.NewBrander(cfg, logger),
		Captions:  caption.NewGenerator(cfg, logger),
		Publisher: publish.NewPublisher(cfg, logger, resolver),
	}
}
