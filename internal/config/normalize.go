package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.ImagesDir) == "" {
		c.Paths.ImagesDir = filepath.Join(c.Paths.OutputDir, "images")
	}
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		c.Paths.RawDir = filepath.Join(c.Paths.OutputDir, "videos", "raw")
	}
	if strings.TrimSpace(c.Paths.BrandedDir) == "" {
		c.Paths.BrandedDir = filepath.Join(c.Paths.OutputDir, "videos", "branded")
	}
	for _, field := range []*string{
		&c.Paths.ImagesDir,
		&c.Paths.RawDir,
		&c.Paths.BrandedDir,
		&c.Paths.LogDir,
		&c.Paths.DataDir,
		&c.Brand.IntroPath,
		&c.Brand.OutroPath,
	} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		if *field, err = expandPath(*field); err != nil {
			return err
		}
	}

	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Site.Handle = strings.TrimSpace(c.Site.Handle)
	c.Brand.WatermarkSide = strings.ToLower(strings.TrimSpace(c.Brand.WatermarkSide))
	if c.Brand.WatermarkSide == "" {
		c.Brand.WatermarkSide = defaultWatermarkSide
	}
	c.Caption.Tone = strings.ToLower(strings.TrimSpace(c.Caption.Tone))
	if c.Caption.Tone == "" {
		c.Caption.Tone = defaultCaptionTone
	}

	terms := c.Acquire.SearchTerms[:0]
	for _, term := range c.Acquire.SearchTerms {
		if trimmed := strings.TrimSpace(term); trimmed != "" {
			terms = append(terms, trimmed)
		}
	}
	c.Acquire.SearchTerms = terms

	enabled := c.Platforms.Enabled[:0]
	for _, name := range c.Platforms.Enabled {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			enabled = append(enabled, trimmed)
		}
	}
	c.Platforms.Enabled = enabled

	if c.Acquire.MaxResults <= 0 {
		c.Acquire.MaxResults = defaultMaxResults
	}
	if c.Acquire.MaxDurationSeconds <= 0 {
		c.Acquire.MaxDurationSeconds = defaultMaxDuration
	}
	if c.Acquire.TimeoutSeconds <= 0 {
		c.Acquire.TimeoutSeconds = defaultAcquireTimeout
	}
	if c.Acquire.TermDelaySeconds <= 0 {
		c.Acquire.TermDelaySeconds = defaultTermDelay
	}
	if c.Brand.TimeoutSeconds <= 0 {
		c.Brand.TimeoutSeconds = defaultBrandTimeout
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultChromeTimeout
	}
	if c.Caption.TimeoutSeconds <= 0 {
		c.Caption.TimeoutSeconds = defaultCaptionTimeout
	}
	if c.Hosting.TimeoutSeconds <= 0 {
		c.Hosting.TimeoutSeconds = defaultHostingTimeout
	}
	if c.Hosting.PresignExpiryMinutes <= 0 {
		c.Hosting.PresignExpiryMinutes = defaultPresignExpiry
	}

	return nil
}
