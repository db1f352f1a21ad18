package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var validTones = map[string]struct{}{
	"promotional":  {},
	"professional": {},
	"casual":       {},
}

var validPlatforms = map[string]struct{}{
	"twitter":   {},
	"instagram": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSite(); err != nil {
		return err
	}
	if err := c.validateSchedules(); err != nil {
		return err
	}
	if err := c.validateBrand(); err != nil {
		return err
	}
	if err := c.validateCaption(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSite() error {
	if c.Site.BaseURL == "" {
		return errors.New("site.base_url must be set")
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		return fmt.Errorf("site.base_url must be an http(s) URL, got %q", c.Site.BaseURL)
	}
	return nil
}

func (c *Config) validateSchedules() error {
	entries := map[string]string{
		"schedules.daily_brief":     c.Schedules.DailyBrief,
		"schedules.whale_alert":     c.Schedules.WhaleAlert,
		"schedules.token_spotlight": c.Schedules.TokenSpotlight,
		"schedules.weekly_recap":    c.Schedules.WeeklyRecap,
		"schedules.video_batch":     c.Schedules.VideoBatch,
	}
	for key, expr := range entries {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if _, err := cronParser.Parse(expr); err != nil {
			return fmt.Errorf("%s: invalid cron expression %q: %w", key, expr, err)
		}
	}
	return nil
}

func (c *Config) validateBrand() error {
	switch c.Brand.WatermarkSide {
	case "left", "right":
	default:
		return fmt.Errorf("brand.watermark_side must be \"left\" or \"right\", got %q", c.Brand.WatermarkSide)
	}
	if strings.TrimSpace(c.Brand.WatermarkText) == "" {
		return errors.New("brand.watermark_text must be set")
	}
	// Bumpers are all-or-nothing; a lone intro or outro is a config mistake.
	hasIntro := strings.TrimSpace(c.Brand.IntroPath) != ""
	hasOutro := strings.TrimSpace(c.Brand.OutroPath) != ""
	if hasIntro != hasOutro {
		return errors.New("brand.intro_path and brand.outro_path must be set together")
	}
	return nil
}

func (c *Config) validateCaption() error {
	if _, ok := validTones[c.Caption.Tone]; !ok {
		return fmt.Errorf("caption.tone must be one of promotional, professional, casual; got %q", c.Caption.Tone)
	}
	return nil
}

func (c *Config) validatePlatforms() error {
	for _, name := range c.Platforms.Enabled {
		if _, ok := validPlatforms[name]; !ok {
			return fmt.Errorf("platforms.enabled: unknown platform %q", name)
		}
	}
	return nil
}
