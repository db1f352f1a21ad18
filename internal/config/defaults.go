package config

const (
	defaultOutputDir      = "~/.local/share/marketcast/output"
	defaultLogDir         = "~/.local/share/marketcast/logs"
	defaultDataDir        = "~/.local/share/marketcast/data"
	defaultSiteBaseURL    = "https://whalepulse.io"
	defaultSiteHandle     = "@WhalePulse"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultChromeTimeout  = 60
	defaultYtDlpBinary    = "yt-dlp"
	defaultMaxResults     = 3
	defaultMaxDuration    = 180
	defaultAcquireTimeout = 300
	defaultTermDelay      = 5
	defaultFFmpegBinary   = "ffmpeg"
	defaultFFprobeBinary  = "ffprobe"
	defaultWatermarkSide  = "right"
	defaultBrandTimeout   = 600
	defaultCaptionTone    = "promotional"
	// API root only; the client appends /chat/completions.
	defaultCaptionBaseURL = "https://openrouter.ai/api/v1"
	defaultCaptionModel   = "anthropic/claude-3.5-haiku"
	defaultCaptionTimeout = 30
	defaultPresignExpiry  = 60
	defaultFallbackUpload = "https://tmpfiles.org/api/v1/upload"
	defaultHostingTimeout = 120
	defaultGraphAPIBase   = "https://graph.facebook.com/v21.0"
	defaultTwitterAPIBase = "https://api.twitter.com"
	defaultTwitterUpload  = "https://upload.twitter.com"

	defaultDailyBriefCron = "0 13 * * *"
	defaultWhaleAlertCron = ""
	defaultSpotlightCron  = "0 17 * * *"
	defaultRecapCron      = "0 16 * * 0"
	defaultVideoBatchCron = "30 14 * * 2,5"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			DataDir:   defaultDataDir,
		},
		Site: Site{
			BaseURL: defaultSiteBaseURL,
			Handle:  defaultSiteHandle,
		},
		Schedules: Schedules{
			DailyBrief:     defaultDailyBriefCron,
			WhaleAlert:     defaultWhaleAlertCron,
			TokenSpotlight: defaultSpotlightCron,
			WeeklyRecap:    defaultRecapCron,
			VideoBatch:     defaultVideoBatchCron,
		},
		Render: Render{
			TimeoutSeconds: defaultChromeTimeout,
		},
		Acquire: Acquire{
			YtDlpBinary:        defaultYtDlpBinary,
			MaxResults:         defaultMaxResults,
			MaxDurationSeconds: defaultMaxDuration,
			TimeoutSeconds:     defaultAcquireTimeout,
			SearchTerms:        []string{"crypto whale alert", "bitcoin analysis shorts"},
			TermDelaySeconds:   defaultTermDelay,
		},
		Brand: Brand{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			WatermarkText:  defaultSiteHandle,
			WatermarkSide:  defaultWatermarkSide,
			CTAText:        "Track every whale move → whalepulse.io",
			TimeoutSeconds: defaultBrandTimeout,
		},
		Caption: Caption{
			Tone:           defaultCaptionTone,
			BaseURL:        defaultCaptionBaseURL,
			Model:          defaultCaptionModel,
			TimeoutSeconds: defaultCaptionTimeout,
		},
		Hosting: Hosting{
			PresignExpiryMinutes: defaultPresignExpiry,
			FallbackUploadURL:    defaultFallbackUpload,
			TimeoutSeconds:       defaultHostingTimeout,
		},
		Platforms: Platforms{
			Enabled:              []string{"twitter", "instagram"},
			GraphAPIBaseURL:      defaultGraphAPIBase,
			TwitterAPIBaseURL:    defaultTwitterAPIBase,
			TwitterUploadBaseURL: defaultTwitterUpload,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
