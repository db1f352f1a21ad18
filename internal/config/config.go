package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output directory configuration. Rendered images, raw
// downloads, and branded videos live in separate trees so concurrent jobs
// never contend for filenames.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	ImagesDir  string `toml:"images_dir"`
	RawDir     string `toml:"raw_videos_dir"`
	BrandedDir string `toml:"branded_videos_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
}

// Site contains the public site the content promotes and the market-data API
// root the aggregator reads from.
type Site struct {
	BaseURL string `toml:"base_url"`
	Handle  string `toml:"handle"`
}

// Schedules contains the cron expression per job type. An empty expression
// disables that job in the daemon.
type Schedules struct {
	DailyBrief     string `toml:"daily_brief"`
	WhaleAlert     string `toml:"whale_alert"`
	TokenSpotlight string `toml:"token_spotlight"`
	WeeklyRecap    string `toml:"weekly_recap"`
	VideoBatch     string `toml:"video_batch"`
}

// Render contains template rendering settings.
type Render struct {
	ChromeBinary   string `toml:"chrome_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Acquire contains video acquisition settings.
type Acquire struct {
	YtDlpBinary        string   `toml:"ytdlp_binary"`
	MaxResults         int      `toml:"max_results"`
	MaxDurationSeconds int      `toml:"max_duration_seconds"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	SearchTerms        []string `toml:"search_terms"`
	TermDelaySeconds   int      `toml:"term_delay_seconds"`
}

// Brand contains watermark, call-to-action, and bumper settings.
type Brand struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	WatermarkText  string `toml:"watermark_text"`
	WatermarkSide  string `toml:"watermark_side"`
	CTAText        string `toml:"cta_text"`
	IntroPath      string `toml:"intro_path"`
	OutroPath      string `toml:"outro_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Caption contains caption generation settings. The API key arrives via the
// LLM_API_KEY environment variable, never the TOML file.
type Caption struct {
	Tone           string `toml:"tone"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	APIKey         string `toml:"-"`
}

// Hosting contains the hosting resolver chain settings. S3 credentials arrive
// via environment variables.
type Hosting struct {
	S3Bucket             string `toml:"s3_bucket"`
	S3Region             string `toml:"s3_region"`
	S3Endpoint           string `toml:"s3_endpoint"`
	S3Prefix             string `toml:"s3_prefix"`
	PresignExpiryMinutes int    `toml:"presign_expiry_minutes"`
	FallbackUploadURL    string `toml:"fallback_upload_url"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	S3AccessKey          string `toml:"-"`
	S3SecretKey          string `toml:"-"`
}

// Twitter holds micro-blogging credentials, populated from the environment.
type Twitter struct {
	AppKey       string `toml:"-"`
	AppSecret    string `toml:"-"`
	AccessToken  string `toml:"-"`
	AccessSecret string `toml:"-"`
}

// Instagram holds photo/video platform credentials, populated from the
// environment.
type Instagram struct {
	AccessToken string `toml:"-"`
	BusinessID  string `toml:"-"`
}

// Platforms contains publisher settings. Credentials never live in TOML; the
// enabled list only controls which adapters the publisher consults.
type Platforms struct {
	Enabled              []string  `toml:"enabled"`
	GraphAPIBaseURL      string    `toml:"graph_api_base_url"`
	TwitterAPIBaseURL    string    `toml:"twitter_api_base_url"`
	TwitterUploadBaseURL string    `toml:"twitter_upload_base_url"`
	Twitter              Twitter   `toml:"-"`
	Instagram            Instagram `toml:"-"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for marketcast.
//
// Sections by subsystem:
//   - Paths: output/log/data directories
//   - Site: promoted site URL and social handle
//   - Schedules: cron expression per job type
//   - Render: headless browser rendering
//   - Acquire: yt-dlp search/download limits and batch terms
//   - Brand: watermark, CTA, bumpers, ffmpeg
//   - Caption: LLM connection and tone
//   - Hosting: S3 primary store and anonymous fallback host
//   - Platforms: publisher adapters
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Site      Site      `toml:"site"`
	Schedules Schedules `toml:"schedules"`
	Render    Render    `toml:"render"`
	Acquire   Acquire   `toml:"acquire"`
	Brand     Brand     `toml:"brand"`
	Caption   Caption   `toml:"caption"`
	Hosting   Hosting   `toml:"hosting"`
	Platforms Platforms `toml:"platforms"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/marketcast/config.toml")
}

// Load locates, parses, and validates a configuration file, then overlays
// credentials from the environment. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("marketcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory tree, log dir, and data dir.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.ImagesDir,
		c.Paths.RawDir,
		c.Paths.BrandedDir,
		c.Paths.LogDir,
		c.Paths.DataDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
