package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultCaptionBaseURLIsAPIRoot(t *testing.T) {
	// The caption client appends /chat/completions itself; a default that
	// already carries the path would double it on every request.
	cfg := Default()
	if strings.HasSuffix(cfg.Caption.BaseURL, "/chat/completions") {
		t.Fatalf("caption base URL %q must not end in /chat/completions", cfg.Caption.BaseURL)
	}
	if strings.HasSuffix(cfg.Caption.BaseURL, "/") {
		t.Fatalf("caption base URL %q must not carry a trailing slash", cfg.Caption.BaseURL)
	}
}

func TestNormalizeDerivesOutputTree(t *testing.T) {
	cfg := Default()
	cfg.Paths.OutputDir = "~/content"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}
	want := filepath.Join(home, "content", "images")
	if cfg.Paths.ImagesDir != want {
		t.Fatalf("images dir = %q, want %q", cfg.Paths.ImagesDir, want)
	}
	if !strings.HasSuffix(cfg.Paths.BrandedDir, filepath.Join("videos", "branded")) {
		t.Fatalf("branded dir = %q", cfg.Paths.BrandedDir)
	}
}

func TestValidateRejectsBadCron(t *testing.T) {
	cfg := Default()
	cfg.Schedules.DailyBrief = "not a cron line"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid cron expression to fail validation")
	}
}

func TestValidateRejectsLoneBumper(t *testing.T) {
	cfg := Default()
	cfg.Brand.IntroPath = "/tmp/intro.mp4"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected lone intro bumper to fail validation")
	}
}

func TestValidateRejectsUnknownTone(t *testing.T) {
	cfg := Default()
	cfg.Caption.Tone = "sarcastic"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown tone to fail validation")
	}
}

func TestApplyEnvOverlaysCredentials(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvTwitterAppKey:        "k",
		EnvTwitterAppSecret:     "s",
		EnvTwitterAccessToken:   "t",
		EnvTwitterAccessSecret:  "ts",
		EnvInstagramAccessToken: "ig",
		EnvInstagramBusinessID:  "123",
		EnvLLMAPIKey:            "llm",
		EnvS3Bucket:             "bucket",
		EnvS3AccessKey:          "ak",
		EnvS3SecretKey:          "sk",
	}
	cfg.ApplyEnv(func(key string) string { return env[key] })

	if !cfg.TwitterConfigured() {
		t.Fatal("twitter should be configured")
	}
	if !cfg.InstagramConfigured() {
		t.Fatal("instagram should be configured")
	}
	if !cfg.S3Configured() {
		t.Fatal("s3 should be configured")
	}
	if cfg.Caption.APIKey != "llm" {
		t.Fatalf("caption api key = %q", cfg.Caption.APIKey)
	}
}

func TestApplyEnvPartialTwitterNotConfigured(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(key string) string {
		if key == EnvTwitterAppKey {
			return "only-one"
		}
		return ""
	})
	if cfg.TwitterConfigured() {
		t.Fatal("partial credentials must not count as configured")
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
output_dir = "` + dir + `/out"

[site]
base_url = "https://example.test"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Site.BaseURL != "https://example.test" {
		t.Fatalf("base url = %q", cfg.Site.BaseURL)
	}
	if cfg.Paths.ImagesDir != filepath.Join(dir, "out", "images") {
		t.Fatalf("images dir = %q", cfg.Paths.ImagesDir)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
