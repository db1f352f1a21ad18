package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"marketcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "output", "images")
	cfgVal.Paths.RawDir = filepath.Join(base, "output", "videos", "raw")
	cfgVal.Paths.BrandedDir = filepath.Join(base, "output", "videos", "branded")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTone sets the caption tone on the test config.
func WithTone(tone string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Caption.Tone = tone
	}
}

// WithSearchTerms overrides the video batch search terms.
func WithSearchTerms(terms ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Acquire.SearchTerms = terms
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// points the config's tool paths at them. If names is empty, the default
// external binaries are stubbed. Each stub exits 0 and ignores its input.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "yt-dlp":
				b.cfg.Acquire.YtDlpBinary = target
			case "ffmpeg":
				b.cfg.Brand.FFmpegBinary = target
			case "ffprobe":
				b.cfg.Brand.FFprobeBinary = target
			}
		}
	}
}

// WriteStubScript writes an executable shell script used to fake an external
// tool with specific behaviour and returns its path.
func WriteStubScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub script %s: %v", name, err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
