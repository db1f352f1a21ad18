package brand

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketcast/internal/logging"
	"marketcast/internal/services"
	"marketcast/internal/testsupport"
)

const probeJSON = `{"format":{"duration":"12.000000"}}`

// probeRunner answers ffprobe with the given JSON and records ffmpeg args.
func probeRunner(json string, ffmpegArgs *[]string) runFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if strings.Contains(name, "ffprobe") {
			return []byte(json), nil
		}
		if ffmpegArgs != nil {
			*ffmpegArgs = args
		}
		return nil, nil
	}
}

func TestCTAStart(t *testing.T) {
	cases := []struct {
		duration float64
		want     float64
	}{
		{12.0, 8.0},
		{180.0, 176.0},
		{4.0, 0.0},
		{3.2, 0.0},
		{0.5, 0.0},
	}
	for _, tc := range cases {
		if got := CTAStart(tc.duration); got != tc.want {
			t.Fatalf("CTAStart(%v) = %v, want %v", tc.duration, got, tc.want)
		}
	}
}

func TestProbeDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	b := NewBrander(cfg, logging.Nop(), WithRunner(probeRunner(probeJSON, nil)))

	d, err := b.ProbeDuration(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if d != 12.0 {
		t.Fatalf("duration = %v, want 12.0", d)
	}
}

func TestProbeDurationRejectsGarbage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	b := NewBrander(cfg, logging.Nop(), WithRunner(probeRunner(`{"format":{}}`, nil)))

	if _, err := b.ProbeDuration(context.Background(), "/videos/clip.mp4"); err == nil {
		t.Fatal("expected error for missing duration")
	}
}

func TestAddBrandingComputesCTAWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var ffmpegArgs []string
	b := NewBrander(cfg, logging.Nop(), WithRunner(probeRunner(probeJSON, &ffmpegArgs)))

	branded, err := b.AddBranding(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("brand: %v", err)
	}
	if branded.CTAStart != 8.0 {
		t.Fatalf("cta start = %v, want 8.0", branded.CTAStart)
	}
	if branded.Duration != 12.0 {
		t.Fatalf("duration = %v", branded.Duration)
	}

	joined := strings.Join(ffmpegArgs, " ")
	if !strings.Contains(joined, "gte(t,8.00)") {
		t.Fatalf("filter missing CTA activation: %s", joined)
	}
	if !strings.Contains(joined, "drawbox") {
		t.Fatalf("filter missing bottom stripe: %s", joined)
	}
	if !strings.Contains(joined, "@WhalePulse") {
		t.Fatalf("filter missing watermark: %s", joined)
	}
	// Without bumpers audio passes through unchanged.
	if !strings.Contains(joined, "-c:a copy") {
		t.Fatalf("audio should pass through without bumpers: %s", joined)
	}
	if strings.Contains(joined, "concat") {
		t.Fatalf("no concat expected without bumpers: %s", joined)
	}
}

func TestAddBrandingWithBumpersConcatenates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	intro := filepath.Join(base, "intro.mp4")
	outro := filepath.Join(base, "outro.mp4")
	for _, p := range []string{intro, outro} {
		if err := os.WriteFile(p, []byte("bumper"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg.Brand.IntroPath = intro
	cfg.Brand.OutroPath = outro

	var ffmpegArgs []string
	b := NewBrander(cfg, logging.Nop(), WithRunner(probeRunner(probeJSON, &ffmpegArgs)))

	if _, err := b.AddBranding(context.Background(), "/videos/clip.mp4"); err != nil {
		t.Fatalf("brand: %v", err)
	}

	joined := strings.Join(ffmpegArgs, " ")
	if !strings.Contains(joined, "concat=n=3:v=1:a=1") {
		t.Fatalf("expected three-way concat: %s", joined)
	}
	// Concatenation re-encodes to one consistent codec pair.
	if !strings.Contains(joined, "libx264") || !strings.Contains(joined, "aac") {
		t.Fatalf("expected re-encode for concat: %s", joined)
	}
}

func TestAddBrandingMissingBumperFallsBackToOverlay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Brand.IntroPath = filepath.Join(testsupport.BaseDir(cfg), "absent-intro.mp4")
	cfg.Brand.OutroPath = filepath.Join(testsupport.BaseDir(cfg), "absent-outro.mp4")

	var ffmpegArgs []string
	b := NewBrander(cfg, logging.Nop(), WithRunner(probeRunner(probeJSON, &ffmpegArgs)))

	if _, err := b.AddBranding(context.Background(), "/videos/clip.mp4"); err != nil {
		t.Fatalf("brand: %v", err)
	}
	if strings.Contains(strings.Join(ffmpegArgs, " "), "concat") {
		t.Fatal("concat must require both bumpers to exist")
	}
}

func TestAddBrandingTranscodeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	b := NewBrander(cfg, logging.Nop(), WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if strings.Contains(name, "ffprobe") {
			return []byte(probeJSON), nil
		}
		return nil, errors.New("malformed source")
	}))

	_, err := b.AddBranding(context.Background(), "/videos/broken.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool class", err)
	}
	if services.IsFatal(err) {
		t.Fatal("a per-candidate transcode failure must not be fatal")
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`Track: 100% whale moves`)
	if !strings.Contains(got, `\:`) || !strings.Contains(got, `\%`) {
		t.Fatalf("escape = %q", got)
	}
}
