// Package brand applies the channel's watermark, call-to-action, and optional
// intro/outro bumpers to downloaded videos using ffmpeg. A branding failure
// drops only that one candidate; sibling videos in the batch continue.
package brand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"marketcast/internal/config"
	"marketcast/internal/fileutil"
	"marketcast/internal/logging"
	"marketcast/internal/services"
)

// ctaLeadSeconds is how long before the end of the clip the call-to-action
// appears.
const ctaLeadSeconds = 4.0

// BrandedVideo is the branded output for one source candidate.
type BrandedVideo struct {
	Path       string
	SourcePath string
	Duration   float64
	CTAStart   float64
	CreatedAt  time.Time
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Brander drives ffprobe and ffmpeg.
type Brander struct {
	cfg    *config.Config
	logger *slog.Logger
	run    runFunc
	now    func() time.Time
}

// Option customizes the brander.
type Option func(*Brander)

// WithRunner replaces the external command runner for tests.
func WithRunner(run runFunc) Option {
	return func(b *Brander) {
		if run != nil {
			b.run = run
		}
	}
}

// WithClock overrides the timestamp source used for output filenames.
func WithClock(now func() time.Time) Option {
	return func(b *Brander) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBrander constructs a brander writing into cfg.Paths.BrandedDir.
func NewBrander(cfg *config.Config, logger *slog.Logger, opts ...Option) *Brander {
	b := &Brander{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "brand"),
		now:    time.Now,
	}
	b.run = b.runCommand
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CTAStart computes when the call-to-action activates for a clip of the given
// measured duration. Clips shorter than the lead show it from the start.
func CTAStart(duration float64) float64 {
	start := duration - ctaLeadSeconds
	if start < 0 {
		return 0
	}
	return start
}

// ProbeDuration measures the exact duration of a media file via ffprobe.
func (b *Brander) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := b.run(ctx, b.cfg.Brand.FFprobeBinary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "brand", "probe", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "brand", "probe",
			"unparseable ffprobe output", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "brand", "probe",
			fmt.Sprintf("invalid duration %q for %s", probe.Format.Duration, path), err)
	}
	return duration, nil
}

// AddBranding produces the branded rendition of sourcePath. The CTA window is
// computed from the probed duration of this specific input. When both bumpers
// are configured and exist, intro + main + outro are concatenated into one
// re-encoded output; otherwise the overlays are burned in and audio passes
// through unchanged. Any failure is an error for this candidate only.
func (b *Brander) AddBranding(ctx context.Context, sourcePath string) (*BrandedVideo, error) {
	duration, err := b.ProbeDuration(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	ctaStart := CTAStart(duration)

	if err := os.MkdirAll(b.cfg.Paths.BrandedDir, 0o755); err != nil {
		return nil, services.Wrap(nil, "brand", "prepare output dir", "", err)
	}

	start := b.now()
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	outPath := filepath.Join(b.cfg.Paths.BrandedDir,
		fileutil.TimestampedName("branded-"+base, "mp4", start))

	intro, outro, useBumpers := b.bumperPaths()

	b.logger.Info("branding video",
		slog.String("source", sourcePath),
		slog.Float64("duration", duration),
		slog.Float64("cta_start", ctaStart),
		slog.Bool("bumpers", useBumpers))

	var args []string
	if useBumpers {
		args = b.concatArgs(intro, sourcePath, outro, ctaStart, outPath)
	} else {
		args = b.overlayArgs(sourcePath, ctaStart, outPath)
	}

	if _, err := b.run(ctx, b.cfg.Brand.FFmpegBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "brand", "transcode", sourcePath, err)
	}

	b.logger.Info("branding complete", slog.String("path", outPath))
	return &BrandedVideo{
		Path:       outPath,
		SourcePath: sourcePath,
		Duration:   duration,
		CTAStart:   ctaStart,
		CreatedAt:  start,
	}, nil
}

// bumperPaths reports the configured intro/outro pair. Concatenation is all
// or nothing: both files must be configured and present.
func (b *Brander) bumperPaths() (intro, outro string, ok bool) {
	intro = strings.TrimSpace(b.cfg.Brand.IntroPath)
	outro = strings.TrimSpace(b.cfg.Brand.OutroPath)
	if intro == "" || outro == "" {
		return "", "", false
	}
	if _, err := os.Stat(intro); err != nil {
		b.logger.Warn("intro bumper missing, skipping concat", slog.String("path", intro))
		return "", "", false
	}
	if _, err := os.Stat(outro); err != nil {
		b.logger.Warn("outro bumper missing, skipping concat", slog.String("path", outro))
		return "", "", false
	}
	return intro, outro, true
}

// overlayFilter builds the drawbox/drawtext chain: a translucent bottom
// stripe for contrast, the persistent watermark, and the CTA that activates
// at ctaStart.
func (b *Brander) overlayFilter(ctaStart float64) string {
	watermarkX := "w-tw-40"
	if strings.EqualFold(b.cfg.Brand.WatermarkSide, "left") {
		watermarkX = "40"
	}
	return strings.Join([]string{
		"drawbox=y=ih-110:color=black@0.4:width=iw:height=110:t=fill",
		fmt.Sprintf("drawtext=text='%s':fontcolor=white@0.55:fontsize=40:x=%s:y=h-th-35",
			escapeDrawtext(b.cfg.Brand.WatermarkText), watermarkX),
		fmt.Sprintf("drawtext=text='%s':fontcolor=white:fontsize=46:x=(w-tw)/2:y=h-th-35:enable='gte(t,%.2f)'",
			escapeDrawtext(b.cfg.Brand.CTAText), ctaStart),
	}, ",")
}

func (b *Brander) overlayArgs(sourcePath string, ctaStart float64, outPath string) []string {
	return []string{
		"-y",
		"-i", sourcePath,
		"-vf", b.overlayFilter(ctaStart),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "21",
		"-c:a", "copy",
		outPath,
	}
}

// concatArgs normalizes all three inputs to one resolution and codec so the
// concat filter accepts them, brands the main segment, and joins the result.
func (b *Brander) concatArgs(intro, sourcePath, outro string, ctaStart float64, outPath string) []string {
	normalize := "scale=1920:1080:force_original_aspect_ratio=decrease," +
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=30"
	filter := fmt.Sprintf(
		"[0:v]%[1]s[v0];[1:v]%[1]s,%[2]s[v1];[2:v]%[1]s[v2];"+
			"[v0][0:a][v1][1:a][v2][2:a]concat=n=3:v=1:a=1[v][a]",
		normalize, b.overlayFilter(ctaStart))
	return []string{
		"-y",
		"-i", intro,
		"-i", sourcePath,
		"-i", outro,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "21",
		"-c:a", "aac",
		"-b:a", "160k",
		outPath,
	}
}

func (b *Brander) runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := time.Duration(b.cfg.Brand.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return out, fmt.Errorf("%s timed out after %s", name, timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			if len(detail) > 300 {
				detail = detail[:300] + "…"
			}
			return out, fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// escapeDrawtext quotes the characters ffmpeg's drawtext filter treats as
// syntax.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}
