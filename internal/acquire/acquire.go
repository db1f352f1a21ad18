// Package acquire wraps the external yt-dlp tool for video search and
// download. Acquisition failures are logged and surface as zero results so a
// batch never aborts because one term found nothing usable.
package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"marketcast/internal/config"
	"marketcast/internal/deps"
	"marketcast/internal/fileutil"
	"marketcast/internal/logging"
	"marketcast/internal/services"
)

// SourceVideo is one newly materialized local file.
type SourceVideo struct {
	Path       string
	SourceTerm string
	SourceURL  string
	AcquiredAt time.Time
}

// InfoSidecarPath returns the metadata sidecar yt-dlp wrote alongside the
// video, or empty if none exists.
func (v SourceVideo) InfoSidecarPath() string {
	base := strings.TrimSuffix(v.Path, filepath.Ext(v.Path))
	sidecar := base + ".info.json"
	if _, err := os.Stat(sidecar); err != nil {
		return ""
	}
	return sidecar
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Acquirer runs yt-dlp against the raw-video output directory.
type Acquirer struct {
	cfg    *config.Config
	logger *slog.Logger
	run    runFunc
	now    func() time.Time
}

// Option customizes the acquirer.
type Option func(*Acquirer)

// WithRunner replaces the external command runner. Tests inject failures and
// canned file layouts through this.
func WithRunner(run runFunc) Option {
	return func(a *Acquirer) {
		if run != nil {
			a.run = run
		}
	}
}

// WithClock overrides the cutoff clock used to detect new files.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAcquirer constructs an acquirer. The required external tools must be
// verified once per process before acquisition runs; VerifyTools exposes that
// check and its failure is fatal configuration, not a per-term error.
func NewAcquirer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "acquire"),
		now:    time.Now,
	}
	a.run = a.runCommand
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VerifyTools confirms yt-dlp, ffmpeg, and ffprobe resolve on this host.
func (a *Acquirer) VerifyTools() error {
	return deps.VerifyRequired(a.cfg)
}

// SearchAndDownload fetches up to maxResults videos matching term. Results
// are capped, deduplicated against files already on disk, and filtered to the
// configured maximum duration. Any failure yields an empty list; the caller's
// batch moves on to the next term.
func (a *Acquirer) SearchAndDownload(ctx context.Context, term string, maxResults int) []SourceVideo {
	if maxResults <= 0 {
		maxResults = a.cfg.Acquire.MaxResults
	}
	cutoff := a.now()

	if err := os.MkdirAll(a.cfg.Paths.RawDir, 0o755); err != nil {
		a.logger.Error("raw dir unavailable", logging.Error(err))
		return nil
	}

	args := a.commonArgs()
	args = append(args,
		"--max-downloads", fmt.Sprintf("%d", maxResults),
		fmt.Sprintf("ytsearch%d:%s", maxResults, term),
	)

	a.logger.Info("searching videos",
		slog.String("term", term),
		slog.Int("max_results", maxResults))

	if _, err := a.run(ctx, a.cfg.Acquire.YtDlpBinary, args...); err != nil {
		// yt-dlp exits 101 when --max-downloads trips, which is success here.
		if !isMaxDownloadsExit(err) {
			a.logger.Warn("search failed, treating as zero results",
				slog.String("term", term), logging.Error(err))
			return nil
		}
	}

	files, err := fileutil.FilesCreatedSince(a.cfg.Paths.RawDir, cutoff, ".json", ".part", ".ytdl")
	if err != nil {
		a.logger.Warn("listing downloads failed", logging.Error(err))
		return nil
	}
	if len(files) > maxResults {
		files = files[:maxResults]
	}

	videos := make([]SourceVideo, 0, len(files))
	for _, path := range files {
		video := SourceVideo{Path: path, SourceTerm: term, AcquiredAt: cutoff}
		a.writeSidecar(video)
		videos = append(videos, video)
	}
	a.logger.Info("search complete",
		slog.String("term", term),
		slog.Int("downloaded", len(videos)))
	return videos
}

// DownloadSingleVideo fetches exactly one explicit URL and returns the file
// it materialized. Used by the manual CLI path, where a failure is an error
// rather than a silent zero-result.
func (a *Acquirer) DownloadSingleVideo(ctx context.Context, url string) (*SourceVideo, error) {
	cutoff := a.now()

	if err := os.MkdirAll(a.cfg.Paths.RawDir, 0o755); err != nil {
		return nil, services.Wrap(nil, "acquire", "prepare raw dir", "", err)
	}

	args := append(a.commonArgs(), url)

	a.logger.Info("downloading video", slog.String("url", url))
	if _, err := a.run(ctx, a.cfg.Acquire.YtDlpBinary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "acquire", "download", url, err)
	}

	path, err := fileutil.NewestFileSince(a.cfg.Paths.RawDir, cutoff)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "acquire", "locate download",
			"no new file after download", err)
	}
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".part") {
		// The sidecar can carry a newer mtime than the media file.
		return a.newestMediaFile(cutoff, url)
	}

	video := &SourceVideo{Path: path, SourceURL: url, AcquiredAt: cutoff}
	a.writeSidecar(*video)
	a.logger.Info("download complete", slog.String("path", path))
	return video, nil
}

// writeSidecar records source metadata next to the downloaded file. Sidecar
// failures are logged and ignored; the video itself is what matters.
func (a *Acquirer) writeSidecar(v SourceVideo) {
	payload, err := json.MarshalIndent(struct {
		SourceTerm string    `json:"sourceTerm,omitempty"`
		SourceURL  string    `json:"sourceUrl,omitempty"`
		AcquiredAt time.Time `json:"acquiredAt"`
	}{v.SourceTerm, v.SourceURL, v.AcquiredAt.UTC()}, "", "  ")
	if err != nil {
		return
	}
	base := strings.TrimSuffix(v.Path, filepath.Ext(v.Path))
	if err := os.WriteFile(base+".source.json", payload, 0o644); err != nil {
		a.logger.Warn("sidecar write failed", slog.String("path", v.Path), logging.Error(err))
	}
}

func (a *Acquirer) newestMediaFile(cutoff time.Time, url string) (*SourceVideo, error) {
	files, err := fileutil.FilesCreatedSince(a.cfg.Paths.RawDir, cutoff, ".json", ".part", ".ytdl")
	if err != nil || len(files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "acquire", "locate download",
			"no new media file after download", err)
	}
	return &SourceVideo{Path: files[len(files)-1], SourceURL: url, AcquiredAt: cutoff}, nil
}

// commonArgs builds the yt-dlp flags shared by both entry points: output
// layout, filename normalization, dedupe against existing files, the duration
// ceiling, and the metadata sidecar.
func (a *Acquirer) commonArgs() []string {
	return []string{
		"--paths", a.cfg.Paths.RawDir,
		"--output", "%(title).80s-%(id)s.%(ext)s",
		"--restrict-filenames",
		"--no-overwrites",
		"--no-playlist",
		"--match-filter", fmt.Sprintf("duration <= %d", a.cfg.Acquire.MaxDurationSeconds),
		"--format", "mp4/bestvideo*+bestaudio/best",
		"--write-info-json",
		"--no-progress",
		"--quiet",
	}
}

func (a *Acquirer) runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := time.Duration(a.cfg.Acquire.TimeoutSeconds) * time.Second
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
			return out, fmt.Errorf("%s: %w: %s", name, err, truncate(detail, 300))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// isMaxDownloadsExit detects yt-dlp's dedicated exit code for hitting the
// --max-downloads cap.
func isMaxDownloadsExit(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 101
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
