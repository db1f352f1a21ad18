package render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"marketcast/internal/config"
	"marketcast/internal/fileutil"
	"marketcast/internal/logging"
	"marketcast/internal/services"
)

// ErrUnknownTemplate is returned for template types outside the closed set.
// Nothing is written to disk and no browser is started in that case.
var ErrUnknownTemplate = errors.New("unknown template")

// Artifact describes one rendered image. Immutable once produced.
type Artifact struct {
	Template  TemplateType
	Path      string
	Width     int
	Height    int
	CreatedAt time.Time
}

type captureFunc func(ctx context.Context, markup string, width, height int) ([]byte, error)

// Renderer turns (template type, payload) pairs into PNG files by driving a
// headless browser. Failures are fatal to the current job only; there is no
// retry logic at this stage.
type Renderer struct {
	cfg     *config.Config
	logger  *slog.Logger
	capture captureFunc
	now     func() time.Time
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithCapture replaces the headless-browser capture step. Tests use this to
// avoid requiring a Chrome binary.
func WithCapture(capture captureFunc) Option {
	return func(r *Renderer) {
		if capture != nil {
			r.capture = capture
		}
	}
}

// WithClock overrides the timestamp source used for output filenames.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRenderer constructs a renderer writing into cfg.Paths.ImagesDir.
func NewRenderer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "render"),
		now:    time.Now,
	}
	r.capture = r.captureChromedp
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces one PNG for the given template type. A nil payload renders
// the layout's literal defaults. Unknown types fail with ErrUnknownTemplate
// before any side effect.
func (r *Renderer) Render(ctx context.Context, typ TemplateType, data any) (*Artifact, error) {
	spec, ok := templateSpecs[typ]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "render", "select template",
			fmt.Sprintf("unknown template type %q", string(typ)), ErrUnknownTemplate)
	}

	markup, err := buildMarkup(typ, data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "render", "build markup", "", err)
	}

	start := r.now()
	r.logger.Info("rendering template",
		slog.String("template", string(typ)),
		slog.Int("width", spec.width),
		slog.Int("height", spec.height))

	shot, err := r.capture(ctx, markup, spec.width, spec.height)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "capture",
			fmt.Sprintf("template %s", typ), err)
	}

	if err := os.MkdirAll(r.cfg.Paths.ImagesDir, 0o755); err != nil {
		return nil, services.Wrap(nil, "render", "prepare output dir", "", err)
	}
	path := filepath.Join(r.cfg.Paths.ImagesDir, fileutil.TimestampedName(string(typ), "png", start))
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		return nil, services.Wrap(nil, "render", "write image", "", err)
	}

	r.logger.Info("rendered image",
		slog.String("template", string(typ)),
		slog.String("path", path),
		slog.Int("bytes", len(shot)))

	return &Artifact{
		Template:  typ,
		Path:      path,
		Width:     spec.width,
		Height:    spec.height,
		CreatedAt: start,
	}, nil
}

// captureChromedp launches an offscreen browsing context sized to the canvas,
// loads the markup via a data URL, waits for fonts, and grabs the viewport.
func (r *Renderer) captureChromedp(ctx context.Context, markup string, width, height int) ([]byte, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-color-profile", "srgb"),
	)
	if r.cfg.Render.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.Render.ChromeBinary))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := time.Duration(r.cfg.Render.TimeoutSeconds) * time.Second
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	page := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(markup))

	var fontsReady bool
	var shot []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(page),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return nil, fmt.Errorf("headless capture: %w", err)
	}
	return shot, nil
}
