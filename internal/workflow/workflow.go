// Package workflow sequences the pipeline stages for each job type and owns
// job state transitions. Jobs of the same type serialize through a per-type
// mutex; different job types may overlap in wall-clock time.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketcast/internal/acquire"
	"marketcast/internal/brand"
	"marketcast/internal/caption"
	"marketcast/internal/config"
	"marketcast/internal/logging"
	"marketcast/internal/marketdata"
	"marketcast/internal/publish"
	"marketcast/internal/queue"
	"marketcast/internal/render"
	"marketcast/internal/services"
)

// DataSource feeds payload builders with live market data.
type DataSource interface {
	FetchSnapshot(ctx context.Context) marketdata.Snapshot
}

// ImageRenderer produces a PNG for a template type.
type ImageRenderer interface {
	Render(ctx context.Context, typ render.TemplateType, data any) (*render.Artifact, error)
}

// VideoAcquirer finds and downloads source clips.
type VideoAcquirer interface {
	VerifyTools() error
	SearchAndDownload(ctx context.Context, term string, maxResults int) []acquire.SourceVideo
	DownloadSingleVideo(ctx context.Context, url string) (*acquire.SourceVideo, error)
}

// VideoBrander produces the branded rendition of a source clip.
type VideoBrander interface {
	AddBranding(ctx context.Context, sourcePath string) (*brand.BrandedVideo, error)
}

// CaptionGenerator produces publishable text; it never fails.
type CaptionGenerator interface {
	Generate(ctx context.Context, req caption.Request) caption.Caption
}

// PostPublisher fans an artifact out to the enabled platforms.
type PostPublisher interface {
	PostToAll(ctx context.Context, artifactPath string, content publish.Content) map[string]queue.PublishResult
}

// Deps bundles the stage implementations the runner drives.
type Deps struct {
	Data      DataSource
	Renderer  ImageRenderer
	Acquirer  VideoAcquirer
	Brander   VideoBrander
	Captions  CaptionGenerator
	Publisher PostPublisher
}

// Runner executes jobs end to end and records their lifecycle in the store.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	deps   Deps

	sleep func(time.Duration)

	mu    sync.Mutex
	locks map[queue.JobType]*sync.Mutex
}

// NewRunner constructs a runner over the given stage implementations.
func NewRunner(cfg *config.Config, logger *slog.Logger, store *queue.Store, deps Deps) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "workflow"),
		store:  store,
		deps:   deps,
		sleep:  time.Sleep,
		locks:  make(map[queue.JobType]*sync.Mutex),
	}
}

// WithSleeper overrides how inter-term waits are performed. Tests observe the
// configured throttle through this.
func (r *Runner) WithSleeper(sleep func(time.Duration)) *Runner {
	if sleep != nil {
		r.sleep = sleep
	}
	return r
}

// typeLock serializes runs of the same job type. Overlapping triggers of the
// same type queue behind each other; distinct types proceed concurrently.
func (r *Runner) typeLock(jobType queue.JobType) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[jobType]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[jobType] = lock
	}
	return lock
}

// Run executes one job of the given type.
func (r *Runner) Run(ctx context.Context, jobType queue.JobType, dryRun bool) (*queue.Job, error) {
	lock := r.typeLock(jobType)
	lock.Lock()
	defer lock.Unlock()

	if jobType == queue.JobVideoBatch {
		return r.runVideoBatch(ctx, dryRun)
	}
	return r.runImageJob(ctx, jobType, dryRun)
}

// imageTemplate maps an image job type onto its render template and caption
// content type.
func imageTemplate(jobType queue.JobType) (render.TemplateType, bool) {
	switch jobType {
	case queue.JobDailyBrief:
		return render.TemplateDailyBrief, true
	case queue.JobWhaleAlert:
		return render.TemplateWhaleAlert, true
	case queue.JobTokenSpotlight:
		return render.TemplateTokenSpotlight, true
	case queue.JobWeeklyRecap:
		return render.TemplateWeeklyRecap, true
	default:
		return "", false
	}
}

func (r *Runner) runImageJob(ctx context.Context, jobType queue.JobType, dryRun bool) (*queue.Job, error) {
	templateType, ok := imageTemplate(jobType)
	if !ok {
		return nil, fmt.Errorf("no image template for job type %s", jobType)
	}

	job, err := r.store.NewJob(ctx, jobType, dryRun)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	log := r.logger.With(
		slog.String(logging.FieldJobID, job.ID),
		slog.String(logging.FieldJobType, string(jobType)))
	log.Info("job triggered", slog.Bool("dry_run", dryRun))

	r.transition(ctx, job, queue.StatusRendering)
	snapshot := r.deps.Data.FetchSnapshot(ctx)
	payload := r.payloadFor(jobType, snapshot)

	artifact, err := r.deps.Renderer.Render(ctx, templateType, payload)
	if err != nil {
		return r.failJob(ctx, job, log, "render", err)
	}
	job.ArtifactPath = artifact.Path

	r.transition(ctx, job, queue.StatusCaptioning)
	captions := r.generateCaptions(ctx, string(jobType), payload)

	r.transition(ctx, job, queue.StatusPublishing)
	content := publish.Content{
		ContentType: string(jobType),
		Captions:    captions,
		Caption:     captions[string(caption.PlatformInstagram)],
		Kind:        publish.KindImage,
	}

	if dryRun {
		return r.finishDryRun(ctx, job, log, artifact.Path, content)
	}

	results := r.deps.Publisher.PostToAll(ctx, artifact.Path, content)
	r.recordResults(ctx, job, results)
	job.Status = queue.ResolveTerminalStatus(flatten(results))
	r.persist(ctx, job)
	log.Info("job finished", slog.String("status", string(job.Status)))
	return job, nil
}

// runVideoBatch loops the configured search terms, branding and publishing
// each term's downloads before moving on. Between terms it waits the fixed
// throttle delay, but never after the final term.
func (r *Runner) runVideoBatch(ctx context.Context, dryRun bool) (*queue.Job, error) {
	if err := r.deps.Acquirer.VerifyTools(); err != nil {
		return nil, err
	}

	job, err := r.store.NewJob(ctx, queue.JobVideoBatch, dryRun)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	log := r.logger.With(
		slog.String(logging.FieldJobID, job.ID),
		slog.String(logging.FieldJobType, string(queue.JobVideoBatch)))
	log.Info("video batch triggered",
		slog.Int("terms", len(r.cfg.Acquire.SearchTerms)),
		slog.Bool("dry_run", dryRun))

	r.transition(ctx, job, queue.StatusAcquiring)

	termDelay := time.Duration(r.cfg.Acquire.TermDelaySeconds) * time.Second
	var allResults []queue.PublishResult
	published := 0

	for i, term := range r.cfg.Acquire.SearchTerms {
		if i > 0 && termDelay > 0 {
			r.sleep(termDelay)
		}

		videos := r.deps.Acquirer.SearchAndDownload(ctx, term, r.cfg.Acquire.MaxResults)
		log.Info("term acquired", slog.String("term", term), slog.Int("videos", len(videos)))

		for _, video := range videos {
			branded, err := r.deps.Brander.AddBranding(ctx, video.Path)
			if err != nil {
				log.Warn("branding failed, dropping candidate",
					slog.String("source", video.Path), logging.Error(err))
				continue
			}
			job.ArtifactPath = branded.Path

			videoCtx := caption.VideoContext{Title: titleFromPath(video.Path), SourceTerm: term}
			captions := r.generateCaptions(ctx, "video", videoCtx)
			content := publish.Content{
				ContentType: "video",
				Captions:    captions,
				Caption:     captions[string(caption.PlatformInstagram)],
				Kind:        publish.KindVideo,
			}

			if dryRun {
				log.Info("dry run, would publish video",
					slog.String("artifact", branded.Path),
					slog.String("caption", content.Caption))
				published++
				continue
			}

			results := r.deps.Publisher.PostToAll(ctx, branded.Path, content)
			r.recordResults(ctx, job, results)
			allResults = append(allResults, flatten(results)...)
			published++
		}
	}

	if dryRun {
		job.Status = queue.StatusDone
		r.persist(ctx, job)
		log.Info("video batch finished (dry run)", slog.Int("videos", published))
		return job, nil
	}

	job.Status = queue.ResolveTerminalStatus(allResults)
	if published == 0 {
		// Nothing branded and nothing published still ends the batch cleanly.
		job.Status = queue.StatusDone
	}
	r.persist(ctx, job)
	log.Info("video batch finished",
		slog.String("status", string(job.Status)),
		slog.Int("videos", published))
	return job, nil
}

// RunSingleVideo drives the manual path: download one URL, brand it, and
// optionally publish. brandOnly skips acquisition and treats url as a local
// path.
func (r *Runner) RunSingleVideo(ctx context.Context, url string, brandOnly, post, dryRun bool) (*queue.Job, error) {
	if err := r.deps.Acquirer.VerifyTools(); err != nil {
		return nil, err
	}

	job, err := r.store.NewJob(ctx, queue.JobVideoBatch, dryRun)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)
	log := r.logger.With(slog.String(logging.FieldJobID, job.ID))

	sourcePath := url
	if !brandOnly {
		r.transition(ctx, job, queue.StatusAcquiring)
		video, err := r.deps.Acquirer.DownloadSingleVideo(ctx, url)
		if err != nil {
			return r.failJob(ctx, job, log, "acquire", err)
		}
		sourcePath = video.Path
	}

	branded, err := r.deps.Brander.AddBranding(ctx, sourcePath)
	if err != nil {
		return r.failJob(ctx, job, log, "brand", err)
	}
	job.ArtifactPath = branded.Path

	if !post {
		job.Status = queue.StatusDone
		r.persist(ctx, job)
		log.Info("video branded", slog.String("path", branded.Path))
		return job, nil
	}

	r.transition(ctx, job, queue.StatusCaptioning)
	videoCtx := caption.VideoContext{Title: titleFromPath(sourcePath)}
	captions := r.generateCaptions(ctx, "video", videoCtx)
	content := publish.Content{
		ContentType: "video",
		Captions:    captions,
		Caption:     captions[string(caption.PlatformInstagram)],
		Kind:        publish.KindVideo,
	}

	r.transition(ctx, job, queue.StatusPublishing)
	if dryRun {
		return r.finishDryRun(ctx, job, log, branded.Path, content)
	}

	results := r.deps.Publisher.PostToAll(ctx, branded.Path, content)
	r.recordResults(ctx, job, results)
	job.Status = queue.ResolveTerminalStatus(flatten(results))
	r.persist(ctx, job)
	log.Info("video published", slog.String("status", string(job.Status)))
	return job, nil
}

// payloadFor builds the typed template payload for an image job.
func (r *Runner) payloadFor(jobType queue.JobType, snapshot marketdata.Snapshot) any {
	now := time.Now()
	switch jobType {
	case queue.JobDailyBrief:
		return snapshot.DailyBrief(now)
	case queue.JobWhaleAlert:
		return snapshot.WhaleAlert()
	case queue.JobTokenSpotlight:
		return snapshot.TokenSpotlight()
	case queue.JobWeeklyRecap:
		return snapshot.WeeklyRecap(now)
	default:
		return nil
	}
}

// generateCaptions produces one caption per enabled platform.
func (r *Runner) generateCaptions(ctx context.Context, contentType string, data any) map[string]string {
	captions := make(map[string]string, len(r.cfg.Platforms.Enabled))
	for _, platform := range r.cfg.Platforms.Enabled {
		result := r.deps.Captions.Generate(ctx, caption.Request{
			ContentType: contentType,
			Platform:    caption.Platform(platform),
			Data:        data,
		})
		captions[platform] = result.Text
	}
	return captions
}

// finishDryRun logs what would be posted and terminates the job as done
// without touching the publisher.
func (r *Runner) finishDryRun(ctx context.Context, job *queue.Job, log *slog.Logger, artifactPath string, content publish.Content) (*queue.Job, error) {
	for platform, text := range content.Captions {
		log.Info("dry run, would publish",
			slog.String(logging.FieldPlatform, platform),
			slog.String("artifact", artifactPath),
			slog.String("caption", text))
	}
	job.Status = queue.StatusDone
	r.persist(ctx, job)
	log.Info("job finished (dry run)")
	return job, nil
}

func (r *Runner) failJob(ctx context.Context, job *queue.Job, log *slog.Logger, stage string, err error) (*queue.Job, error) {
	job.SetFailed(fmt.Sprintf("%s: %v", stage, err))
	r.persist(ctx, job)
	log.Error("job failed", slog.String(logging.FieldStage, stage), logging.Error(err))
	return job, err
}

func (r *Runner) transition(ctx context.Context, job *queue.Job, status queue.Status) {
	job.Status = status
	r.persist(ctx, job)
}

func (r *Runner) persist(ctx context.Context, job *queue.Job) {
	if err := r.store.Update(ctx, job); err != nil {
		r.logger.Error("job update failed",
			slog.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func (r *Runner) recordResults(ctx context.Context, job *queue.Job, results map[string]queue.PublishResult) {
	for _, result := range results {
		result.JobID = job.ID
		if err := r.store.RecordPublish(ctx, result); err != nil {
			r.logger.Error("publish result not recorded",
				slog.String(logging.FieldJobID, job.ID),
				slog.String(logging.FieldPlatform, result.Platform),
				logging.Error(err))
		}
	}
}

func flatten(results map[string]queue.PublishResult) []queue.PublishResult {
	flat := make([]queue.PublishResult, 0, len(results))
	for _, result := range results {
		flat = append(flat, result)
	}
	return flat
}

// titleFromPath derives a human title from a normalized download filename.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}
