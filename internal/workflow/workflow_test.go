package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketcast/internal/acquire"
	"marketcast/internal/brand"
	"marketcast/internal/caption"
	"marketcast/internal/logging"
	"marketcast/internal/marketdata"
	"marketcast/internal/publish"
	"marketcast/internal/queue"
	"marketcast/internal/render"
	"marketcast/internal/testsupport"
)

type fakeData struct{ snapshot marketdata.Snapshot }

func (f *fakeData) FetchSnapshot(ctx context.Context) marketdata.Snapshot { return f.snapshot }

type fakeRenderer struct {
	payloads []any
	err      error
}

func (f *fakeRenderer) Render(ctx context.Context, typ render.TemplateType, data any) (*render.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, data)
	return &render.Artifact{Template: typ, Path: "/out/" + string(typ) + ".png"}, nil
}

type fakeAcquirer struct {
	verifyErr error
	perTerm   map[string][]acquire.SourceVideo
	single    *acquire.SourceVideo
	singleErr error
}

func (f *fakeAcquirer) VerifyTools() error { return f.verifyErr }

func (f *fakeAcquirer) SearchAndDownload(ctx context.Context, term string, maxResults int) []acquire.SourceVideo {
	return f.perTerm[term]
}

func (f *fakeAcquirer) DownloadSingleVideo(ctx context.Context, url string) (*acquire.SourceVideo, error) {
	return f.single, f.singleErr
}

type fakeBrander struct {
	failFor map[string]bool
	calls   int
}

func (f *fakeBrander) AddBranding(ctx context.Context, sourcePath string) (*brand.BrandedVideo, error) {
	f.calls++
	if f.failFor[sourcePath] {
		return nil, errors.New("malformed source")
	}
	return &brand.BrandedVideo{Path: sourcePath + ".branded.mp4", SourcePath: sourcePath, Duration: 12, CTAStart: 8}, nil
}

type fakeCaptions struct{}

func (fakeCaptions) Generate(ctx context.Context, req caption.Request) caption.Caption {
	return caption.Caption{
		Text:     caption.FallbackCaption(req.ContentType, req.Data),
		Platform: req.Platform,
		Method:   caption.MethodTemplate,
	}
}

type fakePublisher struct {
	results map[string]queue.PublishResult
	calls   int
}

func (f *fakePublisher) PostToAll(ctx context.Context, artifactPath string, content publish.Content) map[string]queue.PublishResult {
	f.calls++
	if f.results != nil {
		return f.results
	}
	return map[string]queue.PublishResult{
		"twitter": {Platform: "twitter", PostID: "t-1", Status: queue.PublishOK},
	}
}

func newRunner(t *testing.T, deps Deps) (*Runner, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRunner(cfg, logging.Nop(), store, deps), store
}

// Scenario: aggregator returns nothing, dry-run daily brief still renders
// with literal defaults and finishes DONE without touching the publisher.
func TestImageJobDryRunWithEmptySnapshot(t *testing.T) {
	renderer := &fakeRenderer{}
	publisher := &fakePublisher{}
	runner, store := newRunner(t, Deps{
		Data:      &fakeData{},
		Renderer:  renderer,
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})

	job, err := runner.Run(context.Background(), queue.JobDailyBrief, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.Status != queue.StatusDone {
		t.Fatalf("status = %q, want done", job.Status)
	}
	if publisher.calls != 0 {
		t.Fatal("dry run must not invoke the publisher")
	}

	if len(renderer.payloads) != 1 {
		t.Fatalf("renders = %d", len(renderer.payloads))
	}
	brief, ok := renderer.payloads[0].(marketdata.DailyBrief)
	if !ok {
		t.Fatalf("payload type %T", renderer.payloads[0])
	}
	if brief.TxCount != "247" || brief.Volume != "$1.2B" || brief.Sentiment != "BULLISH" {
		t.Fatalf("defaults not applied: %+v", brief)
	}

	stored, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != queue.StatusDone || stored.ArtifactPath == "" {
		t.Fatalf("stored job = %+v", stored)
	}
}

func TestImageJobPublishesAndRecordsResults(t *testing.T) {
	publisher := &fakePublisher{results: map[string]queue.PublishResult{
		"twitter":   {Platform: "twitter", Status: queue.PublishFailed, ErrorDetail: "rate limited"},
		"instagram": {Platform: "instagram", PostID: "p-1", Status: queue.PublishOK},
	}}
	runner, store := newRunner(t, Deps{
		Data:      &fakeData{},
		Renderer:  &fakeRenderer{},
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})

	job, err := runner.Run(context.Background(), queue.JobWhaleAlert, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.Status != queue.StatusPartialFailure {
		t.Fatalf("status = %q, want partial_failure", job.Status)
	}

	results, err := store.PublishResults(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("recorded results = %d, want 2", len(results))
	}
}

func TestImageJobRenderFailureMarksFailed(t *testing.T) {
	runner, store := newRunner(t, Deps{
		Data:      &fakeData{},
		Renderer:  &fakeRenderer{err: errors.New("browser failed to start")},
		Captions:  fakeCaptions{},
		Publisher: &fakePublisher{},
	})

	job, err := runner.Run(context.Background(), queue.JobTokenSpotlight, false)
	if err == nil {
		t.Fatal("expected render error")
	}
	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}

	stored, getErr := store.GetJob(context.Background(), job.ID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("failed job must carry an error message")
	}
}

// Scenario: two search terms with one video each. The inter-term throttle
// fires exactly once, between the terms and not after the last.
func TestVideoBatchSleepsBetweenTermsOnly(t *testing.T) {
	acq := &fakeAcquirer{perTerm: map[string][]acquire.SourceVideo{
		"crypto whale": {{Path: "/raw/a.mp4"}},
		"bitcoin":      {{Path: "/raw/b.mp4"}},
	}}
	publisher := &fakePublisher{}
	var sleeps []time.Duration

	runner, _ := newRunner(t, Deps{
		Acquirer:  acq,
		Brander:   &fakeBrander{},
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})
	runner.cfg.Acquire.SearchTerms = []string{"crypto whale", "bitcoin"}
	runner.WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) })

	job, err := runner.Run(context.Background(), queue.JobVideoBatch, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.Status != queue.StatusDone {
		t.Fatalf("status = %q", job.Status)
	}

	if len(sleeps) != 1 {
		t.Fatalf("sleeps = %d, want exactly 1", len(sleeps))
	}
	want := time.Duration(runner.cfg.Acquire.TermDelaySeconds) * time.Second
	if sleeps[0] != want {
		t.Fatalf("sleep = %v, want %v", sleeps[0], want)
	}
	if publisher.calls != 2 {
		t.Fatalf("publishes = %d, want one per video", publisher.calls)
	}
}

func TestVideoBatchBrandFailureDropsCandidateOnly(t *testing.T) {
	acq := &fakeAcquirer{perTerm: map[string][]acquire.SourceVideo{
		"crypto whale": {{Path: "/raw/good.mp4"}, {Path: "/raw/bad.mp4"}},
	}}
	brander := &fakeBrander{failFor: map[string]bool{"/raw/bad.mp4": true}}
	publisher := &fakePublisher{}

	runner, _ := newRunner(t, Deps{
		Acquirer:  acq,
		Brander:   brander,
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})
	runner.cfg.Acquire.SearchTerms = []string{"crypto whale"}

	job, err := runner.Run(context.Background(), queue.JobVideoBatch, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if brander.calls != 2 {
		t.Fatalf("brand calls = %d", brander.calls)
	}
	if publisher.calls != 1 {
		t.Fatalf("publishes = %d, only the good candidate should post", publisher.calls)
	}
	if job.Status != queue.StatusDone {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestVideoBatchMissingToolsIsFatal(t *testing.T) {
	runner, _ := newRunner(t, Deps{
		Acquirer: &fakeAcquirer{verifyErr: errors.New("yt-dlp not found")},
	})
	if _, err := runner.Run(context.Background(), queue.JobVideoBatch, false); err == nil {
		t.Fatal("missing tools must abort the batch")
	}
}

func TestVideoBatchDryRunSkipsPublisher(t *testing.T) {
	acq := &fakeAcquirer{perTerm: map[string][]acquire.SourceVideo{
		"crypto whale": {{Path: "/raw/a.mp4"}},
	}}
	publisher := &fakePublisher{}

	runner, _ := newRunner(t, Deps{
		Acquirer:  acq,
		Brander:   &fakeBrander{},
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})
	runner.cfg.Acquire.SearchTerms = []string{"crypto whale"}

	job, err := runner.Run(context.Background(), queue.JobVideoBatch, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if publisher.calls != 0 {
		t.Fatal("dry run must not publish")
	}
	if job.Status != queue.StatusDone {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestRunSingleVideoBrandOnly(t *testing.T) {
	brander := &fakeBrander{}
	publisher := &fakePublisher{}
	runner, _ := newRunner(t, Deps{
		Acquirer:  &fakeAcquirer{},
		Brander:   brander,
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})

	job, err := runner.RunSingleVideo(context.Background(), "/local/clip.mp4", true, false, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if brander.calls != 1 {
		t.Fatal("brander not called")
	}
	if publisher.calls != 0 {
		t.Fatal("publish must be opt-in")
	}
	if job.Status != queue.StatusDone || job.ArtifactPath == "" {
		t.Fatalf("job = %+v", job)
	}
}

func TestRunSingleVideoDownloadAndPost(t *testing.T) {
	acq := &fakeAcquirer{single: &acquire.SourceVideo{Path: "/raw/one.mp4"}}
	publisher := &fakePublisher{}
	runner, _ := newRunner(t, Deps{
		Acquirer:  acq,
		Brander:   &fakeBrander{},
		Captions:  fakeCaptions{},
		Publisher: publisher,
	})

	job, err := runner.RunSingleVideo(context.Background(), "https://example.com/v", false, true, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if publisher.calls != 1 {
		t.Fatal("expected one publish")
	}
	if job.Status != queue.StatusDone {
		t.Fatalf("status = %q", job.Status)
	}
}

func TestTitleFromPath(t *testing.T) {
	if got := titleFromPath("/raw/Whale_Moves-abc123.mp4"); got != "Whale Moves abc123" {
		t.Fatalf("title = %q", got)
	}
}
