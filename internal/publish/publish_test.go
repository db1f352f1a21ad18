package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marketcast/internal/logging"
	"marketcast/internal/queue"
	"marketcast/internal/testsupport"
)

type fakeAdapter struct {
	name       string
	configured bool
	postID     string
	err        error
}

func (f *fakeAdapter) Name() string     { return f.name }
func (f *fakeAdapter) Configured() bool { return f.configured }

func (f *fakeAdapter) Publish(ctx context.Context, artifactPath string, content Content) (string, error) {
	return f.postID, f.err
}

type fakeResolver struct{ url string }

func (f *fakeResolver) UploadToTempHost(ctx context.Context, path string) string { return f.url }

func TestPostToAllMixedOutcomes(t *testing.T) {
	publisher := NewPublisherWithAdapters(logging.Nop(),
		&fakeAdapter{name: "twitter", configured: false},
		&fakeAdapter{name: "instagram", configured: true, postID: "789"},
	)

	results := publisher.PostToAll(context.Background(), "/img/a.png", Content{ContentType: "daily-brief"})

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["twitter"].Status != queue.PublishSkipped {
		t.Fatalf("twitter = %q, want skipped", results["twitter"].Status)
	}
	if results["instagram"].Status != queue.PublishOK || results["instagram"].PostID != "789" {
		t.Fatalf("instagram = %+v", results["instagram"])
	}
}

func TestPostToAllFailureDoesNotCrossContaminate(t *testing.T) {
	publisher := NewPublisherWithAdapters(logging.Nop(),
		&fakeAdapter{name: "twitter", configured: true, err: errors.New("rate limited")},
		&fakeAdapter{name: "instagram", configured: true, postID: "42"},
	)

	results := publisher.PostToAll(context.Background(), "/img/a.png", Content{})

	if results["twitter"].Status != queue.PublishFailed {
		t.Fatalf("twitter = %+v", results["twitter"])
	}
	if results["twitter"].ErrorDetail == "" {
		t.Fatal("failed result must carry error detail")
	}
	if results["instagram"].Status != queue.PublishOK {
		t.Fatalf("instagram = %+v, must not be affected by twitter failure", results["instagram"])
	}
}

func TestPostToAllAggregateTerminalStatus(t *testing.T) {
	publisher := NewPublisherWithAdapters(logging.Nop(),
		&fakeAdapter{name: "twitter", configured: true, err: errors.New("down")},
		&fakeAdapter{name: "instagram", configured: true, postID: "42"},
	)
	results := publisher.PostToAll(context.Background(), "/img/a.png", Content{})

	flat := make([]queue.PublishResult, 0, len(results))
	for _, r := range results {
		flat = append(flat, r)
	}
	if got := queue.ResolveTerminalStatus(flat); got != queue.StatusPartialFailure {
		t.Fatalf("terminal status = %q, want partial_failure", got)
	}
}

func TestNewPublisherHonorsEnabledList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Platforms.Enabled = []string{"twitter"}
	publisher := NewPublisher(cfg, logging.Nop(), &fakeResolver{})
	if len(publisher.adapters) != 1 || publisher.adapters[0].Name() != "twitter" {
		t.Fatalf("adapters = %+v", publisher.adapters)
	}
}

func TestTwitterAdapterPublishesWithMedia(t *testing.T) {
	var uploadCalled, tweetCalled bool
	var tweetBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/1.1/media/upload.json"):
			uploadCalled = true
			if _, _, err := r.FormFile("media"); err != nil {
				t.Errorf("media part missing: %v", err)
			}
			w.Write([]byte(`{"media_id_string":"m-123"}`))
		case strings.HasSuffix(r.URL.Path, "/2/tweets"):
			tweetCalled = true
			buf := new(strings.Builder)
			if _, err := copyBody(buf, r); err != nil {
				t.Error(err)
			}
			tweetBody = buf.String()
			w.Write([]byte(`{"data":{"id":"t-456"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Platforms.Twitter.AppKey = "k"
	cfg.Platforms.Twitter.AppSecret = "s"
	cfg.Platforms.Twitter.AccessToken = "t"
	cfg.Platforms.Twitter.AccessSecret = "ts"
	cfg.Platforms.TwitterAPIBaseURL = server.URL
	cfg.Platforms.TwitterUploadBaseURL = server.URL

	artifact := filepath.Join(t.TempDir(), "brief.png")
	if err := os.WriteFile(artifact, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	adapter := newTwitterAdapter(cfg)
	adapter.httpClient = &http.Client{Timeout: 10 * time.Second}

	postID, err := adapter.Publish(context.Background(), artifact, Content{Caption: "Whales moving 🐋"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "t-456" {
		t.Fatalf("post id = %q", postID)
	}
	if !uploadCalled || !tweetCalled {
		t.Fatal("both endpoints must be hit")
	}
	if !strings.Contains(tweetBody, "m-123") {
		t.Fatalf("tweet missing media id: %s", tweetBody)
	}
}

func TestTwitterAdapterTruncatesCaption(t *testing.T) {
	var tweetBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		if _, err := copyBody(buf, r); err != nil {
			t.Error(err)
		}
		tweetBody = buf.String()
		w.Write([]byte(`{"data":{"id":"t-1"}}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Platforms.TwitterAPIBaseURL = server.URL
	adapter := newTwitterAdapter(cfg)
	adapter.httpClient = &http.Client{Timeout: 10 * time.Second}

	long := strings.Repeat("whale ", 100)
	if _, err := adapter.Publish(context.Background(), "", Content{Caption: long}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(tweetBody, "…") {
		t.Fatal("long caption should be truncated with ellipsis")
	}
}

func TestInstagramAdapterImageFlow(t *testing.T) {
	var containerCalled, publishCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/biz-1/media"):
			containerCalled = true
			if err := r.ParseForm(); err != nil {
				t.Error(err)
			}
			if r.PostFormValue("image_url") == "" {
				t.Error("image flow must send image_url")
			}
			w.Write([]byte(`{"id":"c-1"}`))
		case strings.HasSuffix(r.URL.Path, "/biz-1/media_publish"):
			publishCalled = true
			if err := r.ParseForm(); err != nil {
				t.Error(err)
			}
			if r.PostFormValue("creation_id") != "c-1" {
				t.Errorf("creation_id = %q", r.PostFormValue("creation_id"))
			}
			w.Write([]byte(`{"id":"post-9"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Platforms.GraphAPIBaseURL = server.URL
	cfg.Platforms.Instagram.AccessToken = "tok"
	cfg.Platforms.Instagram.BusinessID = "biz-1"

	adapter := newInstagramAdapter(cfg, &fakeResolver{url: "https://tmp.example.com/a.png"})
	postID, err := adapter.Publish(context.Background(), "/img/a.png", Content{Kind: KindImage, Caption: "hi"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "post-9" {
		t.Fatalf("post id = %q", postID)
	}
	if !containerCalled || !publishCalled {
		t.Fatal("container and publish endpoints must both be hit")
	}
}

func TestInstagramAdapterVideoPollsUntilFinished(t *testing.T) {
	statusCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/biz-1/media"):
			if err := r.ParseForm(); err != nil {
				t.Error(err)
			}
			if r.PostFormValue("media_type") != "REELS" {
				t.Errorf("media_type = %q", r.PostFormValue("media_type"))
			}
			w.Write([]byte(`{"id":"c-2"}`))
		case strings.HasSuffix(r.URL.Path, "/c-2"):
			statusCalls++
			if statusCalls < 3 {
				w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
				return
			}
			w.Write([]byte(`{"status_code":"FINISHED"}`))
		case strings.HasSuffix(r.URL.Path, "/biz-1/media_publish"):
			w.Write([]byte(`{"id":"post-10"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Platforms.GraphAPIBaseURL = server.URL
	cfg.Platforms.Instagram.AccessToken = "tok"
	cfg.Platforms.Instagram.BusinessID = "biz-1"

	adapter := newInstagramAdapter(cfg, &fakeResolver{url: "https://tmp.example.com/a.mp4"})
	adapter.sleep = func(time.Duration) {}

	postID, err := adapter.Publish(context.Background(), "/vid/a.mp4", Content{Kind: KindVideo})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if postID != "post-10" {
		t.Fatalf("post id = %q", postID)
	}
	if statusCalls < 3 {
		t.Fatalf("status polled %d times, want at least 3", statusCalls)
	}
}

func TestInstagramAdapterNoPublicURLFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Platforms.Instagram.AccessToken = "tok"
	cfg.Platforms.Instagram.BusinessID = "biz-1"

	adapter := newInstagramAdapter(cfg, &fakeResolver{url: ""})
	if _, err := adapter.Publish(context.Background(), "/vid/a.mp4", Content{Kind: KindVideo}); err == nil {
		t.Fatal("missing public url must fail this platform")
	}
}

func copyBody(dst *strings.Builder, r *http.Request) (int64, error) {
	defer r.Body.Close()
	return io.Copy(dst, r.Body)
}
