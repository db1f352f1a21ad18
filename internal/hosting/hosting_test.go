package hosting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"marketcast/internal/logging"
	"marketcast/internal/testsupport"
)

type fakeProvider struct {
	name string
	url  string
	err  error

	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Upload(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestResolverShortCircuitsOnFirstSuccess(t *testing.T) {
	primary := &fakeProvider{name: "s3", url: "https://bucket.example.com/a.mp4"}
	secondary := &fakeProvider{name: "anonymous", url: "https://tmp.example.com/b.mp4"}
	resolver := NewResolverWithProviders(logging.Nop(), primary, secondary)

	url := resolver.UploadToTempHost(context.Background(), "/videos/a.mp4")
	if url != primary.url {
		t.Fatalf("url = %q, want primary", url)
	}
	if secondary.calls != 0 {
		t.Fatal("secondary must not run after primary success")
	}
}

func TestResolverFallsThroughToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "s3", err: errors.New("access denied")}
	secondary := &fakeProvider{name: "anonymous", url: "https://tmp.example.com/b.mp4"}
	resolver := NewResolverWithProviders(logging.Nop(), primary, secondary)

	url := resolver.UploadToTempHost(context.Background(), "/videos/b.mp4")
	if url != secondary.url {
		t.Fatalf("url = %q, want secondary", url)
	}
}

func TestResolverReturnsEmptyWhenAllFail(t *testing.T) {
	primary := &fakeProvider{name: "s3", err: errors.New("down")}
	secondary := &fakeProvider{name: "anonymous", err: errors.New("also down")}
	resolver := NewResolverWithProviders(logging.Nop(), primary, secondary)

	if url := resolver.UploadToTempHost(context.Background(), "/videos/c.mp4"); url != "" {
		t.Fatalf("url = %q, want empty", url)
	}
}

func TestResolverWithNoProviders(t *testing.T) {
	resolver := NewResolverWithProviders(logging.Nop())
	if url := resolver.UploadToTempHost(context.Background(), "/videos/d.mp4"); url != "" {
		t.Fatalf("url = %q, want empty", url)
	}
}

func TestAnonymousProviderUploadsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		w.Write([]byte(`{"status":"success","data":{"url":"https://tmpfiles.org/123/clip.mp4"}}`))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Hosting.FallbackUploadURL = server.URL

	artifact := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(artifact, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := newAnonymousProvider(cfg)
	url, err := provider.Upload(context.Background(), artifact)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://tmpfiles.org/dl/123/clip.mp4" {
		t.Fatalf("url = %q, want direct-download form", url)
	}
}

func TestAnonymousProviderRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Hosting.FallbackUploadURL = server.URL

	artifact := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(artifact, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := newAnonymousProvider(cfg)
	if _, err := provider.Upload(context.Background(), artifact); err == nil {
		t.Fatal("expected error on http 429")
	}
}

func TestNewResolverBuildsChainFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Hosting.S3Bucket = "whalepulse-media"
	cfg.Hosting.S3AccessKey = "key"
	cfg.Hosting.S3SecretKey = "secret"
	cfg.Hosting.FallbackUploadURL = "https://tmpfiles.org/api/v1/upload"

	resolver := NewResolver(cfg, logging.Nop())
	if len(resolver.providers) != 2 {
		t.Fatalf("providers = %d, want s3 + anonymous", len(resolver.providers))
	}
	if resolver.providers[0].Name() != "s3" || resolver.providers[1].Name() != "anonymous" {
		t.Fatalf("chain order wrong: %s, %s", resolver.providers[0].Name(), resolver.providers[1].Name())
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := contentTypeFor("a.png"); got != "image/png" {
		t.Fatalf("png = %q", got)
	}
	if got := contentTypeFor("a.unknownext"); got != "application/octet-stream" {
		t.Fatalf("unknown = %q", got)
	}
}
