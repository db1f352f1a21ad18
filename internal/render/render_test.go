package render

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"marketcast/internal/logging"
	"marketcast/internal/marketdata"
	"marketcast/internal/services"
	"marketcast/internal/testsupport"
)

func fakeCapture(captured *string) captureFunc {
	return func(ctx context.Context, markup string, width, height int) ([]byte, error) {
		if captured != nil {
			*captured = markup
		}
		return []byte("\x89PNG fake"), nil
	}
}

func TestRenderEmptyDataUsesLiteralDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	for _, typ := range TemplateTypes() {
		var markup string
		renderer := NewRenderer(cfg, logging.Nop(), WithCapture(fakeCapture(&markup)))

		artifact, err := renderer.Render(context.Background(), typ, nil)
		if err != nil {
			t.Fatalf("render %s: %v", typ, err)
		}
		if _, err := os.Stat(artifact.Path); err != nil {
			t.Fatalf("artifact file missing for %s: %v", typ, err)
		}
		width, height, _ := Dimensions(typ)
		if artifact.Width != width || artifact.Height != height {
			t.Fatalf("%s dimensions = %dx%d, want %dx%d", typ, artifact.Width, artifact.Height, width, height)
		}

		switch typ {
		case TemplateDailyBrief:
			for _, want := range []string{"247", "$1.2B", "BULLISH", "+12%"} {
				if !strings.Contains(markup, want) {
					t.Fatalf("daily brief markup missing default %q", want)
				}
			}
		case TemplateWhaleAlert:
			for _, want := range []string{"$4.7M", "BTC", "moved to exchange"} {
				if !strings.Contains(markup, want) {
					t.Fatalf("whale alert markup missing default %q", want)
				}
			}
		case TemplateWeeklyRecap:
			if !strings.Contains(markup, "BTC · ETH · SOL") {
				t.Fatal("weekly recap markup missing default token list")
			}
		}
	}
}

func TestRenderUnknownTemplateWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := NewRenderer(cfg, logging.Nop(), WithCapture(func(ctx context.Context, markup string, w, h int) ([]byte, error) {
		t.Fatal("capture must not run for an unknown template")
		return nil, nil
	}))

	_, err := renderer.Render(context.Background(), TemplateType("not-a-real-type"), nil)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v, want ErrUnknownTemplate", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation class", err)
	}

	entries, statErr := os.ReadDir(cfg.Paths.ImagesDir)
	if statErr == nil && len(entries) != 0 {
		t.Fatalf("images dir not empty: %v", entries)
	}
}

func TestRenderPayloadOverridesDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var markup string
	renderer := NewRenderer(cfg, logging.Nop(), WithCapture(fakeCapture(&markup)))

	payload := marketdata.DailyBrief{TxCount: "512", Volume: "$2.4B"}
	if _, err := renderer.Render(context.Background(), TemplateDailyBrief, payload); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(markup, "512") || !strings.Contains(markup, "$2.4B") {
		t.Fatal("markup did not carry payload values")
	}
	// Unset fields still default.
	if !strings.Contains(markup, "BULLISH") {
		t.Fatal("markup missing default sentiment")
	}
}

func TestRenderCaptureFailureIsExternalToolClass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := NewRenderer(cfg, logging.Nop(), WithCapture(func(ctx context.Context, markup string, w, h int) ([]byte, error) {
		return nil, errors.New("browser failed to start")
	}))

	_, err := renderer.Render(context.Background(), TemplateDailyBrief, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool class", err)
	}
	if services.IsFatal(err) {
		t.Fatal("render failure must not be fatal to the process")
	}
}

func TestParseTemplateType(t *testing.T) {
	cases := []struct {
		input   string
		want    TemplateType
		wantErr bool
	}{
		{"daily-brief", TemplateDailyBrief, false},
		{" Whale-Alert ", TemplateWhaleAlert, false},
		{"video-cover", TemplateVideoCover, false},
		{"not-a-real-type", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseTemplateType(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownTemplate) {
				t.Fatalf("ParseTemplateType(%q) err = %v, want ErrUnknownTemplate", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseTemplateType(%q) = %q, %v", tc.input, got, err)
		}
	}
}

func TestDefaultDataMatchesTemplatePayloads(t *testing.T) {
	data, ok := DefaultData(TemplateDailyBrief)
	if !ok {
		t.Fatal("daily-brief must have a default payload")
	}
	if _, isBrief := data.(marketdata.DailyBrief); !isBrief {
		t.Fatalf("payload type %T, want marketdata.DailyBrief", data)
	}
	for _, typ := range TemplateTypes() {
		if _, ok := DefaultData(typ); !ok {
			t.Fatalf("no default payload for %s", typ)
		}
	}
	if _, ok := DefaultData("not-a-real-type"); ok {
		t.Fatal("unknown template must have no default payload")
	}
}

func TestTimestampedFilenameEncodesTemplate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	at := time.Date(2026, 8, 28, 14, 30, 5, 0, time.UTC)
	renderer := NewRenderer(cfg, logging.Nop(),
		WithCapture(fakeCapture(nil)),
		WithClock(func() time.Time { return at }))

	artifact, err := renderer.Render(context.Background(), TemplateTokenSpotlight, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(artifact.Path, "token-spotlight-20260828-143005.png") {
		t.Fatalf("unexpected artifact path %s", artifact.Path)
	}
}
