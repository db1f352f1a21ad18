// Package caption produces platform-appropriate post text. When an LLM
// credential is configured the text is generated against a tone style guide;
// on any failure a deterministic per-type template takes over, so the
// pipeline always has publishable text.
package caption

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"marketcast/internal/config"
	"marketcast/internal/logging"
	"marketcast/internal/marketdata"
)

// Platform identifies a publish target with its own length ceiling.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
)

// Length ceilings enforced on generated text. Twitter's is the hard post
// limit; Instagram's is the caption limit.
const (
	TwitterLimit   = 280
	InstagramLimit = 2200
)

// LengthCeiling returns the character ceiling for a platform. Unknown
// platforms get the stricter limit.
func LengthCeiling(platform Platform) int {
	switch platform {
	case PlatformInstagram:
		return InstagramLimit
	case PlatformTwitter:
		return TwitterLimit
	default:
		return TwitterLimit
	}
}

// Method records how a caption was produced. A template method on a job with
// a configured credential doubles as an error signal.
type Method string

const (
	MethodAI       Method = "ai"
	MethodTemplate Method = "default-template"
)

// Request carries everything needed to caption one artifact.
type Request struct {
	ContentType string
	Platform    Platform
	Data        any
}

// VideoContext is the payload for video captions.
type VideoContext struct {
	Title      string
	SourceTerm string
}

// Caption is the generated result. Text is never empty and never exceeds the
// platform ceiling.
type Caption struct {
	Text     string
	Platform Platform
	Method   Method
}

// Length reports the caption length in runes, which is what the platform
// limits count.
func (c Caption) Length() int {
	return utf8.RuneCountInString(c.Text)
}

// Generator produces captions. Generate never returns an error.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
	llm    *llmClient
}

// NewGenerator constructs a caption generator from the configured tone,
// model, and credential.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "caption"),
		llm:    newLLMClient(cfg.Caption.APIKey, cfg.Caption.BaseURL, cfg.Caption.Model, cfg.Caption.TimeoutSeconds),
	}
}

// Generate returns publishable text for the request. LLM failures of any
// kind fall back to the deterministic template for the content type.
func (g *Generator) Generate(ctx context.Context, req Request) Caption {
	ceiling := LengthCeiling(req.Platform)

	if g.llm.configured() {
		text, err := g.generateAI(ctx, req, ceiling)
		if err == nil {
			return Caption{
				Text:     TruncateWithEllipsis(text, ceiling),
				Platform: req.Platform,
				Method:   MethodAI,
			}
		}
		g.logger.Warn("caption generation failed, using template",
			slog.String("content_type", req.ContentType),
			slog.String("platform", string(req.Platform)),
			logging.Error(err))
	}

	return Caption{
		Text:     TruncateWithEllipsis(FallbackCaption(req.ContentType, req.Data), ceiling),
		Platform: req.Platform,
		Method:   MethodTemplate,
	}
}

func (g *Generator) generateAI(ctx context.Context, req Request, ceiling int) (string, error) {
	payload, err := json.Marshal(req.Data)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	system := buildSystemPrompt(g.cfg.Caption.Tone, req.Platform, ceiling)
	user := fmt.Sprintf("Write a %s post about this %s data:\n%s",
		req.Platform, req.ContentType, payload)

	text, err := g.llm.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty caption")
	}
	return text, nil
}

// styleGuides key the prompt voice by the configured tone.
var styleGuides = map[string]string{
	"promotional":  "Energetic and punchy. Create urgency, highlight the biggest numbers, and end with a call to follow for more whale alerts.",
	"professional": "Measured and analytical. Lead with the data, avoid hype words, no more than one emoji.",
	"casual":       "Conversational and playful, like a friend sharing something wild they just saw on-chain.",
}

func buildSystemPrompt(tone string, platform Platform, ceiling int) string {
	guide, ok := styleGuides[strings.ToLower(strings.TrimSpace(tone))]
	if !ok {
		guide = styleGuides["promotional"]
	}
	var policy string
	switch platform {
	case PlatformTwitter:
		policy = "Use at most 2 hashtags and at most 2 emoji."
	default:
		policy = "Use 3 to 5 hashtags and 2 to 4 emoji."
	}
	return fmt.Sprintf(
		"You write social media captions for WhalePulse, a crypto whale-tracking service. %s %s "+
			"Hard limit: %d characters. Output only the caption text, no quotes or preamble.",
		guide, policy, ceiling)
}

// FallbackCaption is the deterministic per-type template. It is first-class
// publishable text, not a degraded string, and is built from the same data
// payload the renderer receives.
func FallbackCaption(contentType string, data any) string {
	switch contentType {
	case "daily-brief":
		brief, _ := data.(marketdata.DailyBrief)
		return fmt.Sprintf(
			"📊 Daily Whale Brief · %s\n%s whale moves (%s) · %s volume\nTop move: %s · Sentiment: %s\nTrack every move → whalepulse.io\n#crypto #whalewatch #bitcoin",
			orDefault(brief.Date, marketdata.BriefDateToday()),
			orDefault(brief.TxCount, marketdata.DefaultTxCount),
			orDefault(brief.TxChange, marketdata.DefaultTxChange),
			orDefault(brief.Volume, marketdata.DefaultVolume),
			orDefault(brief.TopMove, marketdata.DefaultTopMove),
			orDefault(brief.Sentiment, marketdata.DefaultSentiment))
	case "whale-alert":
		alert, _ := data.(marketdata.WhaleAlert)
		return fmt.Sprintf(
			"🚨 WHALE ALERT 🚨\n%s in %s %s\nWallet: %s\nLive feed → whalepulse.io\n#whalealert #crypto",
			orDefault(alert.Amount, marketdata.DefaultWhaleAmount),
			orDefault(alert.Token, marketdata.DefaultWhaleToken),
			orDefault(alert.Direction, marketdata.DefaultWhaleVerb),
			orDefault(alert.Address, marketdata.DefaultAddress))
	case "token-spotlight":
		spot, _ := data.(marketdata.TokenSpotlight)
		symbol := orDefault(spot.Symbol, "ETH")
		return fmt.Sprintf(
			"🔍 Token Spotlight: %s (%s)\nPrice %s (%s) · Pulse score %s/100\n%s\n#crypto #%s #whalewatch",
			orDefault(spot.Name, "Ethereum"),
			symbol,
			orDefault(spot.Price, "$3,420"),
			orDefault(spot.Change, "+5.2%"),
			orDefault(spot.Score, "82"),
			orDefault(spot.Insight, "Whale accumulation picking up across the top wallets."),
			strings.ToLower(symbol))
	case "weekly-recap":
		recap, _ := data.(marketdata.WeeklyRecap)
		tokens := strings.Join(recap.TopTokens, ", ")
		return fmt.Sprintf(
			"📈 %s in whale moves\n%s across %s transactions\nBiggest move: %s · Watch: %s\nFull recap → whalepulse.io\n#crypto #whalewatch",
			orDefault(recap.Week, "This week"),
			orDefault(recap.TotalVol, marketdata.DefaultWeekVolume),
			orDefault(recap.TotalTx, marketdata.DefaultWeekTxCount),
			orDefault(recap.BiggestMove, marketdata.DefaultBiggestMove),
			orDefault(tokens, "BTC, ETH, SOL"))
	case "video":
		video, _ := data.(VideoContext)
		title := orDefault(video.Title, "Whale moves you missed")
		return fmt.Sprintf(
			"🐋 %s\nThe biggest crypto moves, tracked live at whalepulse.io\n#crypto #whalewatch #shorts",
			title)
	default:
		return "🐋 Live whale tracking, every move on-chain → whalepulse.io #crypto #whalewatch"
	}
}

// TruncateWithEllipsis trims text to at most limit runes, appending a single
// ellipsis when anything was cut.
func TruncateWithEllipsis(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
