package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketcast/internal/logging"
)

const defaultHTTPTimeout = 15 * time.Second

// Summary mirrors the dashboard summary endpoint.
type Summary struct {
	TxCount24h    int64   `json:"txCount24h"`
	TxChangePct   float64 `json:"txChangePct"`
	VolumeUSD     float64 `json:"volumeUsd"`
	TokenCount    int     `json:"tokenCount"`
	TopMover      string  `json:"topMover"`
	TopMoveChange float64 `json:"topMoveChange"`
	TopDirection  string  `json:"topDirection"`
	Sentiment     string  `json:"sentiment"`
	Confidence    float64 `json:"confidence"`
}

// Alert mirrors one entry of the whale alert feed.
type Alert struct {
	AmountUSD float64 `json:"amountUsd"`
	Token     string  `json:"token"`
	Direction string  `json:"direction"`
	Address   string  `json:"address"`
}

// Trending mirrors one entry of the trending token list.
type Trending struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	PriceUSD   float64 `json:"priceUsd"`
	ChangePct  float64 `json:"changePct"`
	MCapUSD    float64 `json:"mcapUsd"`
	VolumeUSD  float64 `json:"volumeUsd"`
	WhaleTxns  int64   `json:"whaleTxns"`
	GalaxyRank string  `json:"galaxyRank"`
	SocialVol  int64   `json:"socialVol"`
	Sentiment  string  `json:"sentiment"`
	Score      float64 `json:"score"`
}

// Snapshot is the composite of one aggregation pass. Any slice may be nil;
// consumers must fall back to literal defaults.
type Snapshot struct {
	Summary  *Summary
	Alerts   []Alert
	Trending []Trending
}

// Aggregator fetches the independent market-data endpoints. Each fetch is a
// single pass with no retries; a failed slice yields nil and the rest carry
// on.
type Aggregator struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option customizes the aggregator.
type Option func(*Aggregator)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Aggregator) {
		if client != nil {
			a.client = client
		}
	}
}

// NewAggregator constructs an aggregator rooted at the site's API.
func NewAggregator(baseURL string, logger *slog.Logger, opts ...Option) *Aggregator {
	agg := &Aggregator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logging.WithComponent(logger, "marketdata"),
	}
	for _, opt := range opts {
		opt(agg)
	}
	return agg
}

// FetchSnapshot issues the three reads and composes whatever succeeded.
func (a *Aggregator) FetchSnapshot(ctx context.Context) Snapshot {
	var snap Snapshot

	var summary Summary
	if err := a.fetchJSON(ctx, "/api/dashboard/summary", &summary); err != nil {
		a.logger.Warn("summary fetch failed, using defaults", logging.Error(err))
	} else {
		snap.Summary = &summary
	}

	var alerts []Alert
	if err := a.fetchJSON(ctx, "/api/alerts/recent", &alerts); err != nil {
		a.logger.Warn("alert feed fetch failed, using defaults", logging.Error(err))
	} else {
		snap.Alerts = alerts
	}

	var trending []Trending
	if err := a.fetchJSON(ctx, "/api/tokens/trending", &trending); err != nil {
		a.logger.Warn("trending fetch failed, using defaults", logging.Error(err))
	} else {
		snap.Trending = trending
	}

	return snap
}

func (a *Aggregator) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// DailyBrief builds the daily brief payload, substituting literal defaults
// for any missing slice.
func (s Snapshot) DailyBrief(now time.Time) DailyBrief {
	brief := DailyBrief{
		Date:         BriefDate(now),
		TxCount:      DefaultTxCount,
		TxChange:     DefaultTxChange,
		Volume:       DefaultVolume,
		TokenCount:   DefaultTokenCount,
		TopMove:      DefaultTopMove,
		TopDirection: DefaultTopDirection,
		Sentiment:    DefaultSentiment,
		Confidence:   DefaultConfidence,
	}
	if s.Summary == nil {
		return brief
	}
	sum := s.Summary
	if sum.TxCount24h > 0 {
		brief.TxCount = FormatCount(sum.TxCount24h)
	}
	if sum.TxChangePct != 0 {
		brief.TxChange = fmt.Sprintf("%+.0f%%", sum.TxChangePct)
	}
	if sum.VolumeUSD > 0 {
		brief.Volume = FormatUSD(sum.VolumeUSD)
	}
	if sum.TokenCount > 0 {
		brief.TokenCount = FormatCount(int64(sum.TokenCount))
	}
	if sum.TopMover != "" {
		brief.TopMove = fmt.Sprintf("%s %+.1f%%", sum.TopMover, sum.TopMoveChange)
	}
	if sum.TopDirection != "" {
		brief.TopDirection = sum.TopDirection
	}
	if sum.Sentiment != "" {
		brief.Sentiment = strings.ToUpper(sum.Sentiment)
	}
	if sum.Confidence > 0 {
		brief.Confidence = fmt.Sprintf("%.0f%%", sum.Confidence*100)
	}
	return brief
}

// WhaleAlert builds the whale alert payload from the newest feed entry.
func (s Snapshot) WhaleAlert() WhaleAlert {
	alert := WhaleAlert{
		Amount:    DefaultWhaleAmount,
		Token:     DefaultWhaleToken,
		Direction: DefaultWhaleVerb,
		Address:   DefaultAddress,
	}
	if len(s.Alerts) == 0 {
		return alert
	}
	first := s.Alerts[0]
	if first.AmountUSD > 0 {
		alert.Amount = FormatUSD(first.AmountUSD)
	}
	if first.Token != "" {
		alert.Token = strings.ToUpper(first.Token)
	}
	if first.Direction != "" {
		alert.Direction = first.Direction
	}
	if first.Address != "" {
		alert.Address = shortenAddress(first.Address)
	}
	return alert
}

// TokenSpotlight builds the spotlight payload from the top trending token.
func (s Snapshot) TokenSpotlight() TokenSpotlight {
	spot := TokenSpotlight{
		Name:      "Ethereum",
		Symbol:    "ETH",
		Price:     "$3,420",
		Change:    "+5.2%",
		MCap:      "$410B",
		Volume:    DefaultVolume,
		WhaleTxns: "86",
		Galaxy:    "A",
		SocialVol: "12.4K",
		Sentiment: DefaultSentiment,
		Score:     "82",
		Insight:   "Whale accumulation picking up across the top wallets.",
	}
	if len(s.Trending) == 0 {
		return spot
	}
	top := s.Trending[0]
	if top.Name != "" {
		spot.Name = top.Name
	}
	if top.Symbol != "" {
		spot.Symbol = strings.ToUpper(top.Symbol)
	}
	if top.PriceUSD > 0 {
		spot.Price = FormatPrice(top.PriceUSD)
	}
	if top.ChangePct != 0 {
		spot.Change = fmt.Sprintf("%+.1f%%", top.ChangePct)
	}
	if top.MCapUSD > 0 {
		spot.MCap = FormatUSD(top.MCapUSD)
	}
	if top.VolumeUSD > 0 {
		spot.Volume = FormatUSD(top.VolumeUSD)
	}
	if top.WhaleTxns > 0 {
		spot.WhaleTxns = FormatCount(top.WhaleTxns)
	}
	if top.GalaxyRank != "" {
		spot.Galaxy = top.GalaxyRank
	}
	if top.SocialVol > 0 {
		spot.SocialVol = FormatCount(top.SocialVol)
	}
	if top.Sentiment != "" {
		spot.Sentiment = strings.ToUpper(top.Sentiment)
	}
	if top.Score > 0 {
		spot.Score = fmt.Sprintf("%.0f", top.Score)
	}
	return spot
}

// WeeklyRecap builds the recap payload from the summary and trending slices.
func (s Snapshot) WeeklyRecap(now time.Time) WeeklyRecap {
	recap := WeeklyRecap{
		Week:        WeekLabel(now),
		TotalVol:    DefaultWeekVolume,
		TotalTx:     DefaultWeekTxCount,
		BiggestMove: DefaultBiggestMove,
		MostActive:  DefaultMostActive,
		TopTokens:   []string{"BTC", "ETH", "SOL"},
	}
	if s.Summary != nil {
		if s.Summary.VolumeUSD > 0 {
			recap.TotalVol = FormatUSD(s.Summary.VolumeUSD * 7)
		}
		if s.Summary.TxCount24h > 0 {
			recap.TotalTx = FormatCount(s.Summary.TxCount24h * 7)
		}
		if s.Summary.TopMover != "" {
			recap.BiggestMove = fmt.Sprintf("%s %+.1f%%", s.Summary.TopMover, s.Summary.TopMoveChange)
		}
	}
	if len(s.Trending) > 0 {
		tokens := make([]string, 0, 3)
		for _, entry := range s.Trending {
			if entry.Symbol == "" {
				continue
			}
			tokens = append(tokens, strings.ToUpper(entry.Symbol))
			if len(tokens) == 3 {
				break
			}
		}
		if len(tokens) > 0 {
			recap.TopTokens = tokens
			recap.MostActive = tokens[0]
		}
	}
	return recap
}

func shortenAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
