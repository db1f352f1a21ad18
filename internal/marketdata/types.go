package marketdata

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Literal defaults baked into every content payload. The pipeline must be
// able to render and caption with zero live data, so every field has a
// believable stand-in.
const (
	DefaultTxCount      = "247"
	DefaultTxChange     = "+12%"
	DefaultVolume       = "$1.2B"
	DefaultTokenCount   = "38"
	DefaultTopMove      = "ETH +8.4%"
	DefaultTopDirection = "inflow"
	DefaultSentiment    = "BULLISH"
	DefaultConfidence   = "78%"
	DefaultWhaleAmount  = "$4.7M"
	DefaultWhaleToken   = "BTC"
	DefaultWhaleVerb    = "moved to exchange"
	DefaultAddress      = "0x7a25…9f3c"
	DefaultWeekVolume   = "$8.9B"
	DefaultWeekTxCount  = "1,842"
	DefaultBiggestMove  = "SOL +21%"
	DefaultMostActive   = "ETH"
)

// DailyBrief is the payload for the daily market brief graphic.
type DailyBrief struct {
	Date         string `json:"date"`
	TxCount      string `json:"txCount"`
	TxChange     string `json:"txChange"`
	Volume       string `json:"volume"`
	TokenCount   string `json:"tokenCount"`
	TopMove      string `json:"topMove"`
	TopDirection string `json:"topDirection"`
	Sentiment    string `json:"sentiment"`
	Confidence   string `json:"confidence"`
}

// WhaleAlert is the payload for a single large-transaction callout.
type WhaleAlert struct {
	Amount    string `json:"amount"`
	Token     string `json:"token"`
	Direction string `json:"direction"`
	Address   string `json:"address"`
}

// TokenSpotlight is the payload for the per-token deep-dive graphic.
type TokenSpotlight struct {
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	MCap      string `json:"mcap"`
	Volume    string `json:"volume"`
	WhaleTxns string `json:"whaleTxns"`
	Galaxy    string `json:"galaxy"`
	SocialVol string `json:"socialVol"`
	Sentiment string `json:"sentiment"`
	Score     string `json:"score"`
	Insight   string `json:"insight"`
}

// WeeklyRecap is the payload for the week-in-review graphic.
type WeeklyRecap struct {
	Week        string   `json:"week"`
	TotalVol    string   `json:"totalVol"`
	TotalTx     string   `json:"totalTx"`
	BiggestMove string   `json:"biggestMove"`
	MostActive  string   `json:"mostActive"`
	TopTokens   []string `json:"topTokens"`
}

// VideoCover is the payload for the poster frame used alongside video posts.
type VideoCover struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

var printer = message.NewPrinter(language.English)

// FormatCount renders an integer with thousands separators ("1,842").
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatUSD renders a dollar amount compactly: $950M, $1.2B, $84.3K.
func FormatUSD(amount float64) string {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return trimZero(fmt.Sprintf("$%.1fB", amount/1e9))
	case abs >= 1e6:
		return trimZero(fmt.Sprintf("$%.1fM", amount/1e6))
	case abs >= 1e3:
		return trimZero(fmt.Sprintf("$%.1fK", amount/1e3))
	default:
		return printer.Sprintf("$%.0f", amount)
	}
}

// FormatPrice renders a token price without compaction: $3,420 or $0.48.
// Compacting prices the way volumes are compacted would turn $3,420 into
// $3.4K, which reads wrong on a price line.
func FormatPrice(amount float64) string {
	if amount < 10 {
		return printer.Sprintf("$%.2f", amount)
	}
	return printer.Sprintf("$%.0f", amount)
}

func trimZero(s string) string {
	// $1.0B reads worse than $1B.
	if len(s) > 3 && s[len(s)-3] == '.' && s[len(s)-2] == '0' {
		return s[:len(s)-3] + s[len(s)-1:]
	}
	return s
}

// BriefDate formats the date line used on daily brief graphics.
func BriefDate(at time.Time) string {
	return at.Format("Mon, Jan 2 2006")
}

// BriefDateToday is BriefDate for the current day.
func BriefDateToday() string {
	return BriefDate(time.Now())
}

// WeekLabel formats the week line used on weekly recap graphics.
func WeekLabel(at time.Time) string {
	year, week := at.ISOWeek()
	return fmt.Sprintf("Week %d, %d", week, year)
}
