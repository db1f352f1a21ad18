package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"marketcast/internal/marketdata"
)

// TemplateType selects a fixed layout and canvas size. The set is closed;
// anything outside it is rejected before a browser is ever launched.
type TemplateType string

const (
	TemplateDailyBrief     TemplateType = "daily-brief"
	TemplateWhaleAlert     TemplateType = "whale-alert"
	TemplateTokenSpotlight TemplateType = "token-spotlight"
	TemplateWeeklyRecap    TemplateType = "weekly-recap"
	TemplateVideoCover     TemplateType = "video-cover"
)

type templateSpec struct {
	file   string
	width  int
	height int
	zero   func() any
}

var templateSpecs = map[TemplateType]templateSpec{
	TemplateDailyBrief:     {file: "daily-brief.html.tmpl", width: 1080, height: 1080, zero: func() any { return marketdata.DailyBrief{} }},
	TemplateWhaleAlert:     {file: "whale-alert.html.tmpl", width: 1080, height: 1080, zero: func() any { return marketdata.WhaleAlert{} }},
	TemplateTokenSpotlight: {file: "token-spotlight.html.tmpl", width: 1080, height: 1350, zero: func() any { return marketdata.TokenSpotlight{} }},
	TemplateWeeklyRecap:    {file: "weekly-recap.html.tmpl", width: 1080, height: 1350, zero: func() any { return marketdata.WeeklyRecap{} }},
	TemplateVideoCover:     {file: "video-cover.html.tmpl", width: 1080, height: 1080, zero: func() any { return marketdata.VideoCover{} }},
}

// TemplateTypes returns the closed set in a stable order.
func TemplateTypes() []TemplateType {
	return []TemplateType{
		TemplateDailyBrief,
		TemplateWhaleAlert,
		TemplateTokenSpotlight,
		TemplateWeeklyRecap,
		TemplateVideoCover,
	}
}

// ParseTemplateType validates a user-supplied template name.
func ParseTemplateType(raw string) (TemplateType, error) {
	typ := TemplateType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := templateSpecs[typ]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, raw)
	}
	return typ, nil
}

// Dimensions reports the fixed canvas size for a template type.
func Dimensions(typ TemplateType) (width, height int, ok bool) {
	spec, ok := templateSpecs[typ]
	if !ok {
		return 0, 0, false
	}
	return spec.width, spec.height, true
}

// DefaultData returns the zero payload for a template type. Every field is
// empty; the markup substitutes the documented literal defaults inline.
func DefaultData(typ TemplateType) (any, bool) {
	spec, ok := templateSpecs[typ]
	if !ok {
		return nil, false
	}
	return spec.zero(), true
}

//go:embed markup/*.tmpl
var markupFS embed.FS

var markupTemplates = template.Must(template.ParseFS(markupFS, "markup/*.tmpl"))

// buildMarkup renders the template's HTML document for the given payload.
func buildMarkup(typ TemplateType, data any) (string, error) {
	spec, ok := templateSpecs[typ]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, typ)
	}
	if data == nil {
		data = spec.zero()
	}
	var out bytes.Buffer
	if err := markupTemplates.ExecuteTemplate(&out, spec.file, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", spec.file, err)
	}
	return out.String(), nil
}
