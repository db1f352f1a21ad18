package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"marketcast/internal/config"
	"marketcast/internal/services"
)

// Requirement defines an external dependency marketcast relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external tools for the configured pipeline. The
// browser binary is optional because chromedp can locate an installed Chrome
// on its own; yt-dlp, ffmpeg, and ffprobe are hard requirements for the video
// pipeline.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "yt-dlp", Command: cfg.Acquire.YtDlpBinary, Description: "video search and download"},
		{Name: "ffmpeg", Command: cfg.Brand.FFmpegBinary, Description: "branding and transcoding"},
		{Name: "ffprobe", Command: cfg.Brand.FFprobeBinary, Description: "duration probing"},
	}
	if chrome := strings.TrimSpace(cfg.Render.ChromeBinary); chrome != "" {
		reqs = append(reqs, Requirement{
			Name:        "chrome",
			Command:     chrome,
			Description: "template rendering",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// VerifyRequired returns a configuration error naming every missing required
// tool. Callers on the video path treat this as fatal to the process.
func VerifyRequired(cfg *config.Config) error {
	var missing []string
	for _, status := range CheckBinaries(Requirements(cfg)) {
		if status.Optional || status.Available {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "deps", "verify",
		"missing required tools: "+strings.Join(missing, ", "), nil)
}
