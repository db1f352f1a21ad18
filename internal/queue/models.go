package queue

import (
	"strings"
	"time"
)

// JobType identifies one of the named content pipelines.
type JobType string

const (
	JobDailyBrief     JobType = "daily-brief"
	JobWhaleAlert     JobType = "whale-alert"
	JobTokenSpotlight JobType = "token-spotlight"
	JobWeeklyRecap    JobType = "weekly-recap"
	JobVideoBatch     JobType = "video-batch"
)

var allJobTypes = []JobType{
	JobDailyBrief,
	JobWhaleAlert,
	JobTokenSpotlight,
	JobWeeklyRecap,
	JobVideoBatch,
}

// AllJobTypes returns the ordered list of known job types.
func AllJobTypes() []JobType {
	cp := make([]JobType, len(allJobTypes))
	copy(cp, allJobTypes)
	return cp
}

// ParseJobType converts a string into a known JobType.
func ParseJobType(value string) (JobType, bool) {
	normalized := JobType(strings.ToLower(strings.TrimSpace(value)))
	for _, jt := range allJobTypes {
		if jt == normalized {
			return jt, true
		}
	}
	return "", false
}

// Status represents the lifecycle of a content job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusRendering      Status = "rendering"
	StatusAcquiring      Status = "acquiring"
	StatusCaptioning     Status = "captioning"
	StatusPublishing     Status = "publishing"
	StatusDone           Status = "done"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRendering,
	StatusAcquiring,
	StatusCaptioning,
	StatusPublishing,
	StatusDone,
	StatusPartialFailure,
	StatusFailed,
}

var terminalStatuses = map[Status]struct{}{
	StatusDone:           {},
	StatusPartialFailure: {},
	StatusFailed:         {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return normalized, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status ends the job's lifecycle. Terminal jobs
// are never resumed.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Job represents one triggered execution of a named content pipeline,
// persisted in SQLite.
type Job struct {
	ID           string
	Type         JobType
	Status       Status
	DryRun       bool
	ArtifactPath string
	ErrorMessage string
	TriggeredAt  time.Time
	UpdatedAt    time.Time
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}

// PublishStatus is the per-platform outcome of one publish attempt.
type PublishStatus string

const (
	PublishOK      PublishStatus = "ok"
	PublishSkipped PublishStatus = "skipped_not_configured"
	PublishFailed  PublishStatus = "failed"
)

// PublishResult records the outcome for one (artifact, platform) pair.
type PublishResult struct {
	JobID       string
	Platform    string
	PostID      string
	Status      PublishStatus
	ErrorDetail string
	CreatedAt   time.Time
}

// ResolveTerminalStatus computes a job's terminal status from its publish
// results: done when nothing failed, partial_failure when successes and
// failures mix, failed when every attempted platform failed. Jobs where all
// platforms were skipped still count as done.
func ResolveTerminalStatus(results []PublishResult) Status {
	var ok, failed int
	for _, result := range results {
		switch result.Status {
		case PublishOK:
			ok++
		case PublishFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return StatusDone
	case ok > 0:
		return StatusPartialFailure
	default:
		return StatusFailed
	}
}
