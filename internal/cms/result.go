package cms

import (
	"strings"
	"time"
)

// PhaseStatus is the terminal status of one phase within a run.
type PhaseStatus string

const (
	PhaseCompleted PhaseStatus = "completed"
	PhaseSkipped   PhaseStatus = "skipped"
	PhaseFailed    PhaseStatus = "failed"
)

// PhaseResult records one phase's outcome for the run report.
type PhaseResult struct {
	Name     string        `json:"name"`
	Status   PhaseStatus   `json:"status"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Provider string        `json:"provider,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SafetyCheck is one pre-publish validation finding, carried on the result
// when the gate ran.
type SafetyCheck struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Critical bool   `json:"critical"`
	Message  string `json:"message"`
}

// PublishResult is the complete outcome of one publish run. It is always
// fully populated: a failed run carries its Error and the phase trail up to
// the failure, a successful run carries the post identity.
type PublishResult struct {
	TaskID  string `json:"task_id"`
	Success bool   `json:"success"`

	// PostID is the CMS-assigned post identifier, when one was observed.
	PostID string `json:"post_id,omitempty"`

	// PublishedURL is the live URL after a publish intent; empty for drafts
	// and schedules, and possibly empty on success when URL capture failed
	// (a warning records that case).
	PublishedURL string `json:"published_url,omitempty"`

	// FinalPhase is the phase the run ended in.
	FinalPhase string `json:"final_phase"`

	// OriginalProvider is the provider the run started with; FinalProvider
	// is the one that ran the terminal phase. They differ after a failover.
	OriginalProvider string `json:"original_provider"`
	FinalProvider    string `json:"final_provider"`
	FallbackUsed     bool   `json:"fallback_used"`
	FallbackReason   string `json:"fallback_reason,omitempty"`

	// RecoveryOutcome is set when the failure path ran recovery:
	// "DEMOTED", "ALREADY_SAFE", or "RECOVERY_FAILED".
	RecoveryOutcome string `json:"recovery_outcome,omitempty"`

	// Error summarizes the failure; nil on success.
	Error *RunError `json:"error,omitempty"`

	// Warnings are degraded-but-successful conditions: missing SEO plugin,
	// ambiguous publish confirmation, URL capture failure, non-critical
	// safety findings.
	Warnings []string `json:"warnings,omitempty"`

	// RetryCount totals the transient retries across all phases and both
	// providers.
	RetryCount int `json:"retry_count"`

	// SafetyChecks are the gate's findings; empty when the gate was skipped.
	SafetyChecks []SafetyCheck `json:"safety_checks,omitempty"`

	// Screenshots are store refs of failure captures, in the order taken.
	Screenshots []string `json:"screenshots,omitempty"`

	Phases       []PhaseResult `json:"phases"`
	Duration     time.Duration `json:"duration"`
	CostEstimate float64       `json:"cost_estimate_usd"`
	StartedAt    time.Time     `json:"started_at"`
}

// Phase returns the recorded result for the named phase, or nil.
func (r *PublishResult) Phase(name string) *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i]
		}
	}
	return nil
}

// HasWarning reports whether a warning starting with prefix was recorded.
// Degraded failures record warnings prefixed with their error kind.
func (r *PublishResult) HasWarning(prefix string) bool {
	for _, w := range r.Warnings {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}
