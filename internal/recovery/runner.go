// Package recovery demotes a partially published post back to draft after a
// failed run.
//
// Recovery is strictly best-effort: it runs on its own deadline, detached
// from the failed run's context, and its outcome is recorded on the result
// without ever replacing the original failure.
package recovery

import (
	"context"
	"time"

	"presswork/internal/audit"
	"presswork/internal/screenshot"
	"presswork/pkg/logging"
)

// Outcomes of a recovery attempt.
const (
	// OutcomeDemoted means a draft save succeeded and the post verified
	// safe afterwards.
	OutcomeDemoted = "DEMOTED"

	// OutcomeAlreadySafe means the post was already a saved draft and no
	// write was needed.
	OutcomeAlreadySafe = "ALREADY_SAFE"

	// OutcomeFailed means the demotion could not be confirmed; the post may
	// be in an unsafe state.
	OutcomeFailed = "RECOVERY_FAILED"
)

// DefaultTimeout bounds one recovery attempt.
const DefaultTimeout = 60 * time.Second

// Demotable is the provider slice recovery drives.
type Demotable interface {
	SaveDraft(ctx context.Context) error
	VerifyDraftStatus(ctx context.Context) (bool, error)
	VerifyContentSaved(ctx context.Context) (bool, error)
	CurrentPostID(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Config configures a Runner.
type Config struct {
	// Timeout bounds one recovery attempt. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Screenshots receives the failure-state capture. Optional.
	Screenshots *screenshot.Store
}

// Runner executes post-failure recovery.
type Runner struct {
	timeout     time.Duration
	screenshots *screenshot.Store
}

// New creates a Runner.
func New(cfg Config) *Runner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, screenshots: cfg.Screenshots}
}

// Recover attempts to leave the CMS in a safe draft state after cause failed
// the run, and appends the outcome to the trail. The attempt runs on its own
// deadline even when ctx is already cancelled or expired.
func (r *Runner) Recover(ctx context.Context, p Demotable, trail *audit.Trail, cause error) string {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	outcome := r.demote(rctx, p)

	postID, idErr := p.CurrentPostID(rctx)
	if idErr != nil {
		postID = ""
	}

	var ref string
	if png, err := p.Screenshot(rctx); err == nil {
		if ref, err = r.screenshots.Save(png); err != nil {
			logging.Warn("Recovery", "Could not store failure screenshot: %v", err)
		}
	}

	details := map[string]any{}
	if postID != "" {
		details["post_id"] = postID
	}
	trail.Append(audit.Record{
		Action:        audit.ActionRecovery,
		Outcome:       outcome,
		Details:       details,
		ScreenshotRef: ref,
		Error:         cause.Error(),
	})

	if outcome == OutcomeFailed {
		logging.Error("Recovery", cause, "Recovery could not confirm a safe draft state")
	} else {
		logging.Info("Recovery", "Recovery finished: %s", outcome)
	}
	return outcome
}

func (r *Runner) demote(ctx context.Context, p Demotable) string {
	draft, draftErr := p.VerifyDraftStatus(ctx)
	saved, savedErr := p.VerifyContentSaved(ctx)
	if draftErr == nil && savedErr == nil && draft && saved {
		return OutcomeAlreadySafe
	}

	if err := p.SaveDraft(ctx); err != nil {
		logging.Warn("Recovery", "Draft save failed during recovery: %v", err)
		return OutcomeFailed
	}

	draft, draftErr = p.VerifyDraftStatus(ctx)
	saved, savedErr = p.VerifyContentSaved(ctx)
	if draftErr != nil || savedErr != nil || !draft || !saved {
		return OutcomeFailed
	}
	return OutcomeDemoted
}
