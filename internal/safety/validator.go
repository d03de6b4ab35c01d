package safety

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"presswork/internal/cms"
	"presswork/internal/testing/mock"
	"presswork/pkg/logging"
)

// Check names, in execution order.
const (
	CheckTitleLength      = "title_length"
	CheckBodyLength       = "body_length"
	CheckDraftStatus      = "draft_status"
	CheckContentSaved     = "content_saved"
	CheckIntentEcho       = "intent_echo"
	CheckTaxonomyPresent  = "taxonomy_present"
	CheckScheduleValidity = "schedule_validity"
)

const (
	minTitleRunes = 5
	minBodyRunes  = 50
)

// Introspector is the slice of the provider surface the gate reads live post
// state through.
type Introspector interface {
	VerifyDraftStatus(ctx context.Context) (bool, error)
	VerifyContentSaved(ctx context.Context) (bool, error)
}

// Report is the outcome of one preflight run. Safe means no critical check
// failed; non-critical failures surface through Warnings.
type Report struct {
	Safe   bool              `json:"safe"`
	Checks []cms.SafetyCheck `json:"checks"`
}

// Warnings returns the messages of failed non-critical checks.
func (r Report) Warnings() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed && !c.Critical {
			out = append(out, c.Message)
		}
	}
	return out
}

// Errors returns the messages of failed critical checks.
func (r Report) Errors() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed && c.Critical {
			out = append(out, c.Message)
		}
	}
	return out
}

// Config configures a Validator.
type Config struct {
	// Clock supplies now for schedule validation. Defaults to the real
	// clock.
	Clock mock.Clock
}

// Validator runs the preflight check sequence. Stateless across runs and
// safe for concurrent use.
type Validator struct {
	clock mock.Clock
}

// New creates a Validator.
func New(cfg Config) *Validator {
	clock := cfg.Clock
	if clock == nil {
		clock = mock.RealClock{}
	}
	return &Validator{clock: clock}
}

// Validate executes the fixed check sequence and returns the report. The
// introspector is consulted for the two live-state checks; every other check
// reads only the request.
func (v *Validator) Validate(ctx context.Context, intr Introspector, req *cms.PublishRequest) Report {
	checks := []cms.SafetyCheck{
		checkTitle(req.Article.Title),
		checkBody(req.Article.BodyHTML),
		checkDraftStatus(ctx, intr),
		checkContentSaved(ctx, intr),
		checkIntentEcho(req.Intent),
		checkTaxonomy(req.Taxonomy),
		v.checkSchedule(req.Intent),
	}

	report := Report{Safe: true, Checks: checks}
	for _, c := range checks {
		if !c.Passed && c.Critical {
			report.Safe = false
		}
	}

	if report.Safe {
		logging.Info("Safety", "Preflight passed for task %s with %d warning(s)", req.TaskID, len(report.Warnings()))
	} else {
		logging.Warn("Safety", "Preflight blocked task %s: %s", req.TaskID, strings.Join(report.Errors(), "; "))
	}
	return report
}

func checkTitle(title string) cms.SafetyCheck {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < minTitleRunes {
		return cms.SafetyCheck{
			Name:     CheckTitleLength,
			Critical: true,
			Message:  fmt.Sprintf("title has %d characters, minimum is %d", n, minTitleRunes),
		}
	}
	return cms.SafetyCheck{
		Name:     CheckTitleLength,
		Passed:   true,
		Critical: true,
		Message:  fmt.Sprintf("title has %d characters", n),
	}
}

func checkBody(body string) cms.SafetyCheck {
	n := utf8.RuneCountInString(strings.TrimSpace(body))
	if n < minBodyRunes {
		return cms.SafetyCheck{
			Name:     CheckBodyLength,
			Critical: true,
			Message:  fmt.Sprintf("body has %d characters, minimum is %d", n, minBodyRunes),
		}
	}
	return cms.SafetyCheck{
		Name:     CheckBodyLength,
		Passed:   true,
		Critical: true,
		Message:  fmt.Sprintf("body has %d characters", n),
	}
}

func checkDraftStatus(ctx context.Context, intr Introspector) cms.SafetyCheck {
	draft, err := intr.VerifyDraftStatus(ctx)
	if err != nil {
		return cms.SafetyCheck{
			Name:     CheckDraftStatus,
			Critical: true,
			Message:  fmt.Sprintf("draft status unknown: %v", err),
		}
	}
	if !draft {
		return cms.SafetyCheck{
			Name:     CheckDraftStatus,
			Critical: true,
			Message:  "post is not in draft state",
		}
	}
	return cms.SafetyCheck{
		Name:     CheckDraftStatus,
		Passed:   true,
		Critical: true,
		Message:  "post is in draft state",
	}
}

func checkContentSaved(ctx context.Context, intr Introspector) cms.SafetyCheck {
	saved, err := intr.VerifyContentSaved(ctx)
	if err != nil {
		return cms.SafetyCheck{
			Name:    CheckContentSaved,
			Message: fmt.Sprintf("saved state unknown: %v", err),
		}
	}
	if !saved {
		return cms.SafetyCheck{
			Name:    CheckContentSaved,
			Message: "content has unsaved changes",
		}
	}
	return cms.SafetyCheck{
		Name:    CheckContentSaved,
		Passed:  true,
		Message: "content is saved",
	}
}

func checkIntentEcho(intent cms.Intent) cms.SafetyCheck {
	msg := fmt.Sprintf("intent is %s", intent.Kind)
	if intent.Kind == cms.IntentSchedule {
		msg = fmt.Sprintf("intent is %s at %s", intent.Kind, intent.At.Format("2006-01-02 15:04 MST"))
	}
	return cms.SafetyCheck{
		Name:    CheckIntentEcho,
		Passed:  true,
		Message: msg,
	}
}

func checkTaxonomy(tax cms.Taxonomy) cms.SafetyCheck {
	if len(tax.Categories) == 0 {
		return cms.SafetyCheck{
			Name:    CheckTaxonomyPresent,
			Message: "no category assigned, post will land in the CMS default",
		}
	}
	return cms.SafetyCheck{
		Name:    CheckTaxonomyPresent,
		Passed:  true,
		Message: fmt.Sprintf("%d categories, %d tags", len(tax.Categories), len(tax.Tags)),
	}
}

func (v *Validator) checkSchedule(intent cms.Intent) cms.SafetyCheck {
	if intent.Kind != cms.IntentSchedule {
		return cms.SafetyCheck{
			Name:     CheckScheduleValidity,
			Passed:   true,
			Critical: true,
			Message:  "not a scheduled publish",
		}
	}
	now := v.clock.Now()
	if !intent.At.After(now) {
		return cms.SafetyCheck{
			Name:     CheckScheduleValidity,
			Critical: true,
			Message:  fmt.Sprintf("scheduled time %s is not in the future", intent.At.Format("2006-01-02 15:04 MST")),
		}
	}
	return cms.SafetyCheck{
		Name:     CheckScheduleValidity,
		Passed:   true,
		Critical: true,
		Message:  fmt.Sprintf("scheduled for %s", intent.At.Format("2006-01-02 15:04 MST")),
	}
}
