package publish

import (
	"context"
	"fmt"
	"strings"

	"presswork/internal/audit"
	"presswork/internal/cms"
	"presswork/internal/provider"
	"presswork/pkg/logging"
)

func (r *run) phaseInitialize(ctx context.Context) error {
	return r.attach(ctx, r.p.cfg.Primary, nil)
}

func (r *run) phaseLogin(ctx context.Context) error {
	return r.prov.Login(ctx, r.req.Credentials)
}

func (r *run) phaseFillContent(ctx context.Context) error {
	if err := r.prov.OpenNewPost(ctx); err != nil {
		return err
	}
	if err := r.prov.SetTitle(ctx, r.req.Article.Title); err != nil {
		return err
	}
	if err := r.prov.SetBody(ctx, r.req.Article.BodyHTML); err != nil {
		return err
	}
	if r.req.Article.Excerpt != "" {
		if err := r.prov.SetExcerpt(ctx, r.req.Article.Excerpt); err != nil {
			return err
		}
	}
	if r.req.Article.Slug != "" {
		if err := r.prov.SetSlug(ctx, r.req.Article.Slug); err != nil {
			return err
		}
	}
	if r.req.Article.Author != "" {
		if err := r.prov.SetAuthor(ctx, r.req.Article.Author); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) phaseSaveDraft(ctx context.Context) error {
	return r.prov.SaveDraft(ctx)
}

func (r *run) phaseProcessImages(ctx context.Context) error {
	if inline := r.req.InlineImages(); len(inline) > 0 {
		if err := r.prov.InsertImages(ctx, inline); err != nil {
			return err
		}
	}
	if featured, ok := r.req.FeaturedImage(); ok {
		if err := r.prov.SetFeaturedImage(ctx, featured); err != nil {
			return err
		}
	}
	return nil
}

// phaseSetSEO degrades a missing SEO plugin to a warning: the post is intact
// without its metadata, and the next phases still apply.
func (r *run) phaseSetSEO(ctx context.Context) error {
	err := r.prov.SetSEO(ctx, r.req.SEO)
	if provider.KindOf(err) == cms.ErrSEOPluginMissing {
		logging.Warn("Orchestrator", "Task %s: no SEO plugin on %s, metadata skipped", r.taskID, r.req.Target.URL)
		r.warn(fmt.Sprintf("%s: %s", cms.ErrSEOPluginMissing, providerMessage(err)))
		return nil
	}
	return err
}

func (r *run) phaseSetTaxonomy(ctx context.Context) error {
	return r.prov.SetTaxonomy(ctx, r.req.Taxonomy)
}

func (r *run) phaseInsertRelated(ctx context.Context) error {
	return r.prov.InsertRelated(ctx, r.req.Related)
}

func (r *run) phaseInsertFAQ(ctx context.Context) error {
	return r.prov.InsertFAQSchema(ctx, r.req.FAQs)
}

// phaseSafetyGate runs the pre-terminal validation. A blocked report is a
// fatal failure that must not retry or fail over; the run goes straight to
// recovery, which finds the draft already safe.
func (r *run) phaseSafetyGate(ctx context.Context) error {
	report := r.p.cfg.Safety.Validate(ctx, r.prov, r.req)
	r.result.SafetyChecks = report.Checks
	r.result.Warnings = append(r.result.Warnings, report.Warnings()...)

	outcome := "safe"
	if !report.Safe {
		outcome = "blocked"
	}
	r.trail.Append(audit.Record{
		Action:   audit.ActionSafetyReport,
		Provider: r.provName,
		Phase:    PhaseSafetyGate,
		Outcome:  outcome,
		Details: map[string]any{
			"checks":   len(report.Checks),
			"warnings": len(report.Warnings()),
			"errors":   len(report.Errors()),
		},
	})

	if !report.Safe {
		return provider.Fatal(r.provName, "safety_gate", cms.ErrSafetyBlocked,
			strings.Join(report.Errors(), "; "), nil)
	}
	return nil
}

// phaseTerminal performs the irreversible write the intent asks for. The
// draft intent re-saves, which is safe to retry; publish and schedule go
// through commitTerminal for at-most-once semantics.
func (r *run) phaseTerminal(ctx context.Context) error {
	switch r.req.Intent.Kind {
	case cms.IntentSaveDraft:
		return r.prov.SaveDraft(ctx)
	case cms.IntentPublishNow:
		return r.commitTerminal(ctx, r.prov.Publish)
	case cms.IntentSchedule:
		if !r.prov.Capabilities().Schedule {
			return provider.Fatal(r.provName, "schedule", cms.ErrConfigInvalid,
				"provider does not support scheduling", nil)
		}
		return r.commitTerminal(ctx, func(ctx context.Context) error {
			return r.prov.Schedule(ctx, r.req.Intent.At)
		})
	default:
		return provider.Fatal(r.provName, "terminal", cms.ErrConfigInvalid,
			fmt.Sprintf("unknown intent %q", r.req.Intent.Kind), nil)
	}
}

// commitTerminal issues the terminal write exactly once. When the call fails
// the write may still have landed, so the failure is reconciled through
// introspection instead of retried.
func (r *run) commitTerminal(ctx context.Context, commit func(context.Context) error) error {
	r.terminalSent = true
	err := commit(ctx)
	if err == nil {
		return nil
	}
	if r.reconcile(ctx) {
		logging.Warn("Orchestrator", "Task %s: terminal confirmation lost but the post shows as committed: %v", r.taskID, err)
		r.warn(fmt.Sprintf("%s: terminal confirmation was lost but the post shows as committed", cms.ErrAmbiguousPublish))
		return nil
	}
	return err
}

// reconcile looks for evidence that the terminal write landed: a live post
// URL, or a post that left draft state. A post ID alone is not evidence,
// because the interim draft save already assigned one.
func (r *run) reconcile(ctx context.Context) bool {
	evidence := false
	if url, err := r.prov.PublishedURL(ctx); err == nil && url != "" {
		r.result.PublishedURL = url
		evidence = true
	}
	if id, err := r.prov.CurrentPostID(ctx); err == nil && id != "" {
		r.result.PostID = id
		if !evidence {
			if draft, err := r.prov.VerifyDraftStatus(ctx); err == nil && !draft {
				evidence = true
			}
		}
	}
	return evidence
}

// phaseCaptureURL records the post ID for every intent and the live URL for
// an immediate publish. A reconciled terminal may already have filled the
// URL.
func (r *run) phaseCaptureURL(ctx context.Context) error {
	if id, err := r.prov.CurrentPostID(ctx); err == nil && id != "" {
		r.result.PostID = id
	}
	if r.req.Intent.Kind != cms.IntentPublishNow || r.result.PublishedURL != "" {
		return nil
	}
	url, err := r.prov.PublishedURL(ctx)
	if err != nil {
		return err
	}
	r.result.PublishedURL = url
	return nil
}
