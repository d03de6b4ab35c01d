package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"presswork/internal/audit"
	"presswork/internal/cms"
	"presswork/internal/metrics"
	"presswork/internal/provider"
	"presswork/internal/recovery"
	"presswork/internal/safety"
	"presswork/internal/screenshot"
	"presswork/internal/testing/mock"
	"presswork/pkg/logging"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 2 * time.Second
	DefaultRunTimeout = 600 * time.Second
)

// graceTimeout bounds the bookkeeping calls that still need the provider
// after the run context died: screenshot, post ID lookup, close.
const graceTimeout = 15 * time.Second

// Config wires a Publisher.
type Config struct {
	// Primary builds the provider every run starts with.
	Primary provider.Factory

	// Fallback, when non-nil, builds the provider a run fails over to.
	// Nil disables failover.
	Fallback provider.Factory

	// MaxRetries bounds transient retries per provider session.
	MaxRetries int

	// BaseDelay scales the linear retry backoff: the n-th retry within a
	// provider session waits n × BaseDelay.
	BaseDelay time.Duration

	// RunTimeout bounds one whole run.
	RunTimeout time.Duration

	// SafetyDisabled skips the pre-terminal gate. Settings validation only
	// permits this outside production.
	SafetyDisabled bool

	// Safety runs the pre-terminal checks. Defaults to a validator on
	// Clock.
	Safety *safety.Validator

	// Recovery demotes the post to draft after a failed run. Defaults to a
	// runner writing to Screenshots.
	Recovery *recovery.Runner

	// Metrics receives run, fallback, and cost observations. Optional.
	Metrics *metrics.Metrics

	// Estimator prices provider sessions for the result's cost field.
	Estimator metrics.CostEstimator

	// CostBudget warns when a run's aggregate estimate exceeds it; 0
	// disables the check. Per-session enforcement lives in the providers.
	CostBudget float64

	// Screenshots stores failure captures. Optional.
	Screenshots *screenshot.Store

	// AuditDir holds one JSONL trail per task. Empty disables the trail.
	AuditDir string

	// Clock supplies run timestamps.
	Clock mock.Clock

	// Sleep waits between retries; tests swap it out.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Publisher drives publish runs. Safe for concurrent use; each run owns its
// provider session.
type Publisher struct {
	cfg Config
}

// New builds a Publisher, filling configuration defaults.
func New(cfg Config) *Publisher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = mock.RealClock{}
	}
	if cfg.Safety == nil {
		cfg.Safety = safety.New(safety.Config{Clock: cfg.Clock})
	}
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.New(recovery.Config{Screenshots: cfg.Screenshots})
	}
	if cfg.Estimator == (metrics.CostEstimator{}) {
		cfg.Estimator = metrics.DefaultCostEstimator()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Publisher{cfg: cfg}
}

// Publish runs one article end to end and returns the fully populated
// result. The returned error mirrors result.Error so callers can plumb exit
// codes without inspecting the result twice; it is nil exactly when the run
// succeeded.
func (p *Publisher) Publish(ctx context.Context, req *cms.PublishRequest) (*cms.PublishResult, error) {
	result := &cms.PublishResult{StartedAt: p.cfg.Clock.Now()}

	if req == nil {
		result.Error = &cms.RunError{Kind: cms.ErrConfigInvalid, Message: "no publish request"}
		return result, result.Error
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	result.TaskID = taskID

	if p.cfg.Primary == nil {
		result.Error = &cms.RunError{Kind: cms.ErrConfigInvalid, Message: "no primary provider configured"}
		return result, result.Error
	}
	result.OriginalProvider = p.cfg.Primary.Name()
	result.FinalProvider = result.OriginalProvider

	if err := req.Intent.Validate(); err != nil {
		result.Error = &cms.RunError{Kind: cms.ErrConfigInvalid, Message: err.Error()}
		return result, result.Error
	}

	var trail *audit.Trail
	if p.cfg.AuditDir != "" {
		var err error
		if trail, err = audit.Open(p.cfg.AuditDir, taskID, p.cfg.Clock); err != nil {
			logging.Warn("Orchestrator", "Task %s: audit trail unavailable: %v", taskID, err)
			trail = nil
		}
	}
	trail.Append(audit.Record{
		Action:   audit.ActionRunStarted,
		Provider: result.OriginalProvider,
		Details: map[string]any{
			"target": req.Target.URL,
			"kind":   string(req.Target.Kind),
			"intent": string(req.Intent.Kind),
			"title":  req.Article.Title,
		},
	})

	logging.Info("Orchestrator", "Task %s starting: %s to %s via %s",
		taskID, req.Intent.Kind, req.Target.URL, result.OriginalProvider)

	rctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	r := &run{
		p:        p,
		req:      req,
		taskID:   taskID,
		trail:    trail,
		provName: result.OriginalProvider,
		result:   result,
	}
	r.execute(rctx)
	r.finish(rctx)

	if result.Error != nil {
		return result, result.Error
	}
	return result, nil
}

// sleepContext waits d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// run is the mutable state of one Publish call.
type run struct {
	p      *Publisher
	req    *cms.PublishRequest
	taskID string
	trail  *audit.Trail

	prov     provider.Provider
	provName string

	result *cms.PublishResult

	// retries is the transient-retry budget used on the current provider.
	// It resets on failover; result.RetryCount keeps the run total.
	retries int

	fellBack       bool
	terminalSent   bool
	contentStarted bool
	lastPhase      string
}

// phaseSpec is one entry of the run's phase sequence.
type phaseSpec struct {
	name string

	// skip returns a non-empty reason when the phase has nothing to do.
	skip func() string

	fn func(ctx context.Context) error

	// noRetry marks phases whose failures must not be retried blindly: the
	// safety gate and the publish/schedule terminal.
	noRetry bool
}

// phaseFailure is a phase that gave up, with the exhaustion marker the
// failover decision needs.
type phaseFailure struct {
	err       error
	exhausted bool
}

func (r *run) sequence() []phaseSpec {
	intent := r.req.Intent.Kind
	return []phaseSpec{
		{name: PhaseInitialize, fn: r.phaseInitialize},
		{name: PhaseLogin, fn: r.phaseLogin},
		{name: PhaseFillContent, fn: r.phaseFillContent},
		{name: PhaseSaveDraft, fn: r.phaseSaveDraft},
		{
			name: PhaseProcessImages,
			fn:   r.phaseProcessImages,
			skip: func() string {
				if len(r.req.Images) == 0 {
					return "no images"
				}
				return ""
			},
		},
		{
			name: PhaseSetSEO,
			fn:   r.phaseSetSEO,
			skip: func() string {
				if r.req.SEO.Empty() {
					return "no SEO metadata"
				}
				if !r.prov.Capabilities().SEO {
					return "provider does not support SEO"
				}
				return ""
			},
		},
		{
			name: PhaseSetTaxonomy,
			fn:   r.phaseSetTaxonomy,
			skip: func() string {
				if r.req.Taxonomy.Empty() {
					return "no taxonomy"
				}
				return ""
			},
		},
		{
			name: PhaseInsertRelated,
			fn:   r.phaseInsertRelated,
			skip: func() string {
				if len(r.req.Related) == 0 {
					return "no related articles"
				}
				return ""
			},
		},
		{
			name: PhaseInsertFAQSchema,
			fn:   r.phaseInsertFAQ,
			skip: func() string {
				if len(r.req.FAQs) == 0 {
					return "no FAQs"
				}
				if !r.prov.Capabilities().FAQSchema {
					return "provider does not support FAQ schema"
				}
				return ""
			},
		},
		{
			name:    PhaseSafetyGate,
			fn:      r.phaseSafetyGate,
			noRetry: true,
			skip: func() string {
				if intent == cms.IntentSaveDraft {
					return "draft intent"
				}
				if r.p.cfg.SafetyDisabled {
					return "safety disabled by configuration"
				}
				return ""
			},
		},
		{name: PhaseTerminal, fn: r.phaseTerminal, noRetry: intent != cms.IntentSaveDraft},
		{name: PhaseCaptureURL, fn: r.phaseCaptureURL},
	}
}

// execute walks the phase sequence, retrying, failing over, and deciding the
// run outcome. finish handles teardown afterwards.
func (r *run) execute(ctx context.Context) {
	phases := r.sequence()
	loginIdx := phaseIndex(phases, PhaseLogin)
	saveDraftIdx := phaseIndex(phases, PhaseSaveDraft)

	for i := 0; i < len(phases); {
		ph := phases[i]
		r.lastPhase = ph.name

		if ctx.Err() != nil {
			r.recordPhase(ph.name, cms.PhaseFailed, 0, 0, ctx.Err())
			r.trail.PhaseFailed(ph.name, r.provName, ctx.Err(), "")
			r.fail(ctx, ph.name, &phaseFailure{err: ctx.Err()})
			return
		}

		if ph.name == PhaseFillContent {
			r.contentStarted = true
		}

		if ph.skip != nil {
			if reason := ph.skip(); reason != "" {
				r.recordSkip(ph.name, reason)
				i++
				continue
			}
		}

		failure := r.runPhase(ctx, ph)
		if failure == nil {
			i++
			continue
		}

		// Losing the URL after a committed publish degrades the result, it
		// does not fail it.
		if ph.name == PhaseCaptureURL {
			r.warn(fmt.Sprintf("published, but the live URL could not be captured: %s", providerMessage(failure.err)))
			i++
			continue
		}

		if ctx.Err() == nil && r.failoverEligible(ph, failure) {
			next, ok := r.failover(ctx, i, loginIdx, saveDraftIdx, failure)
			if ok {
				i = next
				continue
			}
			failure.exhausted = true
		}

		r.fail(ctx, ph.name, failure)
		return
	}

	r.result.Success = true
	r.result.FinalPhase = r.lastPhase
}

// runPhase drives one phase through the retry loop and records its outcome.
func (r *run) runPhase(ctx context.Context, ph phaseSpec) *phaseFailure {
	logging.Debug("Orchestrator", "Task %s phase %s starting on %s", r.taskID, ph.name, r.provName)
	r.trail.PhaseStarted(ph.name, r.provName)
	started := time.Now()

	attempts := 0
	exhausted := false
	var err error
	for {
		attempts++
		err = ph.fn(ctx)
		if err == nil {
			break
		}
		if ph.noRetry || !provider.IsTransient(err) {
			break
		}
		if r.retries >= r.p.cfg.MaxRetries {
			exhausted = true
			break
		}
		r.retries++
		r.result.RetryCount++
		r.trail.PhaseRetried(ph.name, r.provName, r.retries, err)
		logging.Warn("Orchestrator", "Task %s phase %s attempt %d failed, retrying: %v",
			r.taskID, ph.name, attempts, err)
		if serr := r.p.cfg.Sleep(ctx, r.p.cfg.BaseDelay*time.Duration(r.retries)); serr != nil {
			// The run deadline expired mid-backoff; fail maps it to TIMEOUT.
			break
		}
	}
	d := time.Since(started)

	if err == nil {
		r.recordPhase(ph.name, cms.PhaseCompleted, attempts, d, nil)
		r.trail.PhaseCompleted(ph.name, r.provName, attempts, d)
		logging.Debug("Orchestrator", "Task %s phase %s completed after %d attempt(s)", r.taskID, ph.name, attempts)
		return nil
	}

	ref := r.captureFailure(ctx)
	r.recordPhase(ph.name, cms.PhaseFailed, attempts, d, err)
	r.trail.PhaseFailed(ph.name, r.provName, err, ref)
	logging.Error("Orchestrator", err, "Task %s phase %s failed after %d attempt(s)", r.taskID, ph.name, attempts)
	return &phaseFailure{err: err, exhausted: exhausted}
}

// failoverEligible reports whether the failure may move the run to the
// fallback provider. Failover never fires twice, never after the terminal
// write began, and never for a safety block.
func (r *run) failoverEligible(ph phaseSpec, f *phaseFailure) bool {
	if r.fellBack || r.p.cfg.Fallback == nil {
		return false
	}
	if r.terminalSent || ph.name == PhaseSafetyGate || ph.name == PhaseTerminal {
		return false
	}
	return provider.KindOf(f.err) != cms.ErrSafetyBlocked
}

// failover replaces the failed provider with the fallback, carrying session
// cookies, and returns the phase index to resume at.
func (r *run) failover(ctx context.Context, failedIdx, loginIdx, saveDraftIdx int, f *phaseFailure) (int, bool) {
	from := r.provName
	to := r.p.cfg.Fallback.Name()
	reason := failoverReason(f)

	logging.Info("Orchestrator", "Task %s failing over from %s to %s after %s", r.taskID, from, to, reason)

	var cookies []cms.Cookie
	if r.prov != nil {
		if ck, err := r.prov.Cookies(ctx); err == nil {
			cookies = ck
		} else {
			logging.Warn("Orchestrator", "Task %s: cookie capture before failover failed: %v", r.taskID, err)
		}
	}

	r.closeProvider(ctx)

	if err := r.attach(ctx, r.p.cfg.Fallback, cookies); err != nil {
		logging.Error("Orchestrator", err, "Task %s: fallback provider %s did not initialize", r.taskID, to)
		return 0, false
	}

	r.fellBack = true
	r.retries = 0
	r.result.FallbackUsed = true
	r.result.FallbackReason = reason
	r.result.FinalProvider = r.provName

	r.trail.Fallback(from, to, reason)
	if m := r.p.cfg.Metrics; m != nil {
		m.ObserveFallback(from, to, reason)
	}

	// Resume at the failed phase when the fallback can observe the progress
	// so far; otherwise replay from LOGIN. INITIALIZE never replays, the
	// fallback just initialized.
	switch {
	case failedIdx <= loginIdx:
		return loginIdx, true
	case failedIdx > saveDraftIdx && len(cookies) > 0 && r.draftObservable(ctx):
		return failedIdx, true
	default:
		return loginIdx, true
	}
}

// draftObservable reports whether the fallback sees the draft the primary
// left behind.
func (r *run) draftObservable(ctx context.Context) bool {
	saved, err := r.prov.VerifyContentSaved(ctx)
	return err == nil && saved
}

func failoverReason(f *phaseFailure) string {
	if f.exhausted {
		return string(cms.ErrProviderExhausted)
	}
	if kind := provider.KindOf(f.err); kind != "" {
		return string(kind)
	}
	return "unclassified failure"
}

// fail stamps the result with the failure and runs recovery when content may
// already sit in the CMS.
func (r *run) fail(ctx context.Context, phaseName string, f *phaseFailure) {
	kind := provider.KindOf(f.err)
	msg := providerMessage(f.err)
	switch {
	case ctx.Err() != nil:
		kind = cms.ErrTimeout
		msg = fmt.Sprintf("run deadline expired during %s: %s", phaseName, msg)
	case f.exhausted:
		kind = cms.ErrProviderExhausted
	case kind == "":
		kind = cms.ErrProviderExhausted
	}

	r.result.Success = false
	r.result.FinalPhase = phaseName
	r.result.Error = &cms.RunError{Kind: kind, Phase: phaseName, Message: msg}

	if r.prov != nil && r.contentStarted {
		r.result.RecoveryOutcome = r.p.cfg.Recovery.Recover(ctx, r.prov, r.trail, r.result.Error)

		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), graceTimeout)
		if id, err := r.prov.CurrentPostID(gctx); err == nil && id != "" {
			r.result.PostID = id
		}
		cancel()
	}
}

// finish closes the provider, prices the run, and seals the audit trail.
func (r *run) finish(ctx context.Context) {
	r.closeProvider(ctx)

	r.result.Duration = r.p.cfg.Clock.Now().Sub(r.result.StartedAt)

	if b := r.p.cfg.CostBudget; b > 0 && r.result.CostEstimate > b {
		r.warn(fmt.Sprintf("estimated cost $%.4f exceeded the run budget of $%.4f", r.result.CostEstimate, b))
	}

	outcome := metrics.OutcomeSuccess
	if !r.result.Success {
		var kind cms.ErrorKind
		if r.result.Error != nil {
			kind = r.result.Error.Kind
		}
		outcome = metrics.FailureOutcome(kind)
	}
	if m := r.p.cfg.Metrics; m != nil {
		m.ObserveRun(r.result.FinalProvider, outcome, r.result.Duration)
	}

	r.trail.Append(audit.Record{
		Action:   audit.ActionRunFinished,
		Provider: r.result.FinalProvider,
		Outcome:  outcome,
		Details: map[string]any{
			"retries":  r.result.RetryCount,
			"cost_usd": r.result.CostEstimate,
			"duration": r.result.Duration.String(),
		},
		Error: runErrText(r.result.Error),
	})
	if err := r.trail.Close(); err != nil {
		logging.Warn("Orchestrator", "Task %s: audit trail close reported: %v", r.taskID, err)
	}

	logging.Info("Orchestrator", "Task %s finished: success=%v provider=%s phase=%s retries=%d duration=%s",
		r.taskID, r.result.Success, r.result.FinalProvider, r.result.FinalPhase, r.result.RetryCount, r.result.Duration)
}

// attach builds a provider from the factory and initializes its session.
func (r *run) attach(ctx context.Context, f provider.Factory, cookies []cms.Cookie) error {
	prov, err := f.New()
	if err != nil {
		return provider.Fatal(f.Name(), "initialize", cms.ErrConfigInvalid, "provider construction failed", err)
	}
	sess := &cms.Session{Target: r.req.Target, Cookies: cookies}
	if err := prov.Initialize(ctx, sess); err != nil {
		if cerr := prov.Close(ctx); cerr != nil {
			logging.Debug("Orchestrator", "Task %s: closing half-initialized provider %s: %v", r.taskID, f.Name(), cerr)
		}
		return err
	}
	r.prov = prov
	r.provName = prov.Name()
	return nil
}

// closeProvider books the session's cost estimate and closes it. Used on
// failover for the failed provider and at run end for the final one.
func (r *run) closeProvider(ctx context.Context) {
	if r.prov == nil {
		return
	}
	r.bookCost()

	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), graceTimeout)
	defer cancel()
	started := time.Now()
	if err := r.prov.Close(gctx); err != nil {
		logging.Warn("Orchestrator", "Task %s: provider %s close reported: %v", r.taskID, r.provName, err)
		r.trail.PhaseFailed(PhaseClose, r.provName, err, "")
	} else {
		r.trail.PhaseCompleted(PhaseClose, r.provName, 1, time.Since(started))
	}
	r.prov = nil
}

// bookCost folds the closing session's spend into the run estimate. Sessions
// that meter their own spend report it; the rest cost the flat per-run
// estimate, recorded against the run metric.
func (r *run) bookCost() {
	type costed interface{ RunCost() float64 }
	if c, ok := r.prov.(costed); ok {
		r.result.CostEstimate += c.RunCost()
		return
	}
	cost := r.p.cfg.Estimator.EstimateDOM()
	r.result.CostEstimate += cost
	if m := r.p.cfg.Metrics; m != nil {
		m.AddCost(r.provName, metrics.CostOpRun, cost)
	}
}

// captureFailure screenshots the failing page into the store, best-effort.
func (r *run) captureFailure(ctx context.Context) string {
	if r.prov == nil || r.p.cfg.Screenshots == nil {
		return ""
	}
	gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), graceTimeout)
	defer cancel()

	png, err := r.prov.Screenshot(gctx)
	if err != nil {
		logging.Debug("Orchestrator", "Task %s: failure screenshot not captured: %v", r.taskID, err)
		return ""
	}
	ref, err := r.p.cfg.Screenshots.Save(png)
	if err != nil {
		logging.Warn("Orchestrator", "Task %s: failure screenshot not stored: %v", r.taskID, err)
		return ""
	}
	r.result.Screenshots = append(r.result.Screenshots, ref)
	return ref
}

func (r *run) recordPhase(name string, status cms.PhaseStatus, attempts int, d time.Duration, err error) {
	pr := cms.PhaseResult{Name: name, Status: status, Attempts: attempts, Duration: d, Provider: r.provName}
	if err != nil {
		pr.Error = err.Error()
	}
	r.result.Phases = append(r.result.Phases, pr)
}

func (r *run) recordSkip(name, reason string) {
	r.result.Phases = append(r.result.Phases, cms.PhaseResult{
		Name:     name,
		Status:   cms.PhaseSkipped,
		Provider: r.provName,
	})
	r.trail.PhaseSkipped(name, r.provName, reason)
	logging.Debug("Orchestrator", "Task %s phase %s skipped: %s", r.taskID, name, reason)
}

func (r *run) warn(w string) {
	r.result.Warnings = append(r.result.Warnings, w)
}

func phaseIndex(phases []phaseSpec, name string) int {
	for i, ph := range phases {
		if ph.name == name {
			return i
		}
	}
	return -1
}

func providerMessage(err error) string {
	if pe := provider.AsError(err); pe != nil && pe.Message != "" {
		return pe.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func runErrText(err *cms.RunError) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
