package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sony/gobreaker"

	"presswork/internal/cms"
	"presswork/internal/config"
	"presswork/internal/metrics"
	"presswork/internal/provider"
	"presswork/internal/template"
	"presswork/pkg/logging"
)

// ProviderName identifies this implementation in results, metrics, and logs.
const ProviderName = "llm"

const (
	defaultMaxIterations     = 24
	defaultTokenBudget       = 150000
	defaultNavigationTimeout = 30 * time.Second

	// perCallMaxTokens bounds a single model response, not the run.
	perCallMaxTokens = 2048
)

// OperationObserver receives one observation per provider operation.
// *metrics.Metrics satisfies it.
type OperationObserver interface {
	ObserveOperation(providerName, operation string, d time.Duration, kind cms.ErrorKind)
}

// CostSink accumulates estimated model spend. *metrics.Metrics satisfies it.
type CostSink interface {
	AddCost(providerName, opKind string, dollars float64)
}

// Config carries the collaborators and budgets of a vision provider.
type Config struct {
	// Model is the model identifier sent to the API.
	Model string

	// APIKey authenticates against the model API. The app layer resolves it
	// from the environment; it never lives in settings files.
	APIKey string

	// MaxIterations caps model round-trips per instruction.
	MaxIterations int

	// MaxTokensPerRun caps total token usage across the provider's life,
	// which is one publish run.
	MaxTokensPerRun int

	// MaxCostPerRun caps the estimated spend of the run in dollars; 0
	// disables the cap.
	MaxCostPerRun float64

	// Selectors supplies the admin paths (login, new_post). Element
	// selectors are not used; the model works from screenshots.
	Selectors *config.SelectorBundle

	// Instructions is the action template bundle.
	Instructions *config.InstructionBundle

	// Engine renders instruction templates.
	Engine *template.Engine

	// Headless controls the launched browser. Ignored when ControlURL is set.
	Headless bool

	// ControlURL attaches to a running browser over CDP.
	ControlURL string

	NavigationTimeout time.Duration

	// Observer receives operation timings and error kinds. Optional.
	Observer OperationObserver

	// Costs receives per-instruction spend estimates. Optional.
	Costs CostSink

	// Estimator prices instruction runs. Zero value takes the defaults.
	Estimator metrics.CostEstimator

	// URLCheck verifies a captured post URL is reachable.
	URLCheck func(ctx context.Context, url string) error
}

// Provider drives the CMS admin UI through a vision-capable model.
type Provider struct {
	cfg Config

	// Construction seams, swapped by tests.
	newDisplay func(cfg Config) (display, error)
	newModel   func(cfg Config) chatModel

	disp    display
	model   chatModel
	breaker *gobreaker.CircuitBreaker

	kind    cms.Kind
	baseURL string
	creds   cms.Credentials

	tokensUsed int64
	costUSD    float64

	// staged is the local file upload_file attaches; set around image
	// operations only.
	staged string
}

// New builds an uninitialized provider; Initialize attaches the browser and
// the model client.
func New(cfg Config) *Provider {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxTokensPerRun <= 0 {
		cfg.MaxTokensPerRun = defaultTokenBudget
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.Selectors == nil {
		cfg.Selectors = config.DefaultSelectorBundle()
	}
	if cfg.Instructions == nil {
		cfg.Instructions = config.DefaultInstructionBundle()
	}
	if cfg.Engine == nil {
		cfg.Engine = template.New()
	}
	if cfg.Estimator == (metrics.CostEstimator{}) {
		cfg.Estimator = metrics.DefaultCostEstimator()
	}
	if cfg.URLCheck == nil {
		cfg.URLCheck = provider.CheckURL
	}
	return &Provider{
		cfg:        cfg,
		newDisplay: newRodDisplay,
		newModel:   func(c Config) chatModel { return newAnthropicModel(c.APIKey) },
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// Initialize launches the browser, seeds carried-over cookies, and prepares
// the model client behind its circuit breaker.
func (p *Provider) Initialize(ctx context.Context, sess *cms.Session) error {
	return p.instrument(ctx, "initialize", func(ctx context.Context) error {
		if p.disp != nil {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid, "provider already initialized", nil)
		}
		if sess == nil || sess.Target.URL == "" {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid, "session has no target URL", nil)
		}
		if p.cfg.APIKey == "" {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid, "model API key not configured", nil)
		}
		if !p.cfg.Selectors.HasKind(sess.Target.Kind) {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid,
				fmt.Sprintf("no admin paths for CMS kind %q", sess.Target.Kind), nil)
		}

		p.kind = sess.Target.Kind
		p.baseURL = strings.TrimRight(sess.Target.URL, "/")

		disp, err := p.newDisplay(p.cfg)
		if err != nil {
			return provider.Transient(ProviderName, "initialize", cms.ErrNavigationTimeout, "browser not available", err)
		}
		p.disp = disp

		if len(sess.Cookies) > 0 {
			if err := disp.SetCookies(ctx, sess.Cookies); err != nil {
				logging.Warn("VisionProvider", "Seeding %d session cookies failed: %v", len(sess.Cookies), err)
			} else {
				logging.Debug("VisionProvider", "Seeded %d session cookies", len(sess.Cookies))
			}
		}

		p.model = p.newModel(p.cfg)
		p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "model-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
		return nil
	})
}

// Login navigates to the admin login page and has the model work the form.
// Credentials are substituted locally when the model types by field name.
func (p *Provider) Login(ctx context.Context, creds cms.Credentials) error {
	return p.instrument(ctx, "login", func(ctx context.Context) error {
		p.creds = creds

		path, err := p.cfg.Selectors.Path(p.kind, "login")
		if err != nil {
			return provider.Fatal(ProviderName, "login", cms.ErrConfigInvalid, "login path missing", err)
		}
		url := p.adminURL(path)
		if err := p.navigate(ctx, url); err != nil {
			return err
		}

		_, err = p.run(ctx, "login", runOpts{
			action: "login",
			vars:   map[string]interface{}{"url": url},
			onFailure: func(reason string) error {
				return provider.Fatal(ProviderName, "login", cms.ErrAuthRejected, reason, nil)
			},
		})
		return err
	})
}

// Navigate loads an absolute URL.
func (p *Provider) Navigate(ctx context.Context, url string) error {
	return p.instrument(ctx, "navigate", func(ctx context.Context) error {
		return p.navigate(ctx, url)
	})
}

// OpenNewPost opens the post editor and has the model confirm it is ready.
func (p *Provider) OpenNewPost(ctx context.Context) error {
	return p.instrument(ctx, "open_new_post", func(ctx context.Context) error {
		path, err := p.cfg.Selectors.Path(p.kind, "new_post")
		if err != nil {
			return provider.Fatal(ProviderName, "open_new_post", cms.ErrConfigInvalid, "new_post path missing", err)
		}
		url := p.adminURL(path)
		if err := p.navigate(ctx, url); err != nil {
			return err
		}
		_, err = p.run(ctx, "open_new_post", runOpts{
			action: "open_new_post",
			vars:   map[string]interface{}{"url": url},
		})
		return err
	})
}

func (p *Provider) SetTitle(ctx context.Context, title string) error {
	return p.instrument(ctx, "set_title", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_title", runOpts{
			action: "set_title",
			vars:   map[string]interface{}{"title": title},
		})
		return err
	})
}

func (p *Provider) SetBody(ctx context.Context, html string) error {
	return p.instrument(ctx, "set_body", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_body", runOpts{
			action: "set_body",
			vars:   map[string]interface{}{"body": html},
		})
		return err
	})
}

func (p *Provider) SetExcerpt(ctx context.Context, excerpt string) error {
	return p.instrument(ctx, "set_excerpt", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_excerpt", runOpts{
			action: "set_excerpt",
			vars:   map[string]interface{}{"excerpt": excerpt},
		})
		return err
	})
}

func (p *Provider) SetSlug(ctx context.Context, slug string) error {
	return p.instrument(ctx, "set_slug", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_slug", runOpts{
			action: "set_slug",
			vars:   map[string]interface{}{"slug": slug},
		})
		return err
	})
}

// SetAuthor has the model work the author dropdown. The instruction tells it
// to finish successfully when the site renders no author control at all.
func (p *Provider) SetAuthor(ctx context.Context, author string) error {
	return p.instrument(ctx, "set_author", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_author", runOpts{
			action: "set_author",
			vars:   map[string]interface{}{"author": author},
			onFailure: func(reason string) error {
				return provider.Fatal(ProviderName, "set_author", cms.ErrElementNotFound, reason, nil)
			},
		})
		return err
	})
}

// InsertImages stages each image locally and instructs the model through the
// upload flow, in ascending position order.
func (p *Provider) InsertImages(ctx context.Context, images []cms.Image) error {
	return p.instrument(ctx, "insert_images", func(ctx context.Context) error {
		ordered := make([]cms.Image, len(images))
		copy(ordered, images)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

		for _, img := range ordered {
			if err := p.withStagedFile(ctx, img, func() error {
				_, err := p.run(ctx, "insert_images", runOpts{
					action: "upload_image",
					vars: map[string]interface{}{
						"source":   filepath.Base(p.staged),
						"alt":      img.AltText,
						"caption":  img.Caption,
						"position": img.Position,
					},
				})
				return err
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Provider) SetFeaturedImage(ctx context.Context, img cms.Image) error {
	return p.instrument(ctx, "set_featured_image", func(ctx context.Context) error {
		return p.withStagedFile(ctx, img, func() error {
			_, err := p.run(ctx, "set_featured_image", runOpts{
				action: "set_featured_image",
				vars: map[string]interface{}{
					"source": filepath.Base(p.staged),
					"alt":    img.AltText,
				},
			})
			return err
		})
	})
}

// SetSEO instructs the model to fill the SEO plugin panel. A reported
// missing plugin maps to the warning kind.
func (p *Provider) SetSEO(ctx context.Context, seo cms.SEO) error {
	return p.instrument(ctx, "set_seo", func(ctx context.Context) error {
		if seo.Empty() {
			return nil
		}
		_, err := p.run(ctx, "set_seo", runOpts{
			action: "set_seo",
			vars: map[string]interface{}{
				"meta_title":       seo.MetaTitle,
				"meta_description": seo.MetaDescription,
				"focus_keyword":    seo.FocusKeyword,
				"keywords":         strings.Join(seo.Keywords(), ", "),
				"canonical":        seo.Canonical,
				"og_title":         seo.OGTitle,
				"og_description":   seo.OGDescription,
			},
			onFailure: func(reason string) error {
				if strings.Contains(reason, "seo_plugin_missing") {
					return provider.Fatal(ProviderName, "set_seo", cms.ErrSEOPluginMissing, "no SEO plugin detected", nil)
				}
				return provider.Transient(ProviderName, "set_seo", cms.ErrElementNotFound, reason, nil)
			},
		})
		return err
	})
}

func (p *Provider) SetTaxonomy(ctx context.Context, tax cms.Taxonomy) error {
	return p.instrument(ctx, "set_taxonomy", func(ctx context.Context) error {
		_, err := p.run(ctx, "set_taxonomy", runOpts{
			action: "set_taxonomy",
			vars: map[string]interface{}{
				"categories": strings.Join(tax.Categories, ", "),
				"primary":    tax.PrimaryCategory,
				"tags":       strings.Join(tax.Tags, ", "),
			},
		})
		return err
	})
}

func (p *Provider) InsertRelated(ctx context.Context, related []cms.RelatedArticle) error {
	return p.instrument(ctx, "insert_related", func(ctx context.Context) error {
		if len(related) == 0 {
			return nil
		}
		entries := make([]string, 0, len(related))
		for _, r := range related {
			entries = append(entries, fmt.Sprintf("%s (%s)", r.Title, r.URL))
		}
		_, err := p.run(ctx, "insert_related", runOpts{
			action: "insert_related",
			vars:   map[string]interface{}{"related": strings.Join(entries, "; ")},
		})
		return err
	})
}

func (p *Provider) InsertFAQSchema(ctx context.Context, faqs []cms.FAQ) error {
	return p.instrument(ctx, "insert_faq_schema", func(ctx context.Context) error {
		block, err := provider.FAQBlock(faqs)
		if err != nil {
			return provider.Fatal(ProviderName, "insert_faq_schema", cms.ErrConfigInvalid, "FAQ schema not encodable", err)
		}
		if block == "" {
			return nil
		}
		_, err = p.run(ctx, "insert_faq_schema", runOpts{
			action: "insert_faq",
			vars:   map[string]interface{}{"faq_html": block},
		})
		return err
	})
}

func (p *Provider) SaveDraft(ctx context.Context) error {
	return p.instrument(ctx, "save_draft", func(ctx context.Context) error {
		_, err := p.run(ctx, "save_draft", runOpts{action: "save_draft"})
		return err
	})
}

func (p *Provider) Publish(ctx context.Context) error {
	return p.instrument(ctx, "publish", func(ctx context.Context) error {
		_, err := p.run(ctx, "publish", runOpts{action: "publish"})
		return err
	})
}

func (p *Provider) Schedule(ctx context.Context, at time.Time) error {
	return p.instrument(ctx, "schedule", func(ctx context.Context) error {
		_, err := p.run(ctx, "schedule", runOpts{
			action: "schedule",
			vars:   map[string]interface{}{"when": at.Format("2006-01-02 15:04")},
		})
		return err
	})
}

// PublishedURL has the model read the live post URL off the editor and
// verifies it responds.
func (p *Provider) PublishedURL(ctx context.Context) (string, error) {
	var url string
	err := p.instrument(ctx, "capture_url", func(ctx context.Context) error {
		rep, err := p.run(ctx, "capture_url", runOpts{action: "capture_url", wantReport: true})
		if err != nil {
			return err
		}
		href := strings.TrimSpace(rep.URL)
		if href == "" {
			return provider.Transient(ProviderName, "capture_url", cms.ErrElementNotFound, "model reported no URL", nil)
		}
		if err := p.cfg.URLCheck(ctx, href); err != nil {
			return provider.Transient(ProviderName, "capture_url", cms.ErrNavigationTimeout,
				fmt.Sprintf("published URL %s not reachable", href), err)
		}
		url = href
		return nil
	})
	return url, err
}

// CurrentPostID has the model read the post ID; an empty report means no ID
// yet and is not an error.
func (p *Provider) CurrentPostID(ctx context.Context) (string, error) {
	var id string
	err := p.instrument(ctx, "current_post_id", func(ctx context.Context) error {
		rep, err := p.run(ctx, "current_post_id", runOpts{action: "current_post_id", wantReport: true})
		if err != nil {
			return err
		}
		id = strings.TrimSpace(rep.PostID)
		return nil
	})
	return id, err
}

func (p *Provider) VerifyDraftStatus(ctx context.Context) (bool, error) {
	var draft bool
	err := p.instrument(ctx, "verify_draft", func(ctx context.Context) error {
		rep, err := p.run(ctx, "verify_draft", runOpts{action: "verify_draft", wantReport: true})
		if err != nil {
			return err
		}
		if rep.Draft == nil {
			return provider.Transient(ProviderName, "verify_draft", cms.ErrElementNotFound, "model reported no draft status", nil)
		}
		draft = *rep.Draft
		return nil
	})
	return draft, err
}

func (p *Provider) VerifyContentSaved(ctx context.Context) (bool, error) {
	var saved bool
	err := p.instrument(ctx, "verify_saved", func(ctx context.Context) error {
		rep, err := p.run(ctx, "verify_saved", runOpts{action: "verify_saved", wantReport: true})
		if err != nil {
			return err
		}
		if rep.Saved == nil {
			return provider.Transient(ProviderName, "verify_saved", cms.ErrElementNotFound, "model reported no saved status", nil)
		}
		saved = *rep.Saved
		return nil
	})
	return saved, err
}

// Cookies snapshots the browser's session cookies for provider failover.
func (p *Provider) Cookies(ctx context.Context) ([]cms.Cookie, error) {
	if p.disp == nil {
		return nil, nil
	}
	return p.disp.Cookies(ctx)
}

// Screenshot captures the current page as PNG.
func (p *Provider) Screenshot(ctx context.Context) ([]byte, error) {
	if p.disp == nil {
		return nil, errors.New("provider not initialized")
	}
	return p.disp.Screenshot(ctx)
}

// Close tears the browser down. Safe to call repeatedly.
func (p *Provider) Close(ctx context.Context) error {
	if p.disp == nil {
		return nil
	}
	err := p.disp.Close(ctx)
	p.disp = nil
	if err != nil {
		logging.Warn("VisionProvider", "Browser close reported: %v", err)
	}
	return err
}

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SEO: true, Schedule: true, FAQSchema: true}
}

// RunCost returns the accumulated spend estimate of this session. The
// orchestrator folds it into the run result at close time.
func (p *Provider) RunCost() float64 {
	return p.costUSD
}

func (p *Provider) adminURL(path string) string {
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (p *Provider) navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	if err := p.disp.Navigate(nctx, url); err != nil {
		return provider.Transient(ProviderName, "navigate", cms.ErrNavigationTimeout,
			fmt.Sprintf("navigation to %s failed", url), err)
	}
	return nil
}

// withStagedFile resolves the image source to a local file, stages it for
// the upload_file tool, and cleans up afterwards.
func (p *Provider) withStagedFile(ctx context.Context, img cms.Image, fn func() error) error {
	path := img.Source
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		local, err := provider.FetchToTemp(ctx, path)
		if err != nil {
			return provider.Transient(ProviderName, "upload_image", cms.ErrUploadFailed,
				fmt.Sprintf("fetching %s failed", path), err)
		}
		defer os.Remove(local)
		path = local
	} else if _, err := os.Stat(path); err != nil {
		return provider.Fatal(ProviderName, "upload_image", cms.ErrUploadFailed,
			fmt.Sprintf("image file %s not readable", path), err)
	}

	if img.Filename != "" && img.Filename != filepath.Base(path) {
		staged, err := provider.StageAs(path, img.Filename)
		if err != nil {
			return provider.Fatal(ProviderName, "upload_image", cms.ErrUploadFailed,
				fmt.Sprintf("staging upload as %s failed", img.Filename), err)
		}
		defer os.RemoveAll(filepath.Dir(staged))
		path = staged
	}

	p.staged = path
	defer func() { p.staged = "" }()
	return fn()
}

// runOpts parameterizes one instruction run.
type runOpts struct {
	// action names the instruction template.
	action string

	// vars renders the template.
	vars map[string]interface{}

	// wantReport requires the model to have called report before finishing.
	wantReport bool

	// onFailure classifies a done(success=false); nil takes the default
	// transient classification.
	onFailure func(reason string) error
}

// run drives one instruction to completion: render, show the page, execute
// the model's tool calls, repeat until done or a budget is hit.
func (p *Provider) run(ctx context.Context, op string, opts runOpts) (*reportArgs, error) {
	instruction, err := p.cfg.Instructions.Render(p.cfg.Engine, opts.action, opts.vars)
	if err != nil {
		return nil, provider.Fatal(ProviderName, op, cms.ErrConfigInvalid, "instruction not renderable", err)
	}
	system, err := p.cfg.Instructions.Template("system")
	if err != nil {
		return nil, provider.Fatal(ProviderName, op, cms.ErrConfigInvalid, "system instruction missing", err)
	}

	shot, err := p.disp.Screenshot(ctx)
	if err != nil {
		return nil, provider.Transient(ProviderName, op, cms.ErrNavigationTimeout, "screenshot failed", err)
	}

	msgs := []anthropic.MessageParam{
		anthropic.NewUserMessage(
			anthropic.NewTextBlock(instruction),
			anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(shot)),
		),
	}

	var (
		rep       *reportArgs
		done      bool
		succeeded bool
		stalled   bool
		reason    string
		images    = 1
		tokens    int64
	)
	defer func() {
		if tokens == 0 {
			return
		}
		cost := p.cfg.Estimator.EstimateVision(images, int(tokens))
		p.costUSD += cost
		if p.cfg.Costs != nil {
			p.cfg.Costs.AddCost(ProviderName, metrics.CostOpInstruction, cost)
		}
	}()

	for i := 0; i < p.cfg.MaxIterations && !done; i++ {
		// Token and cost budgets span the provider's life; no retry within
		// this session can clear them.
		if p.tokensUsed >= int64(p.cfg.MaxTokensPerRun) {
			return nil, provider.Fatal(ProviderName, op, cms.ErrTimeout, "model token budget exhausted", nil)
		}
		if p.cfg.MaxCostPerRun > 0 && p.costUSD >= p.cfg.MaxCostPerRun {
			return nil, provider.Fatal(ProviderName, op, cms.ErrTimeout, "model cost budget exhausted", nil)
		}

		t, err := p.converse(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(p.cfg.Model),
			MaxTokens: perCallMaxTokens,
			System:    []anthropic.TextBlockParam{{Text: system}},
			Messages:  msgs,
			Tools:     browserTools(),
		})
		if err != nil {
			return nil, err
		}
		p.tokensUsed += t.tokens
		tokens += t.tokens

		if len(t.calls) == 0 {
			// The model stopped acting without calling done.
			logging.Debug("VisionProvider", "Model ended %s without done (stop=%s)", opts.action, t.stop)
			stalled = true
			break
		}

		msgs = append(msgs, t.asParam())

		var results []anthropic.ContentBlockParamUnion
		for _, call := range t.calls {
			if call.name == toolScreenshot {
				images++
			}
			blocks, d, ok, why := p.execute(ctx, call)
			results = append(results, blocks...)
			if d != nil {
				rep = d
			}
			if ok {
				done = true
				succeeded = why == ""
				reason = why
			}
		}
		msgs = append(msgs, anthropic.NewUserMessage(results...))
	}

	switch {
	case done && succeeded:
		if opts.wantReport && rep == nil {
			return nil, provider.Transient(ProviderName, op, cms.ErrElementNotFound, "model finished without the requested report", nil)
		}
		return rep, nil
	case done:
		if opts.onFailure != nil {
			return nil, opts.onFailure(reason)
		}
		return nil, provider.Transient(ProviderName, op, cms.ErrElementNotFound,
			fmt.Sprintf("model reported failure: %s", reason), nil)
	case opts.wantReport && rep != nil:
		// The observation arrived even though the model never called done.
		return rep, nil
	case stalled:
		return nil, provider.Transient(ProviderName, op, cms.ErrElementNotFound, "model stopped without completing the instruction", nil)
	default:
		return nil, provider.Transient(ProviderName, op, cms.ErrTimeout, "instruction iteration budget exhausted", nil)
	}
}

// converse calls the model through the circuit breaker and classifies
// failures.
func (p *Provider) converse(ctx context.Context, params anthropic.MessageNewParams) (*turn, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.model.converse(ctx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, provider.Transient(ProviderName, "model", cms.ErrNavigationTimeout, "model circuit open", err)
		}
		return nil, provider.Transient(ProviderName, "model", cms.ErrNavigationTimeout, "model call failed", err)
	}
	return res.(*turn), nil
}

// execute runs one tool call and renders its result blocks. The third
// return marks a done call; the fourth carries its failure reason ("" on
// success).
func (p *Provider) execute(ctx context.Context, call toolCall) ([]anthropic.ContentBlockParamUnion, *reportArgs, bool, string) {
	fail := func(err error) []anthropic.ContentBlockParamUnion {
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(call.id, err.Error(), true),
		}
	}
	ok := func() []anthropic.ContentBlockParamUnion {
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(call.id, "done", false),
		}
	}

	switch call.name {
	case toolDone:
		var args doneArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		reason := ""
		if !args.Success {
			reason = args.Reason
			if reason == "" {
				reason = "unspecified"
			}
		}
		return ok(), nil, true, reason

	case toolReport:
		var args reportArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(call.id, "recorded", false),
		}, &args, false, ""

	case toolScreenshot:
		png, err := p.disp.Screenshot(ctx)
		if err != nil {
			return fail(err), nil, false, ""
		}
		return []anthropic.ContentBlockParamUnion{
			anthropic.NewToolResultBlock(call.id, "screenshot attached", false),
			anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(png)),
		}, nil, false, ""

	case toolClick:
		var args clickArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		if err := p.disp.Click(ctx, args.X, args.Y); err != nil {
			return fail(err), nil, false, ""
		}
		return ok(), nil, false, ""

	case toolTypeText:
		var args typeTextArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		text := args.Text
		switch args.Field {
		case fieldUsername:
			text = p.creds.Username
		case fieldPassword:
			text = p.creds.Password
		}
		if err := p.disp.Type(ctx, text); err != nil {
			return fail(err), nil, false, ""
		}
		return ok(), nil, false, ""

	case toolPressKey:
		var args pressKeyArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		if err := p.disp.PressKey(ctx, args.Key); err != nil {
			return fail(err), nil, false, ""
		}
		return ok(), nil, false, ""

	case toolScroll:
		var args scrollArgs
		if err := json.Unmarshal(call.input, &args); err != nil {
			return fail(err), nil, false, ""
		}
		if err := p.disp.Scroll(ctx, args.DX, args.DY); err != nil {
			return fail(err), nil, false, ""
		}
		return ok(), nil, false, ""

	case toolUploadFile:
		if p.staged == "" {
			return fail(errors.New("no file staged for upload")), nil, false, ""
		}
		if err := p.disp.Upload(ctx, p.staged); err != nil {
			return fail(err), nil, false, ""
		}
		return ok(), nil, false, ""

	default:
		return fail(fmt.Errorf("unknown tool %q", call.name)), nil, false, ""
	}
}

// instrument times fn and reports the outcome to the observer.
func (p *Provider) instrument(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveOperation(ProviderName, op, d, provider.KindOf(err))
	}
	return err
}
