package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"presswork/internal/cms"
	"presswork/internal/config"
	"presswork/internal/provider"
	"presswork/internal/selectors"
	"presswork/internal/template"
	"presswork/pkg/logging"
)

// ProviderName identifies this implementation in results, metrics, and logs.
const ProviderName = "dom"

const (
	defaultElementTimeout    = 10 * time.Second
	defaultNavigationTimeout = 30 * time.Second
)

// OperationObserver receives one observation per provider operation.
// *metrics.Metrics satisfies it.
type OperationObserver interface {
	ObserveOperation(providerName, operation string, d time.Duration, kind cms.ErrorKind)
}

// Config carries the collaborators and tuning of a DOM provider.
type Config struct {
	// Selectors is the bundle every element lookup goes through.
	Selectors *config.SelectorBundle

	// Cache memoizes resolved selectors. Optional; nil disables caching.
	Cache *selectors.Cache

	// Tracker records per-operation timing. Optional.
	Tracker *selectors.Tracker

	// Engine renders templated selector candidates (category lookups).
	// Defaults to a fresh engine.
	Engine *template.Engine

	// Headless controls the launched browser. Ignored when ControlURL is set.
	Headless bool

	// ControlURL attaches to a running browser over CDP instead of
	// launching one.
	ControlURL string

	ElementTimeout    time.Duration
	NavigationTimeout time.Duration

	// Observer receives operation timings and error kinds. Optional.
	Observer OperationObserver

	// URLCheck verifies a captured post URL is reachable. Defaults to an
	// HTTP GET expecting a 2xx.
	URLCheck func(ctx context.Context, url string) error
}

// Provider publishes through the CMS admin UI by driving a real browser. All
// element access goes through the selector bundle and cache; the provider
// itself holds no selectors.
type Provider struct {
	cfg Config

	// newDriver is swapped by tests for a scripted fake.
	newDriver func(cfg Config) (driver, error)

	drv     driver
	kind    cms.Kind
	baseURL string

	// body mirrors the post body the provider last wrote. Images, related
	// links, and FAQ blocks are composed into it Go-side and the whole body
	// rewritten, which keeps paragraph positions deterministic.
	body string
}

// New builds an uninitialized provider; Initialize attaches the browser.
func New(cfg Config) *Provider {
	if cfg.Engine == nil {
		cfg.Engine = template.New()
	}
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = defaultElementTimeout
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.URLCheck == nil {
		cfg.URLCheck = provider.CheckURL
	}
	return &Provider{cfg: cfg, newDriver: newRodDriver}
}

func (p *Provider) Name() string {
	return ProviderName
}

// Initialize launches (or attaches to) the browser and seeds any session
// cookies carried over from a previous provider.
func (p *Provider) Initialize(ctx context.Context, sess *cms.Session) error {
	return p.instrument(ctx, "initialize", func(ctx context.Context) error {
		if p.drv != nil {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid, "provider already initialized", nil)
		}
		if sess == nil || sess.Target.URL == "" {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid, "session has no target URL", nil)
		}
		if p.cfg.Selectors == nil || !p.cfg.Selectors.HasKind(sess.Target.Kind) {
			return provider.Fatal(ProviderName, "initialize", cms.ErrConfigInvalid,
				fmt.Sprintf("no selectors for CMS kind %q", sess.Target.Kind), nil)
		}

		p.kind = sess.Target.Kind
		p.baseURL = strings.TrimRight(sess.Target.URL, "/")

		drv, err := p.newDriver(p.cfg)
		if err != nil {
			return provider.Transient(ProviderName, "initialize", cms.ErrNavigationTimeout, "browser not available", err)
		}
		p.drv = drv

		if len(sess.Cookies) > 0 {
			if err := drv.SetCookies(ctx, sess.Cookies); err != nil {
				logging.Warn("DOMProvider", "Seeding %d session cookies failed: %v", len(sess.Cookies), err)
			} else {
				logging.Debug("DOMProvider", "Seeded %d session cookies", len(sess.Cookies))
			}
		}
		return nil
	})
}

// Login authenticates through the admin login form. When seeded cookies
// already carry a session the form is skipped.
func (p *Provider) Login(ctx context.Context, creds cms.Credentials) error {
	return p.instrument(ctx, "login", func(ctx context.Context) error {
		path, err := p.cfg.Selectors.Path(p.kind, "login")
		if err != nil {
			return provider.Fatal(ProviderName, "login", cms.ErrConfigInvalid, "login path missing", err)
		}
		if err := p.navigate(ctx, p.adminURL(path)); err != nil {
			return err
		}

		// An authenticated session redirects straight to the dashboard.
		if sel, ok := p.anyExists(ctx, "dashboard_sentinel"); ok {
			logging.Debug("DOMProvider", "Session cookies accepted, skipping login form (%s)", sel)
			return nil
		}

		if err := p.withElement(ctx, "login", "login_username", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, creds.Username)
		}); err != nil {
			return err
		}
		if err := p.withElement(ctx, "login", "login_password", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, creds.Password)
		}); err != nil {
			return err
		}
		if err := p.withElement(ctx, "login", "login_submit", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		}); err != nil {
			return err
		}

		if _, _, err := p.resolve(ctx, "dashboard_sentinel"); err != nil {
			return provider.Fatal(ProviderName, "login", cms.ErrAuthRejected, "dashboard not reached after login", err)
		}
		return nil
	})
}

// Navigate loads an absolute URL and waits for the page to settle.
func (p *Provider) Navigate(ctx context.Context, url string) error {
	return p.instrument(ctx, "navigate", func(ctx context.Context) error {
		return p.navigate(ctx, url)
	})
}

// OpenNewPost opens the post editor for a fresh post.
func (p *Provider) OpenNewPost(ctx context.Context) error {
	return p.instrument(ctx, "open_new_post", func(ctx context.Context) error {
		path, err := p.cfg.Selectors.Path(p.kind, "new_post")
		if err != nil {
			return provider.Fatal(ProviderName, "open_new_post", cms.ErrConfigInvalid, "new_post path missing", err)
		}
		if err := p.navigate(ctx, p.adminURL(path)); err != nil {
			return err
		}
		_, _, err = p.resolve(ctx, "post_title")
		return err
	})
}

// Cookies snapshots the browser's session cookies for provider failover.
func (p *Provider) Cookies(ctx context.Context) ([]cms.Cookie, error) {
	if p.drv == nil {
		return nil, nil
	}
	return p.drv.Cookies(ctx)
}

// Screenshot captures the current page as PNG.
func (p *Provider) Screenshot(ctx context.Context) ([]byte, error) {
	if p.drv == nil {
		return nil, errors.New("provider not initialized")
	}
	return p.drv.Screenshot(ctx)
}

// Close tears the browser down. Safe to call repeatedly.
func (p *Provider) Close(ctx context.Context) error {
	if p.drv == nil {
		return nil
	}
	if p.cfg.Tracker != nil {
		for _, s := range p.cfg.Tracker.Summary() {
			logging.Debug("DOMProvider", "Session op %s: count=%d failures=%d avg=%s max=%s",
				s.Operation, s.Count, s.Failures, s.Avg, s.Max)
		}
	}
	err := p.drv.Close(ctx)
	p.drv = nil
	if err != nil {
		logging.Warn("DOMProvider", "Browser close reported: %v", err)
	}
	return err
}

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SEO: true, Schedule: true, FAQSchema: true}
}

// navigate applies the navigation timeout and classifies failures.
func (p *Provider) navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	if err := p.drv.Navigate(nctx, url); err != nil {
		return provider.Transient(ProviderName, "navigate", cms.ErrNavigationTimeout,
			fmt.Sprintf("navigation to %s failed", url), err)
	}
	if err := p.drv.WaitStable(nctx); err != nil {
		logging.Debug("DOMProvider", "Page did not settle after navigating to %s: %v", url, err)
	}
	return nil
}

func (p *Provider) adminURL(path string) string {
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

// resolve maps a named element to a concrete selector, via the cache when
// one is configured. The second return reports whether the selector came
// from cache, which decides the invalidate-and-retry path in withElement.
func (p *Provider) resolve(ctx context.Context, element string) (string, bool, error) {
	if p.cfg.Cache == nil {
		sel, err := p.probe(ctx, element)
		return sel, false, err
	}
	key := selectors.Key{Element: element, Kind: p.kind}
	return p.cfg.Cache.Resolve(ctx, key, func(ctx context.Context) (string, error) {
		return p.probe(ctx, element)
	})
}

// probe walks the element's candidate list: one fast existence pass, then a
// waiting pass that splits the element timeout across candidates.
func (p *Provider) probe(ctx context.Context, element string) (string, error) {
	cands, err := p.cfg.Selectors.Candidates(p.kind, element)
	if err != nil {
		return "", provider.Fatal(ProviderName, "resolve", cms.ErrConfigInvalid, "element not in selector bundle", err)
	}
	return p.probeList(ctx, element, cands)
}

func (p *Provider) probeList(ctx context.Context, element string, cands []string) (string, error) {
	for _, c := range cands {
		ok, err := p.drv.Exists(ctx, c)
		if err != nil {
			return "", p.classify("resolve", err)
		}
		if ok {
			return c, nil
		}
	}

	budget := p.cfg.ElementTimeout / time.Duration(len(cands))
	if budget < time.Second {
		budget = time.Second
	}
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return "", p.classify("resolve", err)
		}
		if err := p.drv.WaitVisible(ctx, c, budget); err == nil {
			return c, nil
		}
	}
	return "", provider.Transient(ProviderName, "resolve", cms.ErrElementNotFound,
		fmt.Sprintf("no candidate matched element %q", element), nil)
}

// anyExists reports the first candidate of an element currently present,
// without waiting. Elements missing from the bundle read as absent.
func (p *Provider) anyExists(ctx context.Context, element string) (string, bool) {
	cands, err := p.cfg.Selectors.Candidates(p.kind, element)
	if err != nil {
		return "", false
	}
	return p.firstExisting(ctx, cands)
}

// withElement resolves an element and runs fn against it. When a cached
// selector fails, the entry is invalidated and the element re-resolved once
// before the failure stands.
func (p *Provider) withElement(ctx context.Context, op, element string, fn func(ctx context.Context, sel string) error) error {
	sel, cached, err := p.resolve(ctx, element)
	if err != nil {
		return err
	}

	err = fn(ctx, sel)
	if err == nil {
		return nil
	}
	if !cached || p.cfg.Cache == nil {
		return p.classify(op, err)
	}

	logging.Debug("DOMProvider", "Cached selector %q for %s failed, re-resolving", sel, element)
	p.cfg.Cache.Invalidate(selectors.Key{Element: element, Kind: p.kind})
	sel, _, rerr := p.resolve(ctx, element)
	if rerr != nil {
		return rerr
	}
	if err := fn(ctx, sel); err != nil {
		return p.classify(op, err)
	}
	return nil
}

// classify maps raw driver errors into the taxonomy. Errors already
// classified pass through untouched.
func (p *Provider) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if provider.AsError(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return provider.Transient(ProviderName, op, cms.ErrNavigationTimeout, "operation deadline exceeded", err)
	}
	return provider.Transient(ProviderName, op, cms.ErrElementNotFound, "element interaction failed", err)
}

// instrument times fn and reports the outcome to the tracker and observer.
func (p *Provider) instrument(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	if p.cfg.Tracker != nil {
		p.cfg.Tracker.Record(op, d, err == nil)
	}
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveOperation(ProviderName, op, d, provider.KindOf(err))
	}
	return err
}
