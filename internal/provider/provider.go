package provider

import (
	"context"
	"time"

	"presswork/internal/cms"
)

// Provider is the automation contract the orchestrator sequences a publish
// run through. Implementations hold per-run session state and are not safe
// for concurrent use; the orchestrator drives one provider per run from a
// single goroutine.
//
// Every operation accepts a context and honors its deadline. Failures are
// reported as *Error with a taxonomy kind; nil means the operation's
// postcondition holds.
type Provider interface {
	// Name identifies the implementation ("dom", "llm") in results,
	// logs, and metrics.
	Name() string

	// Initialize attaches to the target CMS: starts the browser or display
	// session and navigates to the admin. When sess carries cookies from a
	// failed predecessor they are installed before navigation, so an
	// authenticated session can survive a failover.
	Initialize(ctx context.Context, sess *cms.Session) error

	// Login authenticates against the CMS admin. Implementations must not
	// log or persist the credential values. A rejected login reports
	// AUTH_REJECTED and is fatal.
	Login(ctx context.Context, creds cms.Credentials) error

	// Cookies captures the current browser session cookies for failover
	// carry-over.
	Cookies(ctx context.Context) ([]cms.Cookie, error)

	// Close releases the session. Safe to call after a failed operation and
	// at most once; errors are reportable but never abort a run.
	Close(ctx context.Context) error

	// Navigate loads an admin URL. Composite operations navigate on their
	// own; this is the escape hatch for embedders driving custom flows.
	Navigate(ctx context.Context, url string) error

	// OpenNewPost opens the new-post editor and waits for it to be ready.
	OpenNewPost(ctx context.Context) error

	// SetTitle writes the post title into the editor.
	SetTitle(ctx context.Context, title string) error

	// SetBody replaces the post body with the given HTML.
	SetBody(ctx context.Context, html string) error

	// InsertImages uploads each image and inserts it into the body after
	// its paragraph position, in request order. Runs after the body is in
	// place so positions resolve against the realized content.
	InsertImages(ctx context.Context, images []cms.Image) error

	// SetFeaturedImage uploads the image and assigns it as the post's
	// featured image.
	SetFeaturedImage(ctx context.Context, img cms.Image) error

	// SetSEO fills the installed SEO plugin's fields. When no supported
	// plugin is present it reports SEO_PLUGIN_MISSING, which callers treat
	// as a warning.
	SetSEO(ctx context.Context, seo cms.SEO) error

	// SetSlug overrides the permalink slug.
	SetSlug(ctx context.Context, slug string) error

	// SetExcerpt writes the hand-written summary field.
	SetExcerpt(ctx context.Context, excerpt string) error

	// SetAuthor reassigns the post to the CMS user with the given display
	// name. Sites without an author control keep the logged-in author; only
	// a present-but-unusable control is an error.
	SetAuthor(ctx context.Context, author string) error

	// SetTaxonomy assigns categories (marking the primary when supported)
	// and tags.
	SetTaxonomy(ctx context.Context, tax cms.Taxonomy) error

	// InsertRelated appends the related-articles block to the body.
	InsertRelated(ctx context.Context, related []cms.RelatedArticle) error

	// InsertFAQSchema appends the FAQ block and its JSON-LD script to the
	// body.
	InsertFAQSchema(ctx context.Context, faqs []cms.FAQ) error

	// SaveDraft persists the post as a draft and waits for the CMS to
	// confirm the save.
	SaveDraft(ctx context.Context) error

	// Publish publishes the post immediately. Callers invoke this at most
	// once per provider session.
	Publish(ctx context.Context) error

	// Schedule schedules the post for the given time. Same at-most-once
	// contract as Publish.
	Schedule(ctx context.Context, at time.Time) error

	// PublishedURL returns the live URL of the published post, verified
	// reachable out-of-band.
	PublishedURL(ctx context.Context) (string, error)

	// CurrentPostID returns the CMS-assigned post identifier for the post
	// being edited, or "" when none has been assigned yet.
	CurrentPostID(ctx context.Context) (string, error)

	// VerifyDraftStatus reports whether the post currently sits in draft
	// state. The safety gate requires this before any terminal action.
	VerifyDraftStatus(ctx context.Context) (bool, error)

	// VerifyContentSaved reports whether the CMS holds a saved copy of the
	// post (draft or published). Used by failover resume and recovery.
	VerifyContentSaved(ctx context.Context) (bool, error)

	// Screenshot captures the current page as PNG for the audit trail.
	Screenshot(ctx context.Context) ([]byte, error)

	// Capabilities reports which optional operations this implementation
	// supports; the orchestrator skips phases a provider cannot run.
	Capabilities() Capabilities
}

// Capabilities flags the optional operations a provider supports.
type Capabilities struct {
	SEO       bool
	Schedule  bool
	FAQSchema bool
}

// Factory creates a fresh provider session. The orchestrator constructs
// providers lazily: the fallback is only built when a failover happens.
type Factory interface {
	Name() string
	New() (Provider, error)
}

// FactoryFunc adapts a named constructor function to Factory.
type FactoryFunc struct {
	ProviderName string
	Build        func() (Provider, error)
}

func (f FactoryFunc) Name() string           { return f.ProviderName }
func (f FactoryFunc) New() (Provider, error) { return f.Build() }
