package cms

import (
	"fmt"
	"time"
)

// Kind identifies the CMS flavor a run targets. Selector bundles are keyed by
// Kind, so any value is legal as long as the active bundle defines it.
type Kind string

// KindWordPress is the kind every built-in bundle ships selectors for.
const KindWordPress Kind = "wordpress"

// TargetCMS describes the CMS instance a run publishes to.
type TargetCMS struct {
	// URL is the base URL of the CMS admin, e.g. "https://blog.example.com".
	URL string `yaml:"url" json:"url"`

	// Kind selects the selector bundle section used to drive this CMS.
	Kind Kind `yaml:"kind" json:"kind"`
}

// Credentials holds the CMS login pair. The core treats it as opaque: it is
// handed to a provider's Login and never inspected, persisted, or logged.
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// String redacts the secret material. Any %v/%s formatting of Credentials
// yields this placeholder instead of the real values.
func (c Credentials) String() string {
	return "credentials(redacted)"
}

// GoString redacts %#v formatting as well.
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalJSON redacts credentials in any JSON output (audit records, dumps).
func (c Credentials) MarshalJSON() ([]byte, error) {
	return []byte(`"credentials(redacted)"`), nil
}

// MarshalYAML redacts credentials in any YAML output.
func (c Credentials) MarshalYAML() (interface{}, error) {
	return "credentials(redacted)", nil
}

// Cookie is one browser session cookie captured from a provider and replayed
// into its successor during failover.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"-"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
}

// String redacts the cookie value.
func (c Cookie) String() string {
	return fmt.Sprintf("cookie(%s, redacted)", c.Name)
}

// Session carries everything a provider needs to attach to a CMS: the target
// plus any cookies captured from a previous provider in the same run.
type Session struct {
	Target  TargetCMS
	Cookies []Cookie
}

// Article is the editorial payload of a publish run.
type Article struct {
	// Title is the post title as it should appear in the CMS.
	Title string `yaml:"title" json:"title"`

	// BodyHTML is the full post body as HTML. Paragraphs must be wrapped in
	// <p> tags; image insertion positions count those tags.
	BodyHTML string `yaml:"body_html" json:"body_html"`

	// Slug overrides the CMS-generated permalink slug when non-empty.
	Slug string `yaml:"slug,omitempty" json:"slug,omitempty"`

	// Excerpt is the optional hand-written summary.
	Excerpt string `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`

	// Author is the display name of the CMS user to attribute the post to.
	// When empty the post stays with the logged-in account. Sites without an
	// author control (single-author blogs) ignore this silently.
	Author string `yaml:"author,omitempty" json:"author,omitempty"`
}

// Image describes one image to place into the post.
type Image struct {
	// Source is a local file path or URL the provider uploads from.
	Source string `yaml:"source" json:"source"`

	// Filename, when set, is the name the upload should carry in the media
	// library instead of the basename of Source. WordPress derives attachment
	// slugs and URLs from it.
	Filename string `yaml:"filename,omitempty" json:"filename,omitempty"`

	// AltText populates the image's alt attribute. Safety validation warns
	// when it is empty.
	AltText string `yaml:"alt_text" json:"alt_text"`

	// Caption is the optional visible caption.
	Caption string `yaml:"caption,omitempty" json:"caption,omitempty"`

	// Position is the paragraph index the image is inserted after: 0 places
	// it before the first paragraph, N after the N-th. Positions beyond the
	// paragraph count append at the end.
	Position int `yaml:"position" json:"position"`

	// Featured marks the image as the post's featured image instead of an
	// inline insertion.
	Featured bool `yaml:"featured,omitempty" json:"featured,omitempty"`
}

// SEO is the search metadata written into the CMS's SEO plugin, when one is
// installed. MetaTitle, MetaDescription and FocusKeyword map onto every
// supported plugin; the remaining fields are written only where the detected
// plugin exposes a control for them.
type SEO struct {
	MetaTitle       string `yaml:"meta_title,omitempty" json:"meta_title,omitempty"`
	MetaDescription string `yaml:"meta_description,omitempty" json:"meta_description,omitempty"`
	FocusKeyword    string `yaml:"focus_keyword,omitempty" json:"focus_keyword,omitempty"`

	// PrimaryKeywords and SecondaryKeywords feed plugins that accept keyword
	// lists beyond the single focus keyword (AIOSEO's additional keyphrases).
	PrimaryKeywords   []string `yaml:"primary_keywords,omitempty" json:"primary_keywords,omitempty"`
	SecondaryKeywords []string `yaml:"secondary_keywords,omitempty" json:"secondary_keywords,omitempty"`

	// Canonical overrides the canonical URL the plugin emits for the post.
	Canonical string `yaml:"canonical,omitempty" json:"canonical,omitempty"`

	// OGTitle and OGDescription override the Open Graph share card.
	OGTitle       string `yaml:"og_title,omitempty" json:"og_title,omitempty"`
	OGDescription string `yaml:"og_description,omitempty" json:"og_description,omitempty"`
}

// Empty reports whether no SEO fields are set, which skips the SEO phase.
func (s SEO) Empty() bool {
	return s.MetaTitle == "" && s.MetaDescription == "" && s.FocusKeyword == "" &&
		len(s.PrimaryKeywords) == 0 && len(s.SecondaryKeywords) == 0 &&
		s.Canonical == "" && s.OGTitle == "" && s.OGDescription == ""
}

// Keywords returns the primary and secondary keywords as one ordered list,
// primaries first.
func (s SEO) Keywords() []string {
	if len(s.PrimaryKeywords) == 0 && len(s.SecondaryKeywords) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.PrimaryKeywords)+len(s.SecondaryKeywords))
	out = append(out, s.PrimaryKeywords...)
	return append(out, s.SecondaryKeywords...)
}

// Taxonomy is the category and tag assignment for the post.
type Taxonomy struct {
	// Categories are assigned in order; each must already exist in the CMS.
	Categories []string `yaml:"categories,omitempty" json:"categories,omitempty"`

	// PrimaryCategory, when set, must be one of Categories and is marked as
	// the primary category where the CMS supports the distinction.
	PrimaryCategory string `yaml:"primary_category,omitempty" json:"primary_category,omitempty"`

	// Tags are free-form; providers create missing ones.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Empty reports whether the taxonomy phase has nothing to do.
func (t Taxonomy) Empty() bool {
	return len(t.Categories) == 0 && t.PrimaryCategory == "" && len(t.Tags) == 0
}

// FAQ is one question/answer pair rendered into the post's FAQ block and its
// JSON-LD schema.
type FAQ struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// RelatedArticle is one entry of the related-articles block appended to the
// post body.
type RelatedArticle struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// IntentKind discriminates the terminal action of a run.
type IntentKind string

const (
	// IntentSaveDraft leaves the post as a draft; the run performs no
	// publish action beyond the interim draft save.
	IntentSaveDraft IntentKind = "save_draft"

	// IntentPublishNow publishes the post immediately.
	IntentPublishNow IntentKind = "publish_now"

	// IntentSchedule schedules the post for a future time.
	IntentSchedule IntentKind = "schedule"
)

// Intent is the requested terminal action. At is meaningful only when Kind is
// IntentSchedule.
type Intent struct {
	Kind IntentKind `yaml:"kind" json:"kind"`
	At   time.Time  `yaml:"at,omitempty" json:"at,omitzero"`
}

// Validate checks the intent discriminator and its payload.
func (i Intent) Validate() error {
	switch i.Kind {
	case IntentSaveDraft, IntentPublishNow:
		return nil
	case IntentSchedule:
		if i.At.IsZero() {
			return fmt.Errorf("schedule intent requires a time")
		}
		return nil
	default:
		return fmt.Errorf("unknown intent kind %q", i.Kind)
	}
}

// PublishRequest is the complete input of one publish run.
type PublishRequest struct {
	// TaskID correlates logs, audit records, and metrics for the run. The
	// orchestrator assigns one when empty.
	TaskID string `yaml:"task_id,omitempty" json:"task_id,omitempty"`

	Article  Article          `yaml:"article" json:"article"`
	Images   []Image          `yaml:"images,omitempty" json:"images,omitempty"`
	SEO      SEO              `yaml:"seo,omitempty" json:"seo,omitempty"`
	Taxonomy Taxonomy         `yaml:"taxonomy,omitempty" json:"taxonomy,omitempty"`
	FAQs     []FAQ            `yaml:"faqs,omitempty" json:"faqs,omitempty"`
	Related  []RelatedArticle `yaml:"related,omitempty" json:"related,omitempty"`
	Intent   Intent           `yaml:"intent" json:"intent"`
	Target   TargetCMS        `yaml:"target" json:"target"`

	// Credentials are opaque to the core: handed to Login, never logged.
	Credentials Credentials `yaml:"credentials" json:"credentials"`
}

// InlineImages returns the non-featured images in request order.
func (r *PublishRequest) InlineImages() []Image {
	var out []Image
	for _, img := range r.Images {
		if !img.Featured {
			out = append(out, img)
		}
	}
	return out
}

// FeaturedImage returns the first image marked featured, if any.
func (r *PublishRequest) FeaturedImage() (Image, bool) {
	for _, img := range r.Images {
		if img.Featured {
			return img, true
		}
	}
	return Image{}, false
}
