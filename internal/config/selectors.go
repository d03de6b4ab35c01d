package config

import (
	"fmt"
	"sort"
	"strings"

	"presswork/internal/cms"
)

// SelectorBundle maps CMS kinds to their admin paths and named element
// selectors. The DOM provider resolves every element through this bundle; it
// never hard-codes a selector.
type SelectorBundle struct {
	Kinds map[cms.Kind]KindSelectors `yaml:"kinds"`
}

// KindSelectors is one CMS kind's section of the bundle.
type KindSelectors struct {
	// Paths are admin-relative URL paths ("login", "new_post").
	Paths map[string]string `yaml:"paths"`

	// Elements maps a named element to its ordered selector candidates.
	// Candidates are CSS selectors, or XPath when prefixed with "//".
	// Candidates may carry {{ name }} placeholders rendered before
	// resolution (category lookups).
	Elements map[string][]string `yaml:"elements"`
}

// RequiredPaths are the admin paths every kind must define.
var RequiredPaths = []string{"login", "new_post"}

// RequiredElements are the named elements every kind must define. SEO probe
// elements are deliberately absent: a missing SEO plugin is a warning, not a
// configuration error.
var RequiredElements = []string{
	"login_username",
	"login_password",
	"login_submit",
	"dashboard_sentinel",
	"post_title",
	"post_body",
	"body_text_tab",
	"save_draft_button",
	"draft_saved_notice",
	"publish_button",
	"confirm_publish_button",
	"published_panel",
	"view_post_link",
	"post_id_field",
	"post_status",
	"slug_input",
	"excerpt_input",
	"media_add_button",
	"media_upload_input",
	"media_alt_input",
	"media_caption_input",
	"media_url_field",
	"media_close_button",
	"featured_image_button",
	"featured_image_set",
	"category_checkbox",
	"tag_input",
	"schedule_toggle",
	"schedule_date_input",
	"schedule_confirm",
	"seo_meta_title",
	"seo_meta_description",
	"seo_focus_keyword",
}

// SEOPlugins lists the SEO plugins the DOM provider can detect, in probe
// order. Each maps to an optional bundle element "seo_probe_<name>".
var SEOPlugins = []string{"yoast", "rankmath", "aioseo", "slimseo", "seolite"}

// HasKind reports whether the bundle defines the given CMS kind.
func (b *SelectorBundle) HasKind(kind cms.Kind) bool {
	_, ok := b.Kinds[kind]
	return ok
}

// Path returns the named admin path for the kind.
func (b *SelectorBundle) Path(kind cms.Kind, name string) (string, error) {
	ks, ok := b.Kinds[kind]
	if !ok {
		return "", fmt.Errorf("selector bundle has no kind %q", kind)
	}
	p, ok := ks.Paths[name]
	if !ok {
		return "", fmt.Errorf("selector bundle kind %q has no path %q", kind, name)
	}
	return p, nil
}

// Candidates returns the ordered selector candidates for a named element.
func (b *SelectorBundle) Candidates(kind cms.Kind, element string) ([]string, error) {
	ks, ok := b.Kinds[kind]
	if !ok {
		return nil, fmt.Errorf("selector bundle has no kind %q", kind)
	}
	cands, ok := ks.Elements[element]
	if !ok || len(cands) == 0 {
		return nil, fmt.Errorf("selector bundle kind %q has no element %q", kind, element)
	}
	return cands, nil
}

// SEOProbes returns the defined plugin probes for a kind, in detection
// order: pairs of (plugin name, candidates). Kinds without probes return an
// empty slice.
func (b *SelectorBundle) SEOProbes(kind cms.Kind) []SEOProbe {
	ks, ok := b.Kinds[kind]
	if !ok {
		return nil
	}
	var probes []SEOProbe
	for _, plugin := range SEOPlugins {
		if cands, ok := ks.Elements["seo_probe_"+plugin]; ok && len(cands) > 0 {
			probes = append(probes, SEOProbe{Plugin: plugin, Candidates: cands})
		}
	}
	return probes
}

// SEOProbe is one plugin's presence probe.
type SEOProbe struct {
	Plugin     string
	Candidates []string
}

// Validate checks every kind for the required paths and elements and rejects
// empty candidate lists.
func (b *SelectorBundle) Validate() error {
	var errs ValidationErrors

	if len(b.Kinds) == 0 {
		errs.Add("kinds", "selector bundle defines no CMS kinds")
		return errs
	}

	for kind, ks := range b.Kinds {
		for _, p := range RequiredPaths {
			if strings.TrimSpace(ks.Paths[p]) == "" {
				errs.Add(fmt.Sprintf("kinds.%s.paths.%s", kind, p), "required path is missing")
			}
		}
		for _, el := range RequiredElements {
			if len(ks.Elements[el]) == 0 {
				errs.Add(fmt.Sprintf("kinds.%s.elements.%s", kind, el), "required element has no selector candidates")
			}
		}
		for el, cands := range ks.Elements {
			for i, c := range cands {
				if strings.TrimSpace(c) == "" {
					errs.Add(fmt.Sprintf("kinds.%s.elements.%s[%d]", kind, el, i), "empty selector candidate")
				}
			}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// merge overlays file-provided kinds onto the receiver. A kind present in
// other replaces the built-in definition for that kind wholesale; other
// kinds keep their defaults.
func (b *SelectorBundle) merge(other *SelectorBundle) {
	if other == nil {
		return
	}
	if b.Kinds == nil {
		b.Kinds = make(map[cms.Kind]KindSelectors)
	}
	for kind, ks := range other.Kinds {
		b.Kinds[kind] = ks
	}
}

// KindNames returns the defined kinds, sorted.
func (b *SelectorBundle) KindNames() []string {
	names := make([]string, 0, len(b.Kinds))
	for k := range b.Kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}
