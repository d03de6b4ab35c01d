package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"presswork/internal/cms"
	"presswork/internal/provider"
	"presswork/pkg/logging"
)

// SetSEO detects the installed SEO plugin and fills its metadata fields.
// When no plugin probe matches, the returned error carries the
// SEO_PLUGIN_MISSING kind, which the orchestrator records as a warning.
func (p *Provider) SetSEO(ctx context.Context, seo cms.SEO) error {
	return p.instrument(ctx, "set_seo", func(ctx context.Context) error {
		if seo.Empty() {
			return nil
		}

		plugin := p.detectSEOPlugin(ctx)
		if plugin == "" {
			return provider.Fatal(ProviderName, "set_seo", cms.ErrSEOPluginMissing, "no SEO plugin detected", nil)
		}
		logging.Debug("DOMProvider", "Detected SEO plugin %q", plugin)

		fields := []struct {
			element string
			value   string
		}{
			{"seo_meta_title", seo.MetaTitle},
			{"seo_meta_description", seo.MetaDescription},
			{"seo_focus_keyword", seo.FocusKeyword},
			{"seo_additional_keywords", strings.Join(seo.Keywords(), ", ")},
			{"seo_canonical", seo.Canonical},
			{"seo_og_title", seo.OGTitle},
			{"seo_og_description", seo.OGDescription},
		}
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			if _, err := p.cfg.Selectors.Candidates(p.kind, f.element); err != nil {
				logging.Debug("DOMProvider", "Bundle defines no %s selectors, skipping", f.element)
				continue
			}
			err := p.withElement(ctx, "set_seo", f.element, func(ctx context.Context, sel string) error {
				return p.drv.Fill(ctx, sel, f.value)
			})
			if err != nil {
				// Not every plugin exposes every field; skip what the
				// detected one doesn't have.
				if pe := provider.AsError(err); pe != nil && pe.Kind == cms.ErrElementNotFound {
					logging.Debug("DOMProvider", "SEO plugin %q has no %s field, skipping", plugin, f.element)
					continue
				}
				return err
			}
		}
		return nil
	})
}

func (p *Provider) detectSEOPlugin(ctx context.Context) string {
	for _, probe := range p.cfg.Selectors.SEOProbes(p.kind) {
		for _, c := range probe.Candidates {
			if ok, err := p.drv.Exists(ctx, c); err == nil && ok {
				return probe.Plugin
			}
		}
	}
	return ""
}

// SetTaxonomy checks the requested category boxes, marks the primary
// category where the editor supports it, and adds tags. Categories must
// already exist in the CMS.
func (p *Provider) SetTaxonomy(ctx context.Context, tax cms.Taxonomy) error {
	return p.instrument(ctx, "set_taxonomy", func(ctx context.Context) error {
		for _, cat := range tax.Categories {
			if err := p.checkCategory(ctx, cat); err != nil {
				return err
			}
		}

		if tax.PrimaryCategory != "" {
			p.markPrimaryCategory(ctx, tax.PrimaryCategory)
		}

		for _, tag := range tax.Tags {
			if err := p.addTag(ctx, tag); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Provider) checkCategory(ctx context.Context, name string) error {
	cands, err := p.renderCandidates("category_checkbox", name)
	if err != nil {
		return err
	}
	sel, err := p.probeList(ctx, fmt.Sprintf("category %q", name), cands)
	if err != nil {
		return err
	}

	checked, err := p.drv.Checked(ctx, sel)
	if err != nil {
		return p.classify("set_taxonomy", err)
	}
	if checked {
		return nil
	}
	if err := p.drv.Click(ctx, sel); err != nil {
		return p.classify("set_taxonomy", err)
	}
	return nil
}

// markPrimaryCategory is best-effort: the primary distinction exists only
// under some SEO plugins.
func (p *Provider) markPrimaryCategory(ctx context.Context, name string) {
	cands, err := p.renderCandidates("primary_category_toggle", name)
	if err != nil {
		logging.Debug("DOMProvider", "No primary category toggle configured: %v", err)
		return
	}
	sel, ok := p.firstExisting(ctx, cands)
	if !ok {
		logging.Debug("DOMProvider", "Primary category toggle for %q not present", name)
		return
	}
	if err := p.drv.Click(ctx, sel); err != nil {
		logging.Debug("DOMProvider", "Marking primary category %q failed: %v", name, err)
	}
}

func (p *Provider) addTag(ctx context.Context, tag string) error {
	if err := p.withElement(ctx, "set_taxonomy", "tag_input", func(ctx context.Context, sel string) error {
		return p.drv.Fill(ctx, sel, tag)
	}); err != nil {
		return err
	}

	// Editors without an explicit add button commit tags on blur.
	if sel, ok := p.anyExists(ctx, "tag_add_button"); ok {
		if err := p.drv.Click(ctx, sel); err != nil {
			return p.classify("set_taxonomy", err)
		}
	}
	return nil
}

// SaveDraft saves the post as a draft and waits for the editor to confirm.
func (p *Provider) SaveDraft(ctx context.Context) error {
	return p.instrument(ctx, "save_draft", func(ctx context.Context) error {
		if err := p.withElement(ctx, "save_draft", "save_draft_button", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		}); err != nil {
			return err
		}
		if _, _, err := p.resolve(ctx, "draft_saved_notice"); err != nil {
			return provider.Transient(ProviderName, "save_draft", cms.ErrNavigationTimeout, "draft save not confirmed", err)
		}
		return nil
	})
}

// Publish triggers the immediate publish flow.
func (p *Provider) Publish(ctx context.Context) error {
	return p.instrument(ctx, "publish", func(ctx context.Context) error {
		return p.confirmTerminal(ctx, "publish")
	})
}

// Schedule sets the post's publish time and triggers the schedule flow.
func (p *Provider) Schedule(ctx context.Context, at time.Time) error {
	return p.instrument(ctx, "schedule", func(ctx context.Context) error {
		if err := p.withElement(ctx, "schedule", "schedule_toggle", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		}); err != nil {
			return err
		}

		if err := p.withElement(ctx, "schedule", "schedule_month_input", func(ctx context.Context, sel string) error {
			return p.drv.SetSelectValue(ctx, sel, fmt.Sprintf("%02d", int(at.Month())))
		}); err != nil {
			return err
		}
		fills := []struct {
			element string
			value   string
		}{
			{"schedule_date_input", fmt.Sprintf("%02d", at.Day())},
			{"schedule_year_input", fmt.Sprintf("%d", at.Year())},
			{"schedule_hour_input", fmt.Sprintf("%02d", at.Hour())},
			{"schedule_minute_input", fmt.Sprintf("%02d", at.Minute())},
		}
		for _, f := range fills {
			if err := p.withElement(ctx, "schedule", f.element, func(ctx context.Context, sel string) error {
				return p.drv.Fill(ctx, sel, f.value)
			}); err != nil {
				return err
			}
		}

		if err := p.withElement(ctx, "schedule", "schedule_confirm", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		}); err != nil {
			return err
		}
		return p.confirmTerminal(ctx, "schedule")
	})
}

// confirmTerminal clicks through the publish button (and its confirmation
// step, when the editor has one) and waits for the published panel.
func (p *Provider) confirmTerminal(ctx context.Context, op string) error {
	if err := p.withElement(ctx, op, "publish_button", func(ctx context.Context, sel string) error {
		return p.drv.Click(ctx, sel)
	}); err != nil {
		return err
	}
	if sel, ok := p.anyExists(ctx, "confirm_publish_button"); ok {
		if err := p.drv.Click(ctx, sel); err != nil {
			return p.classify(op, err)
		}
	}
	if _, _, err := p.resolve(ctx, "published_panel"); err != nil {
		return provider.Transient(ProviderName, op, cms.ErrNavigationTimeout, "publish not confirmed by editor", err)
	}
	return nil
}

// PublishedURL reads the live post URL from the editor and verifies it
// responds.
func (p *Provider) PublishedURL(ctx context.Context) (string, error) {
	var url string
	err := p.instrument(ctx, "capture_url", func(ctx context.Context) error {
		var href string
		if err := p.withElement(ctx, "capture_url", "view_post_link", func(ctx context.Context, sel string) error {
			v, err := p.drv.Attribute(ctx, sel, "href")
			if err != nil {
				return err
			}
			href = strings.TrimSpace(v)
			return nil
		}); err != nil {
			return err
		}
		if href == "" {
			return provider.Transient(ProviderName, "capture_url", cms.ErrElementNotFound, "view link carries no URL", nil)
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

// CurrentPostID reads the CMS-assigned post ID. A post that has no ID yet
// reads as empty without error.
func (p *Provider) CurrentPostID(ctx context.Context) (string, error) {
	var id string
	err := p.instrument(ctx, "current_post_id", func(ctx context.Context) error {
		sel, ok := p.anyExists(ctx, "post_id_field")
		if !ok {
			return nil
		}
		v, err := p.drv.Value(ctx, sel)
		if err != nil {
			return p.classify("current_post_id", err)
		}
		v = strings.TrimSpace(v)
		if v == "0" {
			v = ""
		}
		id = v
		return nil
	})
	return id, err
}

// VerifyDraftStatus reports whether the post currently sits in a draft
// state.
func (p *Provider) VerifyDraftStatus(ctx context.Context) (bool, error) {
	var draft bool
	err := p.instrument(ctx, "verify_draft", func(ctx context.Context) error {
		status, err := p.postStatus(ctx)
		if err != nil {
			return err
		}
		draft = strings.Contains(status, "draft")
		return nil
	})
	return draft, err
}

// VerifyContentSaved reports whether the CMS has persisted the post: it has
// an ID and is past the auto-draft placeholder state.
func (p *Provider) VerifyContentSaved(ctx context.Context) (bool, error) {
	var saved bool
	err := p.instrument(ctx, "verify_saved", func(ctx context.Context) error {
		id, err := p.CurrentPostID(ctx)
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		status, err := p.postStatus(ctx)
		if err != nil {
			return err
		}
		saved = status != "auto-draft"
		return nil
	})
	return saved, err
}

func (p *Provider) postStatus(ctx context.Context) (string, error) {
	var status string
	err := p.withElement(ctx, "post_status", "post_status", func(ctx context.Context, sel string) error {
		v, err := p.drv.Value(ctx, sel)
		if err != nil {
			return err
		}
		if strings.TrimSpace(v) == "" {
			if v, err = p.drv.Text(ctx, sel); err != nil {
				return err
			}
		}
		status = strings.ToLower(strings.TrimSpace(v))
		return nil
	})
	return status, err
}

// renderCandidates renders an element's templated candidates against a
// display name.
func (p *Provider) renderCandidates(element, name string) ([]string, error) {
	cands, err := p.cfg.Selectors.Candidates(p.kind, element)
	if err != nil {
		return nil, provider.Fatal(ProviderName, "resolve", cms.ErrConfigInvalid, "element not in selector bundle", err)
	}
	rendered := make([]string, 0, len(cands))
	for _, c := range cands {
		r, err := p.cfg.Engine.RenderString(c, map[string]interface{}{"name": name})
		if err != nil {
			return nil, provider.Fatal(ProviderName, "resolve", cms.ErrConfigInvalid,
				fmt.Sprintf("rendering selector for %s", element), err)
		}
		rendered = append(rendered, r)
	}
	return rendered, nil
}

// firstExisting returns the first candidate currently present, without
// waiting.
func (p *Provider) firstExisting(ctx context.Context, cands []string) (string, bool) {
	for _, c := range cands {
		if ok, err := p.drv.Exists(ctx, c); err == nil && ok {
			return c, true
		}
	}
	return "", false
}
