package dom

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"presswork/internal/cms"
	"presswork/internal/provider"
	"presswork/pkg/logging"
)

// SetTitle writes the post title.
func (p *Provider) SetTitle(ctx context.Context, title string) error {
	return p.instrument(ctx, "set_title", func(ctx context.Context) error {
		return p.withElement(ctx, "set_title", "post_title", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, title)
		})
	})
}

// SetBody writes the post body as raw HTML. Editors with a separate text tab
// are switched to it first so markup is not re-escaped by the visual editor.
func (p *Provider) SetBody(ctx context.Context, html string) error {
	return p.instrument(ctx, "set_body", func(ctx context.Context) error {
		if sel, ok := p.anyExists(ctx, "body_text_tab"); ok {
			if err := p.drv.Click(ctx, sel); err != nil {
				logging.Debug("DOMProvider", "Switching to text tab failed: %v", err)
			}
		}
		if err := p.withElement(ctx, "set_body", "post_body", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, html)
		}); err != nil {
			return err
		}
		p.body = html
		return nil
	})
}

// SetExcerpt writes the hand-written summary.
func (p *Provider) SetExcerpt(ctx context.Context, excerpt string) error {
	return p.instrument(ctx, "set_excerpt", func(ctx context.Context) error {
		return p.withElement(ctx, "set_excerpt", "excerpt_input", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, excerpt)
		})
	})
}

// SetSlug overrides the permalink slug.
func (p *Provider) SetSlug(ctx context.Context, slug string) error {
	return p.instrument(ctx, "set_slug", func(ctx context.Context) error {
		return p.withElement(ctx, "set_slug", "slug_input", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, slug)
		})
	})
}

// SetAuthor reassigns the post to the named CMS user. The author dropdown
// only renders for multi-author sites and roles allowed to reassign, so an
// absent control keeps the logged-in author; a control without the requested
// author is fatal since retrying cannot make the user exist.
func (p *Provider) SetAuthor(ctx context.Context, author string) error {
	return p.instrument(ctx, "set_author", func(ctx context.Context) error {
		sel, ok := p.anyExists(ctx, "author_select")
		if !ok {
			logging.Debug("DOMProvider", "No author control present, keeping the logged-in author")
			return nil
		}

		cands, err := p.renderCandidates("author_option", author)
		if err != nil {
			logging.Debug("DOMProvider", "No author option selectors configured: %v", err)
			return nil
		}
		opt, ok := p.firstExisting(ctx, cands)
		if !ok {
			return provider.Fatal(ProviderName, "set_author", cms.ErrElementNotFound,
				fmt.Sprintf("author %q not offered by the author control", author), nil)
		}

		value, err := p.drv.Attribute(ctx, opt, "value")
		if err != nil {
			return p.classify("set_author", err)
		}
		if err := p.drv.SetSelectValue(ctx, sel, strings.TrimSpace(value)); err != nil {
			return p.classify("set_author", err)
		}
		return nil
	})
}

// InsertImages uploads each image to the media library and splices its
// figure into the body at the requested paragraph position. Images are
// processed in ascending position order so earlier inserts never shift the
// paragraph index of later ones; the rewritten body lands in a single fill.
func (p *Provider) InsertImages(ctx context.Context, images []cms.Image) error {
	return p.instrument(ctx, "insert_images", func(ctx context.Context) error {
		ordered := make([]cms.Image, len(images))
		copy(ordered, images)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

		body := p.body
		for _, img := range ordered {
			url, err := p.uploadToLibrary(ctx, img)
			if err != nil {
				return err
			}
			body = provider.InsertAfterParagraph(body, provider.ImageFigure(url, img.AltText, img.Caption), img.Position)
		}

		if err := p.writeBody(ctx, body); err != nil {
			return err
		}
		logging.Debug("DOMProvider", "Inserted %d images", len(ordered))
		return nil
	})
}

// SetFeaturedImage uploads the image and assigns it as the post's featured
// image.
func (p *Provider) SetFeaturedImage(ctx context.Context, img cms.Image) error {
	return p.instrument(ctx, "set_featured_image", func(ctx context.Context) error {
		if err := p.withElement(ctx, "set_featured_image", "featured_image_button", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		}); err != nil {
			return err
		}
		if _, err := p.uploadFile(ctx, img); err != nil {
			return err
		}
		return p.withElement(ctx, "set_featured_image", "featured_image_set", func(ctx context.Context, sel string) error {
			return p.drv.Click(ctx, sel)
		})
	})
}

// InsertRelated appends the related-articles block to the body.
func (p *Provider) InsertRelated(ctx context.Context, related []cms.RelatedArticle) error {
	return p.instrument(ctx, "insert_related", func(ctx context.Context) error {
		block := provider.RelatedBlock(related)
		if block == "" {
			return nil
		}
		return p.writeBody(ctx, p.body+block)
	})
}

// InsertFAQSchema appends the FAQ block, including its JSON-LD schema, to
// the body.
func (p *Provider) InsertFAQSchema(ctx context.Context, faqs []cms.FAQ) error {
	return p.instrument(ctx, "insert_faq_schema", func(ctx context.Context) error {
		block, err := provider.FAQBlock(faqs)
		if err != nil {
			return provider.Fatal(ProviderName, "insert_faq_schema", cms.ErrConfigInvalid, "FAQ schema not encodable", err)
		}
		if block == "" {
			return nil
		}
		return p.writeBody(ctx, p.body+block)
	})
}

// writeBody rewrites the whole post body and records the new composition
// state on success.
func (p *Provider) writeBody(ctx context.Context, body string) error {
	if err := p.withElement(ctx, "set_body", "post_body", func(ctx context.Context, sel string) error {
		return p.drv.Fill(ctx, sel, body)
	}); err != nil {
		return err
	}
	p.body = body
	return nil
}

// uploadToLibrary pushes an image through the media modal and returns the
// library URL it landed on.
func (p *Provider) uploadToLibrary(ctx context.Context, img cms.Image) (string, error) {
	if err := p.withElement(ctx, "upload_image", "media_add_button", func(ctx context.Context, sel string) error {
		return p.drv.Click(ctx, sel)
	}); err != nil {
		return "", err
	}

	if _, err := p.uploadFile(ctx, img); err != nil {
		return "", err
	}

	var url string
	if err := p.withElement(ctx, "upload_image", "media_url_field", func(ctx context.Context, sel string) error {
		v, err := p.drv.Value(ctx, sel)
		if err != nil {
			return err
		}
		url = strings.TrimSpace(v)
		return nil
	}); err != nil {
		return "", err
	}
	if url == "" {
		return "", provider.Transient(ProviderName, "upload_image", cms.ErrUploadFailed,
			fmt.Sprintf("media library reported no URL for %s", filepath.Base(img.Source)), nil)
	}

	if err := p.withElement(ctx, "upload_image", "media_close_button", func(ctx context.Context, sel string) error {
		return p.drv.Click(ctx, sel)
	}); err != nil {
		return "", err
	}
	return url, nil
}

// uploadFile feeds the file input of the open media modal and fills the
// image metadata. Remote sources are fetched to a temp file first, and a
// requested Filename is staged so the media library records that name.
func (p *Provider) uploadFile(ctx context.Context, img cms.Image) (string, error) {
	path := img.Source
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		local, err := provider.FetchToTemp(ctx, path)
		if err != nil {
			return "", provider.Transient(ProviderName, "upload_image", cms.ErrUploadFailed,
				fmt.Sprintf("fetching %s failed", path), err)
		}
		defer os.Remove(local)
		path = local
	} else if _, err := os.Stat(path); err != nil {
		return "", provider.Fatal(ProviderName, "upload_image", cms.ErrUploadFailed,
			fmt.Sprintf("image file %s not readable", path), err)
	}

	if img.Filename != "" && img.Filename != filepath.Base(path) {
		staged, err := provider.StageAs(path, img.Filename)
		if err != nil {
			return "", provider.Fatal(ProviderName, "upload_image", cms.ErrUploadFailed,
				fmt.Sprintf("staging upload as %s failed", img.Filename), err)
		}
		defer os.RemoveAll(filepath.Dir(staged))
		path = staged
	}

	if err := p.withElement(ctx, "upload_image", "media_upload_input", func(ctx context.Context, sel string) error {
		return p.drv.Upload(ctx, sel, path)
	}); err != nil {
		if pe := provider.AsError(err); pe != nil && pe.Kind == cms.ErrElementNotFound {
			return "", provider.Transient(ProviderName, "upload_image", cms.ErrUploadFailed, "media upload input not usable", err)
		}
		return "", err
	}

	if img.AltText != "" {
		if err := p.withElement(ctx, "upload_image", "media_alt_input", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, img.AltText)
		}); err != nil {
			return "", err
		}
	}
	if img.Caption != "" {
		if err := p.withElement(ctx, "upload_image", "media_caption_input", func(ctx context.Context, sel string) error {
			return p.drv.Fill(ctx, sel, img.Caption)
		}); err != nil {
			return "", err
		}
	}
	return path, nil
}
