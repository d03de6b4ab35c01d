package provider

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"presswork/internal/cms"
)

// InsertAfterParagraph splits body after the k-th closing paragraph tag and
// inserts markup there. Position 0 prepends; positions past the last
// paragraph append. The scan is case-insensitive so hand-written </P> bodies
// behave the same as editor output.
func InsertAfterParagraph(body, markup string, position int) string {
	if position <= 0 {
		return markup + body
	}
	lower := strings.ToLower(body)
	offset := 0
	for i := 0; i < position; i++ {
		idx := strings.Index(lower[offset:], "</p>")
		if idx < 0 {
			return body + markup
		}
		offset += idx + len("</p>")
	}
	return body[:offset] + markup + body[offset:]
}

// ImageFigure renders an image as the block markup the editor itself
// produces, so inserted images survive a round-trip through the CMS. The
// figure contains no closing paragraph tag, which keeps paragraph positions
// valid for subsequent inserts.
func ImageFigure(url, altText, caption string) string {
	var b strings.Builder
	b.WriteString(`<figure class="wp-block-image"><img src="`)
	b.WriteString(html.EscapeString(url))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(altText))
	b.WriteString(`"/>`)
	if caption != "" {
		b.WriteString(`<figcaption>`)
		b.WriteString(html.EscapeString(caption))
		b.WriteString(`</figcaption>`)
	}
	b.WriteString(`</figure>`)
	return b.String()
}

// RelatedBlock renders the related-articles section appended to the body.
func RelatedBlock(related []cms.RelatedArticle) string {
	if len(related) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<h3>Related Articles</h3><ul>`)
	for _, r := range related {
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(r.URL))
		b.WriteString(`" target="_blank" rel="noopener">`)
		b.WriteString(html.EscapeString(r.Title))
		b.WriteString(`</a></li>`)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

type faqEntity struct {
	Type           string    `json:"@type"`
	Name           string    `json:"name"`
	AcceptedAnswer faqAnswer `json:"acceptedAnswer"`
}

type faqAnswer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type faqPage struct {
	Context    string      `json:"@context"`
	Type       string      `json:"@type"`
	MainEntity []faqEntity `json:"mainEntity"`
}

// FAQBlock renders the FAQ list as visible markup followed by its schema.org
// JSON-LD script, matching what SEO plugins emit for FAQ blocks.
func FAQBlock(faqs []cms.FAQ) (string, error) {
	if len(faqs) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString(`<h3>Frequently Asked Questions</h3>`)
	page := faqPage{Context: "https://schema.org", Type: "FAQPage"}
	for _, f := range faqs {
		b.WriteString(`<h4>`)
		b.WriteString(html.EscapeString(f.Question))
		b.WriteString(`</h4><p>`)
		b.WriteString(html.EscapeString(f.Answer))
		b.WriteString(`</p>`)
		page.MainEntity = append(page.MainEntity, faqEntity{
			Type: "Question",
			Name: f.Question,
			AcceptedAnswer: faqAnswer{
				Type: "Answer",
				Text: f.Answer,
			},
		})
	}
	ld, err := json.Marshal(page)
	if err != nil {
		return "", fmt.Errorf("encoding FAQ schema: %w", err)
	}
	b.WriteString(`<script type="application/ld+json">`)
	b.Write(ld)
	b.WriteString(`</script>`)
	return b.String(), nil
}
