package concierge

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var productHref = regexp.MustCompile(`^#product/[A-Za-z0-9_-]+$`)

// policy allows only the markup RenderHTML emits.
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p")
	p.AllowAttrs("href").Matching(productHref).OnElements("a")
	p.AllowAttrs("data-product-id").Matching(regexp.MustCompile(`^[A-Za-z0-9_-]+$`)).OnElements("a")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^product-link$`)).OnElements("a")
	p.AllowRelativeURLs(true)
	return p
}

// RenderHTML renders paragraphs as HTML with product references as anchors
// that open the product detail view. Model text is escaped and the result is
// sanitized.
func RenderHTML(paragraphs []Paragraph) string {
	var b strings.Builder
	for _, par := range paragraphs {
		b.WriteString("<p>")
		for _, seg := range par {
			text := html.EscapeString(seg.Text)
			if seg.ProductID == "" {
				b.WriteString(text)
				continue
			}
			id := html.EscapeString(seg.ProductID)
			b.WriteString(`<a class="product-link" href="#product/`)
			b.WriteString(id)
			b.WriteString(`" data-product-id="`)
			b.WriteString(id)
			b.WriteString(`">`)
			b.WriteString(text)
			b.WriteString("</a>")
		}
		b.WriteString("</p>")
	}
	return policy.Sanitize(b.String())
}
