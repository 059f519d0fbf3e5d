package concierge

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

// Segment is a run of reply text. ProductID is set when the run is a product
// title reference.
type Segment struct {
	Text      string `json:"text"`
	ProductID string `json:"productId,omitempty"`
}

// Paragraph is one line of a reply.
type Paragraph []Segment

type title struct {
	runes []rune
	id    string
}

// Linker finds product title references in reply text. Longer titles win over
// shorter ones that share a prefix, and matching ignores case.
type Linker struct {
	titles []title
}

// NewLinker indexes the titles of products.
func NewLinker(products []product.Product) *Linker {
	l := &Linker{}
	for _, p := range products {
		t := strings.TrimSpace(p.Title)
		if t == "" {
			continue
		}
		l.titles = append(l.titles, title{runes: []rune(t), id: p.ID})
	}
	sort.SliceStable(l.titles, func(i, j int) bool {
		return len(l.titles[i].runes) > len(l.titles[j].runes)
	})
	return l
}

// Link splits text into paragraphs on line breaks and each paragraph into
// plain and linked segments. The input is not modified.
func (l *Linker) Link(text string) []Paragraph {
	lines := strings.Split(text, "\n")
	out := make([]Paragraph, 0, len(lines))
	for _, line := range lines {
		out = append(out, l.linkLine(line))
	}
	return out
}

func (l *Linker) linkLine(line string) Paragraph {
	src := []rune(line)
	var (
		par   Paragraph
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			par = append(par, Segment{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(src); {
		if t, ok := l.matchAt(src, i); ok {
			flush()
			par = append(par, Segment{Text: string(src[i : i+len(t.runes)]), ProductID: t.id})
			i += len(t.runes)
			continue
		}
		plain.WriteRune(src[i])
		i++
	}
	flush()
	if par == nil {
		par = Paragraph{}
	}
	return par
}

// matchAt returns the longest title starting at src[i].
func (l *Linker) matchAt(src []rune, i int) (title, bool) {
	for _, t := range l.titles {
		if i+len(t.runes) > len(src) {
			continue
		}
		if equalFoldRunes(src[i:i+len(t.runes)], t.runes) {
			return t, true
		}
	}
	return title{}, false
}

func equalFoldRunes(a, b []rune) bool {
	for k := range a {
		if !equalFoldRune(a[k], b[k]) {
			return false
		}
	}
	return true
}

// equalFoldRune reports whether r and s are equal under simple case folding.
func equalFoldRune(r, s rune) bool {
	if r == s {
		return true
	}
	if r < utf8.RuneSelf && s < utf8.RuneSelf {
		return unicode.ToLower(r) == unicode.ToLower(s)
	}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f == s {
			return true
		}
	}
	return false
}
