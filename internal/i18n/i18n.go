// Package i18n holds the static translation tables and the localized default
// product catalog. Both are embedded at build time and never change at
// runtime.
package i18n

import (
	"embed"
	"encoding/json"
	"path"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/text/language"

	"github.com/xenking/sun8-storefront/internal/domain/product"
)

//go:embed locales/*.json catalog/*.json
var content embed.FS

// Language is a supported display language.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"
)

// Default is the language selected on startup.
const Default = Spanish

// Fallback is consulted when a key is missing in the active language.
const Fallback = English

// Languages lists supported languages in display order.
var Languages = []Language{English, Spanish, French}

// ErrUnsupportedLanguage is returned for language codes outside Languages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Valid reports whether l is supported.
func (l Language) Valid() bool {
	return l == English || l == Spanish || l == French
}

func (l Language) String() string { return string(l) }

// ParseLanguage accepts an exact supported code, case-insensitive.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", errors.Wrapf(ErrUnsupportedLanguage, "%q", s)
	}
	return l, nil
}

// matcherLangs is ordered like the matcher's tags; the first is its default.
var matcherLangs = []Language{Spanish, English, French}

var matcher = language.NewMatcher([]language.Tag{
	language.Spanish,
	language.English,
	language.French,
})

// Negotiate picks the best supported language for an Accept-Language header
// value and falls back to Default.
func Negotiate(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return matcherLangs[idx]
}

// Vars are substituted into "{name}" placeholders.
type Vars map[string]string

// Bundle resolves translated strings and localized seed data.
type Bundle struct {
	tables   map[Language]map[string]string
	catalogs map[Language][]product.Product
}

// Load parses the embedded tables.
func Load() (*Bundle, error) {
	b := &Bundle{
		tables:   make(map[Language]map[string]string, len(Languages)),
		catalogs: make(map[Language][]product.Product, len(Languages)),
	}
	for _, lang := range Languages {
		table, err := loadTable(path.Join("locales", string(lang)+".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "load %s translations", lang)
		}
		b.tables[lang] = table

		products, err := loadCatalog(path.Join("catalog", string(lang)+".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "load %s catalog", lang)
		}
		b.catalogs[lang] = products
	}
	return b, nil
}

// MustLoad is like Load but panics on error. The data is embedded, so an
// error here is a build defect.
func MustLoad() *Bundle {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

func loadTable(name string) (map[string]string, error) {
	data, err := content.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			out[key] = v
		case map[string]any:
			flatten(key, v, out)
		}
	}
}

func loadCatalog(name string) ([]product.Product, error) {
	data, err := content.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var products []product.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return products, nil
}

// T returns the string for key in lang, falling back to English and then to
// the key itself. Placeholders are replaced from vars.
func (b *Bundle) T(lang Language, key string, vars ...Vars) string {
	s, ok := b.tables[lang][key]
	if !ok {
		s, ok = b.tables[Fallback][key]
	}
	if !ok {
		return key
	}
	for _, v := range vars {
		s = interpolate(s, v)
	}
	return s
}

// Table returns a copy of every string for lang with English filled in for
// missing keys.
func (b *Bundle) Table(lang Language) map[string]string {
	out := make(map[string]string, len(b.tables[Fallback]))
	for k, v := range b.tables[Fallback] {
		out[k] = v
	}
	for k, v := range b.tables[lang] {
		out[k] = v
	}
	return out
}

func interpolate(s string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(s, "{") {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Products returns the default catalog for lang. Unknown languages get the
// English catalog. The result is a fresh copy on every call.
func (b *Bundle) Products(lang Language) []product.Product {
	src, ok := b.catalogs[lang]
	if !ok {
		src = b.catalogs[Fallback]
	}
	out := make([]product.Product, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}
