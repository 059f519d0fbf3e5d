package concierge

import (
	"fmt"
	"strings"

	"github.com/xenking/sun8-storefront/internal/domain/product"
	"github.com/xenking/sun8-storefront/internal/i18n"
)

// Generation parameters for chat replies.
const (
	Temperature     = 0.7
	MaxOutputTokens = 500
)

var languageNames = map[i18n.Language]string{
	i18n.English: "English",
	i18n.Spanish: "Spanish (Español)",
	i18n.French:  "French (Français)",
}

// CatalogContext renders one line per product:
// "- {title} ({category}): ${price}. {description}. Features: {a, b}".
func CatalogContext(products []product.Product) string {
	lines := make([]string, len(products))
	for i, p := range products {
		lines[i] = fmt.Sprintf("- %s (%s): $%s. %s. Features: %s",
			p.Title, p.Category, p.Price.String(), p.Description, strings.Join(p.Features, ", "))
	}
	return strings.Join(lines, "\n")
}

// SystemInstruction builds the persona prompt for lang with the catalog
// snapshot embedded.
func SystemInstruction(products []product.Product, lang i18n.Language) string {
	name, ok := languageNames[lang]
	if !ok {
		name = languageNames[i18n.English]
	}

	var b strings.Builder
	b.WriteString(`You are "Aura", the AI Concierge for SUN8, a luxury brand selling high-end watches and jewelry.`)
	b.WriteString("\n\nCurrent Language Setting: ")
	b.WriteString(strings.ToUpper(lang.String()))
	b.WriteString(`

Your Tone:
- Sophisticated, polite, elegant, and helpful.
- Use a premium vocabulary appropriate for the selected language.
- Keep responses concise but warm.

Your Goal:
- Assist customers in finding the perfect item from our catalog.
- Answer questions about styling.
- If a user asks for a recommendation, suggest specific products from the catalog below.

Catalog Data:
`)
	b.WriteString(CatalogContext(products))
	b.WriteString(`

Rules:
- Do not invent products not in the list.
- You MUST respond in the language: `)
	b.WriteString(name)
	b.WriteString(".\n- If asked about price, state it clearly.\n")
	return b.String()
}
