package extract

import (
	"regexp"
	"strings"

	"github.com/use-agent/flowscout/models"
)

// Labeler derives a best-effort conjugate label from a product name. It is
// a heuristic: a miss or an empty capture yields the full name.
type Labeler func(name string) string

var antiPrefix = regexp.MustCompile(`(?i)^(.+?) anti-`)

// BeforeAnti labels "PE anti-human CD3 Antibody" as "PE".
func BeforeAnti(name string) string {
	return fromCapture(antiPrefix, name)
}

// RegexLabeler labels with the first capture group of re.
func RegexLabeler(re *regexp.Regexp) Labeler {
	return func(name string) string {
		return fromCapture(re, name)
	}
}

func fromCapture(re *regexp.Regexp, name string) string {
	m := re.FindStringSubmatch(name)
	if len(m) < 2 {
		return name
	}
	if label := strings.TrimSpace(m[1]); label != "" {
		return label
	}
	return name
}

var (
	// "CD3 Monoclonal Antibody (OKT3), FITC, eBioscience" → "FITC"
	thermoConjugate = regexp.MustCompile(`\)\s*,\s*([^,]+)(?:,|$)`)

	// "Mouse Anti-Human CD3 (SK7) FITC" → "FITC"
	bdConjugate = regexp.MustCompile(`\)\s*(.*)$`)
)

// BioLegend renders a paginated list; every row is a product.
func BioLegend() *Cascade {
	return &Cascade{
		Vendor: models.VendorBioLegend,
		Strategies: []Strategy{
			NewStrategy("list-name", "li.row.list", "h2 a[itemprop='name']", ""),
			NewStrategy("list-heading", "li.row.list", "h2 a[href]", ""),
		},
		Label: BeforeAnti,
	}
}

// Thermo renders product cards; only cards showing the species facet are
// genuine matches for the requested species. Old and new title markups can
// share a page, so one strategy covers both.
func Thermo() *Cascade {
	return &Cascade{
		Vendor: models.VendorThermo,
		Strategies: []Strategy{
			NewStrategy("product-desc",
				"div.flex-container.product-info.ab-primary",
				"a.product-desc, a.product-desc-new",
				".item.species-item"),
		},
		Label:        RegexLabeler(thermoConjugate),
		RequireFacet: true,
	}
}

// BD renders search cards in several markup generations.
func BD() *Cascade {
	return &Cascade{
		Vendor: models.VendorBD,
		Strategies: []Strategy{
			NewStrategy("card-body-title",
				"div.pdp-search-card__body",
				"a.card-title.pdp-search-card__body-title",
				""),
			NewStrategy("card-title",
				".pdp-search-card, article.pdp-search-card",
				"a.card-title",
				""),
			NewStrategy("product-link",
				".pdp-search-card, article.pdp-search-card",
				"a[href*='/products/']",
				""),
		},
		Label: RegexLabeler(bdConjugate),
	}
}

// Registry maps each vendor to its extractor.
type Registry map[models.Vendor]Extractor

// DefaultRegistry returns extractors for every supported vendor.
func DefaultRegistry() Registry {
	return Registry{
		models.VendorBioLegend: BioLegend(),
		models.VendorThermo:    Thermo(),
		models.VendorBD:        BD(),
	}
}

// For returns the extractor for v.
func (r Registry) For(v models.Vendor) (Extractor, bool) {
	e, ok := r[v]
	return e, ok
}
