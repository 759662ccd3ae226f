// Package query canonicalizes raw search parameters and maps them onto
// vendor catalog URLs. Nothing in this package touches the network.
package query

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/use-agent/flowscout/models"
)

// laserSynonyms maps every accepted spelling to its canonical laser.
var laserSynonyms = map[string]models.Laser{
	"uv":           models.LaserUV,
	"ultraviolet":  models.LaserUV,
	"355":          models.LaserUV,
	"violet":       models.LaserViolet,
	"405":          models.LaserViolet,
	"blue":         models.LaserBlue,
	"488":          models.LaserBlue,
	"yg":           models.LaserYG,
	"yellow":       models.LaserYG,
	"yellow-green": models.LaserYG,
	"yellow green": models.LaserYG,
	"yellowgreen":  models.LaserYG,
	"green":        models.LaserYG,
	"561":          models.LaserYG,
	"red":          models.LaserRed,
	"633":          models.LaserRed,
	"640":          models.LaserRed,
}

// DefaultTargetAliases maps common antigen shorthand to the phrase the
// catalogs index on. Keys are lower-case.
var DefaultTargetAliases = map[string]string{
	"pd1":    "PD-1",
	"pdl1":   "PD-L1",
	"ctla4":  "CTLA-4",
	"tcrb":   "TCR beta",
	"tcrgd":  "TCR gamma/delta",
	"ki67":   "Ki-67",
	"foxp3":  "FOXP3",
	"hladr":  "HLA-DR",
	"il2":    "IL-2",
	"ifng":   "IFN-gamma",
	"tnfa":   "TNF-alpha",
	"cd45ra": "CD45RA",
}

// Normalizer turns raw user strings into a canonical models.Query.
// It is pure and safe for concurrent use.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer creates a Normalizer. extra aliases override the defaults.
func NewNormalizer(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(DefaultTargetAliases)+len(extra))
	for k, v := range DefaultTargetAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			aliases[k] = v
		}
	}
	return &Normalizer{aliases: aliases}
}

// Normalize validates and canonicalizes the four core query fields.
// A rejection is a *models.SearchError with code bad_params.
func (n *Normalizer) Normalize(rawVendor, rawTarget, rawSpecies, rawLaser string) (models.Query, error) {
	vendor, ok := Vendor(rawVendor)
	if !ok {
		return models.Query{}, reject("unknown vendor %q", rawVendor)
	}
	laser, ok := Laser(rawLaser)
	if !ok {
		return models.Query{}, reject("unknown laser %q", rawLaser)
	}
	species := Species(rawSpecies)
	if species == "" {
		return models.Query{}, reject("species is required")
	}
	target := n.Target(rawTarget)
	if target == "" {
		return models.Query{}, reject("target is required")
	}
	return models.Query{
		Vendor:  vendor,
		Target:  target,
		Species: species,
		Laser:   laser,
	}, nil
}

// Vendor maps a raw vendor string to its canonical id.
func Vendor(raw string) (models.Vendor, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return "", false
	case strings.Contains(v, "biolegend"):
		return models.VendorBioLegend, true
	case strings.Contains(v, "thermo"), strings.Contains(v, "invitrogen"), strings.Contains(v, "ebioscience"):
		return models.VendorThermo, true
	case v == "bd", strings.Contains(v, "biosciences"), strings.Contains(v, "becton"):
		return models.VendorBD, true
	}
	return "", false
}

// Laser maps a raw laser string through the synonym table.
func Laser(raw string) (models.Laser, bool) {
	l, ok := laserSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return l, ok
}

// Species title-cases a species name: first letter upper, the rest lower.
func Species(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Target trims raw and applies the alias table.
func (n *Normalizer) Target(raw string) string {
	t := strings.TrimSpace(raw)
	if alias, ok := n.aliases[strings.ToLower(t)]; ok {
		return alias
	}
	return t
}

func reject(format string, args ...any) *models.SearchError {
	return models.NewSearchError(models.ErrCodeBadParams, fmt.Sprintf(format, args...), nil)
}
