package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/flowscout/models"
)

// urlFunc renders the catalog URL for one (vendor, laser) pair from
// already-escaped target and species components.
type urlFunc func(target, species string) string

func bioLegendURL(laserToken string) urlFunc {
	return func(target, species string) string {
		return "https://www.biolegend.com/en-us/search-results?ExcitationLaser=" + laserToken +
			"&Keywords=" + target +
			"&PageSize=100&Reactivity=" + species
	}
}

func thermoURL(band string) urlFunc {
	return func(target, species string) string {
		return "https://www.thermofisher.com/antibody/primary/query/" + target +
			"/filter/application/Flow+Cytometry/species/" + species +
			"/compatibility/" + band
	}
}

func bdURL(source string) urlFunc {
	src := Escape(source)
	return func(target, species string) string {
		return "https://www.bdbiosciences.com/en-us/search-results?searchKey=" + target +
			"&speciesReactivity_facet_ss::%22" + species + "%22=%22" + species + "%22" +
			"&applicationName_facet_ss::%22Flow%20cytometry%22=%22Flow%20cytometry%22" +
			"&excitationSource_facet_s::%22" + src + "%22=%22" + src + "%22"
	}
}

// templates is the fixed (vendor, laser) → URL mapping.
var templates = map[models.Vendor]map[models.Laser]urlFunc{
	models.VendorBioLegend: {
		models.LaserUV:     bioLegendURL("uvlaser"),
		models.LaserViolet: bioLegendURL("violetlaser"),
		models.LaserBlue:   bioLegendURL("bluelaser"),
		models.LaserYG:     bioLegendURL("yellowgreenlaser"),
		models.LaserRed:    bioLegendURL("redlaser"),
	},
	models.VendorThermo: {
		models.LaserUV:     thermoURL("355+nm+(UV)"),
		models.LaserViolet: thermoURL("405+nm+(Violet)"),
		models.LaserBlue:   thermoURL("488+nm+(Blue)"),
		models.LaserYG:     thermoURL("561+nm+(Yellow-Green)"),
		models.LaserRed:    thermoURL("633+nm+(Red)"),
	},
	models.VendorBD: {
		models.LaserUV:     bdURL("UV Laser"),
		models.LaserViolet: bdURL("Violet 405 nm"),
		models.LaserBlue:   bdURL("Blue 488 nm"),
		models.LaserYG:     bdURL("Yellow-Green 561 nm"),
		models.LaserRed:    bdURL("Red 627-640 nm"),
	},
}

// Build returns the initial catalog URL for the given vendor and laser.
// It never makes network calls.
func Build(vendor models.Vendor, laser models.Laser, target, species string) (string, error) {
	fn, ok := templates[vendor][laser]
	if !ok {
		return "", models.NewSearchError(
			models.ErrCodeUnsupported,
			fmt.Sprintf("no catalog URL for vendor %q and laser %q", vendor, laser),
			nil,
		)
	}
	return fn(Escape(target), Escape(species)), nil
}

// StartURL returns the override URL when set, otherwise the built URL.
// The override must be an absolute http(s) URL.
func StartURL(q models.Query) (string, error) {
	if q.OverrideURL == "" {
		return Build(q.Vendor, q.Laser, q.Target, q.Species)
	}
	u, err := url.Parse(q.OverrideURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", models.NewSearchError(
			models.ErrCodeBadParams,
			"override_url must be an absolute http(s) URL",
			err,
		)
	}
	return q.OverrideURL, nil
}

// Escape percent-encodes s as a single URL component. Spaces become %20
// (never "+"), so the result decodes identically with both path and query
// unescaping.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

var pageParam = regexp.MustCompile(`(?i)([?&])Page=\d+&?`)

// PageURL returns base with its Page parameter set to n. Any existing
// Page parameter is removed first.
func PageURL(base string, n int) string {
	start := pageParam.ReplaceAllString(base, "$1")
	start = strings.TrimRight(start, "?&")
	sep := "?"
	if strings.Contains(start, "?") {
		sep = "&"
	}
	return start + sep + "Page=" + strconv.Itoa(n)
}
