package query

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/flowscout/models"
)

// decodedComponents extracts the target and species from a built URL using
// only standard percent-decoding.
func decodedComponents(t *testing.T, vendor models.Vendor, u *url.URL) (target, species string) {
	t.Helper()
	switch vendor {
	case models.VendorBioLegend:
		q := u.Query()
		return q.Get("Keywords"), q.Get("Reactivity")
	case models.VendorBD:
		q := u.Query()
		target = q.Get("searchKey")
		for k, v := range q {
			if strings.HasPrefix(k, "speciesReactivity_facet_ss::") {
				species = strings.Trim(v[0], `"`)
				assert.Equal(t, `speciesReactivity_facet_ss::"`+species+`"`, k)
			}
		}
		return target, species
	case models.VendorThermo:
		segs := strings.Split(u.EscapedPath(), "/")
		for i, s := range segs {
			next := ""
			if i+1 < len(segs) {
				next = segs[i+1]
			}
			switch s {
			case "query":
				target, _ = url.PathUnescape(next)
			case "species":
				species, _ = url.PathUnescape(next)
			}
		}
		return target, species
	}
	t.Fatalf("unexpected vendor %q", vendor)
	return "", ""
}

func TestBuild_RoundTrip(t *testing.T) {
	inputs := []struct{ target, species string }{
		{"CD3", "Human"},
		{"TCR gamma/delta", "Mouse"},
		{"IFN-γ & TNF+", "Non human primate"},
		{"CD45RA?x=1#frag", "Rat"},
	}

	for _, vendor := range models.Vendors {
		for _, laser := range models.Lasers {
			for _, in := range inputs {
				raw, err := Build(vendor, laser, in.target, in.species)
				require.NoError(t, err)

				u, err := url.Parse(raw)
				require.NoError(t, err, raw)
				assert.True(t, u.IsAbs(), raw)
				assert.Equal(t, "https", u.Scheme)
				assert.True(t, strings.HasSuffix(u.Hostname(), vendor.Domain()), raw)
				assert.Empty(t, u.Fragment, raw)

				target, species := decodedComponents(t, vendor, u)
				assert.Equal(t, in.target, target, raw)
				assert.Equal(t, in.species, species, raw)
			}
		}
	}
}

func TestBuild_Templates(t *testing.T) {
	got, err := Build(models.VendorBioLegend, models.LaserBlue, "CD3", "Human")
	require.NoError(t, err)
	assert.Equal(t,
		"https://www.biolegend.com/en-us/search-results?ExcitationLaser=bluelaser&Keywords=CD3&PageSize=100&Reactivity=Human",
		got)

	got, err = Build(models.VendorThermo, models.LaserYG, "CD3", "Human")
	require.NoError(t, err)
	assert.Equal(t,
		"https://www.thermofisher.com/antibody/primary/query/CD3/filter/application/Flow+Cytometry/species/Human/compatibility/561+nm+(Yellow-Green)",
		got)

	got, err = Build(models.VendorBD, models.LaserRed, "CD3", "Human")
	require.NoError(t, err)
	assert.Equal(t,
		"https://www.bdbiosciences.com/en-us/search-results?searchKey=CD3"+
			"&speciesReactivity_facet_ss::%22Human%22=%22Human%22"+
			"&applicationName_facet_ss::%22Flow%20cytometry%22=%22Flow%20cytometry%22"+
			"&excitationSource_facet_s::%22Red%20627-640%20nm%22=%22Red%20627-640%20nm%22",
		got)
}

func TestBuild_Unsupported(t *testing.T) {
	_, err := Build(models.Vendor("abcam"), models.LaserBlue, "CD3", "Human")
	var se *models.SearchError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeUnsupported, se.Code)
}

func TestStartURL(t *testing.T) {
	q := models.Query{Vendor: models.VendorBD, Laser: models.LaserUV, Target: "CD4", Species: "Human"}

	built, err := StartURL(q)
	require.NoError(t, err)
	assert.Contains(t, built, "searchKey=CD4")

	q.OverrideURL = "https://www.bdbiosciences.com/en-us/search-results?searchKey=anything"
	got, err := StartURL(q)
	require.NoError(t, err)
	assert.Equal(t, q.OverrideURL, got)

	for _, bad := range []string{"ftp://example.com/x", "/relative/path", "not a url at all"} {
		q.OverrideURL = bad
		_, err := StartURL(q)
		var se *models.SearchError
		require.True(t, errors.As(err, &se), bad)
		assert.Equal(t, models.ErrCodeBadParams, se.Code)
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "TCR%20gamma%2Fdelta", Escape("TCR gamma/delta"))
	assert.Equal(t, "A%2BB", Escape("A+B"))
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		base string
		n    int
		want string
	}{
		{"https://x.test/s?Keywords=CD3", 1, "https://x.test/s?Keywords=CD3&Page=1"},
		{"https://x.test/s?Keywords=CD3&Page=4", 2, "https://x.test/s?Keywords=CD3&Page=2"},
		{"https://x.test/s?Page=4&Keywords=CD3", 3, "https://x.test/s?Keywords=CD3&Page=3"},
		{"https://x.test/s?Page=9", 5, "https://x.test/s?Page=5"},
		{"https://x.test/s", 2, "https://x.test/s?Page=2"},
		{"https://x.test/s?PageSize=100", 2, "https://x.test/s?PageSize=100&Page=2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageURL(tt.base, tt.n), tt.base)
	}
}
