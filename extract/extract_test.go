package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/flowscout/models"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(b)
}

func parseFixture(t *testing.T, name string) Result {
	t.Helper()
	doc, err := Parse(loadFixture(t, name))
	require.NoError(t, err)

	var ex Extractor
	switch name {
	case "biolegend.html":
		ex = BioLegend()
	case "thermo.html":
		ex = Thermo()
	case "bd.html":
		ex = BD()
	}
	return ex.Extract(doc, "CD3", "Human")
}

type row struct {
	Name, Link, Conjugate string
}

func rows(res Result) []row {
	out := make([]row, len(res.Records))
	for i, r := range res.Records {
		out[i] = row{r.ProductName, r.Link, r.Conjugate}
	}
	return out
}

func TestBioLegend(t *testing.T) {
	res := parseFixture(t, "biolegend.html")

	assert.Equal(t, "list-name", res.Strategy)
	want := []row{
		{
			"FITC anti-human CD3 Antibody",
			"https://www.biolegend.com/en-us/products/fitc-anti-human-cd3-antibody-3",
			"FITC",
		},
		{
			"Brilliant Violet 421™ anti-human CD3 Antibody",
			"https://www.biolegend.com/en-us/products/brilliant-violet-421-anti-human-cd3-antibody-7128",
			"Brilliant Violet 421™",
		},
		{
			"Purified CD3 Antibody",
			"https://www.biolegend.com/en-us/products/purified-human-cd3-antibody-99",
			"Purified CD3 Antibody",
		},
	}
	if diff := cmp.Diff(want, rows(res)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	for _, r := range res.Records {
		assert.Equal(t, models.VendorBioLegend, r.Vendor)
		assert.Equal(t, "CD3", r.Target)
		assert.Equal(t, "Human", r.Species)
		assert.True(t, r.HasRequiredFacet)
		assert.Equal(t, "list-name", r.Strategy)
	}
}

func TestThermo_RequiresSpeciesMarker(t *testing.T) {
	res := parseFixture(t, "thermo.html")

	assert.Equal(t, "product-desc", res.Strategy)
	want := []row{
		{
			"CD3 Monoclonal Antibody (OKT3), FITC, eBioscience™",
			"https://www.thermofisher.com/antibody/product/CD3-Antibody-clone-OKT3-Monoclonal/11-0037-42",
			"FITC",
		},
		{
			"CD3 Monoclonal Antibody (UCHT1), PE",
			"https://www.thermofisher.com/antibody/product/CD3-Antibody-clone-UCHT1-Monoclonal/12-0038-42",
			"PE",
		},
		{
			"CD3 Polyclonal Antibody",
			"https://www.thermofisher.com/antibody/product/CD3-Polyclonal/PA1-29547",
			"CD3 Polyclonal Antibody",
		},
	}
	if diff := cmp.Diff(want, rows(res)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestBD_FallsThroughCascade(t *testing.T) {
	res := parseFixture(t, "bd.html")

	assert.Equal(t, "card-title", res.Strategy)
	want := []row{
		{
			"FITC Mouse Anti-Human CD3 (UCHT1)",
			"https://www.bdbiosciences.com/en-us/products/reagents/flow-cytometry-reagents/research-reagents/single-color-antibodies-ruo/fitc-mouse-anti-human-cd3.555332",
			"FITC Mouse Anti-Human CD3 (UCHT1)",
		},
		{
			"Mouse Anti-Human CD3 (UCHT1) BV421",
			"https://www.bdbiosciences.com/en-us/products/reagents/flow-cytometry-reagents/research-reagents/single-color-antibodies-ruo/bv421-mouse-anti-human-cd3.562426",
			"BV421",
		},
		{
			"Mouse Anti-Human CD3 ()",
			"https://www.bdbiosciences.com/en-us/products/reagents/mouse-anti-human-cd3.300",
			"Mouse Anti-Human CD3 ()",
		},
		{
			"Mouse Anti-Human CD3 (SK7) PE",
			"https://shop.example.com/en-us/products/cd3",
			"PE",
		},
	}
	if diff := cmp.Diff(want, rows(res)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCascade_FirstMatchWinsWithoutMerging(t *testing.T) {
	doc, err := Parse(`<html><body>
		<div class="pdp-search-card__body">
			<a class="card-title pdp-search-card__body-title" href="/en-us/products/a">Mouse Anti-Human CD4 (SK3) PE</a>
		</div>
		<article class="pdp-search-card">
			<a class="card-title" href="/en-us/products/b">Mouse Anti-Human CD8 (SK1) APC</a>
		</article>
	</body></html>`)
	require.NoError(t, err)

	res := BD().Extract(doc, "CD4", "Human")
	assert.Equal(t, "card-body-title", res.Strategy)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "https://www.bdbiosciences.com/en-us/products/a", res.Records[0].Link)
}

func TestThermo_MixedTitleMarkup(t *testing.T) {
	doc, err := Parse(`<html><body>
		<div class="flex-container product-info ab-primary">
			<a class="product-desc" href="/antibody/product/old-1">CD4 Monoclonal Antibody (RPA-T4), PE</a>
			<span class="item species-item">Human</span>
		</div>
		<div class="flex-container product-info ab-primary">
			<a class="product-desc-new" href="/antibody/product/new-2">CD4 Monoclonal Antibody (SK3), APC</a>
			<span class="item species-item">Human</span>
		</div>
	</body></html>`)
	require.NoError(t, err)

	res := Thermo().Extract(doc, "CD4", "Human")
	assert.Equal(t, "product-desc", res.Strategy)
	want := []row{
		{"CD4 Monoclonal Antibody (RPA-T4), PE", "https://www.thermofisher.com/antibody/product/old-1", "PE"},
		{"CD4 Monoclonal Antibody (SK3), APC", "https://www.thermofisher.com/antibody/product/new-2", "APC"},
	}
	if diff := cmp.Diff(want, rows(res)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCascade_NoMatch(t *testing.T) {
	doc, err := Parse(`<html><body><p>No results found</p></body></html>`)
	require.NoError(t, err)

	for vendor, ex := range DefaultRegistry() {
		res := ex.Extract(doc, "CD3", "Human")
		assert.Empty(t, res.Records, vendor)
		assert.Empty(t, res.Strategy, vendor)
	}
}

func TestLabelers(t *testing.T) {
	tests := []struct {
		name  string
		label Labeler
		in    string
		want  string
	}{
		{"biolegend prefix", BeforeAnti, "PE/Cyanine7 anti-human CD3 Antibody", "PE/Cyanine7"},
		{"biolegend case", BeforeAnti, "APC Anti-mouse CD3ε Antibody", "APC"},
		{"biolegend miss", BeforeAnti, "Human TruStain FcX", "Human TruStain FcX"},
		{"biolegend leading anti", BeforeAnti, "anti-human CD3", "anti-human CD3"},
		{"thermo middle", RegexLabeler(thermoConjugate), "CD3 Monoclonal Antibody (OKT3), APC, eBioscience", "APC"},
		{"thermo last", RegexLabeler(thermoConjugate), "CD3 Monoclonal Antibody (OKT3), Super Bright 600", "Super Bright 600"},
		{"thermo miss", RegexLabeler(thermoConjugate), "CD3 Polyclonal Antibody", "CD3 Polyclonal Antibody"},
		{"bd tail", RegexLabeler(bdConjugate), "Mouse Anti-Human CD3 (SK7) BUV395", "BUV395"},
		{"bd empty capture", RegexLabeler(bdConjugate), "Mouse Anti-Human CD3 (SK7)", "Mouse Anti-Human CD3 (SK7)"},
		{"bd miss", RegexLabeler(bdConjugate), "Human BD Fc Block", "Human BD Fc Block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.label(tt.in))
		})
	}
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "FITC anti-human CD3", CollapseSpace("  FITC \n\t anti-human   CD3 "))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	for _, v := range models.Vendors {
		_, ok := r.For(v)
		assert.True(t, ok, v)
	}
	_, ok := r.For(models.Vendor("abcam"))
	assert.False(t, ok)
}
