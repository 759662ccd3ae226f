package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/flowscout/models"
)

func samplePage() Page {
	return Page{
		Target: "CD3",
		Laser:  "blue",
		Total:  12,
		Limit:  2,
		Offset: 10,
		Rows: []models.Record{
			{Vendor: "BioLegend", ProductName: "FITC anti-human CD3 Antibody", Target: "CD3", Species: "Human", Conjugate: "FITC", Link: "https://www.biolegend.com/p/1"},
			{Vendor: "BioLegend", ProductName: "<b>PE</b> anti-human CD3", Target: "CD3", Species: "Human", Conjugate: "PE", Link: "https://www.biolegend.com/p/2"},
		},
	}
}

func TestHTML(t *testing.T) {
	out, err := New().HTML(samplePage())
	require.NoError(t, err)

	assert.Contains(t, out, "showing 2 of 12 (limit=2, offset=10)")
	assert.Contains(t, out, "<tr><td>11</td><td>BioLegend</td>")
	assert.Contains(t, out, "<td>12</td>")
	assert.Contains(t, out, `href="https://www.biolegend.com/p/2"`)
	assert.Contains(t, out, "&lt;b&gt;PE&lt;/b&gt;")
	assert.NotContains(t, out, "<b>PE</b>")
}

func TestHTML_Empty(t *testing.T) {
	out, err := New().HTML(Page{Target: "CD3", Laser: "red"})
	require.NoError(t, err)
	assert.Contains(t, out, "showing 0 of 0")
	assert.Equal(t, 0, strings.Count(out, "<td>"))
}

func TestMarkdown(t *testing.T) {
	out, err := New().Markdown(samplePage())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "## Results for CD3"))
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "FITC anti-human CD3 Antibody")
	assert.Contains(t, out, "[Link](https://www.biolegend.com/p/1)")
	assert.NotContains(t, out, "<table")
}
