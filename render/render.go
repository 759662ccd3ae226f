// Package render turns a page of search results into a human-readable
// table, as HTML or Markdown.
package render

import (
	"bytes"
	"html/template"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/use-agent/flowscout/models"
)

// Page is one rendered page of results.
type Page struct {
	Target string
	Laser  string
	Total  int
	Limit  int
	Offset int
	Rows   []models.Record
}

type row struct {
	N int
	models.Record
}

var tableTmpl = template.Must(template.New("table").Parse(`<h2>Results for {{.Target}} ({{.Laser}}): showing {{len .Rows}} of {{.Total}} (limit={{.Limit}}, offset={{.Offset}})</h2>
<table border="1" cellspacing="0" cellpadding="6" style="border-collapse:collapse;font-family:Arial, sans-serif;font-size:13px;">
<thead><tr><th>#</th><th>Vendor</th><th>Product Name</th><th>Target</th><th>Species</th><th>Conjugate</th><th>Link</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.N}}</td><td>{{.Vendor}}</td><td>{{.ProductName}}</td><td>{{.Target}}</td><td>{{.Species}}</td><td>{{.Conjugate}}</td><td><a href="{{.Link}}" target="_blank" rel="noreferrer noopener">Link</a></td></tr>
{{- end}}
</tbody></table>
`))

// Renderer is safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

// New creates a Renderer. The Markdown converter keeps table structure
// with minimal cell padding.
func New() *Renderer {
	return &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// HTML renders p as an HTML fragment. Rows are numbered from Offset+1 and
// every cell is escaped.
func (r *Renderer) HTML(p Page) (string, error) {
	rows := make([]row, len(p.Rows))
	for i, rec := range p.Rows {
		rows[i] = row{N: p.Offset + i + 1, Record: rec}
	}

	var buf bytes.Buffer
	err := tableTmpl.Execute(&buf, struct {
		Page
		Rows []row
	}{Page: p, Rows: rows})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Markdown renders p as a Markdown heading plus table.
func (r *Renderer) Markdown(p Page) (string, error) {
	html, err := r.HTML(p)
	if err != nil {
		return "", err
	}
	return r.conv.ConvertString(html)
}
