package models

// Pagination bounds applied to every search response.
const (
	DefaultLimit   = 50
	MinLimit       = 1
	MaxLimit       = 200
	DefaultSpecies = "Human"
)

// SearchRequest is bound from the query string of GET /api/v1/search.
type SearchRequest struct {
	// Vendor is matched by substring/alias, e.g. "BioLegend", "Thermo Fisher", "BD".
	Vendor string `form:"vendor" json:"vendor"`

	// Target is the molecular target (antigen), e.g. "CD3".
	Target string `form:"target" json:"target"`

	// Species is the reactivity species. Default: "Human".
	Species string `form:"species" json:"species"`

	// Laser is the excitation laser, e.g. "Blue", "yellow-green", "561".
	Laser string `form:"laser" json:"laser"`

	// Limit is the page size. Default: 50. Clamped to 1–200.
	Limit int `form:"limit" json:"limit"`

	// Offset is the zero-based index of the first row. Floored at 0.
	Offset int `form:"offset" json:"offset"`

	// OverrideURL replaces the built catalog URL. Bypasses the cache.
	OverrideURL string `form:"override_url" json:"override_url,omitempty"`

	// Debug adds provenance and timing to the response ("1" or "true").
	Debug bool `form:"debug" json:"debug,omitempty"`

	// Audit disables near-duplicate squashing for this response.
	Audit bool `form:"audit" json:"audit,omitempty"`
}

// Defaults applies default values and clamps pagination fields.
func (r *SearchRequest) Defaults() {
	if r.Species == "" {
		r.Species = DefaultSpecies
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	r.Limit = ClampLimit(r.Limit)
	if r.Offset < 0 {
		r.Offset = 0
	}
}

// ClampLimit bounds a page size to [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
