package models

// SearchResponse is the response for GET /api/v1/search.
type SearchResponse struct {
	// Total is the size of the full reconciled set, not the page size.
	Total int `json:"total"`

	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Rows   []Record `json:"rows"`

	// CacheStatus is "hit", "miss" or "bypass".
	CacheStatus string `json:"cache_status,omitempty"`

	// Debug is populated only when the request sets debug=1.
	Debug *DebugInfo `json:"debug,omitempty"`

	// Error is populated only on failure.
	Error *ErrorDetail `json:"error,omitempty"`
}

// DebugInfo carries provenance for a search response.
type DebugInfo struct {
	StartURL   string     `json:"start_url"`
	SourceURLs []string   `json:"source_urls"`
	Strategy   string     `json:"strategy,omitempty"`
	Squashed   int        `json:"squashed"`
	Audit      bool       `json:"audit"`
	Truncated  bool       `json:"truncated,omitempty"`
	Timing     TimingInfo `json:"timing"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// HarvestMs is the time spent driving the browser and extracting.
	HarvestMs int64 `json:"harvest_ms"`
}

// MultiSearchRequest is bound from the query string of GET /api/v1/search/all.
type MultiSearchRequest struct {
	Target  string `form:"target" json:"target"`
	Species string `form:"species" json:"species"`
	Laser   string `form:"laser" json:"laser"`
	Limit   int    `form:"limit" json:"limit"`
	Audit   bool   `form:"audit" json:"audit,omitempty"`
}

// MultiSearchResponse groups one SearchResponse per vendor.
type MultiSearchResponse struct {
	Total   int                        `json:"total"`
	Vendors map[Vendor]*SearchResponse `json:"vendors"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	GateStats GateStats `json:"gate_stats"`
	CacheSize int       `json:"cache_size"`
	Version   string    `json:"version"`
}

// GateStats reports the state of the browser admission gate.
type GateStats struct {
	Capacity            int `json:"capacity"`
	Active              int `json:"active"`
	Waiting             int `json:"waiting"`
	ConsecutiveFailures int `json:"consecutive_failures"`
}
