package models

import "time"

// RawRecord is a candidate listing scraped from a rendered catalog page.
// It is discarded after reconciliation.
type RawRecord struct {
	Vendor      Vendor
	ProductName string
	Link        string // absolute URL

	// HasRequiredFacet is the vendor-specific validity signal (for Thermo
	// Fisher: the card carries a species marker). Vendors without such a
	// signal always set it to true.
	HasRequiredFacet bool

	Target    string
	Species   string
	Conjugate string

	// Strategy names the selector strategy that produced the record.
	Strategy string
}

// Record is a reconciled vendor listing as served to clients.
type Record struct {
	Vendor      string `json:"vendor"`
	ProductName string `json:"product_name"`
	Target      string `json:"target"`
	Species     string `json:"species"`
	Conjugate   string `json:"conjugate"`
	Link        string `json:"link"`
}

// ResultSet is the full reconciled outcome of one pipeline run. It is
// immutable once stored in the cache.
type ResultSet struct {
	// Records is the reconciled set after near-duplicate squashing.
	Records []Record

	// Exact is the set after exact dedup only; served in audit mode.
	Exact []Record

	// SourceURLs are the catalog pages visited, in order.
	SourceURLs []string

	// Strategy is the extraction strategy that matched on the first page.
	Strategy string

	// Squashed counts records dropped as near-duplicate variants.
	Squashed int

	// Truncated is set when the aggregate watchdog cut the harvest short.
	Truncated bool

	CreatedAt time.Time
}

// Total is the pre-pagination size of the squashed set.
func (rs *ResultSet) Total() int { return len(rs.Records) }
