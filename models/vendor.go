package models

// Vendor is the canonical identifier of a supported reagent catalog.
type Vendor string

const (
	VendorBioLegend Vendor = "biolegend"
	VendorThermo    Vendor = "thermo"
	VendorBD        Vendor = "bd"
)

// Vendors lists every supported vendor in a stable order.
var Vendors = []Vendor{VendorBioLegend, VendorThermo, VendorBD}

// vendorInfo describes the fixed catalog facts of a vendor.
type vendorInfo struct {
	display string
	domain  string
	baseURL string
}

var vendorTable = map[Vendor]vendorInfo{
	VendorBioLegend: {display: "BioLegend", domain: "biolegend.com", baseURL: "https://www.biolegend.com"},
	VendorThermo:    {display: "Thermo Fisher", domain: "thermofisher.com", baseURL: "https://www.thermofisher.com"},
	VendorBD:        {display: "BD Biosciences", domain: "bdbiosciences.com", baseURL: "https://www.bdbiosciences.com"},
}

// Valid reports whether v is one of the supported vendors.
func (v Vendor) Valid() bool {
	_, ok := vendorTable[v]
	return ok
}

// DisplayName is the human-facing vendor name used in result rows.
func (v Vendor) DisplayName() string { return vendorTable[v].display }

// Domain is the registrable domain every product link of v must live under.
func (v Vendor) Domain() string { return vendorTable[v].domain }

// BaseURL is the scheme+host used to resolve relative product links.
func (v Vendor) BaseURL() string { return vendorTable[v].baseURL }

// Laser is the canonical excitation-laser facet.
type Laser string

const (
	LaserUV     Laser = "uv"
	LaserViolet Laser = "violet"
	LaserBlue   Laser = "blue"
	LaserYG     Laser = "yg"
	LaserRed    Laser = "red"
)

// Lasers lists every supported laser in wavelength order.
var Lasers = []Laser{LaserUV, LaserViolet, LaserBlue, LaserYG, LaserRed}

// Query is a fully normalized search query. All four core fields are non-empty.
type Query struct {
	Vendor      Vendor
	Target      string
	Species     string
	Laser       Laser
	OverrideURL string
}
