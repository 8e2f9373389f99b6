package domain

// Vendor is a taxi company or data source. VendorCode is the business key;
// VendorID is the surrogate key trips reference.
// Vendors are shared reference data: created lazily on first sighting and
// never owned by any trip.
type Vendor struct {
	VendorID   int32  `json:"vendor_id"`
	VendorCode string `json:"vendor_code"`
	VendorName string `json:"vendor_name"`
	Notes      string `json:"notes"`
}
