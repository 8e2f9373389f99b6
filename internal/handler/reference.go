package handler

import (
	"net/http"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// VendorList is the body of GET /vendors.
type VendorList struct {
	Data []domain.Vendor `json:"data"`
}

// ZoneList is the body of GET /zones.
type ZoneList struct {
	Data []domain.Zone `json:"data"`
}

// ListVendors handles GET /vendors.
func (s *Server) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.vendors.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "vendor")
		return
	}
	writeJSON(w, http.StatusOK, VendorList{Data: vendors})
}

// ListZones handles GET /zones.
func (s *Server) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.zones.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "zone")
		return
	}
	writeJSON(w, http.StatusOK, ZoneList{Data: zones})
}
