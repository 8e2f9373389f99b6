package handler

import "net/http"

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetAPIDoc handles GET /openapi.yaml.
func (s *Server) GetAPIDoc(w http.ResponseWriter, _ *http.Request) {
	if len(s.apiDoc) == 0 {
		notFound(w, "api document not configured")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.apiDoc)
}
