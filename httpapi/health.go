package httpapi

import "net/http"

// handleHealth is a liveness check only, it does not exercise the
// notary key, the circuit artifacts, or any origin connectivity. A
// readiness probe that does so is deliberately out of scope here.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
