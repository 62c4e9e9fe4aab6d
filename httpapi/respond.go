package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/loca555/tls-oracle-near/errs"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the JSON shape every failed request gets: the typed
// error kind and a human-readable message, never the plaintext response
// body even when the failure happened after the body was read.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeJSON(w, statusFor(kind), errorResponse{
		Kind:    string(kind),
		Message: err.Error(),
	})
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.InvalidRequest, errs.ResponseTooLarge:
		return http.StatusBadRequest
	case errs.SsrfBlocked:
		return http.StatusForbidden
	case errs.OriginUnreachable, errs.TlsFailure:
		return http.StatusBadGateway
	case errs.Timeout:
		return http.StatusGatewayTimeout
	case errs.MpcProtocolFailure, errs.ProofGenerationFailed, errs.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
