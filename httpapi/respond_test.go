package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loca555/tls-oracle-near/errs"
)

func TestStatusFor_MapsEveryKnownKind(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.InvalidRequest:       http.StatusBadRequest,
		errs.ResponseTooLarge:     http.StatusBadRequest,
		errs.SsrfBlocked:          http.StatusForbidden,
		errs.OriginUnreachable:    http.StatusBadGateway,
		errs.TlsFailure:           http.StatusBadGateway,
		errs.Timeout:              http.StatusGatewayTimeout,
		errs.MpcProtocolFailure:   http.StatusInternalServerError,
		errs.ProofGenerationFailed: http.StatusInternalServerError,
		errs.Internal:             http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), "kind %s", kind)
	}
}

func TestWriteError_EncodesKindAndMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errs.New(errs.SsrfBlocked, "blocked hostname"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"SsrfBlocked"`)
	assert.Contains(t, rec.Body.String(), "blocked hostname")
}

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"ok": "true"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"true"}`, rec.Body.String())
}
