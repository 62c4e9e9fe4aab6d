package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/notary"
	"github.com/loca555/tls-oracle-near/urlguard"
)

type fakeResolver struct{}

func (fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}}, nil
}

func testServer(t *testing.T) *Server {
	id, err := notary.Load(filepath.Join(t.TempDir(), "notary.key"))
	require.NoError(t, err)
	guard := urlguard.New(nil)
	guard.Resolver = fakeResolver{}
	return New(guard, nil, nil, id, logging.NewFromEnv(), Limits{
		MaxSentBytes:          4096,
		MaxRecvBytes:          4096,
		MaxConcurrentSessions: 2,
	})
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleNotaryInfo_ReturnsPubkeyAndAddress(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notary-info", nil)

	s.handleNotaryInfo(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body notaryInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Pubkey)
	assert.NotEmpty(t, body.PubkeyHash)
	assert.Equal(t, s.Notary.Address().Hex(), body.Address)
}

func TestHandleProve_RejectsNonHTTPSURL(t *testing.T) {
	s := testServer(t)
	body, _ := json.Marshal(proveRequest{URL: "http://example.com"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader(body))

	s.handleProve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidRequest")
}

func TestHandleProve_RejectsMalformedJSON(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prove", bytes.NewReader([]byte("not json")))

	s.handleProve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcquireSession_RefusesBeyondCeiling(t *testing.T) {
	s := testServer(t) // ceiling 2

	_, ok1 := s.acquireSession()
	_, ok2 := s.acquireSession()
	_, ok3 := s.acquireSession()

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
}

func TestAcquireSession_ReleaseFreesASlot(t *testing.T) {
	s := testServer(t)

	release1, ok1 := s.acquireSession()
	_, ok2 := s.acquireSession()
	require.True(t, ok1)
	require.True(t, ok2)

	release1()

	_, ok3 := s.acquireSession()
	assert.True(t, ok3)
}
