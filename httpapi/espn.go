package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/espn"
	"github.com/loca555/tls-oracle-near/mpctls"
	"github.com/loca555/tls-oracle-near/witness"
)

type espnProveRequest struct {
	EspnEventID string `json:"espnEventId"`
	Sport       string `json:"sport"`
	League      string `json:"league"`
}

// handleProveEspn runs the same MPC-TLS session and proof pipeline as
// /prove, but against a URL it builds from sport/league/event id, and
// commits espn.Extract's compact reduction of the response instead of the
// raw body.
func (s *Server) handleProveEspn(w http.ResponseWriter, r *http.Request) {
	var req espnProveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.InvalidRequest, "decoding request body", err))
		return
	}
	if req.EspnEventID == "" || req.Sport == "" || req.League == "" {
		writeError(w, errs.New(errs.InvalidRequest, "espnEventId, sport, and league are required"))
		return
	}

	release, ok := s.acquireSession()
	if !ok {
		writeError(w, errs.New(errs.Internal, "too many concurrent sessions"))
		return
	}
	defer release()

	ctx, cancel := sessionDeadline(r.Context())
	defer cancel()

	url := espn.URL(req.Sport, req.League, req.EspnEventID)

	target, err := s.Guard.Validate(ctx, url, http.MethodGet, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(target.ResolvedIPs) == 0 {
		writeError(w, errs.New(errs.SsrfBlocked, "no resolved address passed validation"))
		return
	}
	dialAddr := net.JoinHostPort(target.ResolvedIPs[0].String(), strconv.Itoa(target.Port))

	sessionReq := mpctls.SessionRequest{
		SessionID:    uuid.NewString(),
		Method:       http.MethodGet,
		Path:         target.URL.RequestURI(),
		ServerName:   target.ServerName,
		DialAddr:     dialAddr,
		MaxSentBytes: s.Limits.MaxSentBytes,
		MaxRecvBytes: s.Limits.MaxRecvBytes,
	}

	transcript, err := s.Driver.Run(ctx, sessionReq)
	if err != nil {
		writeError(w, err)
		return
	}

	compact, err := espn.Extract(transcript.ResponseBody, req.EspnEventID)
	if err != nil {
		writeError(w, err)
		return
	}
	compactBody, err := json.Marshal(compact)
	if err != nil {
		writeError(w, errs.Wrap(errs.Internal, "marshaling espn compact data", err))
		return
	}

	w_, err := witness.Build(transcript.ServerName, transcript.TimestampUnix, compactBody, s.Notary.PublicKeyUncompressed())
	if err != nil {
		writeError(w, err)
		return
	}

	proof, err := s.ZK.Prove(w_)
	if err != nil {
		writeError(w, err)
		return
	}

	sig := append(append([]byte{}, transcript.NotarySignature.R[:]...), transcript.NotarySignature.S[:]...)

	writeJSON(w, http.StatusOK, proveResponse{
		SourceURL:       url,
		ServerName:      transcript.ServerName,
		Timestamp:       transcript.TimestampUnix,
		ResponseData:    base64.StdEncoding.EncodeToString(compactBody),
		ProofA:          proof.A,
		ProofB:          proof.B,
		ProofC:          proof.C,
		PublicSignals:   proof.PublicSignals,
		NotarySignature: base64.StdEncoding.EncodeToString(sig),
		NotarySigV:      transcript.NotarySignature.Recovery,
	})
}
