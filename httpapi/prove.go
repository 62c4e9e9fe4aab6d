package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/mpctls"
	"github.com/loca555/tls-oracle-near/witness"
)

// proveRequest is the POST /prove body.
type proveRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// proveResponse is the POST /prove response body, field-for-field the inbound
// interface contract's response shape: every large integer a decimal
// string, publicSignals in the fixed
// [dataCommitment, serverNameHash, timestamp, notaryPubkeyHash] order.
type proveResponse struct {
	SourceURL       string     `json:"sourceUrl"`
	ServerName      string     `json:"serverName"`
	Timestamp       int64      `json:"timestamp"`
	ResponseData    string     `json:"responseData"` // base64 of the committed response bytes
	ProofA          []string   `json:"proofA"`
	ProofB          [][]string `json:"proofB"`
	ProofC          []string   `json:"proofC"`
	PublicSignals   []string   `json:"publicSignals"`
	NotarySignature string     `json:"notarySignature"` // base64 r||s
	NotarySigV      uint8      `json:"notarySigV"`
}

func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	var req proveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.InvalidRequest, "decoding request body", err))
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

	target, err := s.Guard.Validate(ctx, req.URL, req.Method, req.Headers)
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
		Method:       target.Method,
		Path:         target.URL.RequestURI(),
		ServerName:   target.ServerName,
		DialAddr:     dialAddr,
		Headers:      target.Headers,
		MaxSentBytes: s.Limits.MaxSentBytes,
		MaxRecvBytes: s.Limits.MaxRecvBytes,
	}

	transcript, err := s.Driver.Run(ctx, sessionReq)
	if err != nil {
		writeError(w, err)
		return
	}

	w_, err := witness.Build(transcript.ServerName, transcript.TimestampUnix, transcript.ResponseBody, s.Notary.PublicKeyUncompressed())
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

	resp := proveResponse{
		SourceURL:       req.URL,
		ServerName:      transcript.ServerName,
		Timestamp:       transcript.TimestampUnix,
		ResponseData:    base64.StdEncoding.EncodeToString(transcript.ResponseBody),
		ProofA:          proof.A,
		ProofB:          proof.B,
		ProofC:          proof.C,
		PublicSignals:   proof.PublicSignals,
		NotarySignature: base64.StdEncoding.EncodeToString(sig),
		NotarySigV:      transcript.NotarySignature.Recovery,
	}

	writeJSON(w, http.StatusOK, resp)
}
