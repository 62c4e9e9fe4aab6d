package httpapi

import (
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/loca555/tls-oracle-near/witness"
)

type notaryInfoResponse struct {
	Pubkey     string `json:"pubkey"`     // base64 uncompressed SEC1
	PubkeyHash string `json:"pubkeyHash"` // decimal Poseidon(X_fr, Y_fr)
	Address    string `json:"address"`
}

// handleNotaryInfo exposes the notary's public key and its circuit
// commitment over a side channel, so a verifier contract or a client
// assembling a submit_attestation call can learn which key a signature
// should recover to without an out-of-band fetch.
func (s *Server) handleNotaryInfo(w http.ResponseWriter, r *http.Request) {
	pub := s.Notary.PublicKeyUncompressed()

	hash, err := witness.NotaryPubkeyHash(pub)
	if err != nil {
		writeError(w, err)
		return
	}
	var hashBig big.Int
	hash.BigInt(&hashBig)

	writeJSON(w, http.StatusOK, notaryInfoResponse{
		Pubkey:     base64.StdEncoding.EncodeToString(pub),
		PubkeyHash: hashBig.String(),
		Address:    s.Notary.Address().Hex(),
	})
}
