package circuit

import (
	"github.com/consensys/gnark/frontend"
)

const (
	ResponseBlocks   = 17
	ServerNameBlocks = 8
)

// OracleCircuit is the arithmetic circuit for the prover: it re-derives
// the four public signals from the private packed plaintext and checks
// them against the publicly declared values, the way JWSCircuit checks a
// JWS signature against its public payload/pubkey.
type OracleCircuit struct {
	// Private inputs: the packed plaintext and the notary's truncated
	// public-key coordinates.
	ResponseData  [ResponseBlocks]frontend.Variable `gnark:",secret"`
	ServerName    [ServerNameBlocks]frontend.Variable `gnark:",secret"`
	NotaryPubkeyX frontend.Variable                  `gnark:",secret"`
	NotaryPubkeyY frontend.Variable                  `gnark:",secret"`

	// Public signals, fixed order per the data model:
	// [dataCommitment, serverNameHash, timestamp, notaryPubkeyHash].
	DataCommitment   frontend.Variable `gnark:",public"`
	ServerNameHash   frontend.Variable `gnark:",public"`
	Timestamp        frontend.Variable `gnark:",public"`
	NotaryPubkeyHash frontend.Variable `gnark:",public"`
}

// Define re-derives every commitment from the private witness and
// constrains it equal to the corresponding public signal.
func (c *OracleCircuit) Define(api frontend.API) error {
	left := poseidon(api, c.ResponseData[0:9]...)
	right := poseidon(api, c.ResponseData[9:17]...)
	dataCommitment := poseidon(api, left, right)
	api.AssertIsEqual(dataCommitment, c.DataCommitment)

	serverNameHash := poseidon(api, c.ServerName[:]...)
	api.AssertIsEqual(serverNameHash, c.ServerNameHash)

	notaryPubkeyHash := poseidon(api, c.NotaryPubkeyX, c.NotaryPubkeyY)
	api.AssertIsEqual(notaryPubkeyHash, c.NotaryPubkeyHash)

	// Timestamp has no derivation to check; it is carried as a public
	// signal only, and freshness policy lives on-chain. Bind it with a
	// no-op so it is not an entirely unconstrained public wire.
	api.AssertIsEqual(c.Timestamp, c.Timestamp)

	return nil
}
