// Package witness builds the fixed-arity field-element witness from a
// completed MPC-TLS transcript, and computes the Poseidon commitments that
// become the circuit's public signals.
package witness

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/loca555/tls-oracle-near/errs"
)

const (
	BlockSize           = 31
	ResponseBlocks      = 17
	ServerNameBlocks    = 8
	MaxResponseBytes    = ResponseBlocks * BlockSize   // 527
	MaxServerNameBytes  = ServerNameBlocks * BlockSize // 248
)

// Witness is the fixed-shape circuit input described in the data model:
// 17 response blocks, 8 server-name blocks, and the notary's truncated
// public-key coordinates, plus the four public signals.
type Witness struct {
	ResponseData  [ResponseBlocks]fr.Element
	ServerName    [ServerNameBlocks]fr.Element
	NotaryPubkeyX fr.Element
	NotaryPubkeyY fr.Element

	DataCommitment   fr.Element
	ServerNameHash   fr.Element
	Timestamp        fr.Element
	NotaryPubkeyHash fr.Element
}

// Build packs a transcript's plaintext fields into a Witness and computes
// all four public signals. It is the single source of truth for the
// packing/commitment rules; the in-circuit gadget (zkproof/circuit) must
// reproduce the same sequence of operations over the same inputs.
func Build(serverName string, timestampUnix int64, body []byte, notaryPubkeyUncompressed []byte) (*Witness, error) {
	if len(body) > MaxResponseBytes {
		return nil, errs.New(errs.ResponseTooLarge, "response body exceeds 527 bytes")
	}
	if len(serverName) > MaxServerNameBytes {
		return nil, errs.New(errs.InvalidRequest, "server name exceeds 248 bytes")
	}
	if len(notaryPubkeyUncompressed) != 65 || notaryPubkeyUncompressed[0] != 0x04 {
		return nil, errs.New(errs.Internal, "notary public key is not an uncompressed SEC1 point")
	}

	respBlocks := packBlocks([]byte(body), ResponseBlocks)
	snBlocks := packBlocks([]byte(serverName), ServerNameBlocks)

	x, y := truncatedPubkeyCoords(notaryPubkeyUncompressed)

	w := &Witness{
		NotaryPubkeyX: x,
		NotaryPubkeyY: y,
	}
	copy(w.ResponseData[:], respBlocks)
	copy(w.ServerName[:], snBlocks)

	left := poseidonHash(w.ResponseData[0:9]...)
	right := poseidonHash(w.ResponseData[9:17]...)
	w.DataCommitment = poseidonHash(left, right)

	w.ServerNameHash = poseidonHash(w.ServerName[:]...)
	w.NotaryPubkeyHash = poseidonHash(w.NotaryPubkeyX, w.NotaryPubkeyY)

	w.Timestamp.SetUint64(uint64(timestampUnix))

	return w, nil
}

// NotaryPubkeyHash computes H_notary = Poseidon(X_fr, Y_fr) for a notary's
// uncompressed public key, independent of any particular session's
// transcript, used by the notary-info surface so a client can learn the
// exact public signal a proof's notaryPubkeyHash should equal.
func NotaryPubkeyHash(notaryPubkeyUncompressed []byte) (fr.Element, error) {
	if len(notaryPubkeyUncompressed) != 65 || notaryPubkeyUncompressed[0] != 0x04 {
		return fr.Element{}, errs.New(errs.Internal, "notary public key is not an uncompressed SEC1 point")
	}
	x, y := truncatedPubkeyCoords(notaryPubkeyUncompressed)
	return poseidonHash(x, y), nil
}

// packBlocks splits data into n field elements of BlockSize bytes each,
// little-endian within each block, zero-padded past the input's end.
func packBlocks(data []byte, n int) []fr.Element {
	out := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		start := i * BlockSize
		if start >= len(data) {
			continue // leaves out[i] at zero
		}
		end := start + BlockSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		// Reverse little-endian chunk bytes into a big-endian buffer for
		// fr.Element.SetBytes, which expects big-endian input.
		var be [BlockSize]byte
		for k, b := range chunk {
			be[BlockSize-1-k] = b
		}
		out[i].SetBytes(be[:])
	}
	return out
}

// truncatedPubkeyCoords splits an uncompressed SEC1 point into its X and Y
// coordinates, reduces each mod p_BN254, then masks to 253 bits; the
// circuit takes these masked values as its private pubkey inputs and does
// no masking of its own. The three high bits of a secp256k1 coordinate are
// discarded because the commitment only needs to be binding, not
// signature-verifying (ECDSA is not checked in-circuit today).
func truncatedPubkeyCoords(uncompressed []byte) (fr.Element, fr.Element) {
	xBytes := uncompressed[1:33]
	yBytes := uncompressed[33:65]

	// SEC1 coordinate bytes are big-endian here, matching fr.Element's
	// SetBytes convention, not the little-endian convention packBlocks
	// uses for response/server-name bytes. Both sides of every commitment
	// consume these as the already-reduced (x, y) field elements and
	// never re-derive them from raw SEC1 bytes, so off-circuit and
	// in-circuit agree regardless of this choice.
	var x, y fr.Element
	x.SetBytes(xBytes)
	y.SetBytes(yBytes)

	mask := new(big.Int).Lsh(big.NewInt(1), 253)
	mask.Sub(mask, big.NewInt(1))

	var xBig, yBig big.Int
	x.BigInt(&xBig)
	y.BigInt(&yBig)
	xBig.And(&xBig, mask)
	yBig.And(&yBig, mask)

	x.SetBigInt(&xBig)
	y.SetBigInt(&yBig)
	return x, y
}
