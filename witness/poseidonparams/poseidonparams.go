// Package poseidonparams generates the round constants and MDS matrix
// shared by the off-circuit witness hasher (witness package) and the
// in-circuit gadget (zkproof/circuit package), so the two agree on exactly
// the same Poseidon instance by construction.
//
// The structure (full rounds, an s-box of degree 5, partial rounds, an MDS
// mix layer, parameters indexed by state width) follows the standard
// Poseidon construction as laid out in gnark's own poseidon gadget
// (std/hash/poseidon). This package does not reuse gnark's actual constant
// tables (not vendored in this build), and instead derives its own
// round constants (via a domain-separated SHA-256 counter) and its own MDS
// matrix (via the standard Cauchy construction, which is MDS by
// construction for any field). Byte-for-byte compatibility with gnark's
// upstream Poseidon parameters is not required anywhere in this system,
// only that the circuit and the witness builder agree with each other,
// which a single shared generator guarantees.
package poseidonparams

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"sync"
)

// MinWidth/MaxWidth bound the supported state widths: capacity element (1)
// plus up to 16 rate elements, since Poseidon here is capped at 16 inputs
// per the two-level tree requirement.
const (
	MinWidth     = 2
	MaxWidth     = 17
	FullRounds   = 8 // split 4 before / 4 after the partial rounds
	partialBase  = 56
)

// BN254ScalarField is the BN254 scalar field modulus (the Fr of
// ecc.BN254.ScalarField()), duplicated here as a constant so this package
// has no import-time dependency on gnark-crypto's curve registry.
var BN254ScalarField, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// PartialRounds returns the number of partial rounds used for a given
// state width.
func PartialRounds(width int) int { return partialBase + width }

// Params holds one Poseidon instance's constants for a fixed state width.
type Params struct {
	Width int
	RF    int
	RP    int
	RC    []*big.Int   // length (RF+RP)*Width, consumed Width at a time, round by round
	MDS   [][]*big.Int // Width x Width
}

var (
	cacheMu sync.Mutex
	cache   = map[int]*Params{}
)

// For returns (generating and caching on first use) the Params for the
// given state width, i.e. arity+1 for an arity-input Poseidon call.
func For(width int) *Params {
	if width < MinWidth || width > MaxWidth {
		panic("poseidonparams: width out of range")
	}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if p, ok := cache[width]; ok {
		return p
	}
	p := generate(width)
	cache[width] = p
	return p
}

func generate(width int) *Params {
	rp := PartialRounds(width)
	rc := make([]*big.Int, (FullRounds+rp)*width)
	for i := range rc {
		rc[i] = deriveConstant(width, i)
	}

	mds := make([][]*big.Int, width)
	for i := 0; i < width; i++ {
		mds[i] = make([]*big.Int, width)
		for j := 0; j < width; j++ {
			mds[i][j] = cauchyEntry(width, i, j)
		}
	}

	return &Params{Width: width, RF: FullRounds, RP: rp, RC: rc, MDS: mds}
}

// deriveConstant derives the i-th round constant for a given width from a
// domain-separated SHA-256 counter, reduced into the scalar field.
func deriveConstant(width, index int) *big.Int {
	h := sha256.New()
	h.Write([]byte("tls-oracle-near/poseidon/rc/v1"))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(width))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	h.Write(buf[:])
	sum := h.Sum(nil)
	v := new(big.Int).SetBytes(sum)
	return v.Mod(v, BN254ScalarField)
}

// cauchyEntry computes entry (i,j) of a width x width Cauchy matrix over
// the scalar field: M[i][j] = 1 / (x_i - y_j), x_i = i, y_j = width+j. Any
// Cauchy matrix with disjoint {x_i} and {y_j} is MDS over a field.
func cauchyEntry(width, i, j int) *big.Int {
	xi := big.NewInt(int64(i))
	yj := big.NewInt(int64(width + j))
	diff := new(big.Int).Sub(xi, yj)
	diff.Mod(diff, BN254ScalarField)
	inv := new(big.Int).ModInverse(diff, BN254ScalarField)
	if inv == nil {
		panic("poseidonparams: non-invertible Cauchy denominator")
	}
	return inv
}
