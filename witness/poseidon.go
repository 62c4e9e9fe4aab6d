package witness

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/loca555/tls-oracle-near/witness/poseidonparams"
)

// poseidonHash evaluates the off-circuit Poseidon permutation over 1 to 16
// field elements, mirroring the full-rounds/s-box/mix/partial-rounds
// structure of gnark's in-circuit poseidon gadget, parameterized by
// poseidonparams so this matches the in-circuit evaluation exactly.
func poseidonHash(inputs ...fr.Element) fr.Element {
	arity := len(inputs)
	if arity < 1 || arity > 16 {
		panic("witness: poseidon arity must be between 1 and 16")
	}
	width := arity + 1
	params := poseidonparams.For(width)

	state := make([]fr.Element, width)
	// state[0] is the capacity element, left at zero.
	copy(state[1:], inputs)

	rcIdx := 0
	half := params.RF / 2

	for r := 0; r < half; r++ {
		addRoundConstants(state, params.RC, &rcIdx)
		fullSbox(state)
		state = mix(state, params.MDS)
	}
	for r := 0; r < params.RP; r++ {
		addRoundConstants(state, params.RC, &rcIdx)
		state[0] = sbox(state[0])
		state = mix(state, params.MDS)
	}
	for r := 0; r < half; r++ {
		addRoundConstants(state, params.RC, &rcIdx)
		fullSbox(state)
		state = mix(state, params.MDS)
	}

	return state[1]
}

func addRoundConstants(state []fr.Element, rc []*big.Int, idx *int) {
	for j := range state {
		var c fr.Element
		c.SetBigInt(rc[*idx])
		*idx++
		state[j].Add(&state[j], &c)
	}
}

func sbox(x fr.Element) fr.Element {
	var x2, x4, x5 fr.Element
	x2.Mul(&x, &x)
	x4.Mul(&x2, &x2)
	x5.Mul(&x4, &x)
	return x5
}

func fullSbox(state []fr.Element) {
	for i := range state {
		state[i] = sbox(state[i])
	}
}

func mix(state []fr.Element, mds [][]*big.Int) []fr.Element {
	width := len(state)
	out := make([]fr.Element, width)
	for i := 0; i < width; i++ {
		var acc fr.Element
		for j := 0; j < width; j++ {
			var coeff, term fr.Element
			coeff.SetBigInt(mds[i][j])
			term.Mul(&coeff, &state[j])
			acc.Add(&acc, &term)
		}
		out[i] = acc
	}
	return out
}
