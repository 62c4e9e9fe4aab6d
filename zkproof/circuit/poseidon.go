// Package circuit defines the Groth16 arithmetic circuit that binds a
// witness's packed plaintext to the four public signals, following the
// JWSCircuit/Define pattern (a plain struct with gnark tags plus a Define
// method) but over the response-commitment shape from the data model
// instead of a JWS/X.509 shape.
package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/loca555/tls-oracle-near/witness/poseidonparams"
)

// poseidon evaluates the in-circuit Poseidon permutation over 1 to 16
// inputs, using the same round-constant/MDS generator as the off-circuit
// hasher in the witness package so both sides of every commitment agree.
func poseidon(api frontend.API, inputs ...frontend.Variable) frontend.Variable {
	arity := len(inputs)
	if arity < 1 || arity > 16 {
		panic("circuit: poseidon arity must be between 1 and 16")
	}
	width := arity + 1
	params := poseidonparams.For(width)

	state := make([]frontend.Variable, width)
	state[0] = frontend.Variable(0)
	copy(state[1:], inputs)

	rcIdx := 0
	half := params.RF / 2

	for r := 0; r < half; r++ {
		addRoundConstants(api, state, params.RC, &rcIdx)
		fullSbox(api, state)
		state = mix(api, state, params.MDS)
	}
	for r := 0; r < params.RP; r++ {
		addRoundConstants(api, state, params.RC, &rcIdx)
		state[0] = sbox(api, state[0])
		state = mix(api, state, params.MDS)
	}
	for r := 0; r < half; r++ {
		addRoundConstants(api, state, params.RC, &rcIdx)
		fullSbox(api, state)
		state = mix(api, state, params.MDS)
	}

	return state[1]
}

func addRoundConstants(api frontend.API, state []frontend.Variable, rc []*big.Int, idx *int) {
	for j := range state {
		state[j] = api.Add(state[j], rc[*idx])
		*idx++
	}
}

func sbox(api frontend.API, x frontend.Variable) frontend.Variable {
	x2 := api.Mul(x, x)
	x4 := api.Mul(x2, x2)
	return api.Mul(x4, x)
}

func fullSbox(api frontend.API, state []frontend.Variable) {
	for i := range state {
		state[i] = sbox(api, state[i])
	}
}

func mix(api frontend.API, state []frontend.Variable, mds [][]*big.Int) []frontend.Variable {
	width := len(state)
	out := make([]frontend.Variable, width)
	for i := 0; i < width; i++ {
		acc := frontend.Variable(0)
		for j := 0; j < width; j++ {
			acc = api.Add(acc, api.Mul(mds[i][j], state[j]))
		}
		out[i] = acc
	}
	return out
}
