package zkproof

import (
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/stretchr/testify/require"

	"github.com/loca555/tls-oracle-near/witness"
)

func fakeNotaryPubkey() []byte {
	pub := make([]byte, 65)
	pub[0] = 0x04
	for i := 1; i < 65; i++ {
		pub[i] = byte(i)
	}
	return pub
}

func TestLoadOrSetup_ProveProducesWellShapedProof(t *testing.T) {
	dir := t.TempDir()

	artifacts, err := LoadOrSetup(dir)
	require.NoError(t, err)
	require.NotNil(t, artifacts.CS)
	require.NotNil(t, artifacts.PK)
	require.NotNil(t, artifacts.VK)

	w, err := witness.Build("example.com", 1700000000, []byte(`{"ok":true}`), fakeNotaryPubkey())
	require.NoError(t, err)

	proof, err := artifacts.Prove(w)
	require.NoError(t, err)
	require.Len(t, proof.A, 2)
	require.Len(t, proof.B, 2)
	require.Len(t, proof.C, 2)
	require.Len(t, proof.PublicSignals, 4)
}

func TestLoadOrSetup_PersistsAndReloadsUsableArtifacts(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOrSetup(dir)
	require.NoError(t, err)

	for _, name := range []string{csFile, pkFile, vkFile} {
		require.True(t, exists(filepath.Join(dir, name)), "missing artifact %s", name)
	}

	reloaded, err := LoadOrSetup(dir)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CS)
	require.NotNil(t, reloaded.PK)
	require.NotNil(t, reloaded.VK)

	w, err := witness.Build("example.com", 1700000000, []byte("body"), fakeNotaryPubkey())
	require.NoError(t, err)

	assignment := toAssignment(w)
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	require.NoError(t, err)

	proof, err := groth16.Prove(reloaded.CS, reloaded.PK, fullWitness)
	require.NoError(t, err)

	require.NoError(t, reloaded.Verify(w, proof))
}

func TestDecomposeProof_RejectsNonBN254Proof(t *testing.T) {
	_, _, _, err := decomposeProof(nil)
	require.Error(t, err)
}
