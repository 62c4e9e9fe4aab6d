// Package zkproof is the Groth16 prover glue: it loads (or builds, on
// first run) the compiled constraint system and proving key, assembles a
// circuit assignment from a witness.Witness, and produces a proof plus the
// public-signal vector in the decimal-string form the on-chain verifier's
// alt_bn128 host function expects.
package zkproof

import (
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/witness"
	"github.com/loca555/tls-oracle-near/zkproof/circuit"
)

// Artifacts bundles the compiled constraint system with its proving and
// verifying keys, the three things a trusted setup produces, treated as
// read-only, process-wide assets loaded once at startup.
type Artifacts struct {
	CS constraint.ConstraintSystem
	PK groth16.ProvingKey
	VK groth16.VerifyingKey
}

const (
	csFile = "oracle.r1cs"
	pkFile = "oracle.pk"
	vkFile = "oracle.vk"
)

// LoadOrSetup loads compiled circuit artifacts from dir, or, if absent,
// compiles the circuit and runs a local (non-ceremony) Groth16 setup and
// persists the result. A real deployment's VK is a build artifact from an
// actual trusted-setup ceremony (see the data model's verification-key
// coupling note); generating one locally here only keeps a from-scratch
// checkout runnable without an external ceremony output.
func LoadOrSetup(dir string) (*Artifacts, error) {
	csPath := filepath.Join(dir, csFile)
	pkPath := filepath.Join(dir, pkFile)
	vkPath := filepath.Join(dir, vkFile)

	if exists(csPath) && exists(pkPath) && exists(vkPath) {
		return load(csPath, pkPath, vkPath)
	}
	return setupAndSave(dir, csPath, pkPath, vkPath)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setupAndSave(dir, csPath, pkPath, vkPath string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Internal, "creating zk artifact dir", err)
	}

	var tmpl circuit.OracleCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &tmpl)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "compiling circuit", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "groth16 setup", err)
	}

	if err := writeArtifact(csPath, ccs); err != nil {
		return nil, err
	}
	if err := writeArtifact(pkPath, pk); err != nil {
		return nil, err
	}
	if err := writeArtifact(vkPath, vk); err != nil {
		return nil, err
	}

	return &Artifacts{CS: ccs, PK: pk, VK: vk}, nil
}

func load(csPath, pkPath, vkPath string) (*Artifacts, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if err := readArtifact(csPath, ccs); err != nil {
		return nil, err
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readArtifact(pkPath, pk); err != nil {
		return nil, err
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readArtifact(vkPath, vk); err != nil {
		return nil, err
	}
	return &Artifacts{CS: ccs, PK: pk, VK: vk}, nil
}

// writeArtifact and readArtifact lean on the io.WriterTo/io.ReaderFrom
// methods gnark's constraint systems and keys implement for their binary
// encoding, the same pair common/circuit-io.go uses.
func writeArtifact(path string, v io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Internal, "creating artifact file", err)
	}
	defer f.Close()
	if _, err := v.WriteTo(f); err != nil {
		return errs.Wrap(errs.Internal, "writing artifact", err)
	}
	return nil
}

func readArtifact(path string, v io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(errs.Internal, "opening artifact file", err)
	}
	defer f.Close()
	if _, err := v.ReadFrom(f); err != nil {
		return errs.Wrap(errs.Internal, "reading artifact", err)
	}
	return nil
}

// Proof is the emitted Groth16 proof plus the public-signal vector, each
// coordinate rendered as a decimal string to match the on-chain verifier's
// native alt_bn128 host function.
type Proof struct {
	A []string   // [2]
	B [][]string // [2][2]
	C []string   // [2]

	PublicSignals []string // [dataCommitment, serverNameHash, timestamp, notaryPubkeyHash]
}

// Prove evaluates the circuit on w and returns the proof and public
// signals.
func (a *Artifacts) Prove(w *witness.Witness) (*Proof, error) {
	assignment := toAssignment(w)

	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, errs.Wrap(errs.ProofGenerationFailed, "building witness", err)
	}

	proof, err := groth16.Prove(a.CS, a.PK, fullWitness)
	if err != nil {
		return nil, errs.Wrap(errs.ProofGenerationFailed, "groth16 prove", err)
	}

	pa, pb, pc, err := decomposeProof(proof)
	if err != nil {
		return nil, errs.Wrap(errs.ProofGenerationFailed, "decomposing proof", err)
	}

	return &Proof{
		A: pa,
		B: pb,
		C: pc,
		PublicSignals: []string{
			toDecimal(&w.DataCommitment),
			toDecimal(&w.ServerNameHash),
			toDecimal(&w.Timestamp),
			toDecimal(&w.NotaryPubkeyHash),
		},
	}, nil
}

// decomposeProof pulls the three curve points out of a BN254 Groth16 proof
// and renders each coordinate as a decimal string, the same layout the
// on-chain alt_bn128 pairing check consumes.
func decomposeProof(proof groth16.Proof) (a []string, b [][]string, c []string, err error) {
	p, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return nil, nil, nil, errs.New(errs.Internal, "proof is not a BN254 groth16.Proof")
	}
	a = []string{p.Ar.X.String(), p.Ar.Y.String()}
	c = []string{p.Krs.X.String(), p.Krs.Y.String()}
	b = [][]string{
		{p.Bs.X.A0.String(), p.Bs.X.A1.String()},
		{p.Bs.Y.A0.String(), p.Bs.Y.A1.String()},
	}
	return a, b, c, nil
}

// Verify re-checks a proof off-chain against the verifying key, used by
// tests to confirm the loaded artifacts are internally consistent.
func (a *Artifacts) Verify(w *witness.Witness, proof groth16.Proof) error {
	assignment := toAssignment(w)
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return errs.Wrap(errs.Internal, "building public witness", err)
	}
	publicWitness, err := fullWitness.Public()
	if err != nil {
		return errs.Wrap(errs.Internal, "extracting public witness", err)
	}
	if err := groth16.Verify(proof, a.VK, publicWitness); err != nil {
		return errs.Wrap(errs.MpcProtocolFailure, "groth16 verify", err)
	}
	return nil
}

func toAssignment(w *witness.Witness) *circuit.OracleCircuit {
	var c circuit.OracleCircuit
	for i := range w.ResponseData {
		c.ResponseData[i] = frToBigInt(&w.ResponseData[i])
	}
	for i := range w.ServerName {
		c.ServerName[i] = frToBigInt(&w.ServerName[i])
	}
	c.NotaryPubkeyX = frToBigInt(&w.NotaryPubkeyX)
	c.NotaryPubkeyY = frToBigInt(&w.NotaryPubkeyY)
	c.DataCommitment = frToBigInt(&w.DataCommitment)
	c.ServerNameHash = frToBigInt(&w.ServerNameHash)
	c.Timestamp = frToBigInt(&w.Timestamp)
	c.NotaryPubkeyHash = frToBigInt(&w.NotaryPubkeyHash)
	return &c
}

type bigIntable interface {
	BigInt(*big.Int) *big.Int
}

func toDecimal(e bigIntable) string {
	var b big.Int
	e.BigInt(&b)
	return b.String()
}

func frToBigInt(e bigIntable) *big.Int {
	var b big.Int
	e.BigInt(&b)
	return &b
}
