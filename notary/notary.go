// Package notary implements the notary signer: a long-lived secp256k1
// identity that signs the transcript digest once the MPC-TLS verifier role
// has committed to a session's outcome.
package notary

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/loca555/tls-oracle-near/errs"
)

// Identity is the notary's long-lived secp256k1 key pair. The private
// scalar is read once at process startup and never rewritten; signing a
// digest takes no lock, matching the read-only sharing rule in the
// concurrency model.
type Identity struct {
	private *ecdsa.PrivateKey
	public  *ecdsa.PublicKey
}

// Load reads a 32-byte raw secp256k1 scalar from path. If the file does not
// exist, a fresh key is generated and persisted atomically (write-temp,
// then rename) with mode 0600, so the notary's identity survives restarts.
func Load(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return fromRawKey(raw)
	}
	if !os.IsNotExist(err) {
		return nil, errs.Wrap(errs.Internal, "reading notary key file", err)
	}

	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "generating notary key", err)
	}
	if err := persist(path, crypto.FromECDSA(priv)); err != nil {
		return nil, err
	}
	return &Identity{private: priv, public: &priv.PublicKey}, nil
}

func fromRawKey(raw []byte) (*Identity, error) {
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "parsing notary key bytes", err)
	}
	return &Identity{private: priv, public: &priv.PublicKey}, nil
}

func persist(path string, raw []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".notary-key-*")
	if err != nil {
		return errs.Wrap(errs.Internal, "creating temp notary key file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errs.Wrap(errs.Internal, "writing notary key", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errs.Wrap(errs.Internal, "chmod notary key", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.Internal, "closing notary key file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.Internal, "persisting notary key", err)
	}
	return nil
}

// PublicKeyUncompressed returns the notary's public key as the 65-byte SEC1
// form: 0x04 ‖ X ‖ Y.
func (id *Identity) PublicKeyUncompressed() []byte {
	return crypto.FromECDSAPub(id.public)
}

// Address returns the Ethereum-style address derived from the public key,
// exposed through GET /notary-info so a verifier contract's allow-list can
// reference a short identifier instead of the full point.
func (id *Identity) Address() common.Address {
	return crypto.PubkeyToAddress(*id.public)
}

// Digest computes D = SHA256(serverName || timestamp_le_u64 || body), the
// exact preimage the notary signs.
func Digest(serverName string, timestampUnix int64, body []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(serverName))
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(timestampUnix))
	h.Write(tsBuf[:])
	h.Write(body)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Signature is a compact ECDSA signature: 32-byte r, 32-byte s (low-S
// normalized by the underlying secp256k1 library), and a 1-byte recovery
// id, matching the on-chain verifier's expected encoding.
type Signature struct {
	R        [32]byte
	S        [32]byte
	Recovery uint8
}

// Sign signs digest with the notary's private key directly, skipping the
// EIP-191 personal-message prefix an Ethereum-wallet-style signer would
// add. The transcript digest is a protocol value, not a user-facing
// message.
func (id *Identity) Sign(digest [32]byte) (Signature, error) {
	sig, err := crypto.Sign(digest[:], id.private)
	if err != nil {
		return Signature{}, errs.Wrap(errs.Internal, "notary signing failed", err)
	}
	if len(sig) != 65 {
		return Signature{}, errs.New(errs.Internal, fmt.Sprintf("unexpected signature length %d", len(sig)))
	}
	var out Signature
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.Recovery = sig[64]
	return out, nil
}

// Verify recovers the signer's address from sig over digest and checks it
// against addr, for tests and for any party re-checking the notary's
// signature off-chain.
func Verify(digest [32]byte, sig Signature, addr common.Address) error {
	raw := make([]byte, 65)
	copy(raw[0:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.Recovery

	recovered, err := crypto.SigToPub(digest[:], raw)
	if err != nil {
		return errs.Wrap(errs.Internal, "recovering notary public key", err)
	}
	if crypto.PubkeyToAddress(*recovered) != addr {
		return errs.New(errs.MpcProtocolFailure, "notary signature does not match expected address")
	}
	return nil
}
