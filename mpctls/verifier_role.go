package mpctls

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/notary"
)

// runVerifierRole never touches the origin socket. It only ever sees what
// the prover role sends over ch: first a commitment to the ciphertext
// digests, then the reveal. It recomputes the digests from the revealed
// ciphertext and checks them against the commitment before trusting the
// plaintext enough to sign anything. This realizes commit-then-reveal
// instead of a literal secret-shared AEAD: the verifier never decrypts
// on its own but also never signs anything it hasn't cross-checked.
func runVerifierRole(sessionID string, ch *roleChannel, id *notary.Identity, maxRecvBytes uint32, tracker *stateTracker, log *logging.Logger) error {
	commitMsg, err := ch.Recv()
	if err != nil {
		return err
	}
	if commitMsg.Type != MsgCiphertextCommit {
		return abort(ch, sessionID, "expected ciphertext commitment")
	}
	var commit ciphertextCommit
	if err := commitMsg.UnmarshalData(&commit); err != nil {
		return abort(ch, sessionID, "malformed ciphertext commitment")
	}

	revealMsg, err := ch.Recv()
	if err != nil {
		return err
	}
	if revealMsg.Type != MsgRevealTranscript {
		return abort(ch, sessionID, "expected transcript reveal")
	}
	var reveal transcriptReveal
	if err := revealMsg.UnmarshalData(&reveal); err != nil {
		return abort(ch, sessionID, "malformed transcript reveal")
	}

	if uint32(len(reveal.Body)) > maxRecvBytes {
		tracker.set(SizeExceeded)
		return abort(ch, sessionID, "revealed body exceeds configured ceiling")
	}

	sentDigest := sha256.Sum256(reveal.SentCipher)
	recvDigest := sha256.Sum256(reveal.RecvCipher)
	if !bytes.Equal(sentDigest[:], commit.SentDigest[:]) || !bytes.Equal(recvDigest[:], commit.RecvDigest[:]) {
		log.Security("mpctls verifier: ciphertext commitment mismatch", zap.String("session_id", sessionID))
		return abort(ch, sessionID, "ciphertext commitment does not match revealed transcript")
	}

	digest := notary.Digest(reveal.ServerName, reveal.TimestampUnix, reveal.Body)
	sig, err := id.Sign(digest)
	if err != nil {
		return abort(ch, sessionID, "notary signing failed")
	}

	return sendMsg(ch, sessionID, MsgVerifierAccept, verifierAccept{
		R:        sig.R,
		S:        sig.S,
		Recovery: sig.Recovery,
	})
}

func abort(ch *roleChannel, sessionID, reason string) error {
	_ = sendMsg(ch, sessionID, MsgAbort, abortReason{Reason: reason})
	return errs.New(errs.MpcProtocolFailure, fmt.Sprintf("verifier role aborted: %s", reason))
}
