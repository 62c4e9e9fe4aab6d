package mpctls

import (
	"context"
	"net"
	"time"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/notary"
)

// Driver runs MPC-TLS sessions against validated origins, signing the
// resulting transcript with the given notary identity.
type Driver struct {
	notary  *notary.Identity
	log     *logging.Logger
	hub     *Hub
	timeout time.Duration
}

// New builds a Driver. timeout <= 0 falls back to DefaultSessionTimeout.
func New(id *notary.Identity, log *logging.Logger, timeout time.Duration) *Driver {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Driver{notary: id, log: log, hub: newHub(), timeout: timeout}
}

// Subscribe registers a listener for sessionID's state transitions,
// backing the streaming progress endpoint. The caller must invoke the
// returned unsubscribe function once it stops reading.
func (d *Driver) Subscribe(sessionID string) (<-chan SessionState, func()) {
	return d.hub.Subscribe(sessionID)
}

// Run drives one complete MPC-TLS session for req: it spins up a prover
// role and a verifier role connected by an in-process net.Pipe, lets the
// prover talk to the real origin, and returns the signed transcript once
// the verifier role has accepted the revealed plaintext.
func (d *Driver) Run(ctx context.Context, req SessionRequest) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	tracker := newStateTracker()
	tracker.hub = d.hub
	tracker.sessionID = req.SessionID

	proverConn, verifierConn := net.Pipe()
	defer proverConn.Close()
	defer verifierConn.Close()
	proverCh := &roleChannel{conn: proverConn}
	verifierCh := &roleChannel{conn: verifierConn}

	type proverResult struct {
		transcript *Transcript
		err        error
	}
	proverDone := make(chan proverResult, 1)
	verifierDone := make(chan error, 1)

	go func() {
		t, err := runProverRole(ctx, req, proverCh, tracker, d.log)
		proverDone <- proverResult{transcript: t, err: err}
	}()

	go func() {
		verifierDone <- runVerifierRole(req.SessionID, verifierCh, d.notary, req.MaxRecvBytes, tracker, d.log)
	}()

	var pr proverResult
	select {
	case pr = <-proverDone:
	case <-ctx.Done():
		proverConn.Close()
		verifierConn.Close()
		tracker.set(Timeout)
		<-proverDone
		<-verifierDone
		return nil, errs.New(errs.Timeout, "mpc-tls session exceeded its deadline")
	}

	// If the prover role exited before completing its side of the
	// commit/reveal handshake (an early dial or handshake failure), the
	// verifier role is still blocked reading the first message. Closing
	// the pipe unblocks it with an error rather than leaking the goroutine.
	proverConn.Close()
	verifierConn.Close()
	<-verifierDone

	if pr.err != nil {
		// A dial or handshake cut short by the session deadline (or by the
		// caller cancelling) is reported as Timeout, not as the I/O error.
		if ctx.Err() != nil {
			tracker.set(Timeout)
			return nil, errs.Wrap(errs.Timeout, "mpc-tls session exceeded its deadline", pr.err)
		}
		return nil, pr.err
	}
	return pr.transcript, nil
}
