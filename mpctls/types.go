// Package mpctls is the MPC-TLS session driver: it co-runs a prover role,
// which owns the real TCP socket to the origin, and a verifier role, which
// only ever sees ciphertext commitments and the post-hoc reveal, connected
// over an in-process byte channel. Both roles run as goroutines within one
// process rather than as two separate services talking over a socket.
package mpctls

import (
	"sync"
	"time"
)

// SessionState is the per-session state machine named in the component
// design: Created -> HandshakeInProgress -> ApplicationExchange ->
// VerifierCommitted -> PlaintextOpened -> Finished, with four terminal
// error states.
type SessionState int32

const (
	Created SessionState = iota
	HandshakeInProgress
	ApplicationExchange
	VerifierCommitted
	PlaintextOpened
	Finished

	HandshakeFailed
	OriginProtocolError
	SizeExceeded
	Timeout
)

func (s SessionState) String() string {
	switch s {
	case Created:
		return "Created"
	case HandshakeInProgress:
		return "HandshakeInProgress"
	case ApplicationExchange:
		return "ApplicationExchange"
	case VerifierCommitted:
		return "VerifierCommitted"
	case PlaintextOpened:
		return "PlaintextOpened"
	case Finished:
		return "Finished"
	case HandshakeFailed:
		return "HandshakeFailed"
	case OriginProtocolError:
		return "OriginProtocolError"
	case SizeExceeded:
		return "SizeExceeded"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

func (s SessionState) Terminal() bool {
	return s >= HandshakeFailed || s == Finished
}

// stateTracker guards SessionState transitions with a mutex and fans them
// out to any subscribed channels and, when hub is set, to the Hub that
// httpapi's streaming endpoint reads live progress from.
type stateTracker struct {
	mu        sync.Mutex
	state     SessionState
	subs      []chan SessionState
	hub       *Hub   // optional: also publishes transitions for external subscribers
	sessionID string
}

func newStateTracker() *stateTracker {
	return &stateTracker{state: Created}
}

func (t *stateTracker) set(s SessionState) {
	t.mu.Lock()
	t.state = s
	subs := append([]chan SessionState(nil), t.subs...)
	hub, sessionID := t.hub, t.sessionID
	t.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- s:
		default:
		}
	}
	if hub != nil {
		hub.publish(sessionID, s)
	}
}

func (t *stateTracker) get() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe registers ch to receive every subsequent state transition.
// Sends are non-blocking; a slow subscriber simply misses intermediate
// states rather than stalling the session.
func (t *stateTracker) Subscribe(ch chan SessionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, ch)
}

// SessionRequest is the immutable per-session input, assembled by the
// caller from an already SSRF-validated urlguard.Target.
type SessionRequest struct {
	SessionID  string
	Method     string
	Path       string
	ServerName string
	DialAddr   string // host:port of the validated, resolved connect address
	Headers    map[string]string
	Body       []byte

	MaxSentBytes uint32
	MaxRecvBytes uint32
}

// Transcript is the outcome of one completed MPC-TLS session: the public
// plaintext and metadata the witness builder consumes.
type Transcript struct {
	ServerName     string
	TimestampUnix  int64
	ResponseStatus int
	ResponseBody   []byte

	// NotarySignature is filled in by the notary signer once the verifier
	// role has computed and accepted the session's commitments.
	NotarySignature NotarySignature
}

// NotarySignature carries the compact ECDSA signature over the transcript
// digest, produced by the verifier role's embedded notary co-party.
type NotarySignature struct {
	R        [32]byte
	S        [32]byte
	Recovery uint8
}

// DefaultSessionTimeout bounds one session's entire lifetime when no other
// timeout is configured, per the concurrency model's global-deadline rule.
const DefaultSessionTimeout = 60 * time.Second
