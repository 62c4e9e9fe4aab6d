// Package httpapi is the inbound HTTP boundary: it turns validated
// requests into MPC-TLS sessions, witnesses, and Groth16 proofs, and
// renders the result in the exact shape a gateway or on-chain submitter
// expects. Routing uses a plain *chi.Mux with middleware and CORS wired
// in at construction time rather than a generated router.
package httpapi

import (
	"context"
	"time"

	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/mpctls"
	"github.com/loca555/tls-oracle-near/notary"
	"github.com/loca555/tls-oracle-near/urlguard"
	"github.com/loca555/tls-oracle-near/zkproof"
)

// Limits bounds a single /prove request's resource usage, sourced from
// config.Config at startup.
type Limits struct {
	MaxSentBytes          uint32
	MaxRecvBytes          uint32
	MaxConcurrentSessions int
}

// Server holds every read-only, process-wide collaborator the handlers
// need: the SSRF guard, the MPC-TLS driver, the loaded circuit artifacts,
// the notary identity, and a logger. Handlers never hold a lock on these;
// the only mutable shared state is the concurrency-ceiling semaphore.
type Server struct {
	Guard  *urlguard.Guard
	Driver *mpctls.Driver
	ZK     *zkproof.Artifacts
	Notary *notary.Identity
	Log    *logging.Logger
	Limits Limits

	sessions chan struct{} // buffered to MaxConcurrentSessions; a send is a ticket
}

// New builds a Server with the given collaborators and limits.
func New(guard *urlguard.Guard, driver *mpctls.Driver, zk *zkproof.Artifacts, id *notary.Identity, log *logging.Logger, limits Limits) *Server {
	ceiling := limits.MaxConcurrentSessions
	if ceiling <= 0 {
		ceiling = 64
	}
	return &Server{
		Guard:    guard,
		Driver:   driver,
		ZK:       zk,
		Notary:   id,
		Log:      log,
		Limits:   limits,
		sessions: make(chan struct{}, ceiling),
	}
}

// acquireSession implements the backpressure rule: new sessions are
// refused immediately, with a typed error, once the concurrency ceiling
// is reached. There is no queued waiting for MPC-TLS requests.
func (s *Server) acquireSession() (release func(), ok bool) {
	select {
	case s.sessions <- struct{}{}:
		return func() { <-s.sessions }, true
	default:
		return nil, false
	}
}

// sessionDeadline scopes a single /prove request's context to the global
// session timeout, independent of any client-supplied deadline.
func sessionDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, mpctls.DefaultSessionTimeout+5*time.Second)
}
