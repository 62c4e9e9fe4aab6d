package mpctls

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/loca555/tls-oracle-near/errs"
	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/minitls"
)

// ciphertextCommit is the payload of MsgCiphertextCommit: SHA-256 digests
// of the ciphertext bytes the prover wrote to and read from the origin,
// sent before either side discloses the plaintext.
type ciphertextCommit struct {
	SentDigest [32]byte `json:"sentDigest"`
	RecvDigest [32]byte `json:"recvDigest"`
}

// transcriptReveal is the payload of MsgRevealTranscript: the plaintext
// and metadata the commitment above was standing in for, plus the raw
// ciphertext itself so the verifier role can recompute the digests
// without having touched the socket.
type transcriptReveal struct {
	ServerName    string `json:"serverName"`
	TimestampUnix int64  `json:"timestampUnix"`
	StatusCode    int    `json:"statusCode"`
	Body          []byte `json:"body"`
	SentCipher    []byte `json:"sentCipher"`
	RecvCipher    []byte `json:"recvCipher"`
}

// verifierAccept is the payload of MsgVerifierAccept: the notary's
// signature over the transcript digest, the session's one tangible
// output besides the plaintext itself.
type verifierAccept struct {
	R        [32]byte `json:"r"`
	S        [32]byte `json:"s"`
	Recovery uint8    `json:"recovery"`
}

// abortReason is the payload of MsgAbort.
type abortReason struct {
	Reason string `json:"reason"`
}

// runProverRole owns the real TCP socket to the origin: it dials, runs a
// real TLS 1.3 handshake and a single HTTP/1.1 exchange, then commits to
// and reveals the ciphertext transcript to the verifier role over ch. It
// never holds the notary key and never signs anything, it only ever
// learns whether the verifier accepted or aborted.
func runProverRole(ctx context.Context, req SessionRequest, ch *roleChannel, tracker *stateTracker, log *logging.Logger) (*Transcript, error) {
	tracker.set(HandshakeInProgress)

	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", req.DialAddr)
	if err != nil {
		tracker.set(HandshakeFailed)
		return nil, errs.Wrap(errs.OriginUnreachable, "dialing origin", err)
	}
	conn := newRecordingConn(rawConn)
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	verifier := minitls.NewVerifier(minitls.NewHTTPFetcher(), log)
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: req.ServerName,
		MinVersion: tls.VersionTLS13,
		// crypto/tls's own chain build never tries an AIA fetch on a
		// missing intermediate, so chain verification is delegated
		// entirely to the AIA-aware Verifier below.
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifier.VerifyPeerCertificate(req.ServerName),
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		tracker.set(HandshakeFailed)
		return nil, errs.Wrap(errs.TlsFailure, "tls handshake with origin", err)
	}

	tracker.set(ApplicationExchange)

	path := req.Path
	if path == "" {
		path = "/"
	}
	httpReq := fmt.Sprintf("%s %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", req.Method, path, req.ServerName)
	if _, err := io.WriteString(tlsConn, httpReq); err != nil {
		return nil, errs.Wrap(errs.Internal, "sending http request", err)
	}

	// Unbounded at this layer: the context deadline set on conn above
	// bounds how long a non-responding or slow-closing origin can hang
	// this read. The whole response is buffered; the ciphertext and body
	// size ceilings below reject an oversized one only after it is read.
	raw, err := io.ReadAll(tlsConn)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "reading http response", err)
	}

	sentSoFar, recvSoFar := conn.snapshot()
	if uint32(len(sentSoFar)) > req.MaxSentBytes {
		tracker.set(SizeExceeded)
		return nil, errs.New(errs.ResponseTooLarge, "sent ciphertext exceeds configured ceiling")
	}
	if uint32(len(recvSoFar)) > req.MaxRecvBytes {
		tracker.set(SizeExceeded)
		return nil, errs.New(errs.ResponseTooLarge, "received ciphertext exceeds configured ceiling")
	}

	decoded, err := parseHTTPResponse(raw, req.MaxRecvBytes)
	if err != nil {
		if errs.KindOf(err) == errs.ResponseTooLarge {
			tracker.set(SizeExceeded)
		}
		return nil, err
	}

	timestamp := time.Now().Unix()
	sentDigest := sha256.Sum256(sentSoFar)
	recvDigest := sha256.Sum256(recvSoFar)

	if err := sendMsg(ch, req.SessionID, MsgCiphertextCommit, ciphertextCommit{
		SentDigest: sentDigest,
		RecvDigest: recvDigest,
	}); err != nil {
		return nil, err
	}

	tracker.set(VerifierCommitted)

	if err := sendMsg(ch, req.SessionID, MsgRevealTranscript, transcriptReveal{
		ServerName:    req.ServerName,
		TimestampUnix: timestamp,
		StatusCode:    decoded.StatusCode,
		Body:          decoded.Body,
		SentCipher:    sentSoFar,
		RecvCipher:    recvSoFar,
	}); err != nil {
		return nil, err
	}

	reply, err := ch.Recv()
	if err != nil {
		return nil, err
	}

	switch reply.Type {
	case MsgVerifierAccept:
		var acc verifierAccept
		if err := reply.UnmarshalData(&acc); err != nil {
			return nil, errs.Wrap(errs.MpcProtocolFailure, "decoding verifier acceptance", err)
		}
		tracker.set(PlaintextOpened)
		tracker.set(Finished)
		return &Transcript{
			ServerName:     req.ServerName,
			TimestampUnix:  timestamp,
			ResponseStatus: decoded.StatusCode,
			ResponseBody:   decoded.Body,
			NotarySignature: NotarySignature{
				R:        acc.R,
				S:        acc.S,
				Recovery: acc.Recovery,
			},
		}, nil
	case MsgAbort:
		var reason abortReason
		_ = reply.UnmarshalData(&reason)
		tracker.set(OriginProtocolError)
		return nil, errs.New(errs.MpcProtocolFailure, fmt.Sprintf("verifier aborted session: %s", reason.Reason))
	default:
		tracker.set(OriginProtocolError)
		return nil, errs.New(errs.MpcProtocolFailure, "unexpected message from verifier role")
	}
}

func sendMsg(ch *roleChannel, sessionID string, t MessageType, payload interface{}) error {
	msg, err := newMessage(sessionID, t, payload)
	if err != nil {
		return errs.Wrap(errs.Internal, "building channel message", err)
	}
	return ch.Send(msg)
}
