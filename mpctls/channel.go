package mpctls

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/loca555/tls-oracle-near/errs"
)

// MessageType enumerates the small protocol spoken between the prover and
// verifier roles over the in-process channel: a
// Message{Type,SessionID,Data,Timestamp} envelope framed with a 4-byte
// length prefix over any net.Conn (here, one end of a net.Pipe), rather
// than over a websocket frame.
type MessageType int

const (
	MsgCiphertextCommit MessageType = iota
	MsgRevealTranscript
	MsgVerifierAccept
	MsgAbort
)

// Message is one frame of the prover<->verifier protocol.
type Message struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// UnmarshalData decodes the message's payload into v.
func (m *Message) UnmarshalData(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

func newMessage(sessionID string, t MessageType, payload interface{}) (Message, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, err
		}
		raw = b
	}
	return Message{Type: t, SessionID: sessionID, Data: raw, Timestamp: time.Now().UnixNano()}, nil
}

// roleChannel is a length-prefixed JSON message channel over one endpoint
// of a net.Pipe, the in-process bidirectional byte channel connecting the
// two roles.
type roleChannel struct {
	conn net.Conn
}

const maxFrameSize = 16 << 20 // generous ceiling; real payloads scale with MaxSentBytes and MaxRecvBytes

func (c *roleChannel) Send(msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshaling channel message", err)
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := c.conn.Write(header[:]); err != nil {
		return errs.Wrap(errs.MpcProtocolFailure, "writing channel frame header", err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return errs.Wrap(errs.MpcProtocolFailure, "writing channel frame body", err)
	}
	return nil
}

func (c *roleChannel) Recv() (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return Message{}, errs.Wrap(errs.MpcProtocolFailure, "reading channel frame header", err)
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return Message{}, errs.New(errs.MpcProtocolFailure, fmt.Sprintf("channel frame too large: %d bytes", n))
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return Message{}, errs.Wrap(errs.MpcProtocolFailure, "reading channel frame body", err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, errs.Wrap(errs.MpcProtocolFailure, "unmarshaling channel message", err)
	}
	return msg, nil
}

func (c *roleChannel) Close() error { return c.conn.Close() }
