package mpctls

import (
	"net"
	"sync"
)

// recordingConn wraps a net.Conn and mirrors every byte written and read
// into two append-only buffers. crypto/tls only ever sees the real TCP
// socket through this wrapper, so the captured bytes are the literal TLS
// ciphertext exchanged with the origin, the thing the prover role
// commits to and later reveals to the verifier role.
type recordingConn struct {
	net.Conn

	mu   sync.Mutex
	sent []byte
	recv []byte
}

func newRecordingConn(conn net.Conn) *recordingConn {
	return &recordingConn{Conn: conn}
}

func (c *recordingConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.mu.Lock()
		c.sent = append(c.sent, b[:n]...)
		c.mu.Unlock()
	}
	return n, err
}

func (c *recordingConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.mu.Lock()
		c.recv = append(c.recv, b[:n]...)
		c.mu.Unlock()
	}
	return n, err
}

// snapshot returns copies of the captured sent/received byte streams so
// far, safe to call concurrently with further Read/Write calls.
func (c *recordingConn) snapshot() (sent, recv []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.sent...), append([]byte(nil), c.recv...)
}
