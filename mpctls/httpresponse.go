package mpctls

import (
	"bufio"
	"bytes"
	"io"
	"net/http"

	"github.com/loca555/tls-oracle-near/errs"
)

// decodedResponse is the small slice of an HTTP/1.1 response the witness
// builder actually needs: the status code and the body bytes, with
// Content-Length/chunked/identity framing already resolved.
type decodedResponse struct {
	StatusCode int
	Body       []byte
}

// parseHTTPResponse demultiplexes the raw bytes read off the TLS
// connection into a status code and body. The origin's response could use
// any HTTP/1.1 body framing (explicit Content-Length, chunked
// transfer-encoding, or close-delimited), which is exactly what
// net/http.ReadResponse already parses correctly, so this reaches for the
// standard library instead of re-deriving HTTP/1.1 framing by hand.
func parseHTTPResponse(raw []byte, maxBody uint32) (*decodedResponse, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "parsing origin HTTP response", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, int64(maxBody)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "reading origin response body", err)
	}
	if uint32(len(body)) > maxBody {
		return nil, errs.New(errs.ResponseTooLarge, "origin response body exceeds configured ceiling")
	}

	return &decodedResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
