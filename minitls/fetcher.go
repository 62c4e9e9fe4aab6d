package minitls

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxAIAResponseBytes = 64 * 1024

// HTTPFetcher fetches AIA-referenced certificates over plain HTTP or
// HTTPS, the schemes CAs publish them under.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a CertificateFetcher with a short timeout; AIA
// fetches happen on the handshake's critical path and must not hang it.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 5 * time.Second}}
}

func (f *HTTPFetcher) FetchCertificate(url string) ([]byte, error) {
	resp, err := f.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aia fetch: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAIAResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAIAResponseBytes {
		return nil, fmt.Errorf("aia fetch: response exceeds %d bytes", maxAIAResponseBytes)
	}
	return data, nil
}
