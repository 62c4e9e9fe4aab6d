// Package minitls supplies an Authority-Information-Access-aware x509
// chain verifier for the prover's outbound TLS client. crypto/tls builds
// and checks the certificate chain itself, but origins that send an
// incomplete chain (a leaf without its issuing intermediate) fail that
// check even though the intermediate is fetchable over HTTP from the
// leaf's AIA extension; this package fills that one gap, plugged in via
// tls.Config.VerifyPeerCertificate.
package minitls

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"

	"go.mozilla.org/pkcs7"
	"go.uber.org/zap"

	"github.com/loca555/tls-oracle-near/logging"
)

// CertificateFetcher retrieves the raw bytes (DER, PEM, or PKCS7) a
// certificate's Authority Information Access URL points at.
type CertificateFetcher interface {
	FetchCertificate(url string) ([]byte, error)
}

// Verifier performs system-root chain validation with one level of AIA
// fetching when the origin's handshake omitted an intermediate.
type Verifier struct {
	fetcher CertificateFetcher
	log     *logging.Logger
}

// NewVerifier builds a Verifier. fetcher may be nil, in which case a
// chain that fails system-root validation is never retried with a
// fetched intermediate.
func NewVerifier(fetcher CertificateFetcher, log *logging.Logger) *Verifier {
	return &Verifier{fetcher: fetcher, log: log}
}

const maxAIADepth = 1 // one level of AIA fetching, no recursive fetches

// VerifyPeerCertificate returns a tls.Config.VerifyPeerCertificate
// callback bound to serverName. Callers must also set
// tls.Config.InsecureSkipVerify so this callback, not crypto/tls's own
// chain build, is the one that decides whether the connection proceeds.
func (v *Verifier) VerifyPeerCertificate(serverName string) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return &CertificateError{Type: CertErrorInvalidChain, Message: "parsing peer certificate", Err: err}
			}
			certs = append(certs, cert)
		}
		return v.verifyChain(certs, serverName, 0)
	}
}

func (v *Verifier) verifyChain(certs []*x509.Certificate, serverName string, aiaDepth int) error {
	if len(certs) == 0 {
		return &CertificateError{Type: CertErrorInvalidChain, Message: "no certificates provided"}
	}

	leafCert := certs[0]

	if len(leafCert.ExtKeyUsage) > 0 {
		validUsage := false
		for _, usage := range leafCert.ExtKeyUsage {
			if usage == x509.ExtKeyUsageServerAuth || usage == x509.ExtKeyUsageAny {
				validUsage = true
				break
			}
		}
		if !validUsage {
			return &CertificateError{Type: CertErrorVerification, Message: "server certificate not valid for server authentication"}
		}
	}

	intermediates := x509.NewCertPool()
	for i := 1; i < len(certs); i++ {
		intermediates.AddCert(certs[i])
	}

	roots, err := x509.SystemCertPool()
	if err != nil {
		return &CertificateError{Type: CertErrorSystemRoots, Message: "loading system cert pool", Err: err}
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		DNSName:       serverName,
	}

	if _, err := leafCert.Verify(opts); err != nil {
		if v.fetcher == nil || aiaDepth >= maxAIADepth || len(leafCert.IssuingCertificateURL) == 0 {
			return &CertificateError{Type: CertErrorVerification, Message: fmt.Sprintf("certificate verification failed for %s", serverName), Err: err}
		}

		var unknownAuthorityErr x509.UnknownAuthorityError
		if !errors.As(err, &unknownAuthorityErr) {
			return &CertificateError{Type: CertErrorVerification, Message: fmt.Sprintf("certificate verification failed for %s", serverName), Err: err}
		}

		completedChain, fetchErr := v.fetchMissingIntermediates(certs)
		if fetchErr != nil || len(completedChain) <= len(certs) {
			if v.log != nil {
				v.log.Warn("fetching missing intermediate failed", zap.Error(fetchErr))
			}
			return &CertificateError{Type: CertErrorVerification, Message: fmt.Sprintf("certificate verification failed for %s", serverName), Err: err}
		}
		return v.verifyChain(completedChain, serverName, aiaDepth+1)
	}

	return nil
}

// fetchMissingIntermediates tries each of the leaf's AIA URLs in turn and
// returns certs with the first successfully fetched, parsed, validated
// batch of intermediates appended.
func (v *Verifier) fetchMissingIntermediates(certs []*x509.Certificate) ([]*x509.Certificate, error) {
	const maxChainLength = 10
	if len(certs) >= maxChainLength {
		return certs, fmt.Errorf("certificate chain too long (max %d)", maxChainLength)
	}

	leafCert := certs[0]

	seen := make(map[string]bool, len(certs))
	for _, cert := range certs {
		seen[fmt.Sprintf("%x", cert.SerialNumber)] = true
	}

	for _, rawURL := range leafCert.IssuingCertificateURL {
		if !isValidAIAURL(rawURL) {
			continue
		}
		certData, err := v.fetcher.FetchCertificate(rawURL)
		if err != nil {
			continue
		}
		fetched, err := parseCertificateData(certData)
		if err != nil {
			continue
		}

		valid := make([]*x509.Certificate, 0, len(fetched))
		for _, cert := range fetched {
			if !cert.IsCA {
				continue
			}
			fingerprint := fmt.Sprintf("%x", cert.SerialNumber)
			if seen[fingerprint] {
				continue
			}
			valid = append(valid, cert)
		}
		if len(valid) == 0 {
			continue
		}

		result := make([]*x509.Certificate, len(certs), len(certs)+len(valid))
		copy(result, certs)
		return append(result, valid...), nil
	}

	return certs, fmt.Errorf("failed to fetch an intermediate certificate from any AIA URL")
}

// parseCertificateData parses AIA response bytes as DER, PEM, or a PKCS7
// bundle (PKCS7 is what some CAs, e.g. IdenTrust, serve at their AIA URL).
func parseCertificateData(data []byte) ([]*x509.Certificate, error) {
	if cert, err := x509.ParseCertificate(data); err == nil {
		return []*x509.Certificate{cert}, nil
	}

	if block, _ := pem.Decode(data); block != nil && block.Type == "CERTIFICATE" {
		if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
			return []*x509.Certificate{cert}, nil
		}
	}

	p7, err := pkcs7.Parse(data)
	if err == nil && len(p7.Certificates) > 0 {
		var intermediates []*x509.Certificate
		for _, cert := range p7.Certificates {
			if cert.Subject.String() != cert.Issuer.String() {
				intermediates = append(intermediates, cert)
			}
		}
		if len(intermediates) == 0 {
			return nil, fmt.Errorf("pkcs7 bundle contains only self-signed certificates")
		}
		return intermediates, nil
	}

	return nil, fmt.Errorf("unable to parse certificate data as DER, PEM, or PKCS7")
}

// isValidAIAURL rejects AIA URLs that don't use http or https, guarding
// against file://, data:, and similar schemes in a field an origin fully
// controls.
func isValidAIAURL(rawURL string) bool {
	if len(rawURL) > 2048 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
