package minitls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T, commonName string, isCA bool, serial int64) (*x509.Certificate, []byte) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Unix(0, 0),
		NotAfter:              time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour),
		IsCA:                  isCA,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, der
}

func TestVerifyChain_RejectsUntrustedLeafWithoutFetcher(t *testing.T) {
	leaf, _ := selfSignedCert(t, "untrusted.example", false, 1)
	v := NewVerifier(nil, nil)

	err := v.verifyChain([]*x509.Certificate{leaf}, "untrusted.example", 0)
	require.Error(t, err)

	var certErr *CertificateError
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, CertErrorVerification, certErr.Type)
}

func TestVerifyChain_RejectsEmptyCertList(t *testing.T) {
	v := NewVerifier(nil, nil)
	err := v.verifyChain(nil, "example.com", 0)

	var certErr *CertificateError
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, CertErrorInvalidChain, certErr.Type)
}

func TestVerifyPeerCertificate_RejectsMalformedDER(t *testing.T) {
	v := NewVerifier(nil, nil)
	callback := v.VerifyPeerCertificate("example.com")

	err := callback([][]byte{[]byte("not a certificate")}, nil)
	require.Error(t, err)

	var certErr *CertificateError
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, CertErrorInvalidChain, certErr.Type)
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchCertificate(string) ([]byte, error) {
	return f.data, f.err
}

func TestFetchMissingIntermediates_AppendsValidIntermediate(t *testing.T) {
	intermediate, intermediateDER := selfSignedCert(t, "intermediate ca", true, 2)
	leaf, _ := selfSignedCert(t, "leaf.example", false, 1)
	leaf.IssuingCertificateURL = []string{"http://ca.example/intermediate.crt"}

	v := NewVerifier(&fakeFetcher{data: intermediateDER}, nil)

	chain, err := v.fetchMissingIntermediates([]*x509.Certificate{leaf})
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, intermediate.SerialNumber, chain[1].SerialNumber)
}

func TestFetchMissingIntermediates_SkipsNonCACertificate(t *testing.T) {
	notCA, notCADER := selfSignedCert(t, "not a ca", false, 3)
	leaf, _ := selfSignedCert(t, "leaf.example", false, 1)
	leaf.IssuingCertificateURL = []string{"http://ca.example/bogus.crt"}

	v := NewVerifier(&fakeFetcher{data: notCADER}, nil)

	_, err := v.fetchMissingIntermediates([]*x509.Certificate{leaf})
	require.Error(t, err)
	_ = notCA
}

func TestFetchMissingIntermediates_SkipsInvalidURLScheme(t *testing.T) {
	leaf, _ := selfSignedCert(t, "leaf.example", false, 1)
	leaf.IssuingCertificateURL = []string{"file:///etc/passwd"}

	v := NewVerifier(&fakeFetcher{data: []byte("irrelevant")}, nil)

	_, err := v.fetchMissingIntermediates([]*x509.Certificate{leaf})
	assert.Error(t, err)
}

func TestParseCertificateData_AcceptsDERAndPEM(t *testing.T) {
	_, der := selfSignedCert(t, "der.example", true, 4)

	certs, err := parseCertificateData(der)
	require.NoError(t, err)
	require.Len(t, certs, 1)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	certs, err = parseCertificateData(pemBytes)
	require.NoError(t, err)
	require.Len(t, certs, 1)
}

func TestParseCertificateData_RejectsGarbage(t *testing.T) {
	_, err := parseCertificateData([]byte("not a certificate in any format"))
	assert.Error(t, err)
}

func TestIsValidAIAURL(t *testing.T) {
	assert.True(t, isValidAIAURL("http://ca.example/intermediate.crt"))
	assert.True(t, isValidAIAURL("https://ca.example/intermediate.crt"))
	assert.False(t, isValidAIAURL("file:///etc/passwd"))
	assert.False(t, isValidAIAURL("javascript:alert(1)"))
	assert.False(t, isValidAIAURL("not-a-url-with-no-scheme"))
}
