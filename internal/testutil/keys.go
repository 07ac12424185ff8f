// Package testutil provides fixtures shared across the module's
// tests: throwaway signing keys, self-signed certificates, and small
// media byte fixtures.
package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/tracemark/internal/signer"
)

// GenerateKeyMaterial creates a fresh self-signed key and certificate
// for the given algorithm. RSA keys are 2048-bit, which keeps test
// runs fast while exercising the real PS256 path.
func GenerateKeyMaterial(t *testing.T, alg signer.Algorithm) *signer.KeyMaterial {
	t.Helper()

	var priv crypto.Signer
	var err error
	switch alg {
	case signer.PS256:
		priv, err = rsaKey()
	case signer.ES256:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case signer.Ed25519:
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	default:
		t.Fatalf("unknown algorithm %q", alg)
	}
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	cert := selfSign(t, priv)
	return &signer.KeyMaterial{Algorithm: alg, Private: priv, Certificate: cert}
}

func selfSign(t *testing.T, priv crypto.Signer) *x509.Certificate {
	t.Helper()

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "tracemark-test", Organization: []string{"tracemark"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, priv.Public(), priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

// WriteKeyPair writes the key material as PEM files (certificate plus
// PKCS#8 private key) under dir and returns their paths. The files
// feed signer.FileKeyProvider in tests.
func WriteKeyPair(t *testing.T, dir string, km *signer.KeyMaterial) (certPath, keyPath string) {
	t.Helper()

	certPath = filepath.Join(dir, "signer.pub")
	keyPath = filepath.Join(dir, "signer.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: km.Certificate.Raw})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(km.Private)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certPath, keyPath
}

// WriteTrustBundle writes the certificates as a PEM bundle usable as a
// trust anchor file.
func WriteTrustBundle(t *testing.T, path string, certs ...*x509.Certificate) {
	t.Helper()

	var bundle []byte
	for _, cert := range certs {
		bundle = append(bundle, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}
	if err := os.WriteFile(path, bundle, 0o600); err != nil {
		t.Fatalf("write trust bundle: %v", err)
	}
}

// TrustPool returns a pool holding just the given certificates.
func TrustPool(certs ...*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool
}
