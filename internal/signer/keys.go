package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// KeyProvider loads signing key material from some backing store.
// Implementations live at the edge; the core treats this as an opaque
// collaborator.
type KeyProvider interface {
	LoadSigningKey(certRef, keyRef string, alg Algorithm) (*KeyMaterial, error)
}

// TrustAnchorProvider supplies the root certificates verification
// checks signer certificates against.
type TrustAnchorProvider interface {
	TrustedRoots() (*x509.CertPool, error)
}

// FileKeyProvider loads PEM-encoded certificates and private keys from
// the filesystem.
type FileKeyProvider struct{}

// LoadSigningKey reads certRef (certificate PEM) and keyRef (private
// key PEM, PKCS#8 or algorithm-native encodings) and checks that the
// key type matches the requested algorithm.
func (FileKeyProvider) LoadSigningKey(certRef, keyRef string, alg Algorithm) (*KeyMaterial, error) {
	if _, err := ParseAlgorithm(string(alg)); err != nil {
		return nil, err
	}

	cert, err := readCertificate(certRef)
	if err != nil {
		return nil, &KeyLoadError{Path: certRef, Err: err}
	}
	key, err := readPrivateKey(keyRef)
	if err != nil {
		return nil, &KeyLoadError{Path: keyRef, Err: err}
	}

	if err := keyMatchesAlgorithm(key, alg); err != nil {
		return nil, &KeyLoadError{Path: keyRef, Err: err}
	}

	return &KeyMaterial{Algorithm: alg, Private: key, Certificate: cert}, nil
}

func readCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no CERTIFICATE block in %s", path)
	}
	return x509.ParseCertificate(block.Bytes)
}

func readPrivateKey(path string) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	// PKCS#8 first, then the algorithm-native encodings.
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported key type %T", key)
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unparseable private key in %s", path)
}

func keyMatchesAlgorithm(key crypto.Signer, alg Algorithm) error {
	switch alg {
	case PS256:
		if _, ok := key.(*rsa.PrivateKey); !ok {
			return fmt.Errorf("ps256 requires an RSA key, got %T", key)
		}
	case ES256:
		if _, ok := key.(*ecdsa.PrivateKey); !ok {
			return fmt.Errorf("es256 requires an ECDSA key, got %T", key)
		}
	case Ed25519:
		if _, ok := key.(ed25519.PrivateKey); !ok {
			return fmt.Errorf("ed25519 requires an Ed25519 key, got %T", key)
		}
	}
	return nil
}

// FileTrustAnchors reads a PEM bundle of trusted root certificates.
type FileTrustAnchors struct {
	Path string
}

// TrustedRoots parses the bundle into a certificate pool.
func (p FileTrustAnchors) TrustedRoots() (*x509.CertPool, error) {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, &KeyLoadError{Path: p.Path, Err: err}
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, &KeyLoadError{Path: p.Path, Err: fmt.Errorf("no certificates in bundle")}
	}
	return pool, nil
}
