// Package signer produces and verifies the detached signatures that
// bind a manifest's canonical claim bytes to a digest of the asset
// content it is embedded into. Swapping either the manifest or the
// underlying asset bytes after signing invalidates verification.
package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// Algorithm identifies a supported signature scheme.
type Algorithm string

const (
	// PS256 is RSA-PSS with SHA-256.
	PS256 Algorithm = "ps256"
	// ES256 is ECDSA P-256 with SHA-256.
	ES256 Algorithm = "es256"
	// Ed25519 is pure Ed25519.
	Ed25519 Algorithm = "ed25519"
)

// ParseAlgorithm maps a config string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case PS256, ES256, Ed25519:
		return Algorithm(s), nil
	default:
		return "", &UnsupportedAlgorithmError{Algorithm: s}
	}
}

// KeyMaterial bundles a private key with its certificate, as returned
// by a KeyProvider.
type KeyMaterial struct {
	Algorithm   Algorithm
	Private     crypto.Signer
	Certificate *x509.Certificate
}

// Signature is a detached signature over claim bytes plus content
// digest. CertDER carries the signer's certificate so a reader can
// verify without out-of-band key distribution.
type Signature struct {
	Algorithm Algorithm `json:"alg"`
	KeyID     string    `json:"kid"`
	Raw       []byte    `json:"sig"`
	CertDER   []byte    `json:"cert"`
}

// signingMessage binds claim bytes and content digest into the byte
// string the signature covers. The null separator prevents boundary
// ambiguity between the two parts.
func signingMessage(claimBytes []byte, contentDigest string) []byte {
	msg := make([]byte, 0, len(claimBytes)+1+len(contentDigest))
	msg = append(msg, claimBytes...)
	msg = append(msg, 0x00)
	msg = append(msg, contentDigest...)
	return msg
}

// Sign produces a detached signature. Stateless: safe to call
// concurrently for independent manifests. No partial signature is ever
// returned on error.
func Sign(km *KeyMaterial, claimBytes []byte, contentDigest string) (*Signature, error) {
	if km == nil || km.Private == nil {
		return nil, &SigningError{Reason: "no private key material"}
	}
	if km.Certificate == nil {
		return nil, &SigningError{Reason: "no signing certificate"}
	}

	msg := signingMessage(claimBytes, contentDigest)
	var raw []byte
	var err error

	switch km.Algorithm {
	case PS256:
		priv, ok := km.Private.(*rsa.PrivateKey)
		if !ok {
			return nil, &SigningError{Reason: fmt.Sprintf("ps256 requires an RSA key, got %T", km.Private)}
		}
		digest := sha256.Sum256(msg)
		raw, err = rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       crypto.SHA256,
		})
	case ES256:
		priv, ok := km.Private.(*ecdsa.PrivateKey)
		if !ok {
			return nil, &SigningError{Reason: fmt.Sprintf("es256 requires an ECDSA key, got %T", km.Private)}
		}
		digest := sha256.Sum256(msg)
		raw, err = ecdsa.SignASN1(rand.Reader, priv, digest[:])
	case Ed25519:
		priv, ok := km.Private.(ed25519.PrivateKey)
		if !ok {
			return nil, &SigningError{Reason: fmt.Sprintf("ed25519 requires an Ed25519 key, got %T", km.Private)}
		}
		raw = ed25519.Sign(priv, msg)
	default:
		return nil, &UnsupportedAlgorithmError{Algorithm: string(km.Algorithm)}
	}
	if err != nil {
		return nil, &SigningError{Reason: "signing failed", Err: err}
	}

	keyID, err := publicKeyID(km.Certificate)
	if err != nil {
		return nil, &SigningError{Reason: "cannot derive key id", Err: err}
	}

	return &Signature{
		Algorithm: km.Algorithm,
		KeyID:     keyID,
		Raw:       raw,
		CertDER:   km.Certificate.Raw,
	}, nil
}

// Verify checks a detached signature against the claim bytes and
// content digest it claims to cover. When roots is non-nil the
// embedded certificate must also chain to one of the trusted anchors.
func Verify(sig *Signature, claimBytes []byte, contentDigest string, roots *x509.CertPool) error {
	if sig == nil {
		return &VerificationError{Reason: "no signature present"}
	}
	cert, err := x509.ParseCertificate(sig.CertDER)
	if err != nil {
		return &VerificationError{Reason: "embedded certificate unparseable", Err: err}
	}

	msg := signingMessage(claimBytes, contentDigest)

	switch sig.Algorithm {
	case PS256:
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return &VerificationError{Reason: fmt.Sprintf("ps256 requires an RSA certificate, got %T", cert.PublicKey)}
		}
		digest := sha256.Sum256(msg)
		if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig.Raw, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       crypto.SHA256,
		}); err != nil {
			return &VerificationError{Reason: "signature does not verify", Err: err}
		}
	case ES256:
		pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return &VerificationError{Reason: fmt.Sprintf("es256 requires an ECDSA certificate, got %T", cert.PublicKey)}
		}
		digest := sha256.Sum256(msg)
		if !ecdsa.VerifyASN1(pub, digest[:], sig.Raw) {
			return &VerificationError{Reason: "signature does not verify"}
		}
	case Ed25519:
		pub, ok := cert.PublicKey.(ed25519.PublicKey)
		if !ok {
			return &VerificationError{Reason: fmt.Sprintf("ed25519 requires an Ed25519 certificate, got %T", cert.PublicKey)}
		}
		if !ed25519.Verify(pub, msg, sig.Raw) {
			return &VerificationError{Reason: "signature does not verify"}
		}
	default:
		return &UnsupportedAlgorithmError{Algorithm: string(sig.Algorithm)}
	}

	if roots != nil {
		if _, err := cert.Verify(x509.VerifyOptions{
			Roots:     roots,
			KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err != nil {
			return &VerificationError{Reason: "certificate not trusted", Err: err}
		}
	}
	return nil
}

// publicKeyID derives a stable key identifier: hex SHA-256 of the
// certificate's SubjectPublicKeyInfo.
func publicKeyID(cert *x509.Certificate) (string, error) {
	spki, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(spki)
	return hex.EncodeToString(sum[:]), nil
}
