package signer

import (
	"errors"
	"fmt"
)

// SigningError reports malformed or unusable key material at signing
// time. No partial signature accompanies it.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing failed: %s: %v", e.Reason, e.Err)
	}
	return "signing failed: " + e.Reason
}

func (e *SigningError) Unwrap() error { return e.Err }

// UnsupportedAlgorithmError reports an algorithm this build does not
// implement.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported signature algorithm %q (supported: ps256, es256, ed25519)", e.Algorithm)
}

// KeyLoadError reports a key provider failure: unreadable file,
// unparseable PEM, or a key that does not match the requested
// algorithm.
type KeyLoadError struct {
	Path string
	Err  error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("cannot load key material from %s: %v", e.Path, e.Err)
}

func (e *KeyLoadError) Unwrap() error { return e.Err }

// VerificationError reports why a signature failed to verify.
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signature verification failed: %s: %v", e.Reason, e.Err)
	}
	return "signature verification failed: " + e.Reason
}

func (e *VerificationError) Unwrap() error { return e.Err }

// IsVerificationError returns true if the error is a signature
// verification failure. Uses errors.As to handle wrapped errors.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
