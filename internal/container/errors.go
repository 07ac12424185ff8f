package container

import (
	"errors"
	"fmt"
)

// ErrNoManifestFound is returned when asset bytes carry no embedded
// manifests. Fatal for the read path; there is nothing to audit.
var ErrNoManifestFound = errors.New("no manifest found in asset")

// ErrCredentialUnsupported is returned when a manifest carries a
// verifiable-credential assertion. Credential embedding needs
// container-format-specific validation rules that do not exist yet.
var ErrCredentialUnsupported = errors.New("verifiable-credential assertions cannot be embedded")

// DigestMismatchError reports a pre-sealed manifest whose bound
// content digest does not match the bytes being embedded into.
type DigestMismatchError struct {
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("content digest mismatch: manifest bound to %s, asset is %s", e.Expected, e.Actual)
}

// IOError reports an asset store failure with the operation and path
// that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("asset %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
