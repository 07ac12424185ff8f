package manifest

import (
	"errors"
	"fmt"
)

// ErrImmutableManifest is returned by every mutator once a manifest is
// sealed. Amendments require a new manifest chained via parent.
var ErrImmutableManifest = errors.New("manifest is signed and immutable")

// ErrDuplicateParent is returned when a parent ingredient is already
// set.
var ErrDuplicateParent = errors.New("manifest already has a parent ingredient")

// ErrIncompleteSeal is returned when Seal is called without both a
// signature and a content digest.
var ErrIncompleteSeal = errors.New("seal requires a signature and a content digest")

// DuplicateLabelError reports an assertion label collision within one
// manifest.
type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("assertion label %q already present in manifest", e.Label)
}

// IsDuplicateLabel returns true if the error is a label collision.
// Uses errors.As to handle wrapped errors.
func IsDuplicateLabel(err error) bool {
	var de *DuplicateLabelError
	return errors.As(err, &de)
}
