package store

import (
	"errors"
	"fmt"
)

// ErrNoActiveManifest is returned when a store holds no manifests.
// Unreachable for stores built by FromAsset, which requires at least
// one.
var ErrNoActiveManifest = errors.New("manifest store has no active manifest")

// CyclicChainError reports a parent link that revisits an already-seen
// instance ID.
type CyclicChainError struct {
	InstanceID string
}

func (e *CyclicChainError) Error() string {
	return fmt.Sprintf("provenance chain revisits instance %s", e.InstanceID)
}

// IsCyclicChain returns true if the error is a chain cycle. Uses
// errors.As to handle wrapped errors.
func IsCyclicChain(err error) bool {
	var ce *CyclicChainError
	return errors.As(err, &ce)
}
