package store

import (
	"github.com/roach88/tracemark/internal/manifest"
)

// Chain returns the provenance chain: the active manifest first, then
// each ancestor via parent snapshots, oldest last. Fails with
// *CyclicChainError on corrupted input that revisits an instance ID;
// well-formed chains are acyclic by construction, but a reader must
// never loop forever on hostile bytes.
func (s *Store) Chain() ([]*manifest.Manifest, error) {
	active, err := s.GetActive()
	if err != nil {
		return nil, err
	}
	return walkParents(active, len(s.manifests))
}

// walkParents follows parent links from start, bounded by maxHops (the
// number of manifests ever embedded — a legitimate chain can never be
// longer). Returns the manifests visited before any cycle, plus the
// cycle error if one was hit, so callers can both report the defect
// and still audit the intact prefix.
func walkParents(start *manifest.Manifest, maxHops int) ([]*manifest.Manifest, error) {
	var chain []*manifest.Manifest
	seen := make(map[string]bool)

	for m := start; m != nil; {
		if seen[m.InstanceID()] {
			return chain, &CyclicChainError{InstanceID: m.InstanceID()}
		}
		if len(chain) >= maxHops {
			return chain, &CyclicChainError{InstanceID: m.InstanceID()}
		}
		seen[m.InstanceID()] = true
		chain = append(chain, m)

		parent := m.Parent()
		if parent == nil {
			break
		}
		m = parent.ParentManifest()
	}
	return chain, nil
}
