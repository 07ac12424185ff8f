// Package store reads manifests back out of assets and validates
// them: signature, content binding, assertion well-formedness, and
// chain integrity. Validation accumulates findings instead of
// aborting, so an auditor can always inspect what is wrong; only a
// missing manifest is fatal.
package store

import (
	"crypto/x509"
	"fmt"

	"github.com/roach88/tracemark/internal/canonical"
	"github.com/roach88/tracemark/internal/container"
	"github.com/roach88/tracemark/internal/manifest"
	"github.com/roach88/tracemark/internal/signer"
)

// Store is a parsed, verified manifest store. Immutable after
// FromAsset returns; safe for concurrent reads. Re-derive by
// re-parsing, never by mutation.
type Store struct {
	manifests   []*manifest.Manifest
	byLabel     map[string]*manifest.Manifest
	activeLabel string
	statuses    []Status
}

// Option configures verification.
type Option func(*config)

type config struct {
	roots *x509.CertPool
}

// WithTrustRoots makes signature verification additionally require the
// signer certificate to chain to one of the given anchors. Without it,
// signatures are checked against their embedded certificate only.
func WithTrustRoots(roots *x509.CertPool) Option {
	return func(c *config) { c.roots = roots }
}

// WithTrustAnchors resolves roots from a provider; a resolution
// failure surfaces from FromAsset.
func WithTrustAnchors(p signer.TrustAnchorProvider) (Option, error) {
	roots, err := p.TrustedRoots()
	if err != nil {
		return nil, err
	}
	return WithTrustRoots(roots), nil
}

// FromAsset extracts every embedded manifest and runs the full
// verification pass over the active manifest and each ancestor
// reachable through parent links. Fails only when no manifest is
// present or the container is structurally unreadable; every semantic
// problem is reported as a Status.
func FromAsset(asset []byte, opts ...Option) (*Store, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	block, payload, err := container.Extract(asset)
	if err != nil {
		return nil, err
	}

	s := &Store{byLabel: make(map[string]*manifest.Manifest, len(block.Manifests))}
	for i, w := range block.Manifests {
		m, err := manifest.Decode(w)
		if err != nil {
			return nil, fmt.Errorf("store: manifest %d: %w", i, err)
		}
		s.manifests = append(s.manifests, m)
		s.byLabel[m.Label()] = m
	}
	active, ok := s.byLabel[block.ActiveLabel]
	if !ok {
		return nil, fmt.Errorf("store: active label %q resolves to no manifest", block.ActiveLabel)
	}
	s.activeLabel = block.ActiveLabel

	s.verify(active, canonical.ContentDigest(payload), cfg.roots)
	return s, nil
}

// verify checks the active manifest and, transitively, every ancestor.
// Findings accumulate; nothing short-circuits.
func (s *Store) verify(active *manifest.Manifest, contentDigest string, roots *x509.CertPool) {
	visited, cycleErr := walkParents(active, len(s.manifests))

	for _, m := range visited {
		if m.ContentDigest() != contentDigest {
			s.statuses = append(s.statuses, Status{
				Code:          CodeContentTampered,
				ManifestLabel: m.Label(),
				Severity:      SeverityError,
				Explanation:   fmt.Sprintf("bound to %s, asset digests to %s", m.ContentDigest(), contentDigest),
			})
		}

		s.verifySignature(m, roots)

		for _, a := range m.Assertions() {
			if err := a.Validate(); err != nil {
				s.statuses = append(s.statuses, Status{
					Code:           CodeAssertionMalformed,
					ManifestLabel:  m.Label(),
					AssertionLabel: a.Label(),
					Severity:       SeverityError,
					Explanation:    err.Error(),
				})
			}
		}
	}

	if cycleErr != nil {
		s.statuses = append(s.statuses, Status{
			Code:          CodeCyclicChainDetected,
			ManifestLabel: active.Label(),
			Severity:      SeverityError,
			Explanation:   cycleErr.Error(),
		})
	}
}

func (s *Store) verifySignature(m *manifest.Manifest, roots *x509.CertPool) {
	sig := m.Signature()
	if sig == nil {
		s.statuses = append(s.statuses, Status{
			Code:          CodeSignatureInvalid,
			ManifestLabel: m.Label(),
			Severity:      SeverityError,
			Explanation:   "manifest is unsigned",
		})
		return
	}
	claim, err := m.ClaimBytes()
	if err != nil {
		s.statuses = append(s.statuses, Status{
			Code:          CodeSignatureInvalid,
			ManifestLabel: m.Label(),
			Severity:      SeverityError,
			Explanation:   "claim not reconstructable: " + err.Error(),
		})
		return
	}
	// The signature covers the digest the manifest stored at signing
	// time; drift between that digest and the asset is reported
	// separately as content tampering.
	if err := signer.Verify(sig, claim, m.ContentDigest(), roots); err != nil {
		s.statuses = append(s.statuses, Status{
			Code:          CodeSignatureInvalid,
			ManifestLabel: m.Label(),
			Severity:      SeverityError,
			Explanation:   err.Error(),
		})
	}
}

// GetActive returns the most recently embedded manifest.
func (s *Store) GetActive() (*manifest.Manifest, error) {
	m, ok := s.byLabel[s.activeLabel]
	if !ok {
		return nil, ErrNoActiveManifest
	}
	return m, nil
}

// Manifests returns every embedded manifest in embedding order.
func (s *Store) Manifests() []*manifest.Manifest {
	out := make([]*manifest.Manifest, len(s.manifests))
	copy(out, s.manifests)
	return out
}

// ActiveLabel returns the label of the most recently embedded
// manifest.
func (s *Store) ActiveLabel() string { return s.activeLabel }

// Statuses returns the accumulated validation findings.
func (s *Store) Statuses() []Status {
	out := make([]Status, len(s.statuses))
	copy(out, s.statuses)
	return out
}

// Valid reports whether no Error-severity finding was recorded.
func (s *Store) Valid() bool {
	for _, st := range s.statuses {
		if st.Severity == SeverityError {
			return false
		}
	}
	return true
}
