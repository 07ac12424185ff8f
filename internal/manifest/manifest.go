// Package manifest assembles provenance manifests: an ordered set of
// assertions about one version of an asset, an optional ingredient
// link to the previous version, and — after signing — a frozen,
// signature-bound record. Manifests are append-build, sign-once,
// embed-once: amendments require a new manifest chained via parent.
package manifest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/canonical"
	"github.com/roach88/tracemark/internal/signer"
)

// Manifest is the unit of provenance. Zero value is not usable; create
// with New. Not safe for concurrent mutation; after Seal it is
// immutable and freely shared.
type Manifest struct {
	claimGenerator string
	title          string
	format         string
	instanceID     string
	label          string
	assertions     []*assertion.Assertion
	parent         *Ingredient
	signature      *signer.Signature
	contentDigest  string
}

// New creates an empty, unsigned manifest. The claim generator string
// identifies the producing software, e.g. "mikes-walkthrough/0.1".
// Instance ID and label follow the XMP/URN shapes provenance tooling
// expects.
func New(claimGenerator string) *Manifest {
	return &Manifest{
		claimGenerator: claimGenerator,
		instanceID:     "xmp:iid:" + uuid.NewString(),
		label:          "urn:uuid:" + uuid.NewString(),
	}
}

// ClaimGenerator returns the producing software identity.
func (m *Manifest) ClaimGenerator() string { return m.claimGenerator }

// Title returns the asset title, if set.
func (m *Manifest) Title() string { return m.title }

// Format returns the asset MIME type, if set.
func (m *Manifest) Format() string { return m.format }

// InstanceID identifies this specific asset version.
func (m *Manifest) InstanceID() string { return m.instanceID }

// Label is the manifest's identity within a manifest store.
func (m *Manifest) Label() string { return m.label }

// Signed reports whether the manifest has been sealed.
func (m *Manifest) Signed() bool { return m.signature != nil }

// Signature returns the detached signature, nil before sealing.
func (m *Manifest) Signature() *signer.Signature { return m.signature }

// ContentDigest returns the bound asset content digest, empty before
// sealing.
func (m *Manifest) ContentDigest() string { return m.contentDigest }

// Parent returns the ingredient link, nil for first-generation
// manifests.
func (m *Manifest) Parent() *Ingredient { return m.parent }

// SetTitle sets the asset title. Fails once the manifest is sealed.
func (m *Manifest) SetTitle(title string) error {
	if m.Signed() {
		return ErrImmutableManifest
	}
	m.title = title
	return nil
}

// SetFormat sets the asset MIME type. Fails once the manifest is
// sealed.
func (m *Manifest) SetFormat(mimeType string) error {
	if m.Signed() {
		return ErrImmutableManifest
	}
	m.format = mimeType
	return nil
}

// SetParent links this manifest to a prior asset version. At most one
// parent is permitted; setting a second fails with
// ErrDuplicateParent. The ingredient is already an owned snapshot, so
// later mutation of the live predecessor never changes it.
func (m *Manifest) SetParent(ing *Ingredient) error {
	if m.Signed() {
		return ErrImmutableManifest
	}
	if m.parent != nil {
		return ErrDuplicateParent
	}
	m.parent = ing
	return nil
}

// AddAssertion appends an assertion. Labels are unique within one
// manifest; a duplicate fails with *DuplicateLabelError and leaves the
// manifest unchanged. Fails with ErrImmutableManifest once sealed.
func (m *Manifest) AddAssertion(a *assertion.Assertion) error {
	if m.Signed() {
		return ErrImmutableManifest
	}
	for _, existing := range m.assertions {
		if existing.Label() == a.Label() {
			return &DuplicateLabelError{Label: a.Label()}
		}
	}
	m.assertions = append(m.assertions, a)
	return nil
}

// AddLabeledAssertion appends application-specific data under a
// caller-chosen label, with the same uniqueness and immutability rules
// as AddAssertion.
func (m *Manifest) AddLabeledAssertion(label string, data any) error {
	a, err := assertion.NewCustom(label, data)
	if err != nil {
		return err
	}
	return m.AddAssertion(a)
}

// Assertions returns the assertions in insertion order (oldest first).
// The slice is a copy; the assertions themselves are immutable.
func (m *Manifest) Assertions() []*assertion.Assertion {
	out := make([]*assertion.Assertion, len(m.assertions))
	copy(out, m.assertions)
	return out
}

// Assertion returns the assertion with the given label, or nil.
func (m *Manifest) Assertion(label string) *assertion.Assertion {
	for _, a := range m.assertions {
		if a.Label() == label {
			return a
		}
	}
	return nil
}

// HasCredentialAssertions reports whether any assertion carries a
// verifiable credential (see assertion.CredentialLabelPrefix).
func (m *Manifest) HasCredentialAssertions() bool {
	for _, a := range m.assertions {
		if a.IsCredential() {
			return true
		}
	}
	return false
}

// ClaimBytes produces the canonical claim form: everything the
// signature covers except the content digest, which the signer binds
// separately. Readers recompute this from a decoded manifest, so it
// must be byte-stable across encode/decode.
func (m *Manifest) ClaimBytes() ([]byte, error) {
	w := m.encodeWire()
	w.Signature = nil
	w.ContentDigest = ""

	obj, err := canonical.Roundtrip(w)
	if err != nil {
		return nil, err
	}
	return canonical.Marshal(obj)
}

// Seal attaches the detached signature and the bound content digest,
// freezing the manifest. Called by the embed path once signing
// succeeds; fails if the manifest is already sealed.
func (m *Manifest) Seal(sig *signer.Signature, contentDigest string) error {
	if m.Signed() {
		return ErrImmutableManifest
	}
	if sig == nil || strings.TrimSpace(contentDigest) == "" {
		return ErrIncompleteSeal
	}
	m.signature = sig
	m.contentDigest = contentDigest
	return nil
}
