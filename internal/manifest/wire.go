package manifest

import (
	"fmt"

	"github.com/roach88/tracemark/internal/assertion"
	"github.com/roach88/tracemark/internal/signer"
)

// Wire is the serialized manifest shape shared by the claim
// computation, the container block, and ingredient snapshots. Field
// names are part of the persisted format; changing one invalidates
// every existing signature.
type Wire struct {
	ClaimGenerator string             `json:"claim_generator"`
	Title          string             `json:"title,omitempty"`
	Format         string             `json:"format,omitempty"`
	InstanceID     string             `json:"instance_id"`
	Label          string             `json:"label"`
	Assertions     []assertion.Record `json:"assertions"`
	Parent         *IngredientWire    `json:"parent,omitempty"`
	ContentDigest  string             `json:"content_digest,omitempty"`
	Signature      *signer.Signature  `json:"signature,omitempty"`
}

// IngredientWire is the serialized ingredient snapshot.
type IngredientWire struct {
	InstanceID string `json:"instance_id"`
	Title      string `json:"title,omitempty"`
	Format     string `json:"format,omitempty"`
	Manifest   *Wire  `json:"manifest,omitempty"`
}

// Encode serializes the manifest, including signature and content
// digest when present.
func (m *Manifest) Encode() *Wire {
	return m.encodeWire()
}

func (m *Manifest) encodeWire() *Wire {
	w := &Wire{
		ClaimGenerator: m.claimGenerator,
		Title:          m.title,
		Format:         m.format,
		InstanceID:     m.instanceID,
		Label:          m.label,
		ContentDigest:  m.contentDigest,
		Signature:      m.signature,
	}
	w.Assertions = make([]assertion.Record, len(m.assertions))
	for i, a := range m.assertions {
		w.Assertions[i] = a.Encode()
	}
	if m.parent != nil {
		pw := &IngredientWire{
			InstanceID: m.parent.instanceID,
			Title:      m.parent.title,
			Format:     m.parent.format,
		}
		if m.parent.parent != nil {
			pw.Manifest = m.parent.parent.encodeWire()
		}
		w.Parent = pw
	}
	return w
}

// Decode reconstructs a manifest (and, recursively, its ingredient
// snapshots) from wire form. Only structural problems fail here;
// semantic validity is re-checked by the store, which reports
// assertion violations as statuses instead of refusing to parse.
func Decode(w *Wire) (*Manifest, error) {
	if w == nil {
		return nil, fmt.Errorf("manifest: nil wire record")
	}
	m := &Manifest{
		claimGenerator: w.ClaimGenerator,
		title:          w.Title,
		format:         w.Format,
		instanceID:     w.InstanceID,
		label:          w.Label,
		contentDigest:  w.ContentDigest,
		signature:      w.Signature,
	}
	for i, rec := range w.Assertions {
		a, err := assertion.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("manifest: assertion %d: %w", i, err)
		}
		m.assertions = append(m.assertions, a)
	}
	if w.Parent != nil {
		ing := &Ingredient{
			instanceID: w.Parent.InstanceID,
			title:      w.Parent.Title,
			format:     w.Parent.Format,
		}
		if w.Parent.Manifest != nil {
			parent, err := Decode(w.Parent.Manifest)
			if err != nil {
				return nil, fmt.Errorf("manifest: parent: %w", err)
			}
			ing.parent = parent
		}
		m.parent = ing
	}
	return m, nil
}
