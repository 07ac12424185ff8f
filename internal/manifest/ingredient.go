package manifest

import (
	"strings"

	"github.com/google/uuid"
)

// Ingredient is an immutable snapshot reference to a prior asset
// version: the asset's instance ID plus, when that version carried
// provenance, an owned copy of its manifest. Chains form by each
// manifest holding an ingredient pointing at its predecessor.
type Ingredient struct {
	instanceID string
	title      string
	format     string
	parent     *Manifest
}

// IngredientOf snapshots a manifest into an ingredient. The copy is
// deep: the ingredient shares no state with the source, so mutating
// the live predecessor (or re-reading it) never retroactively changes
// the snapshot.
func IngredientOf(m *Manifest) (*Ingredient, error) {
	snapshot, err := Decode(m.Encode())
	if err != nil {
		return nil, err
	}
	return &Ingredient{
		instanceID: m.InstanceID(),
		title:      m.Title(),
		format:     m.Format(),
		parent:     snapshot,
	}, nil
}

// NewIngredient references an asset version that carries no manifest
// of its own (a first-generation source). A fresh instance ID is
// minted when none is supplied.
func NewIngredient(instanceID, title, format string) *Ingredient {
	if strings.TrimSpace(instanceID) == "" {
		instanceID = "xmp:iid:" + uuid.NewString()
	}
	return &Ingredient{instanceID: instanceID, title: title, format: format}
}

// InstanceID identifies the referenced asset version.
func (i *Ingredient) InstanceID() string { return i.instanceID }

// Title returns the referenced asset's title.
func (i *Ingredient) Title() string { return i.title }

// Format returns the referenced asset's MIME type.
func (i *Ingredient) Format() string { return i.format }

// ParentManifest returns the snapshotted manifest, nil when the
// referenced version carried no provenance.
func (i *Ingredient) ParentManifest() *Manifest { return i.parent }
