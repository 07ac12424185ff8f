// Package assertion models the typed facts a manifest carries:
// authorship (CreativeWork), edit actions, embedded metadata such as
// Exif, and arbitrary labeled application data. Assertions are
// immutable once constructed; their required-field rules are
// re-runnable so a reader can re-check extracted manifests.
package assertion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/tracemark/internal/canonical"
	"github.com/roach88/tracemark/internal/schema"
)

// Kind discriminates assertion variants.
type Kind string

const (
	KindCreativeWork Kind = "creative_work"
	KindActions      Kind = "actions"
	KindMetadata     Kind = "metadata"
	KindCustom       Kind = "custom"
)

// Well-known assertion labels, following the c2pa naming used by the
// broader provenance ecosystem.
const (
	LabelCreativeWork = "stds.schema-org.CreativeWork"
	LabelActions      = "c2pa.actions"
	LabelExif         = "stds.exif"

	// CredentialLabelPrefix marks verifiable-credential payloads.
	// Containers refuse to embed these; see container.Embed.
	CredentialLabelPrefix = "credentials/"
)

// Assertion is one typed, labeled fact. Construction validates the
// variant's required fields; the value is immutable afterwards.
type Assertion struct {
	kind   Kind
	label  string
	data   map[string]any
	schema *schema.Schema // Custom only, optional
}

// Person identifies an author on a CreativeWork assertion
// (schema.org Person: name plus a stable identifier).
type Person struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// NewCreativeWork builds an authorship assertion. Every author needs a
// non-empty name and identifier, and at least one author is required.
func NewCreativeWork(authors ...Person) (*Assertion, error) {
	if len(authors) == 0 {
		return nil, &FieldError{Kind: KindCreativeWork, Field: "authors", Message: "at least one author is required"}
	}
	authorList := make([]any, len(authors))
	for i, author := range authors {
		if strings.TrimSpace(author.Name) == "" {
			return nil, &FieldError{Kind: KindCreativeWork, Field: fmt.Sprintf("authors[%d].name", i), Message: "must be non-empty"}
		}
		if strings.TrimSpace(author.Identifier) == "" {
			return nil, &FieldError{Kind: KindCreativeWork, Field: fmt.Sprintf("authors[%d].identifier", i), Message: "must be non-empty"}
		}
		authorList[i] = map[string]any{
			"@type":      "Person",
			"name":       author.Name,
			"identifier": author.Identifier,
		}
	}
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "CreativeWork",
		"author":   authorList,
	}
	return &Assertion{kind: KindCreativeWork, label: LabelCreativeWork, data: data}, nil
}

// NewMetadata builds an embedded-metadata assertion under the given
// label. The payload must be JSON-serializable and non-empty.
func NewMetadata(label string, payload map[string]any) (*Assertion, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &FieldError{Kind: KindMetadata, Field: "label", Message: "must be non-empty"}
	}
	if len(payload) == 0 {
		return nil, &FieldError{Kind: KindMetadata, Field: "payload", Message: "must be non-empty"}
	}
	data, err := snapshotPayload(payload)
	if err != nil {
		return nil, &FieldError{Kind: KindMetadata, Field: "payload", Message: err.Error()}
	}
	return &Assertion{kind: KindMetadata, label: label, data: data}, nil
}

// snapshotPayload deep-copies a payload into canonical shape and
// verifies it can be canonically marshaled, so floats and other
// non-deterministic values are rejected at construction rather than at
// signing time.
func snapshotPayload(v any) (map[string]any, error) {
	data, err := canonical.Roundtrip(v)
	if err != nil {
		return nil, err
	}
	if _, err := canonical.Marshal(data); err != nil {
		return nil, err
	}
	return data, nil
}

// NewExif parses raw Exif JSON (the XMP-style export used by capture
// tooling) into a metadata assertion labeled stds.exif.
func NewExif(raw []byte) (*Assertion, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &FieldError{Kind: KindMetadata, Field: "payload", Message: "invalid Exif JSON: " + err.Error()}
	}
	return NewMetadata(LabelExif, payload)
}

// CustomOption configures a custom assertion.
type CustomOption func(*customConfig)

type customConfig struct {
	schema *schema.Schema
}

// WithSchema attaches a CUE schema; the payload is validated against it
// at construction and again whenever the assertion is re-validated.
func WithSchema(s *schema.Schema) CustomOption {
	return func(c *customConfig) { c.schema = s }
}

// NewCustom builds an application-data assertion under a caller-chosen
// label. The data may be any JSON-serializable value; it is snapshotted
// so later mutation of the source never changes the assertion.
func NewCustom(label string, data any, opts ...CustomOption) (*Assertion, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &FieldError{Kind: KindCustom, Field: "label", Message: "must be non-empty"}
	}
	payload, err := snapshotPayload(data)
	if err != nil {
		return nil, &FieldError{Kind: KindCustom, Field: "data", Message: err.Error()}
	}
	if len(payload) == 0 {
		return nil, &FieldError{Kind: KindCustom, Field: "data", Message: "must be non-empty"}
	}

	cfg := customConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	a := &Assertion{kind: KindCustom, label: label, data: payload, schema: cfg.schema}
	if cfg.schema != nil {
		if err := cfg.schema.Validate(payload); err != nil {
			return nil, &FieldError{Kind: KindCustom, Field: "data", Message: err.Error()}
		}
	}
	return a, nil
}

// Kind returns the assertion's variant.
func (a *Assertion) Kind() Kind { return a.kind }

// Label returns the assertion's label, unique within one manifest.
func (a *Assertion) Label() string { return a.label }

// Data returns a deep copy of the payload. The assertion's own copy is
// never handed out, preserving immutability.
func (a *Assertion) Data() map[string]any {
	copied, err := canonical.Roundtrip(a.data)
	if err != nil {
		// data was canonicalized at construction; re-encoding it
		// cannot fail
		panic(fmt.Sprintf("assertion: payload no longer serializable: %v", err))
	}
	return copied
}

// CanonicalBytes returns the payload as RFC 8785 canonical JSON, the
// form claim digests are computed over.
func (a *Assertion) CanonicalBytes() ([]byte, error) {
	return canonical.Marshal(a.data)
}

// IsCredential reports whether the assertion carries a verifiable
// credential, which containers refuse to embed.
func (a *Assertion) IsCredential() bool {
	return strings.HasPrefix(a.label, CredentialLabelPrefix)
}

// Validate re-runs the variant's required-field rules. Readers call
// this on extracted assertions; failures are reported as statuses, so
// parsing never depends on validity.
func (a *Assertion) Validate() error {
	switch a.kind {
	case KindCreativeWork:
		return validateCreativeWork(a.data)
	case KindActions:
		return validateActions(a.data)
	case KindMetadata, KindCustom:
		if len(a.data) == 0 {
			return &FieldError{Kind: a.kind, Field: "payload", Message: "must be non-empty"}
		}
		if a.schema != nil {
			if err := a.schema.Validate(a.data); err != nil {
				return &FieldError{Kind: a.kind, Field: "data", Message: err.Error()}
			}
		}
		return nil
	default:
		return &FieldError{Kind: a.kind, Field: "kind", Message: "unknown assertion kind"}
	}
}

func validateCreativeWork(data map[string]any) error {
	authors, ok := data["author"].([]any)
	if !ok || len(authors) == 0 {
		return &FieldError{Kind: KindCreativeWork, Field: "author", Message: "at least one author is required"}
	}
	for i, entry := range authors {
		author, ok := entry.(map[string]any)
		if !ok {
			return &FieldError{Kind: KindCreativeWork, Field: fmt.Sprintf("author[%d]", i), Message: "must be an object"}
		}
		for _, field := range []string{"name", "identifier"} {
			s, _ := author[field].(string)
			if strings.TrimSpace(s) == "" {
				return &FieldError{Kind: KindCreativeWork, Field: fmt.Sprintf("author[%d].%s", i, field), Message: "must be non-empty"}
			}
		}
	}
	return nil
}

// Record is the serialized form of an assertion, used by the container
// wire format. Data holds the canonical JSON payload bytes: carrying
// bytes rather than a decoded map keeps number representation exact
// across JSON and CBOR transports. Decoding does not validate; readers
// re-validate explicitly and report failures as statuses.
type Record struct {
	Kind  Kind            `json:"kind"`
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data"`
}

// Encode snapshots the assertion for serialization.
func (a *Assertion) Encode() Record {
	data, err := a.CanonicalBytes()
	if err != nil {
		// payloads are canonical-checked at construction
		panic(fmt.Sprintf("assertion: payload no longer canonical: %v", err))
	}
	return Record{Kind: a.kind, Label: a.label, Data: data}
}

// Decode reconstructs an assertion from its serialized form.
func Decode(r Record) (*Assertion, error) {
	if strings.TrimSpace(r.Label) == "" {
		return nil, &FieldError{Kind: r.Kind, Field: "label", Message: "must be non-empty"}
	}
	dec := json.NewDecoder(strings.NewReader(string(r.Data)))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, &FieldError{Kind: r.Kind, Field: "data", Message: "invalid payload JSON: " + err.Error()}
	}
	return &Assertion{kind: r.Kind, label: r.Label, data: data}, nil
}
