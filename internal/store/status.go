package store

// Code identifies a validation outcome. The set is closed; callers
// switch on it to render diagnostics.
type Code string

const (
	// CodeOk marks an explicitly clean check (informational).
	CodeOk Code = "ok"
	// CodeContentTampered: asset bytes no longer match the digest a
	// manifest was bound to.
	CodeContentTampered Code = "content.tampered"
	// CodeSignatureInvalid: a manifest's signature is missing, does
	// not verify, or its certificate is untrusted.
	CodeSignatureInvalid Code = "signature.invalid"
	// CodeAssertionMalformed: an assertion fails its variant's
	// required-field rules.
	CodeAssertionMalformed Code = "assertion.malformed"
	// CodeCyclicChainDetected: parent links revisit an instance ID.
	CodeCyclicChainDetected Code = "chain.cyclic"
)

// Severity classifies a status.
type Severity string

const (
	SeverityError         Severity = "error"
	SeverityInformational Severity = "informational"
)

// Status is one validation finding. ManifestLabel names the affected
// manifest; AssertionLabel is set only for assertion-level findings.
type Status struct {
	Code           Code     `json:"code"`
	ManifestLabel  string   `json:"manifest_label,omitempty"`
	AssertionLabel string   `json:"assertion_label,omitempty"`
	Severity       Severity `json:"severity"`
	Explanation    string   `json:"explanation,omitempty"`
}
