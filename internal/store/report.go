package store

import (
	"encoding/json"
	"fmt"
	"io"
)

// Report is the caller-facing summary of a parsed store, shaped for
// both JSON output and text rendering.
type Report struct {
	ActiveLabel string           `json:"active_label"`
	Valid       bool             `json:"valid"`
	Statuses    []Status         `json:"statuses"`
	Manifests   []ReportManifest `json:"manifests"`
}

// ReportManifest summarizes one manifest, in embedding order.
type ReportManifest struct {
	Label            string   `json:"label"`
	Active           bool     `json:"active"`
	ClaimGenerator   string   `json:"claim_generator"`
	Title            string   `json:"title,omitempty"`
	Format           string   `json:"format,omitempty"`
	InstanceID       string   `json:"instance_id"`
	Assertions       []string `json:"assertions"`
	ParentInstanceID string   `json:"parent_instance_id,omitempty"`
	Signed           bool     `json:"signed"`
	Algorithm        string   `json:"algorithm,omitempty"`
}

// Report builds the summary. Slices are always non-nil so the JSON
// form renders [] rather than null.
func (s *Store) Report() Report {
	r := Report{
		ActiveLabel: s.activeLabel,
		Valid:       s.Valid(),
		Statuses:    make([]Status, 0, len(s.statuses)),
		Manifests:   make([]ReportManifest, 0, len(s.manifests)),
	}
	r.Statuses = append(r.Statuses, s.statuses...)

	for _, m := range s.manifests {
		rm := ReportManifest{
			Label:          m.Label(),
			Active:         m.Label() == s.activeLabel,
			ClaimGenerator: m.ClaimGenerator(),
			Title:          m.Title(),
			Format:         m.Format(),
			InstanceID:     m.InstanceID(),
			Assertions:     make([]string, 0, len(m.Assertions())),
			Signed:         m.Signed(),
		}
		for _, a := range m.Assertions() {
			rm.Assertions = append(rm.Assertions, a.Label())
		}
		if p := m.Parent(); p != nil {
			rm.ParentInstanceID = p.InstanceID()
		}
		if sig := m.Signature(); sig != nil {
			rm.Algorithm = string(sig.Algorithm)
		}
		r.Manifests = append(r.Manifests, rm)
	}
	return r
}

// Render writes the report as "text" or "json".
func (s *Store) Render(w io.Writer, format string) error {
	r := s.Report()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text":
		return renderText(w, r)
	default:
		return fmt.Errorf("store: unknown report format %q", format)
	}
}

func renderText(w io.Writer, r Report) error {
	if len(r.Statuses) > 0 {
		fmt.Fprintln(w, "validation statuses:")
		for _, st := range r.Statuses {
			fmt.Fprintf(w, "  [%s] %s", st.Severity, st.Code)
			if st.ManifestLabel != "" {
				fmt.Fprintf(w, " manifest=%s", st.ManifestLabel)
			}
			if st.AssertionLabel != "" {
				fmt.Fprintf(w, " assertion=%s", st.AssertionLabel)
			}
			if st.Explanation != "" {
				fmt.Fprintf(w, ": %s", st.Explanation)
			}
			fmt.Fprintln(w)
		}
	} else {
		fmt.Fprintln(w, "validation statuses: none")
	}

	fmt.Fprintf(w, "manifest store (%d manifests, active %s)\n", len(r.Manifests), r.ActiveLabel)
	for _, m := range r.Manifests {
		marker := " "
		if m.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, m.Label)
		fmt.Fprintf(w, "    claim generator: %s\n", m.ClaimGenerator)
		if m.Title != "" {
			fmt.Fprintf(w, "    title: %s\n", m.Title)
		}
		if m.Format != "" {
			fmt.Fprintf(w, "    format: %s\n", m.Format)
		}
		fmt.Fprintf(w, "    instance: %s\n", m.InstanceID)
		if m.ParentInstanceID != "" {
			fmt.Fprintf(w, "    parent: %s\n", m.ParentInstanceID)
		}
		for _, label := range m.Assertions {
			fmt.Fprintf(w, "    assertion: %s\n", label)
		}
		if m.Signed {
			fmt.Fprintf(w, "    signed: %s\n", m.Algorithm)
		}
	}
	return nil
}
