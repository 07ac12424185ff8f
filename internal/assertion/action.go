package assertion

import (
	"fmt"
	"strings"
	"time"
)

// Well-known action types. The vocabulary is open: unknown types are
// always accepted, these are just the identifiers tooling agrees on.
const (
	ActionCreated          = "c2pa.created"
	ActionOpened           = "c2pa.opened"
	ActionEdited           = "c2pa.edited"
	ActionCropped          = "c2pa.cropped"
	ActionFiltered         = "c2pa.filtered"
	ActionColorAdjustments = "c2pa.color_adjustments"
	ActionPlaced           = "c2pa.placed"
	ActionResized          = "c2pa.resized"
)

// Digital source type URIs (IPTC NewsCodes vocabulary) classifying
// where an action's output came from.
const (
	SourceTypeDigitalCapture  = "https://cv.iptc.org/newscodes/digitalsourcetype/digitalCapture"
	SourceTypeMinorHumanEdits = "https://cv.iptc.org/newscodes/digitalsourcetype/minorHumanEdits"
)

// Action is one recorded creation or edit step.
type Action struct {
	Type          string         `json:"action"`
	When          string         `json:"when"`
	SoftwareAgent string         `json:"softwareAgent,omitempty"`
	SourceType    string         `json:"digitalSourceType,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// ActionOption sets optional fields on a recorded action.
type ActionOption func(*Action)

// WithSourceType classifies the provenance origin of the action.
func WithSourceType(uri string) ActionOption {
	return func(a *Action) { a.SourceType = uri }
}

// WithReason records why the action was taken.
func WithReason(reason string) ActionOption {
	return func(a *Action) { a.Reason = reason }
}

// WithParameter attaches one named parameter. May be repeated.
func WithParameter(key string, value any) ActionOption {
	return func(a *Action) {
		if a.Parameters == nil {
			a.Parameters = map[string]any{}
		}
		a.Parameters[key] = value
	}
}

// Ledger accumulates actions before they are attached to a manifest as
// a single actions assertion. Append-only: a recorded action can never
// be removed or restamped. Not safe for concurrent writers; the owner
// serializes access, matching the single-writer discipline of manifest
// assembly.
type Ledger struct {
	softwareAgent string
	actions       []Action
	now           func() time.Time
	lastWhen      time.Time
}

// NewLedger creates an empty ledger. Every recorded action carries the
// given software agent string.
func NewLedger(softwareAgent string) *Ledger {
	return &Ledger{softwareAgent: softwareAgent, now: time.Now}
}

// Record appends an action stamped with the current time (RFC 3339,
// UTC). Stamps are monotonically non-decreasing within one ledger even
// if the wall clock steps backward. Returns the appended action.
func (l *Ledger) Record(actionType string, opts ...ActionOption) (Action, error) {
	if strings.TrimSpace(actionType) == "" {
		return Action{}, &FieldError{Kind: KindActions, Field: "action", Message: "must be non-empty"}
	}

	when := l.now().UTC()
	if when.Before(l.lastWhen) {
		when = l.lastWhen
	}
	l.lastWhen = when

	act := Action{
		Type:          actionType,
		When:          when.Format(time.RFC3339),
		SoftwareAgent: l.softwareAgent,
	}
	for _, opt := range opts {
		opt(&act)
	}

	if act.Parameters != nil {
		params, err := snapshotPayload(act.Parameters)
		if err != nil {
			return Action{}, &FieldError{Kind: KindActions, Field: "parameters", Message: err.Error()}
		}
		act.Parameters = params
	}

	l.actions = append(l.actions, act)
	return act, nil
}

// Len returns the number of recorded actions.
func (l *Ledger) Len() int { return len(l.actions) }

// Actions returns a copy of the recorded actions in order.
func (l *Ledger) Actions() []Action {
	out := make([]Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Assertion freezes the ledger's contents into an actions assertion
// labeled c2pa.actions. Fails if nothing has been recorded. The ledger
// itself stays usable; the assertion is an independent snapshot.
func (l *Ledger) Assertion() (*Assertion, error) {
	if len(l.actions) == 0 {
		return nil, &FieldError{Kind: KindActions, Field: "actions", Message: "at least one action is required"}
	}
	data, err := snapshotPayload(map[string]any{"actions": l.actions})
	if err != nil {
		return nil, &FieldError{Kind: KindActions, Field: "actions", Message: err.Error()}
	}
	return &Assertion{kind: KindActions, label: LabelActions, data: data}, nil
}

func validateActions(data map[string]any) error {
	actions, ok := data["actions"].([]any)
	if !ok || len(actions) == 0 {
		return &FieldError{Kind: KindActions, Field: "actions", Message: "at least one action is required"}
	}
	for i, entry := range actions {
		act, ok := entry.(map[string]any)
		if !ok {
			return &FieldError{Kind: KindActions, Field: fmt.Sprintf("actions[%d]", i), Message: "must be an object"}
		}
		typ, _ := act["action"].(string)
		if strings.TrimSpace(typ) == "" {
			return &FieldError{Kind: KindActions, Field: fmt.Sprintf("actions[%d].action", i), Message: "must be non-empty"}
		}
		// Unknown action types are fine; a malformed timestamp is not.
		if when, ok := act["when"].(string); ok && when != "" {
			if _, err := time.Parse(time.RFC3339, when); err != nil {
				return &FieldError{Kind: KindActions, Field: fmt.Sprintf("actions[%d].when", i), Message: "must be RFC 3339"}
			}
		}
	}
	return nil
}
