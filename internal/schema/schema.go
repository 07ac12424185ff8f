// Package schema validates custom assertion payloads against CUE
// schemas. Callers attach a schema to a labeled assertion; validation
// runs once at construction and again when a reader re-checks an
// extracted manifest.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// Schema is a compiled CUE schema. Safe for concurrent Validate calls.
type Schema struct {
	value cue.Value
}

// Compile parses CUE source into a Schema. The source should describe
// the expected payload shape, e.g.:
//
//	{
//		n:    int & >0
//		m:    int & >0
//		desc: string & !=""
//		ts:   int
//	}
func Compile(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, &CompileError{Detail: cueerrors.Details(err, nil)}
	}
	return &Schema{value: v}, nil
}

// Validate unifies the payload with the schema and requires the result
// to be concrete. All failing paths are collected, not just the first.
func (s *Schema) Validate(payload map[string]any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("schema: encode payload: %w", err)
	}

	// JSON is a subset of CUE, so the payload compiles directly.
	data := s.value.Context().CompileBytes(raw)
	if err := data.Err(); err != nil {
		return fmt.Errorf("schema: build payload value: %w", err)
	}

	unified := s.value.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		ve := &ValidateError{}
		for _, e := range cueerrors.Errors(err) {
			ve.Issues = append(ve.Issues, Issue{
				Path:    strings.Join(e.Path(), "."),
				Message: e.Error(),
			})
		}
		return ve
	}
	return nil
}

// CompileError reports an unparseable schema.
type CompileError struct {
	Detail string
}

func (e *CompileError) Error() string {
	return "schema: compile failed: " + e.Detail
}

// Issue is a single validation failure at a payload path.
type Issue struct {
	Path    string
	Message string
}

// ValidateError reports payload/schema mismatches. Issues holds every
// failing path so callers can render a complete diagnostic.
type ValidateError struct {
	Issues []Issue
}

func (e *ValidateError) Error() string {
	if len(e.Issues) == 0 {
		return "schema: payload does not satisfy schema"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Path != "" {
			parts[i] = issue.Path + ": " + issue.Message
		} else {
			parts[i] = issue.Message
		}
	}
	return "schema: " + strings.Join(parts, "; ")
}
