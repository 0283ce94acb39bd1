// Package errors provides the centralized structured error-report type used
// across every pipeline phase (spec.md §7), grounded on the teacher's
// internal/errors package: a tagged Report survives errors.As() unwrapping so
// callers can recover phase/code/span/data without string-matching messages.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sunholo/lily/internal/token"
)

// Schema is the fixed schema tag stamped on every Report.
const Schema = "lily.error/v1"

// Fix is an optional suggested remediation attached to a Report.
type Fix struct {
	Message     string `json:"message"`
	Replacement string `json:"replacement,omitempty"`
}

// Report is the canonical structured error/warning type for the pipeline.
type Report struct {
	Schema    string                 `json:"schema"`
	Code      string                 `json:"code"`
	Phase     string                 `json:"phase"`
	Message   string                 `json:"message"`
	Loc       *token.Location        `json:"loc,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Fix       *Fix                   `json:"fix,omitempty"`
	IsWarning bool                   `json:"is_warning,omitempty"`
}

// ReportError wraps a Report as a Go error.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts a *Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps r as an error. Returns nil if r is nil.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders the report as deterministic JSON, used by --dump-* machine
// output (spec.md §6).
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewGeneric wraps an arbitrary Go error from phase as a Report, for
// collaborator-surfaced failures (file I/O, linker, backend) that don't
// originate a structured code of their own.
func NewGeneric(phase string, err error) *Report {
	return &Report{Schema: Schema, Code: CodeRuntime, Phase: phase, Message: err.Error()}
}
