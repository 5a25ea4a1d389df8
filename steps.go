// Copyright 2026 The Tablevet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tablevet

import (
	"context"
	"time"
)

// AssertionType selects the check algorithm of a validation step. The set
// is closed; the interrogation executor dispatches over it exhaustively.
type AssertionType string

const (
	AssertColValsGT         AssertionType = "col_vals_gt"
	AssertColValsGTE        AssertionType = "col_vals_gte"
	AssertColValsLT         AssertionType = "col_vals_lt"
	AssertColValsLTE        AssertionType = "col_vals_lte"
	AssertColValsEqual      AssertionType = "col_vals_equal"
	AssertColValsNotEqual   AssertionType = "col_vals_not_equal"
	AssertColValsBetween    AssertionType = "col_vals_between"
	AssertColValsNotBetween AssertionType = "col_vals_not_between"
	AssertColValsInSet      AssertionType = "col_vals_in_set"
	AssertColValsNotInSet   AssertionType = "col_vals_not_in_set"
	AssertColValsMakeSet    AssertionType = "col_vals_make_set"
	AssertColValsMakeSubset AssertionType = "col_vals_make_subset"
	AssertColValsRegex      AssertionType = "col_vals_regex"
	AssertColValsNull       AssertionType = "col_vals_null"
	AssertColValsNotNull    AssertionType = "col_vals_not_null"
	AssertColValsExpr       AssertionType = "col_vals_expr"
	AssertColExists         AssertionType = "col_exists"
	AssertColIsNumeric      AssertionType = "col_is_numeric"
	AssertColIsInteger      AssertionType = "col_is_integer"
	AssertColIsString       AssertionType = "col_is_string"
	AssertColIsBoolean      AssertionType = "col_is_boolean"
	AssertColIsDate         AssertionType = "col_is_date"
	AssertColIsTimestamp    AssertionType = "col_is_timestamp"
	AssertRowsDistinct      AssertionType = "rows_distinct"
	AssertRowsComplete      AssertionType = "rows_complete"
	AssertColSchemaMatch    AssertionType = "col_schema_match"
	AssertConjointly        AssertionType = "conjointly"
	AssertSpecially         AssertionType = "specially"
)

// ActiveRule decides whether a step runs. The zero rule (nil pointer) is
// "always active". With Fn set, activity is decided lazily against the
// resolved table at interrogation time.
type ActiveRule struct {
	Value bool
	Fn    func(ctx context.Context, t Table) (bool, error)
}

func ActiveValue(v bool) *ActiveRule { return &ActiveRule{Value: v} }

func ActiveWhen(fn func(ctx context.Context, t Table) (bool, error)) *ActiveRule {
	return &ActiveRule{Fn: fn}
}

func (r *ActiveRule) isActive(ctx context.Context, t Table) (bool, error) {
	if r == nil {
		return true, nil
	}
	if r.Fn != nil {
		return r.Fn(ctx, t)
	}
	return r.Value, nil
}

// SpecialResult is what a specially check returns: one boolean per test
// unit. Use one element for a whole-table verdict.
type SpecialResult struct {
	Units []bool
}

// SpecialFn is an arbitrary user-supplied check; its result is trusted
// as-is.
type SpecialFn func(ctx context.Context, t Table) (SpecialResult, error)

// StepOptions carries the optional parameters shared by all append
// operations. A nil *StepOptions means all defaults.
type StepOptions struct {
	// StepID overrides the auto-assigned identifier; must be unique across
	// the plan (enforced at append).
	StepID string
	// Brief is a human-readable description of the step's intent; when
	// empty one is generated.
	Brief string
	// NAPass scores test units with a missing operand as passing instead
	// of failing.
	NAPass bool
	// Preconditions transforms a fresh view of the table before the check.
	Preconditions TableTransform
	// Segments splits the (post-precondition) table into independent
	// row-subsets, one materialized result row each.
	Segments []SegmentSpec
	// Actions overrides the agent-wide threshold configuration.
	Actions *Actions
	// Active gates execution; nil means active.
	Active *ActiveRule
}

// ValidationStep is one row of the plan. Parameter fields are set at
// append time (deferred references stay unresolved); result fields are
// written only by interrogation and stay unset until then.
type ValidationStep struct {
	I            int           `json:"i"`
	Group        int           `json:"group"` // append call this step expanded from
	StepID       string        `json:"step_id"`
	Assertion    AssertionType `json:"assertion_type"`
	Brief        string        `json:"brief,omitempty"`
	SegmentLabel string        `json:"segment,omitempty"`

	// Column holds the resolved column once known; Columns carries the
	// deferred selector until interrogation resolves it.
	Column  string         `json:"column,omitempty"`
	Columns ColumnSelector `json:"-"`

	Value     *Operand        `json:"value,omitempty"`
	Left      *Operand        `json:"left,omitempty"`
	Right     *Operand        `json:"right,omitempty"`
	Inclusive [2]bool         `json:"inclusive,omitempty"`
	Set       []any           `json:"set,omitempty"`
	Pattern   string          `json:"regex,omitempty"`
	Expected  *ExpectedSchema `json:"expected_schema,omitempty"`

	Predicate  Predicate   `json:"-"` // col_vals_expr
	Predicates []Predicate `json:"-"` // conjointly
	Special    SpecialFn   `json:"-"`

	NAPass        bool           `json:"na_pass,omitempty"`
	Preconditions TableTransform `json:"-"`
	Segments      []SegmentSpec  `json:"segments,omitempty"`
	Actions       *Actions       `json:"actions,omitempty"`
	Active        *ActiveRule    `json:"-"`
	ActiveNow     bool           `json:"active"`

	// Result fields, populated by interrogation.
	Evaluated  bool      `json:"evaluated"`
	N          int64     `json:"n"`
	NPassed    int64     `json:"n_passed"`
	NFailed    int64     `json:"n_failed"`
	FPassed    float64   `json:"f_passed"`
	FFailed    float64   `json:"f_failed"`
	AllPassed  *bool     `json:"all_passed,omitempty"`
	Notify     *bool     `json:"notify,omitempty"`
	Warn       *bool     `json:"warn,omitempty"`
	Stop       *bool     `json:"stop,omitempty"`
	Error      string    `json:"error,omitempty"`
	Warning    string    `json:"warning,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	Time       time.Time `json:"time,omitzero"`
	DurationMs int64     `json:"duration_ms,omitempty"`

	// Lazy failing-row extract state.
	extractTable  Table
	extractPred   Predicate
	extractLimit  int
	extractCached []map[string]any
	extractReady  bool
}

// Errored reports whether interrogation captured an error for this step
// instead of a result.
func (s *ValidationStep) Errored() bool { return s.Error != "" }

// HasExtract reports whether a failing-row extract can be fetched for this
// step (row-wise assertion with at least one failing unit).
func (s *ValidationStep) HasExtract() bool {
	return s.extractTable != nil && s.extractPred != nil
}

// Extract returns up to the configured cap of rows behind this step's
// failing test units. The subset is fetched on first use and cached.
func (s *ValidationStep) Extract(ctx context.Context) ([]map[string]any, error) {
	if s.extractReady {
		return s.extractCached, nil
	}
	if !s.HasExtract() {
		return nil, nil
	}
	rows, err := s.extractTable.FailingRows(ctx, s.extractPred, s.NAPass, s.extractLimit)
	if err != nil {
		return nil, &ExecutionError{Op: "collect failing rows", Err: err}
	}
	s.extractCached = rows
	s.extractReady = true
	return rows, nil
}

func (s *ValidationStep) resetResult() {
	s.SegmentLabel = ""
	s.Evaluated = false
	s.N, s.NPassed, s.NFailed = 0, 0, 0
	s.FPassed, s.FFailed = 0, 0
	s.AllPassed, s.Notify, s.Warn, s.Stop = nil, nil, nil, nil
	s.Error, s.Warning = "", ""
	s.RunID = ""
	s.Time = time.Time{}
	s.DurationMs = 0
	s.extractTable, s.extractPred = nil, nil
	s.extractCached, s.extractReady = nil, false
}

// clone copies the step spec without result state, for segment/column
// fan-out at interrogation time.
func (s *ValidationStep) clone() *ValidationStep {
	dup := *s
	dup.resetResult()
	return &dup
}

// rowWise reports whether the assertion produces one test unit per row.
func (t AssertionType) rowWise() bool {
	switch t {
	case AssertColValsGT, AssertColValsGTE, AssertColValsLT, AssertColValsLTE,
		AssertColValsEqual, AssertColValsNotEqual,
		AssertColValsBetween, AssertColValsNotBetween,
		AssertColValsInSet, AssertColValsNotInSet,
		AssertColValsRegex, AssertColValsNull, AssertColValsNotNull,
		AssertColValsExpr, AssertConjointly:
		return true
	}
	return false
}

// columnBound reports whether the assertion fans out per resolved column.
func (t AssertionType) columnBound() bool {
	switch t {
	case AssertColValsExpr, AssertConjointly, AssertSpecially,
		AssertRowsDistinct, AssertRowsComplete, AssertColSchemaMatch:
		return false
	}
	return true
}
