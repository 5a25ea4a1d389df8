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

import "regexp"

// The append operations below add planned steps. Structural problems
// (duplicate step ids, malformed sets, bad regex patterns) are rejected
// here, at build time; anything that depends on the table (unresolvable
// columns, failing preconditions) is deferred to interrogation and
// captured on the step.
//
// A literal multi-column selector fans out into one step per column, each
// with its own index i, all sharing one expansion group. Pattern selectors
// stay a single planned step and fan out at interrogation, the expanded
// rows then share the planned step's i.

func (a *Agent) compareStep(t AssertionType, columns ColumnSelector, value Operand, opts *StepOptions) error {
	steps, err := stepsPerColumn(t, columns)
	if err != nil {
		return err
	}
	for _, s := range steps {
		v := value
		s.Value = &v
	}
	return a.appendSteps(steps, opts)
}

// ColValsGT checks every value of the selected columns against value with
// a strict greater-than.
func (a *Agent) ColValsGT(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsGT, columns, value, opts)
}

func (a *Agent) ColValsGTE(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsGTE, columns, value, opts)
}

func (a *Agent) ColValsLT(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsLT, columns, value, opts)
}

func (a *Agent) ColValsLTE(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsLTE, columns, value, opts)
}

func (a *Agent) ColValsEqual(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsEqual, columns, value, opts)
}

func (a *Agent) ColValsNotEqual(columns ColumnSelector, value Operand, opts *StepOptions) error {
	return a.compareStep(AssertColValsNotEqual, columns, value, opts)
}

func (a *Agent) betweenStep(t AssertionType, columns ColumnSelector, left, right Operand, inclusive [2]bool, opts *StepOptions) error {
	steps, err := stepsPerColumn(t, columns)
	if err != nil {
		return err
	}
	for _, s := range steps {
		l, r := left, right
		s.Left = &l
		s.Right = &r
		s.Inclusive = inclusive
	}
	return a.appendSteps(steps, opts)
}

// ColValsBetween checks that values lie between left and right; the two
// inclusive flags control whether each bound itself passes.
func (a *Agent) ColValsBetween(columns ColumnSelector, left, right Operand, inclusive [2]bool, opts *StepOptions) error {
	return a.betweenStep(AssertColValsBetween, columns, left, right, inclusive, opts)
}

func (a *Agent) ColValsNotBetween(columns ColumnSelector, left, right Operand, inclusive [2]bool, opts *StepOptions) error {
	return a.betweenStep(AssertColValsNotBetween, columns, left, right, inclusive, opts)
}

func (a *Agent) setStep(t AssertionType, columns ColumnSelector, set []any, opts *StepOptions) error {
	if len(set) == 0 {
		return configErrorf("%s requires a non-empty set", t)
	}
	steps, err := stepsPerColumn(t, columns)
	if err != nil {
		return err
	}
	for _, s := range steps {
		s.Set = set
	}
	return a.appendSteps(steps, opts)
}

// ColValsInSet checks per-row membership of values in set.
func (a *Agent) ColValsInSet(columns ColumnSelector, set []any, opts *StepOptions) error {
	return a.setStep(AssertColValsInSet, columns, set, opts)
}

func (a *Agent) ColValsNotInSet(columns ColumnSelector, set []any, opts *StepOptions) error {
	return a.setStep(AssertColValsNotInSet, columns, set, opts)
}

// ColValsMakeSet checks that every element of set appears in the column at
// least once and that no foreign value appears. Test units: one per
// required element plus one reserved "no foreign values" unit.
func (a *Agent) ColValsMakeSet(columns ColumnSelector, set []any, opts *StepOptions) error {
	return a.setStep(AssertColValsMakeSet, columns, set, opts)
}

// ColValsMakeSubset is ColValsMakeSet without the foreign-value unit: only
// presence of each required element is checked.
func (a *Agent) ColValsMakeSubset(columns ColumnSelector, set []any, opts *StepOptions) error {
	return a.setStep(AssertColValsMakeSubset, columns, set, opts)
}

// ColValsRegex checks string values against an RE2 pattern. The pattern is
// compiled here so a malformed one fails at build time.
func (a *Agent) ColValsRegex(columns ColumnSelector, pattern string, opts *StepOptions) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return configErrorf("invalid regex pattern %q: %v", pattern, err)
	}
	steps, err := stepsPerColumn(AssertColValsRegex, columns)
	if err != nil {
		return err
	}
	for _, s := range steps {
		s.Pattern = pattern
	}
	return a.appendSteps(steps, opts)
}

// ColValsNull checks that every value of the selected columns is missing.
func (a *Agent) ColValsNull(columns ColumnSelector, opts *StepOptions) error {
	steps, err := stepsPerColumn(AssertColValsNull, columns)
	if err != nil {
		return err
	}
	return a.appendSteps(steps, opts)
}

func (a *Agent) ColValsNotNull(columns ColumnSelector, opts *StepOptions) error {
	steps, err := stepsPerColumn(AssertColValsNotNull, columns)
	if err != nil {
		return err
	}
	return a.appendSteps(steps, opts)
}

// ColValsExpr checks an arbitrary row-wise predicate; one test unit per
// row, trusted as-is.
func (a *Agent) ColValsExpr(pred Predicate, opts *StepOptions) error {
	if pred == nil {
		return configErrorf("col_vals_expr requires a predicate")
	}
	s := &ValidationStep{Assertion: AssertColValsExpr, Predicate: pred}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// Conjointly composes row-wise sub-predicates with a logical AND per row:
// a row passes only when every sub-predicate passes.
func (a *Agent) Conjointly(preds []Predicate, opts *StepOptions) error {
	if len(preds) == 0 {
		return configErrorf("conjointly requires at least one predicate")
	}
	s := &ValidationStep{Assertion: AssertConjointly, Predicates: preds}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// ColExists checks column presence; one test unit per selected column
// step.
func (a *Agent) ColExists(columns ColumnSelector, opts *StepOptions) error {
	steps, err := stepsPerColumn(AssertColExists, columns)
	if err != nil {
		return err
	}
	return a.appendSteps(steps, opts)
}

func (a *Agent) colIsStep(t AssertionType, columns ColumnSelector, opts *StepOptions) error {
	steps, err := stepsPerColumn(t, columns)
	if err != nil {
		return err
	}
	return a.appendSteps(steps, opts)
}

func (a *Agent) ColIsNumeric(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsNumeric, columns, opts)
}

func (a *Agent) ColIsInteger(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsInteger, columns, opts)
}

func (a *Agent) ColIsString(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsString, columns, opts)
}

func (a *Agent) ColIsBoolean(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsBoolean, columns, opts)
}

func (a *Agent) ColIsDate(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsDate, columns, opts)
}

func (a *Agent) ColIsTimestamp(columns ColumnSelector, opts *StepOptions) error {
	return a.colIsStep(AssertColIsTimestamp, columns, opts)
}

// RowsDistinct checks that no composite value over the scope columns
// appears twice; one test unit. A nil scope means all columns.
func (a *Agent) RowsDistinct(scope ColumnSelector, opts *StepOptions) error {
	s := &ValidationStep{Assertion: AssertRowsDistinct, Columns: scope}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// RowsComplete checks that no row has a missing value in the scope
// columns; one test unit. A nil scope means all columns.
func (a *Agent) RowsComplete(scope ColumnSelector, opts *StepOptions) error {
	s := &ValidationStep{Assertion: AssertRowsComplete, Columns: scope}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// ColSchemaMatch compares the table's actual schema against the declared
// one; one test unit.
func (a *Agent) ColSchemaMatch(expected *ExpectedSchema, opts *StepOptions) error {
	if expected == nil || len(expected.Columns) == 0 {
		return configErrorf("col_schema_match requires a declared schema with columns")
	}
	s := &ValidationStep{Assertion: AssertColSchemaMatch, Expected: expected}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// Specially runs an arbitrary user check; its units are trusted as-is.
func (a *Agent) Specially(fn SpecialFn, opts *StepOptions) error {
	if fn == nil {
		return configErrorf("specially requires a check function")
	}
	s := &ValidationStep{Assertion: AssertSpecially, Special: fn}
	return a.appendSteps([]*ValidationStep{s}, opts)
}

// stepsPerColumn fans a literal column list out into one step per name;
// any other selector stays deferred on a single step.
func stepsPerColumn(t AssertionType, columns ColumnSelector) ([]*ValidationStep, error) {
	if columns == nil {
		return nil, configErrorf("%s requires a column selector", t)
	}
	if lit, ok := columns.(Cols); ok {
		if len(lit) == 0 {
			return nil, configErrorf("%s requires at least one column name", t)
		}
		steps := make([]*ValidationStep, 0, len(lit))
		for _, name := range lit {
			if name == "" {
				return nil, configErrorf("%s: empty column name", t)
			}
			steps = append(steps, &ValidationStep{Assertion: t, Column: name, Columns: Cols{name}})
		}
		return steps, nil
	}
	return []*ValidationStep{{Assertion: t, Columns: columns}}, nil
}
