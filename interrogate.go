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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Interrogate executes every planned step, in ascending i order, against
// the agent's table. It always runs the full plan: table-dependent
// failures (unresolvable columns, failing preconditions, execution errors)
// are captured on the affected step and never abort sibling steps. Only a
// failing action callback propagates, as a DispatchError.
//
// Re-interrogating re-executes the entire plan from the planned specs; all
// previous results are discarded.
func (a *Agent) Interrogate(ctx context.Context) error {
	base := a.tbl
	if base == nil {
		var err error
		base, err = a.provider(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire table: %w", err)
		}
	}

	a.runID = uuid.NewString()
	a.startedAt = time.Now()
	a.endedAt = time.Time{}
	a.results = nil
	a.interrogated = false

	a.logger.Debug("starting interrogation",
		"run_id", a.runID,
		"label", a.label,
		"planned_steps", len(a.plan))

	for _, planned := range a.plan {
		rows, err := a.runStep(ctx, base, planned)
		a.results = append(a.results, rows...)
		if err != nil {
			a.endedAt = time.Now()
			return err
		}
	}

	a.endedAt = time.Now()
	a.interrogated = true

	a.logger.Debug("interrogation complete",
		"run_id", a.runID,
		"steps", len(a.results),
		"duration_ms", a.endedAt.Sub(a.startedAt).Milliseconds())

	return nil
}

// runStep materializes and executes one planned step: preconditions,
// active gate, column resolution, segment expansion, then one execution
// per resolved column x segment. The returned error is non-nil only for a
// dispatch failure.
func (a *Agent) runStep(ctx context.Context, base Table, planned *ValidationStep) ([]*ValidationStep, error) {
	startTime := time.Now()

	a.logger.Debug("executing validation step",
		"step_id", planned.StepID,
		"assertion", string(planned.Assertion))

	view := base
	if planned.Preconditions != nil {
		transformed, err := planned.Preconditions.Apply(ctx, base)
		if err != nil {
			return a.erroredRows(planned, &TransformError{Stage: "preconditions", Err: err}), nil
		}
		view = transformed
	}

	// the active gate sees the resolved (post-precondition) table
	active, err := planned.Active.isActive(ctx, view)
	if err != nil {
		return a.erroredRows(planned, &ExecutionError{Op: "active rule", Err: err}), nil
	}
	if !active {
		row := planned.clone()
		row.ActiveNow = false
		a.stamp(row, startTime)
		return []*ValidationStep{row}, nil
	}

	columns, err := a.resolveStepColumns(ctx, view, planned)
	if err != nil {
		return a.erroredRows(planned, err), nil
	}

	segments, err := expandSegments(ctx, view, planned.Segments)
	if err != nil {
		return a.erroredRows(planned, &TransformError{Stage: "segments", Err: err}), nil
	}

	var rows []*ValidationStep
	var dispatchErr error
	for _, col := range columns {
		for _, seg := range segments {
			row := planned.clone()
			row.Column = col
			row.SegmentLabel = seg.label
			if !seg.observed {
				row.Warning = fmt.Sprintf("segment %q not observed in table; empty subset", seg.label)
			}

			a.executeStep(ctx, row, seg.table)
			a.stamp(row, startTime)

			if dispatchErr == nil {
				dispatchErr = a.classifyAndDispatch(ctx, row)
			}

			rows = append(rows, row)
			if dispatchErr != nil {
				return rows, dispatchErr
			}
		}
	}

	a.logger.Debug("step completed",
		"step_id", planned.StepID,
		"rows", len(rows),
		"duration_ms", time.Since(startTime).Milliseconds())

	return rows, nil
}

// resolveStepColumns resolves the step's deferred column selector against
// the post-precondition schema. Steps without a per-column fan-out get a
// single empty-name entry; their scope columns (rows_distinct,
// rows_complete) are resolved inside executeStep.
func (a *Agent) resolveStepColumns(ctx context.Context, view Table, planned *ValidationStep) ([]string, error) {
	if !planned.Assertion.columnBound() {
		return []string{""}, nil
	}

	// col_exists must not fail resolution for literal names: absence is
	// precisely what the step tests
	if planned.Assertion == AssertColExists {
		if lit, ok := planned.Columns.(Cols); ok {
			return lit, nil
		}
	}

	schema, err := view.Schema(ctx)
	if err != nil {
		return nil, &ExecutionError{Op: "fetch schema", Err: err}
	}

	columns, err := ResolveColumns(planned.Columns, schema)
	if err != nil {
		return nil, err
	}

	if planned.Assertion.rowWise() {
		// cross-column operand references resolve against the same schema
		for _, ref := range operandColumns(planned) {
			if !schema.HasColumn(ref) {
				return nil, &ResolutionError{
					Selector: fmt.Sprintf("column reference %q", ref),
					Err:      fmt.Errorf("column not found in table schema"),
				}
			}
		}
	}

	return columns, nil
}

// executeStep runs the assertion against one materialized column/segment
// pair and writes the result fields. Failures are captured on the row.
func (a *Agent) executeStep(ctx context.Context, row *ValidationStep, t Table) {
	switch row.Assertion {
	case AssertColValsGT, AssertColValsGTE, AssertColValsLT, AssertColValsLTE,
		AssertColValsEqual, AssertColValsNotEqual,
		AssertColValsBetween, AssertColValsNotBetween,
		AssertColValsInSet, AssertColValsNotInSet,
		AssertColValsRegex, AssertColValsNull, AssertColValsNotNull,
		AssertColValsExpr, AssertConjointly:
		a.execRowWise(ctx, row, t)

	case AssertColValsMakeSet:
		a.execMakeSet(ctx, row, t, false)
	case AssertColValsMakeSubset:
		a.execMakeSet(ctx, row, t, true)

	case AssertColExists:
		a.execColExists(ctx, row, t)
	case AssertColIsNumeric:
		a.execColIs(ctx, row, t, ClassNumeric)
	case AssertColIsInteger:
		a.execColIs(ctx, row, t, ClassInteger)
	case AssertColIsString:
		a.execColIs(ctx, row, t, ClassString)
	case AssertColIsBoolean:
		a.execColIs(ctx, row, t, ClassBoolean)
	case AssertColIsDate:
		a.execColIs(ctx, row, t, ClassDate)
	case AssertColIsTimestamp:
		a.execColIs(ctx, row, t, ClassTimestamp)

	case AssertRowsDistinct:
		a.execRowsDistinct(ctx, row, t)
	case AssertRowsComplete:
		a.execRowsComplete(ctx, row, t)
	case AssertColSchemaMatch:
		a.execSchemaMatch(ctx, row, t)
	case AssertSpecially:
		a.execSpecially(ctx, row, t)

	default:
		row.Error = (&ExecutionError{
			Op:  "dispatch",
			Err: fmt.Errorf("unknown assertion type %q", row.Assertion),
		}).Error()
	}
}

func (a *Agent) execRowWise(ctx context.Context, row *ValidationStep, t Table) {
	pred, err := buildPredicate(row)
	if err != nil {
		row.Error = err.Error()
		return
	}

	counts, err := t.TestCounts(ctx, pred, row.NAPass)
	if err != nil {
		row.Error = (&ExecutionError{Op: string(row.Assertion), Err: err}).Error()
		return
	}

	setCounts(row, counts.N, counts.Passed)
	if row.NFailed > 0 {
		row.extractTable = t
		row.extractPred = pred
	}
}

// execMakeSet scores one unit per required element (present at least once
// in the column) and, unless relaxed, a reserved extra unit that passes
// only when no value outside the set was observed.
func (a *Agent) execMakeSet(ctx context.Context, row *ValidationStep, t Table, relaxed bool) {
	observed, err := t.DistinctValues(ctx, row.Column)
	if err != nil {
		row.Error = (&ExecutionError{Op: string(row.Assertion), Err: err}).Error()
		return
	}

	var n, passed int64
	for _, required := range row.Set {
		n++
		if containsValue(observed, required) {
			passed++
		}
	}
	if !relaxed {
		n++
		foreignFree := true
		for _, v := range observed {
			if !containsValue(row.Set, v) {
				foreignFree = false
				break
			}
		}
		if foreignFree {
			passed++
		}
	}

	setCounts(row, n, passed)
}

func (a *Agent) execColExists(ctx context.Context, row *ValidationStep, t Table) {
	schema, err := t.Schema(ctx)
	if err != nil {
		row.Error = (&ExecutionError{Op: "fetch schema", Err: err}).Error()
		return
	}
	setUnitResult(row, schema.HasColumn(row.Column))
}

func (a *Agent) execColIs(ctx context.Context, row *ValidationStep, t Table, want TypeClass) {
	schema, err := t.Schema(ctx)
	if err != nil {
		row.Error = (&ExecutionError{Op: "fetch schema", Err: err}).Error()
		return
	}
	dbType, ok := schema.ColumnType(row.Column)
	if !ok {
		row.Error = (&ResolutionError{
			Selector: fmt.Sprintf("column %q", row.Column),
			Err:      fmt.Errorf("column not found in table schema"),
		}).Error()
		return
	}
	setUnitResult(row, TypeClassOf(dbType) == want)
}

func (a *Agent) execRowsDistinct(ctx context.Context, row *ValidationStep, t Table) {
	scope, err := a.resolveScope(ctx, row, t)
	if err != nil {
		row.Error = err.Error()
		return
	}
	total, err := t.RowCount(ctx)
	if err != nil {
		row.Error = (&ExecutionError{Op: "rows_distinct", Err: err}).Error()
		return
	}
	distinct, err := t.DistinctRowCount(ctx, scope)
	if err != nil {
		row.Error = (&ExecutionError{Op: "rows_distinct", Err: err}).Error()
		return
	}
	setUnitResult(row, distinct == total)
}

func (a *Agent) execRowsComplete(ctx context.Context, row *ValidationStep, t Table) {
	scope, err := a.resolveScope(ctx, row, t)
	if err != nil {
		row.Error = err.Error()
		return
	}
	total, err := t.RowCount(ctx)
	if err != nil {
		row.Error = (&ExecutionError{Op: "rows_complete", Err: err}).Error()
		return
	}
	complete, err := t.CompleteRowCount(ctx, scope)
	if err != nil {
		row.Error = (&ExecutionError{Op: "rows_complete", Err: err}).Error()
		return
	}
	setUnitResult(row, complete == total)
}

func (a *Agent) resolveScope(ctx context.Context, row *ValidationStep, t Table) ([]string, error) {
	if row.Columns == nil {
		return nil, nil // all columns
	}
	schema, err := t.Schema(ctx)
	if err != nil {
		return nil, &ExecutionError{Op: "fetch schema", Err: err}
	}
	return ResolveColumns(row.Columns, schema)
}

func (a *Agent) execSchemaMatch(ctx context.Context, row *ValidationStep, t Table) {
	schema, err := t.Schema(ctx)
	if err != nil {
		row.Error = (&ExecutionError{Op: "fetch schema", Err: err}).Error()
		return
	}
	if err := row.Expected.Match(schema); err != nil {
		row.Warning = err.Error()
		setUnitResult(row, false)
		return
	}
	setUnitResult(row, true)
}

func (a *Agent) execSpecially(ctx context.Context, row *ValidationStep, t Table) {
	result, err := row.Special(ctx, t)
	if err != nil {
		row.Error = (&ExecutionError{Op: "specially", Err: err}).Error()
		return
	}
	var passed int64
	for _, unit := range result.Units {
		if unit {
			passed++
		}
	}
	setCounts(row, int64(len(result.Units)), passed)
}

// classifyAndDispatch compares the row's failure metrics against its
// thresholds and invokes the action handler once per firing tier, in the
// order notify, warn, stop. Errored rows are never classified.
func (a *Agent) classifyAndDispatch(ctx context.Context, row *ValidationStep) error {
	if row.Errored() || !row.Evaluated {
		return nil
	}

	actions := row.Actions
	if actions == nil {
		actions = a.defaultActions
	}
	notify, warn, stop := actions.classify(row.NFailed, row.FFailed)
	row.Notify = &notify
	row.Warn = &warn
	row.Stop = &stop

	if a.handler == nil {
		return nil
	}
	for _, tier := range []struct {
		severity Severity
		fired    bool
	}{
		{SeverityNotify, notify},
		{SeverityWarn, warn},
		{SeverityStop, stop},
	} {
		if !tier.fired {
			continue
		}
		actx := ActionContext{
			I:         row.I,
			StepID:    row.StepID,
			Segment:   row.SegmentLabel,
			Assertion: row.Assertion,
			Brief:     row.Brief,
			Severity:  tier.severity,
			N:         row.N,
			NFailed:   row.NFailed,
			FFailed:   row.FFailed,
		}
		if err := a.handler(ctx, actx); err != nil {
			return &DispatchError{StepID: row.StepID, Severity: tier.severity, Err: err}
		}
	}
	return nil
}

func (a *Agent) erroredRows(planned *ValidationStep, cause error) []*ValidationStep {
	row := planned.clone()
	row.Error = cause.Error()
	a.stamp(row, time.Now())
	a.logger.Debug("step errored",
		"step_id", row.StepID,
		"error", row.Error)
	return []*ValidationStep{row}
}

func (a *Agent) stamp(row *ValidationStep, startTime time.Time) {
	row.RunID = a.runID
	row.Time = time.Now()
	row.DurationMs = time.Since(startTime).Milliseconds()
}

// buildPredicate turns a row-wise step spec into its predicate AST.
func buildPredicate(row *ValidationStep) (Predicate, error) {
	switch row.Assertion {
	case AssertColValsGT:
		return Compare{Column: row.Column, Op: OpGT, Operand: *row.Value}, nil
	case AssertColValsGTE:
		return Compare{Column: row.Column, Op: OpGTE, Operand: *row.Value}, nil
	case AssertColValsLT:
		return Compare{Column: row.Column, Op: OpLT, Operand: *row.Value}, nil
	case AssertColValsLTE:
		return Compare{Column: row.Column, Op: OpLTE, Operand: *row.Value}, nil
	case AssertColValsEqual:
		return Compare{Column: row.Column, Op: OpEQ, Operand: *row.Value}, nil
	case AssertColValsNotEqual:
		return Compare{Column: row.Column, Op: OpNE, Operand: *row.Value}, nil
	case AssertColValsBetween, AssertColValsNotBetween:
		return Between{
			Column:  row.Column,
			Low:     *row.Left,
			High:    *row.Right,
			IncLow:  row.Inclusive[0],
			IncHigh: row.Inclusive[1],
			Negate:  row.Assertion == AssertColValsNotBetween,
		}, nil
	case AssertColValsInSet:
		return InSet{Column: row.Column, Set: row.Set}, nil
	case AssertColValsNotInSet:
		return InSet{Column: row.Column, Set: row.Set, Negate: true}, nil
	case AssertColValsRegex:
		return RegexMatch{Column: row.Column, Pattern: row.Pattern}, nil
	case AssertColValsNull:
		return NullCheck{Column: row.Column}, nil
	case AssertColValsNotNull:
		return NullCheck{Column: row.Column, Negate: true}, nil
	case AssertColValsExpr:
		return row.Predicate, nil
	case AssertConjointly:
		return And{Preds: row.Predicates}, nil
	}
	return nil, &ExecutionError{
		Op:  "build predicate",
		Err: fmt.Errorf("assertion %q is not row-wise", row.Assertion),
	}
}

// operandColumns lists the cross-column references of a step's parameters.
func operandColumns(s *ValidationStep) []string {
	var out []string
	add := func(o *Operand) {
		if o != nil && o.IsColumn() {
			out = append(out, o.Column)
		}
	}
	add(s.Value)
	add(s.Left)
	add(s.Right)
	return out
}

// setCounts aggregates a pass count into the step's result fields. An
// empty unit vector is a vacuous pass, never a division error.
func setCounts(row *ValidationStep, n, passed int64) {
	row.Evaluated = true
	row.N = n
	row.NPassed = passed
	row.NFailed = n - passed
	if n == 0 {
		row.FPassed = 1
		row.FFailed = 0
	} else {
		row.FPassed = float64(passed) / float64(n)
		row.FFailed = float64(n-passed) / float64(n)
	}
	allPassed := row.NFailed == 0
	row.AllPassed = &allPassed
}

func setUnitResult(row *ValidationStep, pass bool) {
	if pass {
		setCounts(row, 1, 1)
	} else {
		setCounts(row, 1, 0)
	}
}

func containsValue(values []any, v any) bool {
	for _, elem := range values {
		if cmp, err := compareValues(elem, v); err == nil && cmp == 0 {
			return true
		}
	}
	return false
}
