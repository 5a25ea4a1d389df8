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
	"fmt"
	"regexp"
	"time"
)

// CompareOp is a row-wise comparison operator.
type CompareOp string

const (
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpEQ  CompareOp = "=="
	OpNE  CompareOp = "!="
)

// Predicate is the inspectable row-wise check AST. In-process backends
// evaluate it with EvalPredicate; SQL backends walk it and emit query
// fragments. Evaluation is tri-state: a missing operand yields TriNA, and
// the step's na_pass policy decides how TriNA is scored.
type Predicate interface {
	predicateNode()
	String() string
}

// Compare checks one column against a literal or another column.
type Compare struct {
	Column  string
	Op      CompareOp
	Operand Operand
}

// Between checks a column against two bounds with independently
// configurable inclusivity. Negate turns it into not_between.
type Between struct {
	Column  string
	Low     Operand
	High    Operand
	IncLow  bool
	IncHigh bool
	Negate  bool
}

// InSet checks per-row set membership. Negate turns it into not_in_set.
type InSet struct {
	Column string
	Set    []any
	Negate bool
}

// RegexMatch checks a string column against an RE2 pattern.
type RegexMatch struct {
	Column  string
	Pattern string
}

// NullCheck passes on null values; with Negate it passes on non-null.
// Never yields TriNA: nullness itself is the check.
type NullCheck struct {
	Column string
	Negate bool
}

// And passes only where every sub-predicate passes (conjointly).
type And struct {
	Preds []Predicate
}

// ExprCompare compares two arithmetic expressions row-wise (col_vals_expr).
type ExprCompare struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

func (Compare) predicateNode()     {}
func (Between) predicateNode()     {}
func (InSet) predicateNode()       {}
func (RegexMatch) predicateNode()  {}
func (NullCheck) predicateNode()   {}
func (And) predicateNode()         {}
func (ExprCompare) predicateNode() {}

func (p Compare) String() string {
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, p.Operand)
}

func (p Between) String() string {
	name := "between"
	if p.Negate {
		name = "not_between"
	}
	return fmt.Sprintf("%s %s [%s, %s]", p.Column, name, p.Low, p.High)
}

func (p InSet) String() string {
	name := "in_set"
	if p.Negate {
		name = "not_in_set"
	}
	return fmt.Sprintf("%s %s %v", p.Column, name, p.Set)
}

func (p RegexMatch) String() string {
	return fmt.Sprintf("%s matches %q", p.Column, p.Pattern)
}

func (p NullCheck) String() string {
	if p.Negate {
		return fmt.Sprintf("%s is not null", p.Column)
	}
	return fmt.Sprintf("%s is null", p.Column)
}

func (p And) String() string {
	out := "conjointly("
	for i, sub := range p.Preds {
		if i > 0 {
			out += " AND "
		}
		out += sub.String()
	}
	return out + ")"
}

func (p ExprCompare) String() string {
	return fmt.Sprintf("%s %s %s", p.Left.String(), p.Op, p.Right.String())
}

// TriState is the outcome of evaluating a predicate on one row.
type TriState int8

const (
	TriNA TriState = iota
	TriPass
	TriFail
)

func triOf(b bool) TriState {
	if b {
		return TriPass
	}
	return TriFail
}

// EvalPredicate evaluates a predicate against one row, given as a
// column-name to value map with nil for missing values.
func EvalPredicate(row map[string]any, p Predicate) (TriState, error) {
	switch pred := p.(type) {
	case Compare:
		v := row[pred.Column]
		o, err := operandValue(row, pred.Operand)
		if err != nil {
			return TriFail, err
		}
		if v == nil || o == nil {
			return TriNA, nil
		}
		cmp, err := compareValues(v, o)
		if err != nil {
			return TriFail, err
		}
		return triOf(applyOp(cmp, pred.Op)), nil

	case Between:
		v := row[pred.Column]
		low, err := operandValue(row, pred.Low)
		if err != nil {
			return TriFail, err
		}
		high, err := operandValue(row, pred.High)
		if err != nil {
			return TriFail, err
		}
		if v == nil || low == nil || high == nil {
			return TriNA, nil
		}
		cmpLow, err := compareValues(v, low)
		if err != nil {
			return TriFail, err
		}
		cmpHigh, err := compareValues(v, high)
		if err != nil {
			return TriFail, err
		}
		inside := (cmpLow > 0 || (pred.IncLow && cmpLow == 0)) &&
			(cmpHigh < 0 || (pred.IncHigh && cmpHigh == 0))
		return triOf(inside != pred.Negate), nil

	case InSet:
		v := row[pred.Column]
		if v == nil {
			return TriNA, nil
		}
		member := false
		for _, elem := range pred.Set {
			if cmp, err := compareValues(v, elem); err == nil && cmp == 0 {
				member = true
				break
			}
		}
		return triOf(member != pred.Negate), nil

	case RegexMatch:
		v := row[pred.Column]
		if v == nil {
			return TriNA, nil
		}
		s, ok := v.(string)
		if !ok {
			return TriFail, fmt.Errorf("regex check on non-string value %v (%T)", v, v)
		}
		re, err := regexp.Compile(pred.Pattern)
		if err != nil {
			return TriFail, err
		}
		return triOf(re.MatchString(s)), nil

	case NullCheck:
		isNull := row[pred.Column] == nil
		return triOf(isNull != pred.Negate), nil

	case And:
		sawNA := false
		for _, sub := range pred.Preds {
			res, err := EvalPredicate(row, sub)
			if err != nil {
				return TriFail, err
			}
			switch res {
			case TriFail:
				return TriFail, nil
			case TriNA:
				sawNA = true
			}
		}
		if sawNA {
			return TriNA, nil
		}
		return TriPass, nil

	case ExprCompare:
		left, err := EvalExpr(row, pred.Left)
		if err != nil {
			return TriFail, err
		}
		right, err := EvalExpr(row, pred.Right)
		if err != nil {
			return TriFail, err
		}
		if left == nil || right == nil {
			return TriNA, nil
		}
		cmp, err := compareValues(left, right)
		if err != nil {
			return TriFail, err
		}
		return triOf(applyOp(cmp, pred.Op)), nil

	default:
		return TriFail, fmt.Errorf("unknown predicate type %T", p)
	}
}

// EvalExpr evaluates an arithmetic expression against one row. A missing
// operand propagates as nil.
func EvalExpr(row map[string]any, e Expr) (any, error) {
	switch expr := e.(type) {
	case ColumnExpr:
		return row[expr.Name], nil
	case LiteralExpr:
		return expr.Value, nil
	case BinaryExpr:
		left, err := EvalExpr(row, expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := EvalExpr(row, expr.Right)
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return nil, nil
		}
		lf, ok := toFloat(left)
		if !ok {
			return nil, fmt.Errorf("non-numeric operand %v (%T) for %q", left, left, expr.Op)
		}
		rf, ok := toFloat(right)
		if !ok {
			return nil, fmt.Errorf("non-numeric operand %v (%T) for %q", right, right, expr.Op)
		}
		switch expr.Op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, nil
			}
			return lf / rf, nil
		default:
			return nil, fmt.Errorf("unknown arithmetic operator %q", expr.Op)
		}
	default:
		return nil, fmt.Errorf("unknown expression type %T", e)
	}
}

func operandValue(row map[string]any, o Operand) (any, error) {
	if !o.IsColumn() {
		return o.Literal, nil
	}
	// rows carry every schema column as a key (nil for null), so a missing
	// key means the referenced column does not exist at all
	v, ok := row[o.Column]
	if !ok {
		return nil, fmt.Errorf("referenced column %q not present in row", o.Column)
	}
	return v, nil
}

func applyOp(cmp int, op CompareOp) bool {
	switch op {
	case OpGT:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	case OpLT:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpEQ:
		return cmp == 0
	case OpNE:
		return cmp != 0
	}
	return false
}

// compareValues orders two scalar values, coercing across numeric widths.
// Returns <0, 0, >0 like strings.Compare, or an error for incomparable
// types.
func compareValues(a, b any) (int, error) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %T", b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare time with %T", b)
		}
		return av.Compare(bv), nil
	}

	return 0, fmt.Errorf("unsupported comparison between %T and %T", a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
