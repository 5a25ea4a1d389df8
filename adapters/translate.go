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

package adapters

import (
	"fmt"
	"strings"

	"github.com/tablevet/tablevet"
)

// TranslatePredicate compiles a predicate AST into a SQL boolean
// expression. SQL's three-valued logic carries the engine's NA semantics
// for free: a comparison against NULL yields NULL, and the count queries
// score NULL outcomes per the step's na_pass policy.
func TranslatePredicate(d Dialect, p tablevet.Predicate) (string, error) {
	switch pred := p.(type) {
	case tablevet.Compare:
		operand, err := translateOperand(d, pred.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", d.QuoteIdent(pred.Column), sqlOp(pred.Op), operand), nil

	case tablevet.Between:
		low, err := translateOperand(d, pred.Low)
		if err != nil {
			return "", err
		}
		high, err := translateOperand(d, pred.High)
		if err != nil {
			return "", err
		}
		col := d.QuoteIdent(pred.Column)
		lowOp, highOp := ">", "<"
		if pred.IncLow {
			lowOp = ">="
		}
		if pred.IncHigh {
			highOp = "<="
		}
		inside := fmt.Sprintf("(%s %s %s AND %s %s %s)", col, lowOp, low, col, highOp, high)
		if pred.Negate {
			return fmt.Sprintf("(NOT %s)", inside), nil
		}
		return inside, nil

	case tablevet.InSet:
		elems := make([]string, 0, len(pred.Set))
		for _, v := range pred.Set {
			lit, err := d.Literal(v)
			if err != nil {
				return "", err
			}
			elems = append(elems, lit)
		}
		op := "IN"
		if pred.Negate {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", d.QuoteIdent(pred.Column), op, strings.Join(elems, ", ")), nil

	case tablevet.RegexMatch:
		return d.RegexExpr(d.QuoteIdent(pred.Column), pred.Pattern)

	case tablevet.NullCheck:
		if pred.Negate {
			return fmt.Sprintf("%s IS NOT NULL", d.QuoteIdent(pred.Column)), nil
		}
		return fmt.Sprintf("%s IS NULL", d.QuoteIdent(pred.Column)), nil

	case tablevet.And:
		parts := make([]string, 0, len(pred.Preds))
		for _, sub := range pred.Preds {
			s, err := TranslatePredicate(d, sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+s+")")
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil

	case tablevet.ExprCompare:
		left, err := TranslateExpr(d, pred.Left)
		if err != nil {
			return "", err
		}
		right, err := TranslateExpr(d, pred.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, sqlOp(pred.Op), right), nil

	default:
		return "", fmt.Errorf("cannot translate predicate type %T", p)
	}
}

// TranslateExpr compiles an arithmetic expression AST into SQL.
func TranslateExpr(d Dialect, e tablevet.Expr) (string, error) {
	switch expr := e.(type) {
	case tablevet.ColumnExpr:
		return d.QuoteIdent(expr.Name), nil
	case tablevet.LiteralExpr:
		return d.Literal(expr.Value)
	case tablevet.BinaryExpr:
		switch expr.Op {
		case "+", "-", "*", "/":
		default:
			return "", fmt.Errorf("unknown arithmetic operator %q", expr.Op)
		}
		left, err := TranslateExpr(d, expr.Left)
		if err != nil {
			return "", err
		}
		right, err := TranslateExpr(d, expr.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, expr.Op, right), nil
	default:
		return "", fmt.Errorf("cannot translate expression type %T", e)
	}
}

func translateOperand(d Dialect, o tablevet.Operand) (string, error) {
	if o.IsColumn() {
		return d.QuoteIdent(o.Column), nil
	}
	return d.Literal(o.Literal)
}

func sqlOp(op tablevet.CompareOp) string {
	switch op {
	case tablevet.OpEQ:
		return "="
	case tablevet.OpNE:
		return "<>"
	default:
		return string(op)
	}
}
