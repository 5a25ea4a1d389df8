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

import "fmt"

// Operand is one side of a row-wise comparison: either a literal value or
// a reference to another column of the same row. Exactly one of the two is
// set; use Lit or ColRef to construct.
type Operand struct {
	Literal any    `json:"literal,omitempty"`
	Column  string `json:"column,omitempty"`
}

// Lit wraps a literal comparison value.
func Lit(v any) Operand { return Operand{Literal: v} }

// ColRef references another column; the comparison is then evaluated
// row-wise against that column's value.
func ColRef(name string) Operand { return Operand{Column: name} }

func (o Operand) IsColumn() bool { return o.Column != "" }

func (o Operand) String() string {
	if o.IsColumn() {
		return fmt.Sprintf("column %q", o.Column)
	}
	return fmt.Sprintf("%v", o.Literal)
}

// Expr is a small arithmetic expression over row values, used by derived
// precondition columns and by col_vals_expr predicates. It is an
// inspectable AST so SQL backends can translate it instead of evaluating
// in process.
type Expr interface {
	exprNode()
	String() string
}

type ColumnExpr struct {
	Name string
}

type LiteralExpr struct {
	Value any
}

// BinaryExpr applies Op ("+", "-", "*", "/") to two sub-expressions.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (ColumnExpr) exprNode()  {}
func (LiteralExpr) exprNode() {}
func (BinaryExpr) exprNode()  {}

func (e ColumnExpr) String() string  { return e.Name }
func (e LiteralExpr) String() string { return fmt.Sprintf("%v", e.Value) }
func (e BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op, e.Right.String())
}

// Col and Val are shorthand Expr constructors.
func Col(name string) Expr { return ColumnExpr{Name: name} }
func Val(v any) Expr       { return LiteralExpr{Value: v} }
