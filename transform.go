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
)

// TableTransform is a table-to-table expression used as a step
// precondition. It is applied to a fresh view of the base table
// immediately before the step's check, so its effect is scoped to the one
// step and never leaks to siblings.
type TableTransform interface {
	Apply(ctx context.Context, t Table) (Table, error)
}

// FilterRows keeps only rows where the predicate holds.
type FilterRows struct {
	Pred Predicate
}

func (f FilterRows) Apply(ctx context.Context, t Table) (Table, error) {
	return t.Filter(ctx, f.Pred)
}

// DeriveColumn adds a computed column; later selectors and checks may
// reference it by name.
type DeriveColumn struct {
	Name string
	Expr Expr
}

func (d DeriveColumn) Apply(ctx context.Context, t Table) (Table, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("derived column requires a name")
	}
	return t.Derive(ctx, d.Name, d.Expr)
}

// TransformChain applies transforms in order.
type TransformChain []TableTransform

func (c TransformChain) Apply(ctx context.Context, t Table) (Table, error) {
	out := t
	var err error
	for _, step := range c {
		out, err = step.Apply(ctx, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TransformFunc adapts an arbitrary function to TableTransform.
type TransformFunc func(ctx context.Context, t Table) (Table, error)

func (f TransformFunc) Apply(ctx context.Context, t Table) (Table, error) {
	return f(ctx, t)
}

// SegmentSpec splits the (post-precondition) table into independent
// row-subsets, one per value. With a nil Values list the distinct values
// observed in the column at interrogation time define the segments; with
// an explicit list, every listed value yields a segment even when it is
// not observed (that segment is then empty but valid).
type SegmentSpec struct {
	Column string `json:"column"`
	Values []any  `json:"values,omitempty"`
}

type segment struct {
	label    string
	observed bool
	table    Table
}

// expandSegments materializes the row-subsets for one step. Specs
// contribute segments in order; no specs means a single unlabeled segment
// over the whole table.
func expandSegments(ctx context.Context, t Table, specs []SegmentSpec) ([]segment, error) {
	if len(specs) == 0 {
		return []segment{{table: t, observed: true}}, nil
	}

	var out []segment
	for _, spec := range specs {
		values := spec.Values
		discovered := values == nil
		if discovered {
			var err error
			values, err = t.DistinctValues(ctx, spec.Column)
			if err != nil {
				return nil, err
			}
		}
		for _, v := range values {
			sub, err := t.Filter(ctx, Compare{Column: spec.Column, Op: OpEQ, Operand: Lit(v)})
			if err != nil {
				return nil, err
			}
			observed := discovered
			if !discovered {
				n, err := sub.RowCount(ctx)
				if err != nil {
					return nil, err
				}
				observed = n > 0
			}
			out = append(out, segment{
				label:    fmt.Sprintf("%s = %v", spec.Column, v),
				observed: observed,
				table:    sub,
			})
		}
	}
	return out, nil
}
