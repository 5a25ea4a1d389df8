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

// Package memtable is the in-process table backend: rows live in memory
// and predicates are evaluated row by row. It is the reference
// implementation of the tablevet.Table contract and the backend the
// engine tests run against.
package memtable

import (
	"context"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/tablevet/tablevet"
)

type Table struct {
	name   string
	schema tablevet.Schema
	rows   []map[string]any
}

// New builds an in-memory table. Rows are column-name to value maps; a
// missing key or a nil value both read as null. Rows are not copied;
// callers must not mutate them afterwards.
func New(name string, schema tablevet.Schema, rows []map[string]any) *Table {
	normalized := make([]map[string]any, len(rows))
	for i, row := range rows {
		if rowHasAll(row, schema) {
			normalized[i] = row
			continue
		}
		full := make(map[string]any, len(schema))
		for _, c := range schema {
			full[c.Name] = row[c.Name]
		}
		normalized[i] = full
	}
	return &Table{name: name, schema: schema, rows: normalized}
}

func rowHasAll(row map[string]any, schema tablevet.Schema) bool {
	for _, c := range schema {
		if _, ok := row[c.Name]; !ok {
			return false
		}
	}
	return true
}

func (t *Table) Name() string { return t.name }

func (t *Table) Schema(ctx context.Context) (tablevet.Schema, error) {
	out := make(tablevet.Schema, len(t.schema))
	copy(out, t.schema)
	return out, nil
}

func (t *Table) RowCount(ctx context.Context) (int64, error) {
	return int64(len(t.rows)), nil
}

func (t *Table) TestCounts(ctx context.Context, pred tablevet.Predicate, naPass bool) (tablevet.Counts, error) {
	counts := tablevet.Counts{N: int64(len(t.rows))}
	for _, row := range t.rows {
		res, err := tablevet.EvalPredicate(row, pred)
		if err != nil {
			return tablevet.Counts{}, err
		}
		if res == tablevet.TriPass || (res == tablevet.TriNA && naPass) {
			counts.Passed++
		}
	}
	return counts, nil
}

func (t *Table) Filter(ctx context.Context, pred tablevet.Predicate) (tablevet.Table, error) {
	var kept []map[string]any
	for _, row := range t.rows {
		res, err := tablevet.EvalPredicate(row, pred)
		if err != nil {
			return nil, err
		}
		if res == tablevet.TriPass {
			kept = append(kept, row)
		}
	}
	return &Table{name: t.name, schema: t.schema, rows: kept}, nil
}

func (t *Table) Derive(ctx context.Context, name string, expr tablevet.Expr) (tablevet.Table, error) {
	if t.schema.HasColumn(name) {
		return nil, fmt.Errorf("column %q already exists", name)
	}

	rows := make([]map[string]any, len(t.rows))
	var sample any
	for i, row := range t.rows {
		v, err := tablevet.EvalExpr(row, expr)
		if err != nil {
			return nil, err
		}
		dup := make(map[string]any, len(row)+1)
		for k, val := range row {
			dup[k] = val
		}
		dup[name] = v
		rows[i] = dup
		if sample == nil {
			sample = v
		}
	}

	schema := make(tablevet.Schema, len(t.schema), len(t.schema)+1)
	copy(schema, t.schema)
	schema = append(schema, tablevet.Column{Name: name, Type: inferType(sample)})

	return &Table{name: t.name, schema: schema, rows: rows}, nil
}

func (t *Table) DistinctValues(ctx context.Context, column string) ([]any, error) {
	if !t.schema.HasColumn(column) {
		return nil, fmt.Errorf("column %q not found", column)
	}
	var out []any
	seen := map[any]bool{}
	for _, row := range t.rows {
		v := row[column]
		if v == nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

func (t *Table) DistinctRowCount(ctx context.Context, columns []string) (int64, error) {
	cols, err := t.scopeColumns(columns)
	if err != nil {
		return 0, err
	}
	seen := map[uint64]bool{}
	for _, row := range t.rows {
		seen[compositeKey(row, cols)] = true
	}
	return int64(len(seen)), nil
}

func (t *Table) CompleteRowCount(ctx context.Context, columns []string) (int64, error) {
	cols, err := t.scopeColumns(columns)
	if err != nil {
		return 0, err
	}
	var complete int64
	for _, row := range t.rows {
		ok := true
		for _, c := range cols {
			if row[c] == nil {
				ok = false
				break
			}
		}
		if ok {
			complete++
		}
	}
	return complete, nil
}

func (t *Table) FailingRows(ctx context.Context, pred tablevet.Predicate, naPass bool, limit int) ([]map[string]any, error) {
	var out []map[string]any
	for _, row := range t.rows {
		res, err := tablevet.EvalPredicate(row, pred)
		if err != nil {
			return nil, err
		}
		failed := res == tablevet.TriFail || (res == tablevet.TriNA && !naPass)
		if !failed {
			continue
		}
		dup := make(map[string]any, len(row))
		for k, v := range row {
			dup[k] = v
		}
		out = append(out, dup)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (t *Table) scopeColumns(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return t.schema.Names(), nil
	}
	for _, c := range columns {
		if !t.schema.HasColumn(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	return columns, nil
}

// compositeKey hashes the row's values over the scope columns into one
// comparable key. Null and the empty string hash differently.
func compositeKey(row map[string]any, columns []string) uint64 {
	h := xxh3.New()
	for _, c := range columns {
		v := row[c]
		if v == nil {
			h.WriteString("\x00<null>")
		} else {
			fmt.Fprintf(h, "\x00%T:%v", v, v)
		}
	}
	return h.Sum64()
}

func inferType(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE"
	case string:
		return "VARCHAR"
	case bool:
		return "BOOLEAN"
	case time.Time:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}
