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
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tablevet/tablevet"
)

// SQLTable adapts a database-resident relation to the tablevet.Table
// contract. Filters and derived columns stack as nested subqueries, so
// every check runs as one aggregate query against the backend and no rows
// are pulled in process except for failing-row extracts.
type SQLTable struct {
	db      *sql.DB
	dialect Dialect
	name    string
	from    string // bare relation or a parenthesized subquery
	depth   int
	logger  *slog.Logger
}

// NewSQLTable wraps a relation (optionally schema-qualified, passed
// verbatim into FROM) behind the given dialect.
func NewSQLTable(db *sql.DB, dialect Dialect, relation string, logger *slog.Logger) *SQLTable {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &SQLTable{
		db:      db,
		dialect: dialect,
		name:    relation,
		from:    relation,
		logger:  logger,
	}
}

func (t *SQLTable) Name() string { return t.name }

func (t *SQLTable) derive(from string) *SQLTable {
	return &SQLTable{
		db:      t.db,
		dialect: t.dialect,
		name:    t.name,
		from:    from,
		depth:   t.depth + 1,
		logger:  t.logger,
	}
}

func (t *SQLTable) alias() string {
	return fmt.Sprintf("t%d", t.depth)
}

func (t *SQLTable) Schema(ctx context.Context) (tablevet.Schema, error) {
	query := fmt.Sprintf("SELECT * FROM %s AS %s WHERE 1 = 0", t.from, t.alias())
	t.logger.Debug("fetching schema", "backend", t.dialect.Name(), "query", query)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	schema := make(tablevet.Schema, 0, len(types))
	for _, ct := range types {
		schema = append(schema, tablevet.Column{
			Name: ct.Name(),
			Type: ct.DatabaseTypeName(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schema, nil
}

func (t *SQLTable) RowCount(ctx context.Context) (int64, error) {
	return t.queryCount(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s AS %s", t.from, t.alias()))
}

func (t *SQLTable) TestCounts(ctx context.Context, pred tablevet.Predicate, naPass bool) (tablevet.Counts, error) {
	p, err := TranslatePredicate(t.dialect, pred)
	if err != nil {
		return tablevet.Counts{}, err
	}

	na := 0
	if naPass {
		na = 1
	}
	query := fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN (%s) THEN 1 WHEN (%s) IS NULL THEN %d ELSE 0 END), 0) FROM %s AS %s",
		p, p, na, t.from, t.alias())

	t.logger.Debug("executing check query",
		"backend", t.dialect.Name(),
		"query", query)

	var counts tablevet.Counts
	if err := t.db.QueryRowContext(ctx, query).Scan(&counts.N, &counts.Passed); err != nil {
		return tablevet.Counts{}, fmt.Errorf("failed to execute check query: %w", err)
	}
	return counts, nil
}

func (t *SQLTable) Filter(ctx context.Context, pred tablevet.Predicate) (tablevet.Table, error) {
	p, err := TranslatePredicate(t.dialect, pred)
	if err != nil {
		return nil, err
	}
	from := fmt.Sprintf("(SELECT * FROM %s AS %s WHERE %s)", t.from, t.alias(), p)
	return t.derive(from), nil
}

func (t *SQLTable) Derive(ctx context.Context, name string, expr tablevet.Expr) (tablevet.Table, error) {
	e, err := TranslateExpr(t.dialect, expr)
	if err != nil {
		return nil, err
	}
	from := fmt.Sprintf("(SELECT *, %s AS %s FROM %s AS %s)",
		e, t.dialect.QuoteIdent(name), t.from, t.alias())
	return t.derive(from), nil
}

func (t *SQLTable) DistinctValues(ctx context.Context, column string) ([]any, error) {
	col := t.dialect.QuoteIdent(column)
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s AS %s WHERE %s IS NOT NULL ORDER BY %s",
		col, t.from, t.alias(), col, col)

	t.logger.Debug("fetching distinct values",
		"backend", t.dialect.Name(),
		"query", query)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch distinct values: %w", err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan distinct value: %w", err)
		}
		out = append(out, normalizeValue(v))
	}
	return out, rows.Err()
}

func (t *SQLTable) DistinctRowCount(ctx context.Context, columns []string) (int64, error) {
	cols, err := t.scopeColumns(ctx, columns)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM %s AS %s) AS d",
		strings.Join(cols, ", "), t.from, t.alias())
	return t.queryCount(ctx, query)
}

func (t *SQLTable) CompleteRowCount(ctx context.Context, columns []string) (int64, error) {
	cols, err := t.scopeColumns(ctx, columns)
	if err != nil {
		return 0, err
	}
	conds := make([]string, 0, len(cols))
	for _, c := range cols {
		conds = append(conds, c+" IS NOT NULL")
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s AS %s WHERE %s",
		t.from, t.alias(), strings.Join(conds, " AND "))
	return t.queryCount(ctx, query)
}

func (t *SQLTable) FailingRows(ctx context.Context, pred tablevet.Predicate, naPass bool, limit int) ([]map[string]any, error) {
	p, err := TranslatePredicate(t.dialect, pred)
	if err != nil {
		return nil, err
	}

	// NOT of an unknown outcome is unknown and is dropped by WHERE, so the
	// NULL-operand rows only appear when na_pass scores them as failing
	cond := fmt.Sprintf("(NOT (%s))", p)
	if !naPass {
		cond = fmt.Sprintf("%s OR ((%s) IS NULL)", cond, p)
	}
	query := fmt.Sprintf("SELECT * FROM %s AS %s WHERE %s", t.from, t.alias(), cond)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	t.logger.Debug("fetching failing rows",
		"backend", t.dialect.Name(),
		"query", query)

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch failing rows: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (t *SQLTable) scopeColumns(ctx context.Context, columns []string) ([]string, error) {
	if len(columns) == 0 {
		schema, err := t.Schema(ctx)
		if err != nil {
			return nil, err
		}
		columns = schema.Names()
	}
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		quoted = append(quoted, t.dialect.QuoteIdent(c))
	}
	return quoted, nil
}

func (t *SQLTable) queryCount(ctx context.Context, query string) (int64, error) {
	t.logger.Debug("executing count query",
		"backend", t.dialect.Name(),
		"query", query)

	var n int64
	if err := t.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}
	return n, nil
}

// normalizeValue folds driver-specific raw bytes into strings so extract
// rows and distinct values compare cleanly across backends.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
