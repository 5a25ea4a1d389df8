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

// Package tablevet is a declarative data-validation engine: an Agent holds
// an ordered plan of validation steps against one tabular source, executes
// the plan ("interrogation") and exposes structured per-step results.
package tablevet

import (
	"context"
	"strings"
)

// Column is one entry of a table schema. Type carries the backend's type
// name (e.g. "BIGINT", "Nullable(String)"); use TypeClassOf to compare
// types across backends.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Schema is the ordered column list of a table.
type Schema []Column

func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range s {
		names = append(names, c.Name)
	}
	return names
}

func (s Schema) HasColumn(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnType returns the backend type name of the named column.
func (s Schema) ColumnType(name string) (string, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Counts is the raw outcome of a row-wise check: N test units seen,
// Passed of them scored as passing (NA units already folded in according
// to the step's na_pass policy).
type Counts struct {
	N      int64
	Passed int64
}

// Table is the capability surface the step executor runs against. An
// in-process implementation evaluates predicates row by row; SQL-backed
// implementations compile them into query fragments. The executor never
// assumes rows can be iterated in process.
type Table interface {
	// Name identifies the underlying dataset (for logs and briefs).
	Name() string

	// Schema returns the current ordered column list, including columns
	// derived by earlier transforms.
	Schema(ctx context.Context) (Schema, error)

	// RowCount returns the number of rows in the current view.
	RowCount(ctx context.Context) (int64, error)

	// TestCounts evaluates a row-wise predicate over every row. A row where
	// the predicate is undecidable because an operand is missing counts as
	// passing iff naPass is true.
	TestCounts(ctx context.Context, pred Predicate, naPass bool) (Counts, error)

	// Filter returns a new view restricted to rows where pred holds. Rows
	// where pred is undecidable are excluded.
	Filter(ctx context.Context, pred Predicate) (Table, error)

	// Derive returns a new view with an additional computed column.
	Derive(ctx context.Context, name string, expr Expr) (Table, error)

	// DistinctValues returns the distinct non-null values of one column.
	DistinctValues(ctx context.Context, column string) ([]any, error)

	// DistinctRowCount counts distinct composite values over the given
	// columns (all columns when the list is empty).
	DistinctRowCount(ctx context.Context, columns []string) (int64, error)

	// CompleteRowCount counts rows with no missing value in the given
	// columns (all columns when the list is empty).
	CompleteRowCount(ctx context.Context, columns []string) (int64, error)

	// FailingRows returns up to limit rows where pred does not hold under
	// the given na policy, for failing-row extracts.
	FailingRows(ctx context.Context, pred Predicate, naPass bool, limit int) ([]map[string]any, error)
}

// TableProvider acquires the target table at interrogation time, so plans
// can be assembled before the table exists.
type TableProvider func(ctx context.Context) (Table, error)

type DataSourceType string

const (
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
	DataSourceTypeSqlite     DataSourceType = "sqlite"
)

type ConnectionConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Path     string `yaml:"path,omitempty"` // file path, sqlite only
}

type DataSource struct {
	Name          string           `yaml:"name"`
	Type          DataSourceType   `yaml:"type"`
	Configuration ConnectionConfig `yaml:"configuration"`
}

// TypeClass normalizes backend type names into coarse classes used by the
// col_is_* assertions.
type TypeClass int

const (
	ClassUnknown TypeClass = iota
	ClassInteger
	ClassNumeric
	ClassString
	ClassBoolean
	ClassDate
	ClassTimestamp
)

func (c TypeClass) String() string {
	switch c {
	case ClassInteger:
		return "integer"
	case ClassNumeric:
		return "numeric"
	case ClassString:
		return "string"
	case ClassBoolean:
		return "boolean"
	case ClassDate:
		return "date"
	case ClassTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

var typeClassNames = map[string]TypeClass{
	"int":       ClassInteger,
	"int8":      ClassInteger,
	"int16":     ClassInteger,
	"int32":     ClassInteger,
	"int64":     ClassInteger,
	"uint8":     ClassInteger,
	"uint16":    ClassInteger,
	"uint32":    ClassInteger,
	"uint64":    ClassInteger,
	"integer":   ClassInteger,
	"bigint":    ClassInteger,
	"smallint":  ClassInteger,
	"tinyint":   ClassInteger,
	"serial":    ClassInteger,
	"bigserial": ClassInteger,

	"float32":          ClassNumeric,
	"float64":          ClassNumeric,
	"float":            ClassNumeric,
	"double":           ClassNumeric,
	"double precision": ClassNumeric,
	"real":             ClassNumeric,
	"decimal":          ClassNumeric,
	"numeric":          ClassNumeric,

	"string":            ClassString,
	"text":              ClassString,
	"varchar":           ClassString,
	"char":              ClassString,
	"character":         ClassString,
	"character varying": ClassString,
	"fixedstring":       ClassString,

	"bool":    ClassBoolean,
	"boolean": ClassBoolean,

	"date":   ClassDate,
	"date32": ClassDate,

	"datetime":                    ClassTimestamp,
	"datetime64":                  ClassTimestamp,
	"timestamp":                   ClassTimestamp,
	"timestamptz":                 ClassTimestamp,
	"timestamp with time zone":    ClassTimestamp,
	"timestamp without time zone": ClassTimestamp,
}

// TypeClassOf maps a backend type name to its class. Wrappers like
// Nullable(...) / LowCardinality(...) and type parameters are stripped
// before the lookup.
func TypeClassOf(dbType string) TypeClass {
	name := normalizeTypeName(dbType)
	if class, ok := typeClassNames[name]; ok {
		return class
	}
	return ClassUnknown
}

func normalizeTypeName(dbType string) string {
	name := strings.ToLower(strings.TrimSpace(dbType))
	for _, wrapper := range []string{"nullable(", "lowcardinality("} {
		for strings.HasPrefix(name, wrapper) && strings.HasSuffix(name, ")") {
			name = strings.TrimSpace(name[len(wrapper) : len(name)-1])
		}
	}
	// strip length/precision parameters: varchar(255), decimal(10, 2)
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}
