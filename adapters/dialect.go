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

// Package adapters provides SQL-backed implementations of the
// tablevet.Table contract. Row-wise predicates are compiled into query
// fragments and evaluated by the database, never iterated in process; the
// Dialect interface covers the syntax differences between backends.
package adapters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tablevet/tablevet"
)

// Dialect renders identifiers, literals and the few non-portable
// expressions for one SQL backend.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	Literal(v any) (string, error)
	// RegexExpr renders a regex-match over an already-quoted column
	// expression, or reports tablevet.ErrBackendUnsupported.
	RegexExpr(column, pattern string) (string, error)
}

var (
	Postgres   Dialect = postgresDialect{}
	Mysql      Dialect = mysqlDialect{}
	Sqlite     Dialect = sqliteDialect{}
	Clickhouse Dialect = clickhouseDialect{}
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgresql" }

func (postgresDialect) QuoteIdent(name string) string { return quoteDouble(name) }

func (d postgresDialect) Literal(v any) (string, error) {
	return literal(v, "TRUE", "FALSE", false)
}

func (d postgresDialect) RegexExpr(column, pattern string) (string, error) {
	pat, err := d.Literal(pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s ~ %s", column, pat), nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(name string) string { return quoteBacktick(name) }

func (d mysqlDialect) Literal(v any) (string, error) {
	return literal(v, "TRUE", "FALSE", true)
}

func (d mysqlDialect) RegexExpr(column, pattern string) (string, error) {
	pat, err := d.Literal(pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s REGEXP %s", column, pat), nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) QuoteIdent(name string) string { return quoteDouble(name) }

func (d sqliteDialect) Literal(v any) (string, error) {
	// sqlite has no boolean type
	return literal(v, "1", "0", false)
}

func (sqliteDialect) RegexExpr(column, pattern string) (string, error) {
	return "", fmt.Errorf("regex matching on sqlite: %w", tablevet.ErrBackendUnsupported)
}

type clickhouseDialect struct{}

func (clickhouseDialect) Name() string { return "clickhouse" }

func (clickhouseDialect) QuoteIdent(name string) string { return quoteBacktick(name) }

func (d clickhouseDialect) Literal(v any) (string, error) {
	return literal(v, "true", "false", true)
}

func (d clickhouseDialect) RegexExpr(column, pattern string) (string, error) {
	pat, err := d.Literal(pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("match(%s, %s)", column, pat), nil
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func literal(v any, boolTrue, boolFalse string, escapeBackslash bool) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		s := val
		if escapeBackslash {
			s = strings.ReplaceAll(s, `\`, `\\`)
		}
		return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
	case bool:
		if val {
			return boolTrue, nil
		}
		return boolFalse, nil
	case int:
		return strconv.Itoa(val), nil
	case int8, int16, int32:
		return fmt.Sprintf("%d", val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return "'" + val.UTC().Format("2006-01-02 15:04:05") + "'", nil
	default:
		return "", fmt.Errorf("cannot render %T as a SQL literal", v)
	}
}
