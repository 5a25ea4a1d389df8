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

// Package tv is the assembly facade: it opens the right connection for a
// configured data source and wraps the requested relation as a
// tablevet.Table ready for interrogation.
package tv

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tablevet/tablevet"
	"github.com/tablevet/tablevet/adapters"
	"github.com/tablevet/tablevet/cnn"
)

const (
	Version = "v0.1.0"
)

func LibVersion() string {
	return Version
}

// NewTableForSource opens a connection for the data source and wraps the
// named relation as a validation target.
func NewTableForSource(dataSource tablevet.DataSource, relation string, logger *slog.Logger) (tablevet.Table, error) {
	switch dataSource.Type {
	case tablevet.DataSourceTypeClickhouse:
		db, err := cnn.NewClickhouseConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
		}
		return adapters.NewSQLTable(db, adapters.Clickhouse, relation, logger), nil
	case tablevet.DataSourceTypePostgresql:
		db, err := cnn.NewPostgresqlConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql connection: %w", err)
		}
		return adapters.NewSQLTable(db, adapters.Postgres, relation, logger), nil
	case tablevet.DataSourceTypeMysql:
		db, err := cnn.NewMysqlConnection(dataSource.Configuration, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql connection: %w", err)
		}
		return adapters.NewSQLTable(db, adapters.Mysql, relation, logger), nil
	case tablevet.DataSourceTypeSqlite:
		db, err := cnn.NewSqliteConnection(dataSource.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite connection: %w", err)
		}
		return adapters.NewSQLTable(db, adapters.Sqlite, relation, logger), nil
	default:
		return nil, fmt.Errorf("unsupported data source type: %s", dataSource.Type)
	}
}

// TableProviderForSource defers the connection to interrogation time, so
// a plan can be assembled before the database is reachable.
func TableProviderForSource(dataSource tablevet.DataSource, relation string, logger *slog.Logger) tablevet.TableProvider {
	return func(ctx context.Context) (tablevet.Table, error) {
		return NewTableForSource(dataSource, relation, logger)
	}
}
