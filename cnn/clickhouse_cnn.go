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

// Package cnn opens database connections for the SQL table backends,
// one constructor per supported data source type.
package cnn

import (
	"database/sql"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/tablevet/tablevet"
)

func NewClickhouseConnection(connectionCfg tablevet.ConnectionConfig) (*sql.DB, error) {
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{connectionCfg.Host},
		Auth: clickhouse.Auth{
			Database: connectionCfg.Database,
			Username: connectionCfg.Username,
			Password: connectionCfg.Password,
		},
	})

	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(32)

	return db, nil
}
