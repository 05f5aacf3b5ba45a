//go:build duckdb_arrow

// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package duckdb

import (
	"database/sql"

	"github.com/vecsql/vecsql/driver/duckdb"
	"github.com/vecsql/vecsql/sqldriver"
)

// DriverName is the name the driver is registered under.
const DriverName = "vecsql-duckdb"

func init() {
	sql.Register(DriverName, sqldriver.Driver{Engine: duckdb.NewEngine()})
}
