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

// Package sqlite registers the "vecsql-sqlite" database/sql driver,
// SQLite driven through the vecsql cursor.
//
//	import (
//		"database/sql"
//		_ "github.com/vecsql/vecsql/sqldriver/sqlite"
//	)
//
//	db, err := sql.Open("vecsql-sqlite", "path=app.db;NUMERIC_PRECISION=double")
package sqlite

import (
	"database/sql"

	"github.com/vecsql/vecsql/driver/sqlite"
	"github.com/vecsql/vecsql/sqldriver"
)

// DriverName is the name the driver is registered under.
const DriverName = "vecsql-sqlite"

func init() {
	sql.Register(DriverName, sqldriver.Driver{Engine: sqlite.NewEngine()})
}
