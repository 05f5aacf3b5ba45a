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

// Package sqldriver exposes a vecsql engine through the standard
// golang database/sql package, described here:
// https://go.dev/src/database/sql/doc.txt
//
// Every connection is a cursor.Connection and every prepared statement
// a cursor.Result, so the engine only has to deliver chunks of rows and
// the database/sql row-at-a-time contract is handled here.
//
// Registering the driver can be done by importing this and then running
//
//	sql.Register("drivername", sqldriver.Driver{Engine: engine})
//
// The connection string is a semi-colon separated list of entries. The
// path=, database= or uri= key (or a leading bare entry) names the
// database, every other entry is passed on as a connection option:
//
//	path=/data/app.db;OPEN_READONLY;NUMERIC_PRECISION=double
//
// The sqldriver/duckdb and sqldriver/sqlite packages register the
// bundled engines, so that only a single import statement is needed.
package sqldriver
