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

package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/driver/sqlite"
	"github.com/vecsql/vecsql/validation"
)

type SQLiteQuirks struct{}

func (SQLiteQuirks) SetupEngine(*testing.T) vecsql.Engine     { return sqlite.NewEngine() }
func (SQLiteQuirks) TearDownEngine(*testing.T, vecsql.Engine) {}
func (SQLiteQuirks) DatabasePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "validation.db")
}
func (SQLiteQuirks) BindParameter(int) string   { return "?" }
func (SQLiteQuirks) SupportsTransactions() bool { return true }
func (SQLiteQuirks) SupportsCatalog() bool      { return true }
func (SQLiteQuirks) IntegerType() string        { return "INTEGER" }
func (SQLiteQuirks) TextType() string           { return "TEXT" }

func TestValidation(t *testing.T) {
	q := SQLiteQuirks{}
	suite.Run(t, &validation.ConnectionTests{Quirks: q})
	suite.Run(t, &validation.CursorTests{Quirks: q})
	suite.Run(t, &validation.SQLDriverTests{Quirks: q})
}
