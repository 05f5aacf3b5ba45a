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

package duckdb_test

import (
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/suite"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/driver/duckdb"
	"github.com/vecsql/vecsql/validation"
)

type DuckDBQuirks struct {
	mem *memory.CheckedAllocator
}

func (q *DuckDBQuirks) SetupEngine(*testing.T) vecsql.Engine {
	q.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	return &duckdb.Engine{Alloc: q.mem}
}

func (q *DuckDBQuirks) TearDownEngine(t *testing.T, _ vecsql.Engine) {
	q.mem.AssertSize(t, 0)
}

func (q *DuckDBQuirks) DatabasePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "validation.duckdb")
}

func (q *DuckDBQuirks) BindParameter(int) string   { return "?" }
func (q *DuckDBQuirks) SupportsTransactions() bool { return true }
func (q *DuckDBQuirks) SupportsCatalog() bool      { return true }
func (q *DuckDBQuirks) IntegerType() string        { return "INTEGER" }
func (q *DuckDBQuirks) TextType() string           { return "VARCHAR" }

func TestValidation(t *testing.T) {
	q := &DuckDBQuirks{}
	suite.Run(t, &validation.ConnectionTests{Quirks: q})
	suite.Run(t, &validation.CursorTests{Quirks: q})
	suite.Run(t, &validation.SQLDriverTests{Quirks: q})
}
