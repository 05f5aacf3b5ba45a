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
	"context"
	"database/sql/driver"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
	"github.com/vecsql/vecsql/driver/duckdb"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "", duckdb.DSN(duckdb.DefaultMemoryPath, vecsql.OpenOptions{}))
	assert.Equal(t, "db.duckdb?access_mode=read_only&threads=2",
		duckdb.DSN("db.duckdb", vecsql.OpenOptions{ReadOnly: true, Extra: map[string]string{"threads": "2"}}))
}

func open(t *testing.T, path, options string) *cursor.Connection {
	c := cursor.NewConnection(duckdb.NewEngine())
	require.True(t, c.Open(context.Background(), path, options), "%v", c.LastError())
	t.Cleanup(func() { c.Close() })
	return c
}

func exec(t *testing.T, c *cursor.Connection, query string, args ...any) *cursor.Result {
	r := c.NewResult()
	t.Cleanup(r.Finalize)
	require.True(t, r.Prepare(context.Background(), query), "%v", r.LastError())
	r.BindValues(args)
	require.True(t, r.Exec(context.Background()), "%v", r.LastError())
	return r
}

func TestQueryAcrossChunks(t *testing.T) {
	c := open(t, "", "")
	ctx := context.Background()

	r := exec(t, c, "SELECT i, i::VARCHAR AS s FROM range(5000) t(i)")
	assert.True(t, r.IsSelect())
	rec := r.Record()
	require.Len(t, rec, 2)
	assert.Equal(t, vecsql.KindInt, rec[0].Kind)
	assert.Equal(t, vecsql.KindString, rec[1].Kind)

	row := make([]driver.Value, 2)
	n := int64(0)
	for r.FetchNext(ctx, row, 0) {
		assert.Equal(t, n, row[0])
		n++
	}
	require.NoError(t, r.LastError())
	assert.EqualValues(t, 5000, n)
}

func TestChangedRowsAndCatalog(t *testing.T) {
	c := open(t, "", "")
	ctx := context.Background()

	exec(t, c, "CREATE TABLE people (id INTEGER PRIMARY KEY, name VARCHAR DEFAULT 'anon', score DOUBLE)")
	ins := exec(t, c, "INSERT INTO people VALUES (?, ?, ?), (?, ?, ?)", 1, "ada", 1.5, 2, "grace", nil)
	assert.False(t, ins.IsSelect())
	assert.EqualValues(t, 2, ins.NumRowsAffected())

	ret := exec(t, c, "DELETE FROM people WHERE id = ? RETURNING name", 2)
	assert.True(t, ret.IsSelect())
	row := make([]driver.Value, 1)
	require.True(t, ret.FetchNext(ctx, row, 0))
	assert.Equal(t, "grace", row[0])

	exec(t, c, "CREATE VIEW named AS SELECT name FROM people")
	assert.Equal(t, []string{"people"}, c.Tables(ctx, cursor.TableTypeTables))
	assert.Equal(t, []string{"named"}, c.Tables(ctx, cursor.TableTypeViews))

	cols := c.Record(ctx, "people")
	require.NoError(t, c.LastError())
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.True(t, cols[0].AutoValue)
	assert.Equal(t, "anon", cols[1].Default)
	assert.Equal(t, vecsql.KindDouble, cols[2].Kind)
	assert.Len(t, c.PrimaryIndex(ctx, "main.people"), 1)
}

func TestDirectivesAndErrors(t *testing.T) {
	c := open(t, "", "")
	ctx := context.Background()

	exec(t, c, "SET threads = 1")

	r := c.NewResult()
	defer r.Finalize()
	assert.False(t, r.Prepare(ctx, "SELCT 1"))
	var verr vecsql.Error
	require.ErrorAs(t, r.LastError(), &verr)
	assert.Equal(t, vecsql.StatusPrepare, verr.Code)
	assert.Equal(t, "Parser Error", verr.Kind)

	assert.False(t, r.Prepare(ctx, "SELECT 1; SELECT 2"))
	assert.ErrorIs(t, r.LastError(), vecsql.ErrMultipleStatements)
}

func TestTransactionsAndReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.duckdb")
	c := open(t, path, "")
	ctx := context.Background()

	exec(t, c, "CREATE TABLE t (x INTEGER)")
	require.True(t, c.Begin(ctx), "%v", c.LastError())
	exec(t, c, "INSERT INTO t VALUES (1)")
	require.True(t, c.Rollback(ctx), "%v", c.LastError())

	r := exec(t, c, "SELECT count(*) FROM t")
	row := make([]driver.Value, 1)
	require.True(t, r.FetchNext(ctx, row, 0))
	assert.EqualValues(t, 0, row[0])
	require.True(t, c.Close())

	ro := open(t, path, "OPEN_READONLY")
	w := ro.NewResult()
	defer w.Finalize()
	assert.False(t, w.Reset(ctx, "INSERT INTO t VALUES (2)"))
}

func TestReturnTypeFromStatement(t *testing.T) {
	c := open(t, "", "")
	ctx := context.Background()

	exec(t, c, "CREATE TABLE sales (k VARCHAR, s VARCHAR, v INTEGER)")
	exec(t, c, "INSERT INTO sales VALUES ('a', 'x', 1), ('a', 'y', 2), ('b', 'x', 3)")
	exec(t, c, "CREATE TABLE wide (k VARCHAR, x INTEGER, y INTEGER)")
	exec(t, c, "INSERT INTO wide VALUES ('a', 1, 2)")

	for _, query := range []string{
		"PIVOT sales ON s USING sum(v)",
		"UNPIVOT wide ON x, y INTO NAME s VALUE v",
		"FROM sales",
	} {
		t.Run(query, func(t *testing.T) {
			r := exec(t, c, query)
			assert.True(t, r.IsSelect())
			assert.NotEmpty(t, r.Record())
			row := make([]driver.Value, len(r.Record()))
			n := 0
			for r.FetchNext(ctx, row, 0) {
				n++
			}
			require.NoError(t, r.LastError())
			assert.Positive(t, n)
		})
	}

	r := exec(t, c, "PRAGMA threads = 2")
	assert.False(t, r.IsSelect())
	assert.EqualValues(t, -1, r.NumRowsAffected())
}
