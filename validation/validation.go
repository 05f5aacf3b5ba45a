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

// Package validation is an engine-agnostic test suite intended to aid
// in engine development for vecsql. It provides a series of utilities
// and defined tests that can be used to validate an engine follows the
// correct and expected behavior when driven through the cursor and the
// database/sql driver.
package validation

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
	"github.com/vecsql/vecsql/sqldriver"
)

type EngineQuirks interface {
	// Called in SetupTest to initialize anything needed for testing
	SetupEngine(*testing.T) vecsql.Engine
	// Called in TearDownTest to clean up anything necessary in between tests
	TearDownEngine(*testing.T, vecsql.Engine)
	// Return the path of the database to open, it must be empty
	DatabasePath(*testing.T) string
	// Return the SQL to reference the bind parameter for a given index
	BindParameter(index int) string
	// Whether BEGIN TRANSACTION, COMMIT and ROLLBACK are supported
	SupportsTransactions() bool
	// Whether the engine implements vecsql.Catalog
	SupportsCatalog() bool
	// Return the SQL type names used for an integer and a text column
	IntegerType() string
	TextType() string
}

const sampleTable = "validation_people"

// createSample creates the sample table (id integer primary key, name
// text) and fills it with ids 1 to n.
func createSample(ctx context.Context, t *testing.T, cn *cursor.Connection, q EngineQuirks, n int) {
	t.Helper()

	r := cn.NewResult()
	defer r.Finalize()
	create := fmt.Sprintf("CREATE TABLE %s (id %s PRIMARY KEY, name %s)",
		sampleTable, q.IntegerType(), q.TextType())
	if !r.Reset(ctx, create) {
		t.Fatalf("create sample table: %v", r.LastError())
	}

	ins := cn.NewResult()
	defer ins.Finalize()
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s, %s)", sampleTable, q.BindParameter(1), q.BindParameter(2))
	if !ins.Prepare(ctx, query) {
		t.Fatalf("prepare insert: %v", ins.LastError())
	}
	for i := 1; i <= n; i++ {
		ins.BindValues([]any{i, fmt.Sprintf("name-%d", i)})
		if !ins.Exec(ctx) {
			t.Fatalf("insert row %d: %v", i, ins.LastError())
		}
	}
}

type ConnectionTests struct {
	suite.Suite

	Engine vecsql.Engine
	Quirks EngineQuirks

	ctx  context.Context
	path string
}

func (c *ConnectionTests) SetupTest() {
	c.ctx = context.Background()
	c.Engine = c.Quirks.SetupEngine(c.T())
	c.path = c.Quirks.DatabasePath(c.T())
}

func (c *ConnectionTests) TearDownTest() {
	c.Quirks.TearDownEngine(c.T(), c.Engine)
	c.Engine = nil
}

func (c *ConnectionTests) open() *cursor.Connection {
	cn := cursor.NewConnection(c.Engine)
	c.Require().True(cn.Open(c.ctx, c.path, ""), "%v", cn.LastError())
	return cn
}

func (c *ConnectionTests) TestOpenClose() {
	cn := c.open()
	c.True(cn.IsOpen())
	c.True(cn.Close())
	c.False(cn.IsOpen())
	// closing twice is harmless
	c.True(cn.Close())
}

func (c *ConnectionTests) TestReopen() {
	cn := c.open()
	defer cn.Close()
	c.True(cn.Open(c.ctx, c.path, ""), "%v", cn.LastError())
	c.True(cn.IsOpen())
}

func (c *ConnectionTests) TestCloseFinalizesResults() {
	cn := c.open()
	r := cn.NewResult()
	c.Require().True(r.Reset(c.ctx, "SELECT 1"), "%v", r.LastError())
	c.True(r.IsActive())

	c.True(cn.Close())
	c.False(r.IsActive())
	c.Zero(cn.NumResults())
	// finalizing after the connection was closed is harmless
	r.Finalize()
}

func (c *ConnectionTests) TestTransactions() {
	if !c.Quirks.SupportsTransactions() {
		c.T().SkipNow()
	}

	cn := c.open()
	defer cn.Close()
	createSample(c.ctx, c.T(), cn, c.Quirks, 0)

	count := func() int64 {
		r := cn.NewResult()
		defer r.Finalize()
		c.Require().True(r.Reset(c.ctx, "SELECT count(*) FROM "+sampleTable), "%v", r.LastError())
		row := make([]driver.Value, 1)
		c.Require().True(r.FetchNext(c.ctx, row, 0))
		return row[0].(int64)
	}
	insert := func(id int) {
		r := cn.NewResult()
		defer r.Finalize()
		c.Require().True(r.Reset(c.ctx, fmt.Sprintf("INSERT INTO %s VALUES (%d, 'x')", sampleTable, id)),
			"%v", r.LastError())
	}

	c.Require().True(cn.Begin(c.ctx), "%v", cn.LastError())
	insert(1)
	c.Require().True(cn.Rollback(c.ctx), "%v", cn.LastError())
	c.EqualValues(0, count())

	c.Require().True(cn.Begin(c.ctx), "%v", cn.LastError())
	insert(2)
	c.Require().True(cn.Commit(c.ctx), "%v", cn.LastError())
	c.EqualValues(1, count())

	// no transaction is active any more
	c.False(cn.Commit(c.ctx))
	c.ErrorIs(cn.LastError(), vecsql.ErrTransaction)
}

func (c *ConnectionTests) TestTables() {
	cn := c.open()
	defer cn.Close()
	if !c.Quirks.SupportsCatalog() {
		c.Nil(cn.Tables(c.ctx, cursor.TableTypeTables))
		c.ErrorIs(cn.LastError(), vecsql.ErrNotImplemented)
		return
	}

	c.NotContains(cn.Tables(c.ctx, cursor.TableTypeTables), sampleTable)
	createSample(c.ctx, c.T(), cn, c.Quirks, 0)
	c.Contains(cn.Tables(c.ctx, cursor.TableTypeTables), sampleTable)
	c.NoError(cn.LastError())
	c.NotContains(cn.Tables(c.ctx, cursor.TableTypeSystem), sampleTable)
	c.NotContains(cn.Tables(c.ctx, cursor.TableTypeViews), sampleTable)
}

func (c *ConnectionTests) TestRecord() {
	if !c.Quirks.SupportsCatalog() {
		c.T().SkipNow()
	}

	cn := c.open()
	defer cn.Close()
	createSample(c.ctx, c.T(), cn, c.Quirks, 0)

	cols := cn.Record(c.ctx, sampleTable)
	c.Require().NoError(cn.LastError())
	c.Require().Len(cols, 2)
	c.Equal("id", cols[0].Name)
	c.Equal(vecsql.KindInt, cols[0].Kind)
	c.True(cols[0].PrimaryKey)
	c.Equal("name", cols[1].Name)
	c.Equal(vecsql.KindString, cols[1].Kind)
	c.False(cols[1].PrimaryKey)

	pk := cn.PrimaryIndex(c.ctx, sampleTable)
	c.Require().Len(pk, 1)
	c.Equal("id", pk[0].Name)
}

type CursorTests struct {
	suite.Suite

	Engine vecsql.Engine
	Quirks EngineQuirks

	ctx context.Context
	cn  *cursor.Connection
}

func (s *CursorTests) SetupTest() {
	s.ctx = context.Background()
	s.Engine = s.Quirks.SetupEngine(s.T())
	s.cn = cursor.NewConnection(s.Engine)
	s.Require().True(s.cn.Open(s.ctx, s.Quirks.DatabasePath(s.T()), ""), "%v", s.cn.LastError())
}

func (s *CursorTests) TearDownTest() {
	s.True(s.cn.Close())
	s.Quirks.TearDownEngine(s.T(), s.Engine)
	s.Engine = nil
}

func (s *CursorTests) exec(query string) *cursor.Result {
	r := s.cn.NewResult()
	s.Require().True(r.Reset(s.ctx, query), "%v", r.LastError())
	return r
}

func (s *CursorTests) drain(r *cursor.Result) [][]driver.Value {
	var out [][]driver.Value
	for {
		row := make([]driver.Value, len(r.Record()))
		if !r.FetchNext(s.ctx, row, 0) {
			break
		}
		out = append(out, row)
	}
	s.Require().NoError(r.LastError())
	return out
}

func (s *CursorTests) TestSelectNoParams() {
	r := s.exec("SELECT 42 AS answer")
	defer r.Finalize()

	s.True(r.IsActive())
	s.True(r.IsSelect())
	s.EqualValues(-1, r.Size())
	rec := r.Record()
	s.Require().Len(rec, 1)
	s.Equal("answer", rec[0].Name)
	s.Equal(vecsql.KindInt, rec[0].Kind)
	s.Equal([][]driver.Value{{int64(42)}}, s.drain(r))

	// exhausted results stay exhausted
	s.False(r.FetchNext(s.ctx, make([]driver.Value, 1), 0))
	s.NoError(r.LastError())
}

func (s *CursorTests) TestInsertAndQuery() {
	createSample(s.ctx, s.T(), s.cn, s.Quirks, 3)

	r := s.cn.NewResult()
	defer r.Finalize()
	query := fmt.Sprintf("SELECT id, name FROM %s WHERE id >= %s ORDER BY id", sampleTable, s.Quirks.BindParameter(1))
	s.Require().True(r.Prepare(s.ctx, query), "%v", r.LastError())
	s.Equal(1, r.NumParams())

	r.BindValues([]any{2})
	s.Require().True(r.Exec(s.ctx), "%v", r.LastError())
	s.Equal([][]driver.Value{
		{int64(2), "name-2"},
		{int64(3), "name-3"},
	}, s.drain(r))

	// re-executing with new bindings starts a fresh result
	r.BindValues([]any{3})
	s.Require().True(r.Exec(s.ctx), "%v", r.LastError())
	s.Equal([][]driver.Value{{int64(3), "name-3"}}, s.drain(r))
}

func (s *CursorTests) TestEmptyResult() {
	createSample(s.ctx, s.T(), s.cn, s.Quirks, 0)

	r := s.exec("SELECT id, name FROM " + sampleTable)
	defer r.Finalize()
	s.True(r.IsSelect())
	s.Len(r.Record(), 2)
	s.Empty(s.drain(r))
}

func (s *CursorTests) TestChangedRows() {
	createSample(s.ctx, s.T(), s.cn, s.Quirks, 4)

	r := s.exec(fmt.Sprintf("DELETE FROM %s WHERE id > 1", sampleTable))
	defer r.Finalize()
	s.False(r.IsSelect())
	s.EqualValues(3, r.NumRowsAffected())
	s.Empty(r.Record())
}

func (s *CursorTests) TestParameterCountMismatch() {
	createSample(s.ctx, s.T(), s.cn, s.Quirks, 0)

	r := s.cn.NewResult()
	defer r.Finalize()
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s, %s)", sampleTable, s.Quirks.BindParameter(1), s.Quirks.BindParameter(2))
	s.Require().True(r.Prepare(s.ctx, query), "%v", r.LastError())
	r.BindValue(0, 1)
	s.False(r.Exec(s.ctx))
	s.ErrorIs(r.LastError(), vecsql.ErrParameterCountMismatch)
}

func (s *CursorTests) TestMultipleStatements() {
	r := s.cn.NewResult()
	defer r.Finalize()
	s.False(r.Prepare(s.ctx, "SELECT 1; SELECT 2"))
	s.ErrorIs(r.LastError(), vecsql.ErrMultipleStatements)
}

func (s *CursorTests) TestPrepareError() {
	r := s.cn.NewResult()
	defer r.Finalize()
	s.False(r.Prepare(s.ctx, "SELEC 1"))
	s.ErrorIs(r.LastError(), vecsql.ErrPrepare)
	s.False(r.FetchNext(s.ctx, nil, 0))
}

func (s *CursorTests) TestDetach() {
	createSample(s.ctx, s.T(), s.cn, s.Quirks, 3)

	r := s.exec("SELECT id FROM " + sampleTable + " ORDER BY id")
	defer r.Finalize()
	row := make([]driver.Value, 1)
	s.Require().True(r.FetchNext(s.ctx, row, 0))
	r.DetachFromResultSet()
	s.False(r.IsActive())

	// the statement stays prepared
	s.Require().True(r.Exec(s.ctx), "%v", r.LastError())
	s.Len(s.drain(r), 3)
}

type SQLDriverTests struct {
	suite.Suite

	Engine vecsql.Engine
	Quirks EngineQuirks

	ctx context.Context
	db  *sql.DB
}

func (s *SQLDriverTests) SetupTest() {
	s.ctx = context.Background()
	s.Engine = s.Quirks.SetupEngine(s.T())
	connector, err := sqldriver.Driver{Engine: s.Engine}.OpenConnector("path=" + s.Quirks.DatabasePath(s.T()))
	s.Require().NoError(err)
	s.db = sql.OpenDB(connector)
	// in-memory databases are private to their connection
	s.db.SetMaxOpenConns(1)
}

func (s *SQLDriverTests) TearDownTest() {
	s.NoError(s.db.Close())
	s.Quirks.TearDownEngine(s.T(), s.Engine)
	s.Engine = nil
}

func (s *SQLDriverTests) createSample(n int) {
	_, err := s.db.ExecContext(s.ctx, fmt.Sprintf("CREATE TABLE %s (id %s PRIMARY KEY, name %s)",
		sampleTable, s.Quirks.IntegerType(), s.Quirks.TextType()))
	s.Require().NoError(err)

	query := fmt.Sprintf("INSERT INTO %s VALUES (%s, %s)", sampleTable, s.Quirks.BindParameter(1), s.Quirks.BindParameter(2))
	for i := 1; i <= n; i++ {
		res, err := s.db.ExecContext(s.ctx, query, i, fmt.Sprintf("name-%d", i))
		s.Require().NoError(err)
		affected, err := res.RowsAffected()
		s.Require().NoError(err)
		s.EqualValues(1, affected)
	}
}

func (s *SQLDriverTests) TestPing() {
	s.NoError(s.db.PingContext(s.ctx))
}

func (s *SQLDriverTests) TestQueryScan() {
	s.createSample(3)

	rows, err := s.db.QueryContext(s.ctx, "SELECT id, name FROM "+sampleTable+" ORDER BY id")
	s.Require().NoError(err)
	defer rows.Close()

	cols, err := rows.Columns()
	s.Require().NoError(err)
	s.Equal([]string{"id", "name"}, cols)

	var ids []int64
	for rows.Next() {
		var (
			id   int64
			name string
		)
		s.Require().NoError(rows.Scan(&id, &name))
		s.Equal(fmt.Sprintf("name-%d", id), name)
		ids = append(ids, id)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]int64{1, 2, 3}, ids)
}

func (s *SQLDriverTests) TestNullScan() {
	var name sql.NullString
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT CAST(NULL AS VARCHAR) AS name").Scan(&name))
	s.False(name.Valid)
}

func (s *SQLDriverTests) TestPreparedStatementReuse() {
	s.createSample(5)

	stmt, err := s.db.PrepareContext(s.ctx,
		fmt.Sprintf("SELECT name FROM %s WHERE id = %s", sampleTable, s.Quirks.BindParameter(1)))
	s.Require().NoError(err)
	defer stmt.Close()

	for i := 1; i <= 5; i++ {
		var name string
		s.Require().NoError(stmt.QueryRowContext(s.ctx, i).Scan(&name))
		s.Equal(fmt.Sprintf("name-%d", i), name)
	}
}

func (s *SQLDriverTests) TestTxCommitRollback() {
	if !s.Quirks.SupportsTransactions() {
		s.T().SkipNow()
	}
	s.createSample(0)

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s, 'x')", sampleTable, s.Quirks.BindParameter(1))

	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	_, err = tx.ExecContext(s.ctx, insert, 1)
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	tx, err = s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	_, err = tx.ExecContext(s.ctx, insert, 2)
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	var n int64
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT count(*) FROM "+sampleTable).Scan(&n))
	s.EqualValues(1, n)
}
