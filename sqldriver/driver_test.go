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

package sqldriver_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/suite"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/enginetest"
	"github.com/vecsql/vecsql/sqldriver"
)

var peopleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

type SQLDriverSuite struct {
	suite.Suite

	ctx    context.Context
	mem    *memory.CheckedAllocator
	engine *enginetest.Engine
	db     *sql.DB
}

func (s *SQLDriverSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	s.engine = enginetest.New()
	s.engine.Mem = s.mem

	s.engine.
		On("SELECT * FROM people", enginetest.Script{
			Schema: peopleSchema,
			Batches: []string{
				`[{"id": 1, "name": "ada"}, {"id": 2, "name": "grace"}]`,
				`[{"id": 3, "name": null}]`,
			},
		}).
		On("SELECT ?, ?", enginetest.Script{NumParams: 2, Echo: true}).
		On("SELECT :id, :name", enginetest.Script{NumParams: 2, Echo: true}).
		On("DELETE FROM people", enginetest.Script{Return: vecsql.ReturnChangedRows, Changed: 3}).
		On("CREATE TABLE t (x INTEGER)", enginetest.Script{Return: vecsql.ReturnNothing}).
		On("SELECT price", enginetest.Script{
			Schema:  arrow.NewSchema([]arrow.Field{{Name: "price", Type: arrow.PrimitiveTypes.Float64}}, nil),
			Batches: []string{`[{"price": 3.75}]`},
		}).
		On("BEGIN TRANSACTION", enginetest.Script{Return: vecsql.ReturnNothing}).
		On("COMMIT", enginetest.Script{Return: vecsql.ReturnNothing}).
		On("ROLLBACK", enginetest.Script{Return: vecsql.ReturnNothing})

	connector, err := sqldriver.Driver{Engine: s.engine}.OpenConnector("path=people.db;OPEN_READONLY")
	s.Require().NoError(err)
	s.db = sql.OpenDB(connector)
	s.db.SetMaxOpenConns(1)
}

func (s *SQLDriverSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
	st := s.engine.Stats()
	s.Zero(st.OpenStmts, "statements left open")
	s.Zero(st.OpenSources, "sources left open")
	s.mem.AssertSize(s.T(), 0)
}

func (s *SQLDriverSuite) TestOpenOptions() {
	s.Require().NoError(s.db.PingContext(s.ctx))
	st := s.engine.Stats()
	s.Equal("people.db", st.LastPath)
	s.True(st.LastOptions.ReadOnly)
}

func (s *SQLDriverSuite) TestQuery() {
	rows, err := s.db.QueryContext(s.ctx, "SELECT * FROM people")
	s.Require().NoError(err)
	defer rows.Close()

	cols, err := rows.Columns()
	s.Require().NoError(err)
	s.Equal([]string{"id", "name"}, cols)

	types, err := rows.ColumnTypes()
	s.Require().NoError(err)
	s.Equal("int64", types[0].ScanType().Name())

	type person struct {
		id   int64
		name sql.NullString
	}
	var got []person
	for rows.Next() {
		var p person
		s.Require().NoError(rows.Scan(&p.id, &p.name))
		got = append(got, p)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]person{
		{1, sql.NullString{String: "ada", Valid: true}},
		{2, sql.NullString{String: "grace", Valid: true}},
		{3, sql.NullString{}},
	}, got)
}

func (s *SQLDriverSuite) TestQueryRowStopsEarly() {
	var name string
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT * FROM people").Scan(new(int64), &name))
	s.Equal("ada", name)
	s.Zero(s.engine.Stats().OpenSources)
}

func (s *SQLDriverSuite) TestPositionalParameters() {
	var (
		id   int64
		name string
	)
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT ?, ?", 7, "ada").Scan(&id, &name))
	s.Equal(int64(7), id)
	s.Equal("ada", name)

	_, err := s.db.QueryContext(s.ctx, "SELECT ?, ?", 1)
	s.Error(err)
}

func (s *SQLDriverSuite) TestNamedParameters() {
	var (
		id   int64
		name string
	)
	err := s.db.QueryRowContext(s.ctx, "SELECT :id, :name",
		sql.Named("name", "grace"), sql.Named("id", 2)).Scan(&id, &name)
	s.Require().NoError(err)
	s.Equal(int64(2), id)
	s.Equal("grace", name)

	_, err = s.db.QueryContext(s.ctx, "SELECT :id, :name", sql.Named("id", 2), sql.Named("other", 1))
	s.ErrorIs(err, vecsql.ErrInvalidArgument)
}

func (s *SQLDriverSuite) TestExec() {
	res, err := s.db.ExecContext(s.ctx, "DELETE FROM people")
	s.Require().NoError(err)
	n, err := res.RowsAffected()
	s.Require().NoError(err)
	s.EqualValues(3, n)
	_, err = res.LastInsertId()
	s.ErrorIs(err, vecsql.ErrNotImplemented)

	res, err = s.db.ExecContext(s.ctx, "CREATE TABLE t (x INTEGER)")
	s.Require().NoError(err)
	_, err = res.RowsAffected()
	s.ErrorIs(err, vecsql.ErrNotImplemented)

	// exec of a query discards its rows
	_, err = s.db.ExecContext(s.ctx, "SELECT * FROM people")
	s.Require().NoError(err)
}

func (s *SQLDriverSuite) TestPreparedStatement() {
	stmt, err := s.db.PrepareContext(s.ctx, "SELECT ?, ?")
	s.Require().NoError(err)
	defer stmt.Close()

	for i := range 3 {
		var id int64
		s.Require().NoError(stmt.QueryRowContext(s.ctx, i, "x").Scan(&id, new(string)))
		s.EqualValues(i, id)
	}
}

func (s *SQLDriverSuite) TestErrors() {
	_, err := s.db.QueryContext(s.ctx, "SELECT nothing")
	s.ErrorIs(err, vecsql.ErrPrepare)
}

func (s *SQLDriverSuite) TestTransactions() {
	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	tx, err = s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	s.Equal([]string{"BEGIN TRANSACTION", "COMMIT", "BEGIN TRANSACTION", "ROLLBACK"}, s.engine.Stats().Executed)

	_, err = s.db.BeginTx(s.ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	s.ErrorIs(err, vecsql.ErrNotImplemented)
	_, err = s.db.BeginTx(s.ctx, &sql.TxOptions{ReadOnly: true})
	s.ErrorIs(err, vecsql.ErrNotImplemented)
}

func (s *SQLDriverSuite) TestPrecisionFromContext() {
	var v any
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT price").Scan(&v))
	s.Equal(3.75, v)

	ctx := sqldriver.WithPrecisionPolicy(s.ctx, vecsql.LowPrecisionInt64)
	s.Require().NoError(s.db.QueryRowContext(ctx, "SELECT price").Scan(&v))
	s.Equal(int64(3), v)

	rows, err := s.db.QueryContext(ctx, "SELECT price")
	s.Require().NoError(err)
	defer rows.Close()
	types, err := rows.ColumnTypes()
	s.Require().NoError(err)
	s.Equal(reflect.TypeOf(int64(0)), types[0].ScanType())
}

func (s *SQLDriverSuite) TestRawConnection() {
	conn, err := s.db.Conn(s.ctx)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.Raw(func(dc any) error {
		cn := dc.(sqldriver.Conn).Connection()
		s.True(cn.IsOpen())
		s.Equal(s.engine, cn.Engine())
		return nil
	}))
}

func TestSQLDriverSuite(t *testing.T) {
	suite.Run(t, new(SQLDriverSuite))
}
