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

package adbcbridge_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"testing"

	"github.com/apache/arrow-adbc/go/adbc/driver/flightsql"
	"github.com/apache/arrow-go/v18/arrow/flight"
	fsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql/example"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/suite"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
	"github.com/vecsql/vecsql/driver/adbcbridge"
	"github.com/vecsql/vecsql/sqldriver"
	"google.golang.org/grpc"
)

type BridgeSuite struct {
	suite.Suite

	ctx      context.Context
	sqliteDB *sql.DB
	srv      *example.SQLiteFlightSQLServer
	s        flight.Server
	opts     []grpc.ServerOption
	done     chan bool
	mem      *memory.CheckedAllocator

	engine *adbcbridge.Engine
	uri    string
	conn   *cursor.Connection
}

func (s *BridgeSuite) SetupTest() {
	var err error
	s.ctx = context.Background()

	s.sqliteDB, err = example.CreateDB()
	s.Require().NoError(err)

	s.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	s.s = flight.NewServerWithMiddleware(nil, s.opts...)
	s.srv, err = example.NewSQLiteFlightSQLServer(s.sqliteDB)
	s.Require().NoError(err)
	s.srv.Alloc = s.mem

	s.s.RegisterFlightService(fsql.NewFlightServer(s.srv))
	s.Require().NoError(s.s.Init("localhost:0"))
	s.s.SetShutdownOnSignals(os.Interrupt, os.Kill)
	s.done = make(chan bool)
	go func() {
		defer close(s.done)
		_ = s.s.Serve()
	}()

	s.engine = adbcbridge.NewEngine("flightsql", flightsql.NewDriver(s.mem), s.mem)
	s.uri = "grpc+tcp://" + s.s.Addr().String()
	s.conn = cursor.NewConnection(s.engine)
	s.Require().True(s.conn.Open(s.ctx, s.uri, ""), "%v", s.conn.LastError())
}

func (s *BridgeSuite) TearDownTest() {
	s.True(s.conn.Close())
	s.s.Shutdown()
	<-s.done
	s.srv = nil
	s.mem.AssertSize(s.T(), 0)
	_ = s.sqliteDB.Close()
}

func (s *BridgeSuite) exec(query string, args ...any) *cursor.Result {
	r := s.conn.NewResult()
	s.T().Cleanup(r.Finalize)
	s.Require().True(r.Prepare(s.ctx, query), "%v", r.LastError())
	r.BindValues(args)
	s.Require().True(r.Exec(s.ctx), "%v", r.LastError())
	return r
}

func (s *BridgeSuite) TestQueryAndUpdate() {
	s.exec("CREATE TABLE t (k TEXT, v INTEGER)")
	ins := s.exec("INSERT INTO t (k, v) VALUES ('one', 1), ('two', 2)")
	s.EqualValues(2, ins.NumRowsAffected())

	r := s.exec("SELECT k, v FROM t ORDER BY v")
	s.True(r.IsSelect())
	s.Len(r.Record(), 2)

	var got [][]driver.Value
	for {
		row := make([]driver.Value, 2)
		if !r.FetchNext(s.ctx, row, 0) {
			break
		}
		got = append(got, row)
	}
	s.NoError(r.LastError())
	s.Equal([][]driver.Value{{"one", int64(1)}, {"two", int64(2)}}, got)
	r.Finalize()
}

func (s *BridgeSuite) TestParameters() {
	s.exec("CREATE TABLE t (k TEXT, v INTEGER)")
	s.exec("INSERT INTO t (k, v) VALUES ('one', 1), ('two', 2)")

	r := s.exec("SELECT k FROM t WHERE v = ?", 2)
	row := make([]driver.Value, 1)
	s.Require().True(r.FetchNext(s.ctx, row, 0), "%v", r.LastError())
	s.Equal("two", row[0])
	s.False(r.FetchNext(s.ctx, row, 0))
	r.Finalize()
}

func (s *BridgeSuite) TestErrors() {
	r := s.conn.NewResult()
	defer r.Finalize()

	s.False(r.Prepare(s.ctx, "SELECT * FROM missing_table"))
	var verr vecsql.Error
	s.Require().ErrorAs(r.LastError(), &verr)
	s.Equal(vecsql.StatusPrepare, verr.Code)
	s.NotEmpty(verr.Kind)

	s.False(r.Prepare(s.ctx, "SELECT 1; SELECT 2"))
	s.ErrorIs(r.LastError(), vecsql.ErrMultipleStatements)
}

func (s *BridgeSuite) TestCatalogNotProvided() {
	s.Empty(s.conn.Tables(s.ctx, cursor.TableTypeTables))
	s.ErrorIs(s.conn.LastError(), vecsql.ErrNotImplemented)
}

func (s *BridgeSuite) TestSQLDriver() {
	connector, err := sqldriver.Driver{Engine: s.engine}.OpenConnector("uri=" + s.uri)
	s.Require().NoError(err)
	db := sql.OpenDB(connector)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(s.ctx, "CREATE TABLE langs (name TEXT, year INTEGER)")
	s.Require().NoError(err)
	res, err := db.ExecContext(s.ctx, "INSERT INTO langs (name, year) VALUES (?, ?)", "go", 2009)
	s.Require().NoError(err)
	n, err := res.RowsAffected()
	s.Require().NoError(err)
	s.EqualValues(1, n)

	var year int64
	s.Require().NoError(db.QueryRowContext(s.ctx, "SELECT year FROM langs WHERE name = ?", "go").Scan(&year))
	s.EqualValues(2009, year)
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, &BridgeSuite{opts: []grpc.ServerOption{grpc.MaxRecvMsgSize(16 << 20)}})
}
