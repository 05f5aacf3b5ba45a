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
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/arrowchunk"
	"github.com/vecsql/vecsql/internal/sqltext"
)

// DefaultMemoryPath is the path of a private in-memory database.
const DefaultMemoryPath = ":memory:"

// Engine opens DuckDB databases.
type Engine struct {
	// Alloc is used for the records built by the engine itself.
	Alloc memory.Allocator
}

func NewEngine() *Engine { return &Engine{Alloc: memory.DefaultAllocator} }

func (e *Engine) Name() string { return "duckdb" }

// DSN builds the connector string for path. Extra options are passed on
// as DuckDB configuration settings.
func DSN(path string, opts vecsql.OpenOptions) string {
	if path == DefaultMemoryPath {
		path = ""
	}
	q := url.Values{}
	if opts.ReadOnly {
		q.Set("access_mode", "read_only")
	}
	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		q.Set(k, opts.Extra[k])
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (e *Engine) Open(ctx context.Context, path string, opts vecsql.OpenOptions) (vecsql.Database, error) {
	connector, err := duckdb.NewConnector(DSN(path, opts), nil)
	if err != nil {
		return nil, kinded(err)
	}
	conn, err := connector.Connect(ctx)
	if err != nil {
		return nil, errors.Join(kinded(err), connector.Close())
	}
	ar, err := duckdb.NewArrowFromConn(conn)
	if err != nil {
		return nil, errors.Join(kinded(err), conn.Close(), connector.Close())
	}

	alloc := e.Alloc
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	return &database{connector: connector, conn: conn, arrow: ar, alloc: alloc}, nil
}

type database struct {
	connector *duckdb.Connector
	conn      driver.Conn
	arrow     *duckdb.Arrow
	alloc     memory.Allocator
	closed    bool
}

func (d *database) Prepare(ctx context.Context, query string) (vecsql.Statement, error) {
	if d.closed {
		return nil, vecsql.Error{Msg: "database is closed", Code: vecsql.StatusConnection}
	}
	stmt, err := d.conn.(driver.ConnPrepareContext).PrepareContext(ctx, query)
	if err != nil {
		return nil, kinded(err)
	}
	return &statement{db: d, stmt: stmt, query: query, ret: returnType(stmt, query)}, nil
}

// returnType maps the type DuckDB reports for the prepared statement
// onto a result shape. Pragmas and data modifying statements are
// refined by their text, PRAGMA x = v sets a value and RETURNING makes
// DML produce rows.
func returnType(stmt driver.Stmt, query string) vecsql.ReturnType {
	ds, ok := stmt.(*duckdb.Stmt)
	if !ok {
		return sqltext.ReturnTypeOf(query)
	}
	t, err := ds.StatementType()
	if err != nil {
		return sqltext.ReturnTypeOf(query)
	}

	switch t {
	case duckdb.STATEMENT_TYPE_SELECT, duckdb.STATEMENT_TYPE_EXPLAIN,
		duckdb.STATEMENT_TYPE_CALL, duckdb.STATEMENT_TYPE_RELATION:
		return vecsql.ReturnQuery
	case duckdb.STATEMENT_TYPE_INSERT, duckdb.STATEMENT_TYPE_UPDATE,
		duckdb.STATEMENT_TYPE_DELETE, duckdb.STATEMENT_TYPE_COPY:
		if sqltext.HasReturning(query) {
			return vecsql.ReturnQuery
		}
		return vecsql.ReturnChangedRows
	case duckdb.STATEMENT_TYPE_PRAGMA:
		if sqltext.IsDirective(query) {
			return vecsql.ReturnNothing
		}
		return vecsql.ReturnQuery
	case duckdb.STATEMENT_TYPE_INVALID, duckdb.STATEMENT_TYPE_MULTI:
		return sqltext.ReturnTypeOf(query)
	}
	return vecsql.ReturnNothing
}

func (d *database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.conn.Close(), d.connector.Close())
}

func (d *database) TablesQuery(includeSystem bool) string {
	if includeSystem {
		return "SELECT table_name FROM duckdb_tables()"
	}
	return "SELECT table_name FROM duckdb_tables() WHERE NOT internal"
}

func (d *database) ViewsQuery(includeSystem bool) string {
	if includeSystem {
		return "SELECT view_name FROM duckdb_views()"
	}
	return "SELECT view_name FROM duckdb_views() WHERE NOT internal"
}

func (d *database) DescribeQuery(schema, table string) string {
	name := sqltext.EscapeIdentifier(table, false)
	if schema != "" {
		name = sqltext.EscapeIdentifier(schema, false) + "." + name
	}
	return fmt.Sprintf(`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(%s)`, quoteString(name))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type statement struct {
	db    *database
	stmt  driver.Stmt
	query string
	ret   vecsql.ReturnType
}

func (s *statement) NumParams() int { return max(s.stmt.NumInput(), 0) }

func (s *statement) ReturnType() vecsql.ReturnType { return s.ret }

func (s *statement) Execute(ctx context.Context, params []any) (vecsql.RowSource, error) {
	if s.db.closed {
		return nil, vecsql.Error{Msg: "database is closed", Code: vecsql.StatusConnection}
	}

	if s.ret == vecsql.ReturnQuery {
		rdr, err := s.db.arrow.QueryContext(ctx, s.query, params...)
		if err != nil {
			return nil, kinded(err)
		}
		return arrowchunk.NewSource(rdr), nil
	}

	args := make([]driver.NamedValue, len(params))
	for i, p := range params {
		args[i] = driver.NamedValue{Ordinal: i + 1, Value: p}
	}
	res, err := s.stmt.(driver.StmtExecContext).ExecContext(ctx, args)
	if err != nil {
		return nil, kinded(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}
	return arrowchunk.CountSource(s.db.alloc, n)
}

func (s *statement) Close() error { return s.stmt.Close() }

// engineError exposes the DuckDB error class, the message prefix such
// as "Parser Error" or "Constraint Error".
type engineError struct{ err error }

func (e engineError) Error() string { return e.err.Error() }
func (e engineError) Unwrap() error { return e.err }

func (e engineError) ErrorKind() string {
	kind, _, ok := strings.Cut(e.err.Error(), ": ")
	if !ok || !strings.HasSuffix(kind, "Error") {
		return "DuckDB Error"
	}
	return kind
}

func kinded(err error) error {
	if err == nil {
		return nil
	}
	return engineError{err: err}
}
