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

// Package sqlite is the vecsql engine for SQLite, using the pure Go
// modernc.org/sqlite driver. SQLite produces one row per step, so every
// chunk holds a single row.
package sqlite

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/sqltext"
	"modernc.org/sqlite"
)

// Engine opens SQLite databases.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) Name() string { return "sqlite" }

// DSN builds the modernc.org/sqlite data source name for path. Extra
// options are applied as pragmas.
func DSN(path string, opts vecsql.OpenOptions) string {
	if path == "" {
		path = ":memory:"
	}
	q := url.Values{}
	if opts.ReadOnly {
		q.Set("mode", "ro")
	}
	if opts.SharedCache {
		q.Set("cache", "shared")
	}
	keys := make([]string, 0, len(opts.Extra))
	for k := range opts.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", k, opts.Extra[k]))
	}

	if len(q) == 0 && !opts.URI {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	if len(q) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

func (e *Engine) Open(ctx context.Context, path string, opts vecsql.OpenOptions) (vecsql.Database, error) {
	conn, err := (&sqlite.Driver{}).Open(DSN(path, opts))
	if err != nil {
		return nil, kinded(err)
	}
	return &database{conn: conn}, nil
}

type database struct {
	conn   driver.Conn
	closed bool
}

func (d *database) Prepare(ctx context.Context, query string) (vecsql.Statement, error) {
	if d.closed {
		return nil, vecsql.Error{Msg: "database is closed", Code: vecsql.StatusConnection}
	}
	if err := d.compile(ctx, query); err != nil {
		return nil, err
	}
	stmt, err := d.conn.(driver.ConnPrepareContext).PrepareContext(ctx, query)
	if err != nil {
		return nil, kinded(err)
	}
	return &statement{
		db:    d,
		stmt:  stmt,
		names: sqltext.Placeholders(query),
		ret:   sqltext.ReturnTypeOf(query),
	}, nil
}

// compile makes SQLite parse query without running it. The driver
// defers sqlite3_prepare to the first execution, so parse errors would
// otherwise only show up then. The EXPLAIN is run without arguments,
// binding failures after a successful parse are not *sqlite.Error
// values and are ignored.
func (d *database) compile(ctx context.Context, query string) error {
	if sqltext.FirstKeyword(query) == "EXPLAIN" {
		return nil
	}
	rows, err := d.conn.(driver.QueryerContext).QueryContext(ctx, "EXPLAIN "+query, nil)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) {
			return kinded(err)
		}
		return nil
	}
	return rows.Close()
}

func (d *database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}

func (d *database) TablesQuery(includeSystem bool) string {
	if includeSystem {
		return "SELECT name FROM sqlite_master WHERE type = 'table' UNION ALL SELECT 'sqlite_master'"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
}

func (d *database) ViewsQuery(bool) string {
	return "SELECT name FROM sqlite_master WHERE type = 'view'"
}

func (d *database) DescribeQuery(schema, table string) string {
	if schema != "" {
		return fmt.Sprintf(`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(%s, %s)`,
			quoteString(table), quoteString(schema))
	}
	return fmt.Sprintf(`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(%s)`, quoteString(table))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type statement struct {
	db    *database
	stmt  driver.Stmt
	names []string
	ret   vecsql.ReturnType
}

// NumParams comes from the statement text, the driver does not report
// it.
func (s *statement) NumParams() int {
	if n := s.stmt.NumInput(); n >= 0 {
		return n
	}
	return len(s.names)
}

func (s *statement) ReturnType() vecsql.ReturnType { return s.ret }

func (s *statement) args(params []any) []driver.NamedValue {
	args := make([]driver.NamedValue, len(params))
	for i, p := range params {
		args[i] = driver.NamedValue{Ordinal: i + 1, Value: p}
		if i < len(s.names) {
			args[i].Name = s.names[i]
		}
	}
	return args
}

func (s *statement) Execute(ctx context.Context, params []any) (vecsql.RowSource, error) {
	if s.db.closed {
		return nil, vecsql.Error{Msg: "database is closed", Code: vecsql.StatusConnection}
	}

	if s.ret == vecsql.ReturnQuery {
		rows, err := s.stmt.(driver.StmtQueryContext).QueryContext(ctx, s.args(params))
		if err != nil {
			return nil, kinded(err)
		}
		return newSource(rows), nil
	}

	res, err := s.stmt.(driver.StmtExecContext).ExecContext(ctx, s.args(params))
	if err != nil {
		return nil, kinded(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}
	return &source{count: &n}, nil
}

func (s *statement) Close() error { return s.stmt.Close() }

// source steps through driver rows, one row per chunk. A source with
// count set is the result of a data modifying statement.
type source struct {
	rows  driver.Rows
	cols  []vecsql.ColumnInfo
	count *int64
	done  bool
}

func newSource(rows driver.Rows) *source {
	names := rows.Columns()
	cols := make([]vecsql.ColumnInfo, len(names))
	for i, name := range names {
		cols[i] = vecsql.ColumnInfo{Name: name, Nullable: true}
		if r, ok := rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
			cols[i].DeclType = r.ColumnTypeDatabaseTypeName(i)
		}
		if r, ok := rows.(driver.RowsColumnTypeNullable); ok {
			if nullable, ok := r.ColumnTypeNullable(i); ok {
				cols[i].Nullable = nullable
			}
		}
	}
	return &source{rows: rows, cols: cols}
}

func (s *source) Columns() []vecsql.ColumnInfo {
	if s.count != nil {
		return []vecsql.ColumnInfo{{Name: "Count", Type: vecsql.NativeInt}}
	}
	return s.cols
}

func (s *source) FetchChunk(ctx context.Context) (vecsql.Chunk, error) {
	if s.done {
		return nil, nil
	}
	if s.count != nil {
		s.done = true
		return row{*s.count}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := make([]driver.Value, len(s.cols))
	if err := s.rows.Next(dest); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, kinded(err)
	}
	return row(dest), nil
}

func (s *source) Close() error {
	s.done = true
	if s.rows == nil {
		return nil
	}
	err := s.rows.Close()
	s.rows = nil
	return err
}

// row is a chunk holding a single row.
type row []driver.Value

func (r row) NumRows() int { return 1 }
func (r row) NumCols() int { return len(r) }
func (r row) Release()     {}

func (r row) ValueAt(_, col int) vecsql.Native {
	switch v := r[col].(type) {
	case nil:
		return vecsql.Null
	case int64:
		return vecsql.IntValue(v)
	case float64:
		return vecsql.FloatValue(v)
	case bool:
		return vecsql.BoolValue(v)
	case []byte:
		return vecsql.BlobValue(v)
	case string:
		return vecsql.TextValue(v)
	case time.Time:
		return vecsql.CastValue(vecsql.NativeTemporal, timeCell(v))
	}
	return vecsql.CastValue(vecsql.NativeOther, otherCell{r[col]})
}

type timeCell time.Time

func (t timeCell) CastText() (string, error) { return vecsql.FormatTime(time.Time(t).UTC()), nil }

type otherCell struct{ v any }

func (o otherCell) CastText() (string, error) { return fmt.Sprint(o.v), nil }

// engineError carries the SQLite result code name as the error kind.
type engineError struct{ err error }

func (e engineError) Error() string { return e.err.Error() }
func (e engineError) Unwrap() error { return e.err }

func (e engineError) ErrorKind() string {
	var se *sqlite.Error
	if errors.As(e.err, &se) {
		return fmt.Sprintf("SQLite Error %d", se.Code())
	}
	return "SQLite Error"
}

func kinded(err error) error {
	if err == nil {
		return nil
	}
	return engineError{err: err}
}
