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

package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
	"go.opentelemetry.io/otel/trace"
)

// connection string keys naming the database
var pathKeys = []string{"path", "database", "uri"}

var openFlags = []string{cursor.OptionReadOnly, cursor.OptionSharedCache, cursor.OptionURI}

func isFlag(s string) bool {
	for _, f := range openFlags {
		if strings.EqualFold(s, f) {
			return true
		}
	}
	return false
}

// parseConnectStr splits a connection string into the database path and
// the remaining connection options. Entries are separated by ';' and
// are either key=value pairs or bare flags. A leading bare entry which
// is not a flag is taken as the path.
func parseConnectStr(str string) (path, options string, err error) {
	var (
		opts    []string
		hasPath bool
	)
	setPath := func(p string) error {
		if hasPath {
			return vecsql.Error{Msg: "database path given more than once", Code: vecsql.StatusInvalidArgument}
		}
		path, hasPath = p, true
		return nil
	}

	for i, entry := range strings.Split(str, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		key, val, ok := strings.Cut(entry, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch {
		case !ok && isFlag(entry):
			opts = append(opts, entry)
		case !ok && i == 0:
			if err := setPath(entry); err != nil {
				return "", "", err
			}
		case !ok:
			return "", "", vecsql.Error{
				Msg:  "invalid format for connection string entry " + strconv.Quote(entry),
				Code: vecsql.StatusInvalidArgument,
			}
		case isPathKey(key):
			if err := setPath(val); err != nil {
				return "", "", err
			}
		default:
			opts = append(opts, key+"="+val)
		}
	}
	return path, strings.Join(opts, ";"), nil
}

func isPathKey(key string) bool {
	for _, k := range pathKeys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}

type connector struct {
	drv     Driver
	path    string
	options string
}

// Connect opens a new engine connection. The provided context is only
// used while opening.
//
// The returned connection is only used by one goroutine at a time.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	var opts []cursor.Option
	if c.drv.Logger != nil {
		opts = append(opts, cursor.WithLogger(c.drv.Logger))
	}
	if c.drv.Tracer != nil {
		opts = append(opts, cursor.WithTracer(c.drv.Tracer))
	}

	cn := cursor.NewConnection(c.drv.Engine, opts...)
	if !cn.Open(ctx, c.path, c.options) {
		return nil, cn.LastError()
	}
	return &conn{cn: cn}, nil
}

// Driver returns the underlying Driver of the connector,
// mainly to maintain compatibility with the Driver method on sql.DB
func (c *connector) Driver() driver.Driver { return c.drv }

// Driver is a database/sql driver over a vecsql engine.
type Driver struct {
	Engine vecsql.Engine
	// Logger and Tracer are optional, they default to discarding.
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Open returns a new connection to the database. The name should be
// semi-colon separated entries of the form
// path=file.db;key=value;FLAG;.....
//
// Open may return a cached connection (one previously closed),
// but doing so is unnecessary; the sql package maintains a pool
// of idle connections for efficient re-use.
//
// The returned connection is only used by one goroutine at a time.
func (d Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector expects the same format as driver.Open
func (d Driver) OpenConnector(name string) (driver.Connector, error) {
	if d.Engine == nil {
		return nil, vecsql.Error{Msg: "no engine configured", Code: vecsql.StatusInvalidState}
	}
	path, options, err := parseConnectStr(name)
	if err != nil {
		return nil, err
	}
	return &connector{drv: d, path: path, options: options}, nil
}

type ctxPrecisionKey struct{}

// WithPrecisionPolicy returns a context selecting the precision policy
// of queries run with it, overriding the connection default.
func WithPrecisionPolicy(ctx context.Context, p vecsql.PrecisionPolicy) context.Context {
	return context.WithValue(ctx, ctxPrecisionKey{}, p)
}

func PrecisionPolicyFromCtx(ctx context.Context) (vecsql.PrecisionPolicy, bool) {
	p, ok := ctx.Value(ctxPrecisionKey{}).(vecsql.PrecisionPolicy)
	return p, ok
}

// Conn is implemented by the driver connections handed out by this
// package. Use it through sql.Conn.Raw to reach the cursor layer.
type Conn interface {
	Connection() *cursor.Connection
}

// conn is a connection to a database. It is not used concurrently by
// multiple goroutines. It is assumed to be stateful.
type conn struct {
	cn *cursor.Connection
}

func (c *conn) Connection() *cursor.Connection { return c.cn }

// Close finalizes every statement of the connection and closes the
// engine database.
func (c *conn) Close() error {
	if !c.cn.Close() {
		return c.cn.LastError()
	}
	return nil
}

func (c *conn) Ping(context.Context) error {
	if !c.cn.IsOpen() {
		return driver.ErrBadConn
	}
	return nil
}

func (c *conn) IsValid() bool { return c.cn.IsOpen() }

// CheckNamedValue accepts every value the cursor can bind.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	v, err := cursor.ToNative(nv.Value)
	if err != nil {
		return err
	}
	nv.Value = v
	return nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s, err := c.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	s.owned = true

	rs, err := s.QueryContext(ctx, args)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return rs, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s, err := c.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ExecContext(ctx, args)
}

// Begin exists to fulfill the Conn interface, but will return an error.
// Instead, the ConnBeginTx interface is implemented instead.
//
// Deprecated
func (c *conn) Begin() (driver.Tx, error) {
	return nil, vecsql.Error{Msg: "use BeginTx", Code: vecsql.StatusNotImplemented}
}

// BeginTx starts a transaction. Only the default isolation level is
// supported.
func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		return nil, vecsql.Errorf(vecsql.StatusNotImplemented, "isolation level %s is not supported",
			sql.IsolationLevel(opts.Isolation))
	}
	if opts.ReadOnly {
		return nil, vecsql.Error{Msg: "read only transactions are not supported", Code: vecsql.StatusNotImplemented}
	}
	if !c.cn.Begin(ctx) {
		return nil, c.cn.LastError()
	}
	return tx{ctx: ctx, cn: c.cn}, nil
}

// Prepare returns a prepared statement, bound to this connection.
func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext returns a prepared statement, bound to this connection.
// Context is for the preparation of the statement. The statement must not
// store the context within the statement itself.
func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return c.prepare(ctx, query)
}

func (c *conn) prepare(ctx context.Context, query string) (*stmt, error) {
	r := c.cn.NewResult()
	if !r.Prepare(ctx, query) {
		err := r.LastError()
		r.Finalize()
		return nil, err
	}
	return &stmt{res: r, policy: r.PrecisionPolicy()}, nil
}

type tx struct {
	ctx context.Context
	cn  *cursor.Connection
}

func (t tx) Commit() error {
	if !t.cn.Commit(t.ctx) {
		return t.cn.LastError()
	}
	return nil
}

func (t tx) Rollback() error {
	if !t.cn.Rollback(t.ctx) {
		return t.cn.LastError()
	}
	return nil
}

type stmt struct {
	res    *cursor.Result
	policy vecsql.PrecisionPolicy
	// gen counts executions, rows of an older execution are stale
	gen uint64
	// owned statements are closed together with their rows
	owned bool
}

func (s *stmt) Close() error {
	s.res.Finalize()
	return nil
}

func (s *stmt) NumInput() int { return s.res.NumParams() }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, driver.ErrSkip
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

// bind binds args by position, or by name when any of them is named.
func (s *stmt) bind(args []driver.NamedValue) error {
	named := false
	for _, a := range args {
		if a.Name != "" {
			named = true
			break
		}
	}

	if !named {
		vals := make([]any, len(args))
		for _, a := range args {
			// Ordinal is 1-based
			vals[a.Ordinal-1] = a.Value
		}
		s.res.BindValues(vals)
		return nil
	}

	byName := make(map[string]any, len(args))
	for _, a := range args {
		key := a.Name
		if key == "" {
			key = strconv.Itoa(a.Ordinal)
		}
		byName[key] = a.Value
	}
	vals, err := cursor.ResolveNamedBindings(byName, s.res.ParameterNames())
	if err != nil {
		return err
	}
	s.res.BindValues(vals)
	return nil
}

func (s *stmt) exec(ctx context.Context, args []driver.NamedValue) error {
	if err := s.bind(args); err != nil {
		return err
	}
	policy := s.policy
	if p, ok := PrecisionPolicyFromCtx(ctx); ok {
		policy = p
	}
	s.res.SetPrecisionPolicy(policy)

	s.gen++
	if !s.res.Exec(ctx) {
		return s.res.LastError()
	}
	return nil
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if err := s.exec(ctx, args); err != nil {
		return nil, err
	}
	res := result{affected: s.res.NumRowsAffected()}
	s.res.DetachFromResultSet()
	return res, nil
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if err := s.exec(ctx, args); err != nil {
		return nil, err
	}
	return &rows{ctx: ctx, stmt: s, gen: s.gen, cols: s.res.Record(), policy: s.res.PrecisionPolicy()}, nil
}

type result struct {
	affected int64
}

func (r result) LastInsertId() (int64, error) {
	return 0, vecsql.Error{Msg: "last insert id is not supported, use RETURNING", Code: vecsql.StatusNotImplemented}
}

func (r result) RowsAffected() (int64, error) {
	if r.affected < 0 {
		return 0, vecsql.Error{Msg: "number of affected rows is unknown", Code: vecsql.StatusNotImplemented}
	}
	return r.affected, nil
}

var errStaleRows = vecsql.Error{
	Msg:  "result set was replaced by a later execution of its statement",
	Code: vecsql.StatusInvalidState,
}

type rows struct {
	ctx    context.Context
	stmt   *stmt
	gen    uint64
	cols   []vecsql.Column
	policy vecsql.PrecisionPolicy
	done   bool
}

func (r *rows) Columns() []string {
	out := make([]string, len(r.cols))
	for i, c := range r.cols {
		out[i] = c.Name
	}
	return out
}

func (r *rows) current() bool { return r.stmt != nil && r.stmt.gen == r.gen }

func (r *rows) Close() error {
	if r.stmt == nil {
		return nil
	}
	if r.current() {
		r.stmt.res.DetachFromResultSet()
	}
	var err error
	if r.stmt.owned {
		err = r.stmt.Close()
	}
	r.stmt = nil
	return err
}

func (r *rows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	if !r.current() {
		return errStaleRows
	}
	res := r.stmt.res
	if !res.IsSelect() {
		r.done = true
		return io.EOF
	}
	if res.FetchNext(r.ctx, dest, 0) {
		return nil
	}
	r.done = true
	if err := res.LastError(); err != nil {
		return err
	}
	return io.EOF
}

func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	return r.cols[index].DatabaseType
}

func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.cols[index].Nullable, true
}

var (
	scanAny    = reflect.TypeOf((*any)(nil)).Elem()
	scanInt    = reflect.TypeOf(int64(0))
	scanDouble = reflect.TypeOf(float64(0))
	scanBytes  = reflect.TypeOf([]byte{})
	scanString = reflect.TypeOf("")
)

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	switch r.cols[index].Kind {
	case vecsql.KindBool, vecsql.KindInt:
		return scanInt
	case vecsql.KindDouble:
		switch r.policy {
		case vecsql.LowPrecisionInt32, vecsql.LowPrecisionInt64:
			return scanInt
		}
		return scanDouble
	case vecsql.KindBytes:
		return scanBytes
	case vecsql.KindString:
		return scanString
	}
	return scanAny
}
