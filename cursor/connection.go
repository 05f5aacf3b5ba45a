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

// Package cursor adapts a chunked vecsql engine to a single row,
// forward only cursor.
//
// A Connection owns one open engine database and any number of Result
// cursors created from it. Neither is safe for concurrent use, the
// caller serializes access to a connection and its results.
package cursor

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"weak"

	"github.com/google/uuid"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/sqltext"
	"github.com/vecsql/vecsql/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// TableType selects the kinds of tables listed by Connection.Tables.
type TableType uint8

const (
	TableTypeTables TableType = 1 << iota
	TableTypeSystem
	TableTypeViews

	TableTypeAll = TableTypeTables | TableTypeSystem | TableTypeViews
)

// IdentifierType tells EscapeIdentifier how to treat dots.
type IdentifierType uint8

const (
	IdentifierField IdentifierType = iota
	IdentifierTable
)

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger of the connection and its results.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for connection and result spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Connection) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithCacheSize sets the number of analyzed statement texts kept per
// connection.
func WithCacheSize(n int) Option {
	return func(c *Connection) { c.cacheSize = n }
}

// WithPrecisionPolicy sets the policy new results start with.
func WithPrecisionPolicy(p vecsql.PrecisionPolicy) Option {
	return func(c *Connection) { c.policy = p }
}

// Connection is an engine database together with the results created
// from it.
type Connection struct {
	engine    vecsql.Engine
	logger    *slog.Logger
	tracer    trace.Tracer
	cacheSize int
	policy    vecsql.PrecisionPolicy

	db      vecsql.Database
	cache   *sqltext.Cache
	lastErr error

	mu      sync.Mutex
	results map[uuid.UUID]weak.Pointer[Result]
	// handles of results which were garbage collected without being
	// finalized, released on the caller's goroutine
	orphans []*handle
}

func NewConnection(engine vecsql.Engine, opts ...Option) *Connection {
	c := &Connection{
		engine:    engine,
		logger:    telemetry.NilLogger(),
		tracer:    telemetry.NilTracer(),
		cacheSize: sqltext.DefaultCacheSize,
		results:   make(map[uuid.UUID]weak.Pointer[Result]),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("engine", engine.Name())
	c.cache = sqltext.NewCache(c.cacheSize)
	return c
}

func (c *Connection) Engine() vecsql.Engine { return c.engine }

// Handle returns the open engine database, nil when closed.
func (c *Connection) Handle() vecsql.Database { return c.db }

func (c *Connection) IsOpen() bool { return c.db != nil }

func (c *Connection) LastError() error { return c.lastErr }

func (c *Connection) PrecisionPolicy() vecsql.PrecisionPolicy { return c.policy }

func (c *Connection) setErr(err error) bool {
	c.lastErr = err
	return false
}

// Open opens the database at path. options is a connection option
// string as accepted by ParseOptions. An open connection is closed
// first.
func (c *Connection) Open(ctx context.Context, path, options string) bool {
	ctx, span := c.tracer.Start(ctx, "Connection.Open", trace.WithAttributes(
		telemetry.KeyEngine.String(c.engine.Name())))

	if c.IsOpen() {
		c.Close()
	}
	c.lastErr = nil

	opts := ParseOptions(options, c.logger)
	if opts.Precision != nil {
		c.policy = *opts.Precision
	}

	db, err := c.engine.Open(ctx, path, opts.Open)
	if err != nil {
		err = vecsql.WrapEngine(vecsql.StatusConnection, "Unable to open database", err)
		telemetry.EndSpan(span, err)
		return c.setErr(err)
	}
	c.db = db
	c.cache.Purge()
	telemetry.EndSpan(span, nil)
	c.logger.Debug("opened database", "path", path, "read_only", opts.Open.ReadOnly)
	return true
}

// Close finalizes every live result and closes the engine database.
// It reports false if the engine failed to close, the connection is
// closed either way.
func (c *Connection) Close() bool {
	if !c.IsOpen() {
		return true
	}

	c.mu.Lock()
	live := make([]*Result, 0, len(c.results))
	for _, wp := range c.results {
		if r := wp.Value(); r != nil {
			live = append(live, r)
		}
	}
	c.mu.Unlock()

	for _, r := range live {
		r.Finalize()
	}
	c.releaseOrphans()

	c.mu.Lock()
	clear(c.results)
	c.mu.Unlock()

	db := c.db
	c.db = nil
	if err := db.Close(); err != nil {
		return c.setErr(vecsql.WrapEngine(vecsql.StatusConnection, "Unable to close database", err))
	}
	c.logger.Debug("closed database", "results", len(live))
	return true
}

type orphan struct {
	id uuid.UUID
	h  *handle
}

// NewResult creates a cursor bound to this connection.
func (c *Connection) NewResult() *Result {
	c.releaseOrphans()

	id := uuid.New()
	r := &Result{
		id:     id,
		conn:   c,
		h:      newHandle(c.db, c.logger.With("result_id", id.String())),
		tracer: c.tracer,
		policy: c.policy,
	}
	r.logger = r.h.logger

	c.track(r)
	runtime.AddCleanup(r, c.collect, orphan{id: id, h: r.h})
	return r
}

// track registers r unless it already is. Finalize and Close drop a
// result from the registry, a result prepared again is added back.
func (c *Connection) track(r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[r.id]; !ok {
		c.results[r.id] = weak.Make(r)
	}
}

// collect runs on the cleanup goroutine once an unfinalized result was
// garbage collected. It only queues the handle.
func (c *Connection) collect(o orphan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[o.id]; !ok {
		return
	}
	delete(c.results, o.id)
	c.orphans = append(c.orphans, o.h)
}

func (c *Connection) releaseOrphans() {
	c.mu.Lock()
	orphans := c.orphans
	c.orphans = nil
	c.mu.Unlock()
	for _, h := range orphans {
		h.finalize()
	}
}

func (c *Connection) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, id)
}

// NumResults is the number of results registered and not finalized.
func (c *Connection) NumResults() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// run executes a statement which produces no rows.
func (c *Connection) run(ctx context.Context, query string) error {
	r := c.NewResult()
	defer r.Finalize()
	if !r.Reset(ctx, query) {
		return r.LastError()
	}
	return nil
}

func (c *Connection) txn(ctx context.Context, name, query string) bool {
	ctx, span := c.tracer.Start(ctx, "Connection."+name)
	c.lastErr = nil
	if !c.IsOpen() {
		err := vecsql.Error{Msg: "Unable to " + strings.ToLower(name) + " transaction", Code: vecsql.StatusTransaction, Details: "Database not open"}
		telemetry.EndSpan(span, err)
		return c.setErr(err)
	}
	if err := c.run(ctx, query); err != nil {
		err = vecsql.WrapEngine(vecsql.StatusTransaction, "Unable to "+strings.ToLower(name)+" transaction", err)
		telemetry.EndSpan(span, err)
		return c.setErr(err)
	}
	telemetry.EndSpan(span, nil)
	return true
}

func (c *Connection) Begin(ctx context.Context) bool {
	return c.txn(ctx, "Begin", "BEGIN TRANSACTION")
}

func (c *Connection) Commit(ctx context.Context) bool {
	return c.txn(ctx, "Commit", "COMMIT")
}

func (c *Connection) Rollback(ctx context.Context) bool {
	return c.txn(ctx, "Rollback", "ROLLBACK")
}

// firstColumn returns the first column of every row of query.
func (c *Connection) firstColumn(ctx context.Context, query string) ([]string, error) {
	r := c.NewResult()
	defer r.Finalize()
	if !r.Reset(ctx, query) {
		return nil, r.LastError()
	}

	var out []string
	row := make([]driver.Value, len(r.Record()))
	for r.FetchNext(ctx, row, 0) {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok {
			out = append(out, s)
		}
	}
	return out, r.LastError()
}

func (c *Connection) catalog() (vecsql.Catalog, error) {
	if !c.IsOpen() {
		return nil, vecsql.Error{Msg: "Database not open", Code: vecsql.StatusConnection}
	}
	cat, ok := c.db.(vecsql.Catalog)
	if !ok {
		return nil, vecsql.Errorf(vecsql.StatusNotImplemented, "%s does not provide a catalog", c.engine.Name())
	}
	return cat, nil
}

// Tables lists the names of the tables of the given types. Failures
// yield an empty list, see LastError.
func (c *Connection) Tables(ctx context.Context, t TableType) []string {
	c.lastErr = nil
	cat, err := c.catalog()
	if err != nil {
		c.setErr(err)
		return nil
	}

	var queries []string
	switch {
	case t&TableTypeTables != 0 && t&TableTypeSystem != 0:
		queries = append(queries, cat.TablesQuery(true))
	case t&TableTypeTables != 0:
		queries = append(queries, cat.TablesQuery(false))
	}
	if t&TableTypeViews != 0 {
		queries = append(queries, cat.ViewsQuery(t&TableTypeSystem != 0))
	}

	var out []string
	for _, q := range queries {
		names, err := c.firstColumn(ctx, q)
		if err != nil {
			c.setErr(err)
			return nil
		}
		out = append(out, names...)
	}

	if t&TableTypeSystem != 0 && t&TableTypeTables == 0 {
		all, err := c.firstColumn(ctx, cat.TablesQuery(true))
		if err != nil {
			c.setErr(err)
			return nil
		}
		user, err := c.firstColumn(ctx, cat.TablesQuery(false))
		if err != nil {
			c.setErr(err)
			return nil
		}
		for _, n := range all {
			if !slices.Contains(user, n) {
				out = append(out, n)
			}
		}
	}

	slices.Sort(out)
	return slices.Compact(out)
}

// Record describes the columns of table.
func (c *Connection) Record(ctx context.Context, table string) []vecsql.Column {
	cols, _ := c.describe(ctx, table)
	return cols
}

// PrimaryIndex describes the primary key columns of table.
func (c *Connection) PrimaryIndex(ctx context.Context, table string) []vecsql.Column {
	cols, pk := c.describe(ctx, table)
	var out []vecsql.Column
	for i, col := range cols {
		if pk[i] {
			out = append(out, col)
		}
	}
	return out
}

// describe runs the catalog's describe query for table, whose rows hold
// cid, name, type, notnull, dflt_value and pk.
func (c *Connection) describe(ctx context.Context, table string) ([]vecsql.Column, []bool) {
	c.lastErr = nil
	cat, err := c.catalog()
	if err != nil {
		c.setErr(err)
		return nil, nil
	}

	schema, name := sqltext.SplitTableName(table)
	r := c.NewResult()
	defer r.Finalize()
	if !r.Reset(ctx, cat.DescribeQuery(schema, name)) {
		c.setErr(r.LastError())
		return nil, nil
	}

	var (
		cols []vecsql.Column
		pk   []bool
	)
	row := make([]driver.Value, max(len(r.Record()), 6))
	for r.FetchNext(ctx, row, 0) {
		colName, _ := row[1].(string)
		declType, _ := row[2].(string)
		isPK := asBool(row[5])

		col := vecsql.Column{
			Name:         stripQuotes(colName),
			Kind:         KindFromDeclType(declType),
			Table:        stripQuotes(name),
			DatabaseType: declType,
			Required:     asBool(row[3]),
			PrimaryKey:   isPK,
			Default:      unquoteDefault(row[4]),
		}
		col.Nullable = !col.Required
		col.AutoValue = isPK && strings.EqualFold(declType, "integer")
		cols = append(cols, col)
		pk = append(pk, isPK)
	}
	if err := r.LastError(); err != nil {
		c.setErr(err)
		return nil, nil
	}
	return cols, pk
}

func asBool(v any) bool {
	switch v := v.(type) {
	case int64:
		return v != 0
	case float64:
		return v != 0
	case bool:
		return v
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}

// unquoteDefault strips the single quotes of a textual default value,
// undoubling embedded quotes.
func unquoteDefault(v any) any {
	s, ok := v.(string)
	if !ok || len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return v
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
}

// EscapeIdentifier quotes id for use in statement text.
func (c *Connection) EscapeIdentifier(id string, t IdentifierType) string {
	return sqltext.EscapeIdentifier(id, t == IdentifierTable)
}

// HasFeature reports whether the driver supports f.
func (c *Connection) HasFeature(f Feature) bool { return supported[f] }
