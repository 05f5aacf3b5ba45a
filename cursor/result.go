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

package cursor

import (
	"context"
	"database/sql/driver"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Result is a forward only row cursor over one prepared statement.
//
// Exec performs the first fetch itself so that the shape of the result
// is known before the caller asks for a row. That row is kept and
// handed out by the next FetchNext, after which rows come straight from
// the engine, one chunk at a time.
//
// Methods report failure by returning false and recording the error,
// which LastError returns. A Result is not safe for concurrent use.
type Result struct {
	id     uuid.UUID
	conn   *Connection
	h      *handle
	logger *slog.Logger
	tracer trace.Tracer
	policy vecsql.PrecisionPolicy

	active   bool
	isSelect bool
	lastErr  error

	// lookahead row produced by Exec
	skipRow  bool
	firstOK  bool
	firstRow []driver.Value

	record []vecsql.Column
}

// ID identifies the result in logs and traces.
func (r *Result) ID() uuid.UUID { return r.id }

func (r *Result) LastError() error { return r.lastErr }

// IsActive reports whether the last Exec succeeded and the result was
// not finalized or detached since.
func (r *Result) IsActive() bool { return r.active }

// IsSelect reports whether the executed statement produces rows.
func (r *Result) IsSelect() bool { return r.isSelect }

func (r *Result) PrecisionPolicy() vecsql.PrecisionPolicy { return r.policy }

// SetPrecisionPolicy selects how floating point and decimal cells of
// subsequent fetches are converted.
func (r *Result) SetPrecisionPolicy(p vecsql.PrecisionPolicy) { r.policy = p }

func (r *Result) setErr(err error) bool {
	r.lastErr = err
	return false
}

func (r *Result) reset() {
	r.active, r.isSelect = false, false
	r.skipRow, r.firstOK, r.firstRow = false, false, nil
	r.record = nil
	r.lastErr = nil
}

// Prepare prepares the first statement of query. Text after it other
// than whitespace and comments is rejected.
func (r *Result) Prepare(ctx context.Context, query string) bool {
	ctx, span := r.tracer.Start(ctx, "Result.Prepare", trace.WithAttributes(
		telemetry.KeyResultID.String(r.id.String()),
		telemetry.KeyQuery.String(query)))

	r.reset()
	if r.conn == nil || !r.conn.IsOpen() {
		r.h.finalize()
		err := vecsql.Error{Msg: msgPrepare, Code: vecsql.StatusConnection, Details: "Database not open"}
		telemetry.EndSpan(span, err)
		return r.setErr(err)
	}
	r.h.db = r.conn.db
	r.conn.track(r)

	err := r.h.prepare(ctx, r.conn.cache.Analyze(query))
	telemetry.EndSpan(span, err)
	if err != nil {
		return r.setErr(err)
	}
	r.logger.Debug("prepared statement", "query", r.h.sql, "params", r.h.numParams())
	return true
}

// Reset prepares and executes query.
func (r *Result) Reset(ctx context.Context, query string) bool {
	return r.Prepare(ctx, query) && r.Exec(ctx)
}

// NumParams is the number of parameters of the prepared statement.
func (r *Result) NumParams() int {
	if !r.h.prepared() {
		return 0
	}
	return r.h.numParams()
}

// ParameterNames returns the name of every parameter position, empty
// for anonymous parameters.
func (r *Result) ParameterNames() []string {
	return append([]string(nil), r.h.names...)
}

// BindValue binds v to the zero based parameter position pos.
func (r *Result) BindValue(pos int, v any) { r.h.bind(pos, v) }

// BindValues replaces all bindings with vs, in position order.
func (r *Result) BindValues(vs []any) {
	r.h.clearBindings()
	for i, v := range vs {
		r.h.bind(i, v)
	}
}

func (r *Result) ClearBindings() { r.h.clearBindings() }

// Exec executes the prepared statement with the current bindings. For
// row producing statements the first row is fetched, and the column
// descriptors are built, before Exec returns.
func (r *Result) Exec(ctx context.Context) bool {
	ctx, span := r.tracer.Start(ctx, "Result.Exec", trace.WithAttributes(
		telemetry.KeyResultID.String(r.id.String()),
		telemetry.KeyQuery.String(r.h.sql)))

	r.reset()
	if err := r.h.execute(ctx); err != nil {
		r.h.detach()
		telemetry.EndSpan(span, err)
		return r.setErr(err)
	}

	r.isSelect = r.h.returnType() == vecsql.ReturnQuery
	if r.isSelect {
		ok, err := r.advance(ctx)
		if err != nil {
			r.isSelect = false
			telemetry.EndSpan(span, err)
			return r.setErr(err)
		}
		if ok {
			r.firstRow = make([]driver.Value, r.h.numCols())
			r.load(r.firstRow, 0)
		}
		r.skipRow, r.firstOK = true, ok
	} else {
		span.SetAttributes(telemetry.KeyRows.Int64(r.h.changed))
	}

	r.active = true
	telemetry.EndSpan(span, nil)
	r.logger.Debug("executed statement", "query", r.h.sql, "select", r.isSelect)
	return true
}

// FetchNext moves to the next row and stores its values in
// row[offset:]. A negative offset advances without converting. It
// returns false at the end of the result or on error.
func (r *Result) FetchNext(ctx context.Context, row []driver.Value, offset int) bool {
	if r.skipRow {
		if r.firstOK && offset >= 0 {
			if err := checkBuffer(row, offset, len(r.firstRow)); err != nil {
				return r.setErr(err)
			}
			copy(row[offset:], r.firstRow)
		}
		r.skipRow = false
		r.firstRow = nil
		return r.firstOK
	}

	ok, err := r.advance(ctx)
	if err != nil {
		return r.setErr(err)
	}
	if !ok || offset < 0 {
		return ok
	}
	if err := checkBuffer(row, offset, r.h.numCols()); err != nil {
		return r.setErr(err)
	}
	r.load(row, offset)
	return true
}

func checkBuffer(row []driver.Value, offset, n int) error {
	if len(row) < offset+n {
		return vecsql.Errorf(vecsql.StatusInvalidArgument,
			"row buffer holds %d values from offset %d, %d needed", len(row), offset, n)
	}
	return nil
}

// advance moves the handle to the next row and builds the column
// descriptors from the first row seen, or from the declared columns
// when the result is empty.
func (r *Result) advance(ctx context.Context) (bool, error) {
	ok, err := r.h.fetch(ctx)
	if err != nil {
		return false, err
	}
	if r.record != nil {
		return ok, nil
	}
	if !ok {
		r.record = buildColumns(r.h.cols, nil)
		return false, nil
	}
	first := make([]vecsql.Native, r.h.numCols())
	for i := range first {
		first[i] = r.h.value(i)
	}
	r.record = buildColumns(r.h.cols, first)
	return true, nil
}

// load converts the current row into row[offset:].
func (r *Result) load(row []driver.Value, offset int) {
	for i := range r.h.numCols() {
		row[i+offset] = Convert(r.h.value(i), r.policy)
	}
}

// Size is always -1: the number of rows is not known in advance.
func (r *Result) Size() int { return -1 }

// NumRowsAffected is the changed row count of a data modifying
// statement, -1 when unknown.
func (r *Result) NumRowsAffected() int64 {
	if !r.active || r.h.returnType() != vecsql.ReturnChangedRows {
		return -1
	}
	return r.h.changed
}

// Record describes the result columns. It is empty unless the result
// is active and produces rows.
func (r *Result) Record() []vecsql.Column {
	if !r.active || !r.isSelect {
		return nil
	}
	return append([]vecsql.Column(nil), r.record...)
}

// LastInsertID is not supported, use RETURNING instead.
func (r *Result) LastInsertID() (int64, error) {
	return 0, vecsql.Error{Msg: "last insert id is not supported, use RETURNING", Code: vecsql.StatusNotImplemented}
}

// DetachFromResultSet stops reading the current result. The statement
// stays prepared and can be executed again.
func (r *Result) DetachFromResultSet() {
	r.h.detach()
	r.skipRow, r.firstOK, r.firstRow = false, false, nil
	r.active = false
}

// ExecBatch executes the prepared statement once per row of columns,
// where columns[i][row] is bound to parameter i. All columns must have
// the same length. NumRowsAffected afterwards is the total over all
// executions, the result of the last execution stays active.
func (r *Result) ExecBatch(ctx context.Context, columns [][]any) bool {
	fail := func(err error) bool {
		r.h.detach()
		r.reset()
		return r.setErr(err)
	}
	if !r.h.prepared() {
		return fail(vecsql.Error{Msg: msgExecute, Code: vecsql.StatusInvalidState, Details: msgNoQuery})
	}
	if len(columns) != r.h.numParams() {
		return fail(vecsql.Errorf(vecsql.StatusParameterCountMismatch,
			"statement has %d parameters, %d columns given", r.h.numParams(), len(columns)))
	}

	rows := 1
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	for _, c := range columns {
		if len(c) != rows {
			return fail(vecsql.Errorf(vecsql.StatusInvalidArgument, "batch columns differ in length"))
		}
	}
	if rows == 0 {
		return fail(vecsql.Errorf(vecsql.StatusInvalidArgument, "batch has no rows"))
	}

	var total int64 = -1
	for i := range rows {
		r.h.clearBindings()
		for p, c := range columns {
			r.h.bind(p, c[i])
		}
		if !r.Exec(ctx) {
			return false
		}
		if n := r.h.changed; n >= 0 {
			total = max(total, 0) + n
		}
	}
	r.h.changed = total
	return true
}

// Finalize releases the statement and its result. It is idempotent.
func (r *Result) Finalize() {
	r.h.finalize()
	r.reset()
	if r.conn != nil {
		r.conn.forget(r.id)
	}
}
