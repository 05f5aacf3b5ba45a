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
	"fmt"
	"log/slog"
	"slices"

	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/sqltext"
)

type state uint8

const (
	stateUnprepared state = iota // Unprepared
	statePrepared                // Prepared
	stateExecuted                // Executed
	stateFetching                // Fetching
	stateExhausted               // Exhausted
	stateFinalized               // Finalized
)

func (s state) String() string {
	return [...]string{"Unprepared", "Prepared", "Executed", "Fetching", "Exhausted", "Finalized"}[s]
}

const (
	msgPrepare  = "Unable to prepare statement"
	msgExecute  = "Unable to execute statement"
	msgFetch    = "Unable to fetch row"
	msgMultiple = "Unable to execute multiple statements at a time"
	msgNoQuery  = "No query"
)

// handle owns one prepared engine statement together with its running
// result, at most one buffered chunk and the bound parameters.
//
// handle is not safe for concurrent use.
type handle struct {
	db     vecsql.Database
	logger *slog.Logger

	stmt      vecsql.Statement
	sql       string
	names     []string
	directive bool

	src   vecsql.RowSource
	cols  []vecsql.ColumnInfo
	chunk vecsql.Chunk
	row   int

	params  []any
	bound   map[int]struct{}
	stray   []int
	changed int64

	state state
}

func newHandle(db vecsql.Database, logger *slog.Logger) *handle {
	return &handle{db: db, logger: logger, row: -1, changed: -1}
}

func (h *handle) prepared() bool {
	return h.stmt != nil && h.state != stateFinalized
}

func (h *handle) returnType() vecsql.ReturnType {
	if h.stmt == nil || h.directive {
		return vecsql.ReturnNothing
	}
	return h.stmt.ReturnType()
}

func (h *handle) numParams() int { return len(h.params) }

// prepare replaces any previous statement with the first statement of
// a. Session directives without parameters are applied right away.
func (h *handle) prepare(ctx context.Context, a sqltext.Analysis) error {
	h.finalize()
	h.state = stateUnprepared

	if a.Trailing {
		return vecsql.Error{Msg: msgMultiple, Code: vecsql.StatusMultipleStatements}
	}
	if a.Statement == "" {
		return vecsql.Error{Msg: msgPrepare, Code: vecsql.StatusPrepare, Details: msgNoQuery}
	}
	if h.db == nil {
		return vecsql.Error{Msg: msgPrepare, Code: vecsql.StatusConnection, Details: "Database not open"}
	}

	stmt, err := h.db.Prepare(ctx, a.Statement)
	if err != nil {
		return vecsql.WrapEngine(vecsql.StatusPrepare, msgPrepare, err)
	}

	n := max(stmt.NumParams(), 0)
	h.stmt, h.sql = stmt, a.Statement
	h.params = make([]any, n)
	h.bound = make(map[int]struct{}, n)
	h.stray = nil
	h.names = make([]string, n)
	copy(h.names, a.Params)
	h.state = statePrepared

	if a.Directive && n == 0 {
		src, err := stmt.Execute(ctx, nil)
		if err != nil {
			return vecsql.WrapEngine(vecsql.StatusExecution, msgExecute, err)
		}
		h.closeSource(src)
		h.directive = true
		h.logger.Debug("applied session directive", "query", a.Statement)
	}
	return nil
}

// bind stores v at pos. Positions outside the declared range are kept
// aside and fail the next execute, they never count as bound.
func (h *handle) bind(pos int, v any) {
	if pos < 0 || pos >= len(h.params) {
		if !slices.Contains(h.stray, pos) {
			h.stray = append(h.stray, pos)
		}
		return
	}
	if h.bound == nil {
		h.bound = map[int]struct{}{}
	}
	h.bound[pos] = struct{}{}
	h.params[pos] = v
}

func (h *handle) clearBindings() {
	clear(h.params)
	clear(h.bound)
	h.stray = h.stray[:0]
}

// execute runs the prepared statement with the bound parameters.
func (h *handle) execute(ctx context.Context) error {
	if !h.prepared() {
		return vecsql.Error{Msg: msgExecute, Code: vecsql.StatusInvalidState, Details: msgNoQuery}
	}
	if len(h.stray) > 0 {
		return vecsql.Error{
			Msg:     msgExecute,
			Code:    vecsql.StatusParameterCountMismatch,
			Details: fmt.Sprintf("statement has %d parameters, position %d bound", len(h.params), h.stray[0]),
		}
	}
	if len(h.bound) != len(h.params) {
		return vecsql.Error{
			Msg:     msgExecute,
			Code:    vecsql.StatusParameterCountMismatch,
			Details: fmt.Sprintf("statement has %d parameters, %d bound", len(h.params), len(h.bound)),
		}
	}

	h.detach()
	h.changed = -1
	h.cols = nil
	if h.directive {
		h.state = stateExhausted
		return nil
	}

	args := make([]any, len(h.params))
	for i, p := range h.params {
		v, err := ToNative(p)
		if err != nil {
			return vecsql.WrapEngine(vecsql.StatusInvalidArgument, fmt.Sprintf("Unable to bind parameter %d", i+1), err)
		}
		args[i] = v
	}

	src, err := h.stmt.Execute(ctx, args)
	if err != nil {
		h.state = stateExhausted
		return vecsql.WrapEngine(vecsql.StatusExecution, msgExecute, err)
	}

	switch h.stmt.ReturnType() {
	case vecsql.ReturnQuery:
		h.src = src
		h.cols = src.Columns()
		h.state = stateExecuted
		return nil
	case vecsql.ReturnChangedRows:
		chunk, err := src.FetchChunk(ctx)
		if err == nil && chunk != nil {
			if chunk.NumRows() > 0 && chunk.NumCols() > 0 {
				h.changed = changedCount(chunk.ValueAt(0, 0))
			}
			chunk.Release()
		}
		h.closeSource(src)
		h.state = stateExhausted
		if err != nil {
			return vecsql.WrapEngine(vecsql.StatusExecution, msgExecute, err)
		}
		return nil
	}

	h.closeSource(src)
	h.state = stateExhausted
	return nil
}

func changedCount(v vecsql.Native) int64 {
	switch v.Type {
	case vecsql.NativeInt, vecsql.NativeBool:
		return v.I64
	case vecsql.NativeUint:
		return int64(v.U64)
	case vecsql.NativeFloat, vecsql.NativeDecimal:
		return int64(v.F64)
	}
	return -1
}

// fetch moves to the next row, pulling the next chunk from the engine
// once the buffered one is used up. It reports false once the result is
// exhausted; after that the engine is not asked again.
func (h *handle) fetch(ctx context.Context) (bool, error) {
	switch h.state {
	case stateUnprepared, stateFinalized:
		return false, vecsql.Error{Msg: msgFetch, Code: vecsql.StatusInvalidState, Details: msgNoQuery}
	case statePrepared:
		return false, vecsql.Error{Msg: msgFetch, Code: vecsql.StatusInvalidState, Details: "Statement not executed"}
	case stateExhausted:
		return false, nil
	}

	if h.chunk != nil && h.row+1 < h.chunk.NumRows() {
		h.row++
		h.state = stateFetching
		return true, nil
	}

	h.releaseChunk()
	chunk, err := h.src.FetchChunk(ctx)
	if err != nil {
		h.exhaust()
		return false, vecsql.WrapEngine(vecsql.StatusExecution, msgFetch, err)
	}
	if chunk == nil || chunk.NumRows() == 0 {
		if chunk != nil {
			chunk.Release()
		}
		h.exhaust()
		return false, nil
	}
	h.chunk, h.row = chunk, 0
	h.state = stateFetching
	return true, nil
}

// numCols is the number of result columns.
func (h *handle) numCols() int {
	if h.cols != nil {
		return len(h.cols)
	}
	if h.chunk != nil {
		return h.chunk.NumCols()
	}
	return 0
}

// value reads a cell of the current row.
func (h *handle) value(col int) vecsql.Native {
	return h.chunk.ValueAt(h.row, col)
}

func (h *handle) releaseChunk() {
	if h.chunk != nil {
		h.chunk.Release()
		h.chunk = nil
	}
	h.row = -1
}

func (h *handle) closeSource(src vecsql.RowSource) {
	if err := src.Close(); err != nil {
		h.logger.Warn("error closing result source", "query", h.sql, "error", err)
	}
}

func (h *handle) exhaust() {
	h.releaseChunk()
	if h.src != nil {
		h.closeSource(h.src)
		h.src = nil
	}
	h.state = stateExhausted
}

// detach drops the running result but keeps the statement prepared.
func (h *handle) detach() {
	switch h.state {
	case stateExecuted, stateFetching:
		h.exhaust()
	default:
		h.releaseChunk()
	}
}

// finalize releases everything. It is idempotent and never fails,
// close errors are only logged.
func (h *handle) finalize() {
	if h.state == stateFinalized && h.stmt == nil {
		return
	}
	h.detach()
	if h.stmt != nil {
		if err := h.stmt.Close(); err != nil {
			h.logger.Warn("error finalizing statement", "query", h.sql, "error", err)
		}
		h.stmt = nil
	}
	h.directive = false
	h.params, h.bound, h.stray, h.names, h.cols = nil, nil, nil, nil, nil
	h.changed = -1
	h.state = stateFinalized
}
