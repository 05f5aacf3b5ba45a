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

// Package enginetest provides a scripted in-memory engine for testing
// the cursor without a real database. Results are Arrow records given
// as JSON, and the engine counts how often it is asked for chunks.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/arrowchunk"
)

// Script is the canned behavior of one statement text.
type Script struct {
	// Schema and Batches (JSON arrays of row objects, one per chunk)
	// make up the result of a ReturnQuery statement. Empty batches are
	// delivered as is so that sources skipping them are exercised.
	Schema  *arrow.Schema
	Batches []string
	// DeclTypes, if set, is reported as the declared type of each
	// column the way row oriented engines do.
	DeclTypes []string
	// Tables, if set, is reported as the owning table of each column.
	Tables []string

	Return    vecsql.ReturnType
	NumParams int
	// Changed is the row count reported by ReturnChangedRows statements.
	Changed int64
	// Echo makes the result a single row holding the bound parameters.
	Echo bool

	PrepareErr error
	ExecErr    error
	// FetchErr fails the FetchErrAt'th chunk fetch (1 based) of an
	// execution.
	FetchErr   error
	FetchErrAt int
	CloseErr   error
}

// Engine is a vecsql.Engine serving Scripts keyed by statement text.
type Engine struct {
	Mem memory.Allocator

	mu      sync.Mutex
	scripts map[string]Script
	stats   Stats
}

// Stats counts the calls made into the engine.
type Stats struct {
	Opens       int
	Prepares    int
	Executions  int
	Fetches     int
	OpenStmts   int
	OpenSources int
	LastParams  []any
	LastOptions vecsql.OpenOptions
	LastPath    string
	Executed    []string
}

func New() *Engine {
	return &Engine{Mem: memory.DefaultAllocator, scripts: map[string]Script{}}
}

// On registers the script for sql and returns the engine for chaining.
func (e *Engine) On(sql string, s Script) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[sql] = s
	return e
}

// Stats returns a snapshot of the call counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Executed = append([]string(nil), e.stats.Executed...)
	return s
}

// ResetStats zeroes the fetch and execution counters.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Fetches, e.stats.Executions, e.stats.Prepares = 0, 0, 0
	e.stats.Executed = nil
}

func (e *Engine) Name() string { return "scripted" }

func (e *Engine) Open(_ context.Context, path string, opts vecsql.OpenOptions) (vecsql.Database, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if path == "fail" {
		return nil, errors.New("unable to open database file")
	}
	e.stats.Opens++
	e.stats.LastPath = path
	e.stats.LastOptions = opts
	return &database{e: e}, nil
}

// Catalog queries, answered by scripts registered for these texts.
const (
	TablesSQL       = "SELECT name FROM scripted_tables"
	SystemTablesSQL = "SELECT name FROM scripted_tables_all"
	ViewsSQL        = "SELECT name FROM scripted_views"
)

// DescribeSQL is the describe query for table in schema.
func DescribeSQL(schema, table string) string {
	if schema != "" {
		return "DESCRIBE " + schema + "." + table
	}
	return "DESCRIBE " + table
}

type database struct {
	e      *Engine
	closed bool
}

func (d *database) TablesQuery(includeSystem bool) string {
	if includeSystem {
		return SystemTablesSQL
	}
	return TablesSQL
}

func (d *database) ViewsQuery(bool) string { return ViewsSQL }

func (d *database) DescribeQuery(schema, table string) string { return DescribeSQL(schema, table) }

func (d *database) Prepare(_ context.Context, query string) (vecsql.Statement, error) {
	if d.closed {
		return nil, errors.New("database is closed")
	}
	d.e.mu.Lock()
	defer d.e.mu.Unlock()
	d.e.stats.Prepares++

	s, ok := d.e.scripts[strings.TrimSpace(query)]
	if !ok {
		return nil, fmt.Errorf("Parser Error: syntax error at or near %q", query)
	}
	if s.PrepareErr != nil {
		return nil, s.PrepareErr
	}
	d.e.stats.OpenStmts++
	return &statement{e: d.e, sql: query, s: s}, nil
}

func (d *database) Close() error {
	d.closed = true
	return nil
}

type statement struct {
	e      *Engine
	sql    string
	s      Script
	closed bool
}

func (st *statement) NumParams() int                { return st.s.NumParams }
func (st *statement) ReturnType() vecsql.ReturnType { return st.s.Return }

func (st *statement) Execute(_ context.Context, params []any) (vecsql.RowSource, error) {
	e := st.e
	e.mu.Lock()
	e.stats.Executions++
	e.stats.LastParams = append([]any(nil), params...)
	e.stats.Executed = append(e.stats.Executed, st.sql)
	e.mu.Unlock()

	if st.closed {
		return nil, errors.New("statement is closed")
	}
	if st.s.ExecErr != nil {
		return nil, st.s.ExecErr
	}

	var (
		schema *arrow.Schema
		recs   []arrow.RecordBatch
	)
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	switch {
	case st.s.Echo:
		rec, err := arrowchunk.BuildParams(e.Mem, params, nil, nil)
		if err != nil {
			return nil, err
		}
		schema, recs = rec.Schema(), []arrow.RecordBatch{rec}
	case st.s.Return == vecsql.ReturnChangedRows:
		schema = arrow.NewSchema([]arrow.Field{{Name: "Count", Type: arrow.PrimitiveTypes.Int64}}, nil)
		rec, _, err := array.RecordFromJSON(e.Mem, schema, strings.NewReader(fmt.Sprintf(`[{"Count": %d}]`, st.s.Changed)))
		if err != nil {
			return nil, err
		}
		recs = []arrow.RecordBatch{rec}
	default:
		schema = st.s.Schema
		if schema == nil {
			schema = arrow.NewSchema(nil, nil)
		}
		for _, js := range st.s.Batches {
			rec, _, err := array.RecordFromJSON(e.Mem, schema, strings.NewReader(js))
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
	}

	rdr, err := array.NewRecordReader(schema, recs)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.stats.OpenSources++
	e.mu.Unlock()

	src := arrowchunk.NewSource(rdr, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.stats.OpenSources--
		return nil
	})
	cols := src.Columns()
	for i := range cols {
		if i < len(st.s.DeclTypes) {
			cols[i].DeclType = st.s.DeclTypes[i]
		}
		if i < len(st.s.Tables) {
			cols[i].Table = st.s.Tables[i]
		}
	}
	return &source{Source: src, st: st}, nil
}

func (st *statement) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	st.e.mu.Lock()
	st.e.stats.OpenStmts--
	st.e.mu.Unlock()
	return st.s.CloseErr
}

// source counts chunk fetches and injects fetch failures.
type source struct {
	*arrowchunk.Source
	st      *statement
	fetches int
}

func (s *source) FetchChunk(ctx context.Context) (vecsql.Chunk, error) {
	s.fetches++
	s.st.e.mu.Lock()
	s.st.e.stats.Fetches++
	s.st.e.mu.Unlock()

	if s.st.s.FetchErr != nil && s.fetches == s.st.s.FetchErrAt {
		return nil, s.st.s.FetchErr
	}
	return s.Source.FetchChunk(ctx)
}
