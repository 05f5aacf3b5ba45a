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

// Package vecsql defines the capability interfaces a backing query
// engine implements so that it can be driven through a row cursor.
//
// Analytical engines usually execute queries into batches of
// column-major vectors (chunks) rather than single rows. The cursor
// package bridges that model onto the prepare / bind / execute /
// fetch-one-row contract that row oriented client frameworks such as
// database/sql expect. Engines only need to provide two things for a
// result: a way to fetch the next chunk and a way to read a single
// cell out of the current chunk.
//
// Engines are not required to be safe for concurrent use. The cursor
// package assumes the host serializes access to a single Database.
package vecsql

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Engine is the entry point for a backing engine implementation. It
// is similar to [database/sql/driver.Driver], producing an open
// Database from a path and a set of open flags.
type Engine interface {
	// Name is a short identifier used in logs, traces and errors.
	Name() string
	// Open opens (or creates) the database located at path. An empty
	// path opens a private in-memory database where supported.
	Open(ctx context.Context, path string, opts OpenOptions) (Database, error)
}

// OpenOptions are the engine independent open flags recognized in a
// connection option string.
type OpenOptions struct {
	ReadOnly    bool
	SharedCache bool
	URI         bool
	// Extra holds key=value entries which were not recognized by the
	// cursor layer. Engines may consume them or ignore them.
	Extra map[string]string
}

// Database is an open engine handle.
//
// Statements prepared from a Database remain valid until either the
// statement or the Database is closed.
type Database interface {
	// Prepare parses exactly one statement.
	Prepare(ctx context.Context, query string) (Statement, error)
	// Close releases the engine handle.
	Close() error
}

// Catalog is implemented by engines which can enumerate their schema
// objects. Each method returns the query text used for the lookup, the
// queries themselves are executed through the regular cursor path.
type Catalog interface {
	// TablesQuery returns a query producing one table name per row.
	TablesQuery(includeSystem bool) string
	// ViewsQuery returns a query producing one view name per row.
	ViewsQuery(includeSystem bool) string
	// DescribeQuery returns a query with the columns
	// cid, name, type, notnull, dflt_value, pk for the given table.
	// schema is empty when the table name was not qualified.
	DescribeQuery(schema, table string) string
}

// ReturnType is the statement's declared result shape, known once the
// statement is prepared.
type ReturnType uint8

const (
	// ReturnQuery statements produce rows.
	ReturnQuery ReturnType = iota // QueryResult
	// ReturnChangedRows statements produce exactly one row with one
	// integer column holding the number of changed rows.
	ReturnChangedRows // ChangedRows
	// ReturnNothing statements produce no result at all.
	ReturnNothing // Nothing
)

func (r ReturnType) String() string {
	switch r {
	case ReturnQuery:
		return "QueryResult"
	case ReturnChangedRows:
		return "ChangedRows"
	case ReturnNothing:
		return "Nothing"
	}
	return "ReturnType(" + strconv.Itoa(int(r)) + ")"
}

// Statement is a single prepared statement.
type Statement interface {
	// NumParams is the declared number of parameters.
	NumParams() int
	// ReturnType is the declared result shape.
	ReturnType() ReturnType
	// Execute runs the statement with the given positional parameters.
	// Parameter values have already been converted by the cursor into
	// one of: nil, int64, float64, string or []byte.
	//
	// The returned RowSource is owned by the caller and must be closed.
	// For ReturnChangedRows statements the source yields a single chunk
	// with a single row whose first column is the changed row count.
	Execute(ctx context.Context, params []any) (RowSource, error)
	// Close releases the prepared statement. Close must be safe to call
	// after the owning Database has already been closed.
	Close() error
}

// RowSource is the capability the cursor needs from a running query.
type RowSource interface {
	// Columns describes the result columns as declared by the engine.
	// It is available before the first chunk is fetched.
	Columns() []ColumnInfo
	// FetchChunk returns the next chunk, or nil once the result is
	// exhausted. Sources never return a chunk with zero rows except to
	// signal the end of the result.
	//
	// A chunk is only valid until the next call to FetchChunk or Close.
	FetchChunk(ctx context.Context) (Chunk, error)
	Close() error
}

// Chunk is a batch of rows delivered together by the engine.
type Chunk interface {
	NumRows() int
	NumCols() int
	// ValueAt reads one cell. Byte and string payloads of the returned
	// Native may alias engine memory and must be copied before the
	// chunk is released.
	ValueAt(row, col int) Native
	// Release gives the chunk's memory back to the engine.
	Release()
}

// ColumnInfo is the declared metadata of one result column.
type ColumnInfo struct {
	Name string
	// Table is the owning table, empty when unknown or computed.
	Table string
	// DeclType is the SQL type name as written in the table
	// definition. Row oriented engines provide it, vectorized engines
	// leave it empty and fill Type instead.
	DeclType string
	// Type is the engine type of the column, NativeNull when unknown
	// until a row is seen.
	Type NativeType
	// DatabaseType is the engine's display name for the type.
	DatabaseType string
	Nullable     bool
}

// PrecisionPolicy selects how floating point and decimal values are
// handed to the caller.
type PrecisionPolicy uint8

const (
	HighPrecision PrecisionPolicy = iota // HighPrecision
	LowPrecisionInt32                    // LowPrecisionInt32
	LowPrecisionInt64                    // LowPrecisionInt64
	LowPrecisionDouble                   // LowPrecisionDouble
)

func (p PrecisionPolicy) String() string {
	switch p {
	case HighPrecision:
		return "HighPrecision"
	case LowPrecisionInt32:
		return "LowPrecisionInt32"
	case LowPrecisionInt64:
		return "LowPrecisionInt64"
	case LowPrecisionDouble:
		return "LowPrecisionDouble"
	}
	return "PrecisionPolicy(" + strconv.Itoa(int(p)) + ")"
}

// ParsePrecisionPolicy maps the option spellings int32, int64, double
// and high onto a policy.
func ParsePrecisionPolicy(s string) (PrecisionPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int32", "low_int32":
		return LowPrecisionInt32, true
	case "int64", "low_int64":
		return LowPrecisionInt64, true
	case "double", "low_double":
		return LowPrecisionDouble, true
	case "high", "":
		return HighPrecision, true
	}
	return HighPrecision, false
}

// TimeFormat is the canonical textual form temporal parameters are
// converted into before they are handed to an engine.
const TimeFormat = "2006-01-02 15:04:05.999999999"

// TimeOfDayFormat is used for time values carrying no date, that is
// values on 0000-01-01.
const TimeOfDayFormat = "15:04:05.999999999"

// FormatTime renders t in the canonical textual form.
func FormatTime(t time.Time) string {
	if t.Year() == 0 && t.Month() == time.January && t.Day() == 1 {
		return t.Format(TimeOfDayFormat)
	}
	return t.Format(TimeFormat)
}
