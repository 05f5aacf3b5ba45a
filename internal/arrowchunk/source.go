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

package arrowchunk

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vecsql/vecsql"
)

// TableNameKey is the field metadata key carrying a column's table.
const TableNameKey = "ARROW:FLIGHT:SQL:TABLE_NAME"

// Columns describes the fields of schema.
func Columns(schema *arrow.Schema) []vecsql.ColumnInfo {
	if schema == nil {
		return nil
	}
	out := make([]vecsql.ColumnInfo, schema.NumFields())
	for i, f := range schema.Fields() {
		out[i] = vecsql.ColumnInfo{
			Name:         f.Name,
			Type:         NativeTypeOf(f.Type),
			DatabaseType: f.Type.String(),
			Nullable:     f.Nullable,
		}
		if tbl, ok := f.Metadata.GetValue(TableNameKey); ok {
			out[i].Table = tbl
		}
	}
	return out
}

// Source is a vecsql.RowSource reading batches from a RecordReader.
// Batches with no rows are skipped.
type Source struct {
	rdr     array.RecordReader
	cols    []vecsql.ColumnInfo
	closers []func() error
}

// NewSource takes ownership of rdr. closers run on Close after the
// reader has been released, for instance to close the statement which
// produced the reader.
func NewSource(rdr array.RecordReader, closers ...func() error) *Source {
	return &Source{rdr: rdr, cols: Columns(rdr.Schema()), closers: closers}
}

func (s *Source) Columns() []vecsql.ColumnInfo { return s.cols }

// AddCloser registers another function to run on Close.
func (s *Source) AddCloser(fn func() error) { s.closers = append(s.closers, fn) }

func (s *Source) FetchChunk(ctx context.Context) (vecsql.Chunk, error) {
	if s.rdr == nil {
		return nil, nil
	}
	for s.rdr.Next() {
		rec := s.rdr.RecordBatch()
		if rec.NumRows() == 0 {
			continue
		}
		return NewChunk(rec), nil
	}
	return nil, s.rdr.Err()
}

func (s *Source) Close() error {
	if s.rdr != nil {
		s.rdr.Release()
		s.rdr = nil
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

var countSchema = arrow.NewSchema([]arrow.Field{{Name: "Count", Type: arrow.PrimitiveTypes.Int64}}, nil)

// CountSource is the single row result of a data modifying statement,
// holding the number of changed rows.
func CountSource(mem memory.Allocator, n int64, closers ...func() error) (*Source, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	bldr := array.NewInt64Builder(mem)
	defer bldr.Release()
	bldr.Append(n)
	col := bldr.NewArray()
	defer col.Release()

	rec := array.NewRecordBatch(countSchema, []arrow.Array{col}, 1)
	defer rec.Release()
	rdr, err := array.NewRecordReader(countSchema, []arrow.RecordBatch{rec})
	if err != nil {
		return nil, err
	}
	return NewSource(rdr, closers...), nil
}
