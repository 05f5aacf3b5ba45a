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

// Package arrowchunk adapts Arrow record batches to the chunk model of
// the vecsql package. It is shared by every engine which hands results
// out as Arrow data.
package arrowchunk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/vecsql/vecsql"
)

// Chunk is a vecsql.Chunk over a single record batch.
type Chunk struct {
	rec arrow.RecordBatch
}

// NewChunk wraps rec, taking a reference which is given back by
// Release.
func NewChunk(rec arrow.RecordBatch) *Chunk {
	rec.Retain()
	return &Chunk{rec: rec}
}

func (c *Chunk) NumRows() int { return int(c.rec.NumRows()) }
func (c *Chunk) NumCols() int { return int(c.rec.NumCols()) }

// Record exposes the underlying batch. It is only valid until Release.
func (c *Chunk) Record() arrow.RecordBatch { return c.rec }

func (c *Chunk) ValueAt(row, col int) vecsql.Native {
	return ValueAt(c.rec.Column(col), row)
}

func (c *Chunk) Release() {
	if c.rec != nil {
		c.rec.Release()
		c.rec = nil
	}
}

// NativeTypeOf maps an Arrow data type onto the engine cell types.
func NativeTypeOf(dt arrow.DataType) vecsql.NativeType {
	if dt == nil {
		return vecsql.NativeNull
	}
	switch dt.ID() {
	case arrow.NULL:
		return vecsql.NativeNull
	case arrow.BOOL:
		return vecsql.NativeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return vecsql.NativeInt
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return vecsql.NativeUint
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return vecsql.NativeFloat
	case arrow.DECIMAL32, arrow.DECIMAL64, arrow.DECIMAL128, arrow.DECIMAL256:
		return vecsql.NativeDecimal
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return vecsql.NativeText
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW, arrow.FIXED_SIZE_BINARY:
		return vecsql.NativeBlob
	case arrow.DATE32, arrow.DATE64, arrow.TIME32, arrow.TIME64, arrow.TIMESTAMP,
		arrow.DURATION, arrow.INTERVAL_MONTHS, arrow.INTERVAL_DAY_TIME,
		arrow.INTERVAL_MONTH_DAY_NANO:
		return vecsql.NativeTemporal
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST, arrow.LIST_VIEW,
		arrow.LARGE_LIST_VIEW, arrow.STRUCT, arrow.MAP:
		return vecsql.NativeNested
	case arrow.DICTIONARY:
		return NativeTypeOf(dt.(*arrow.DictionaryType).ValueType)
	}
	return vecsql.NativeOther
}

// ValueAt reads cell i of arr. Strings and byte slices alias the
// array's buffers.
func ValueAt(arr arrow.Array, i int) vecsql.Native {
	if arr.IsNull(i) {
		return vecsql.Null
	}

	switch col := arr.(type) {
	case array.Union:
		idx := i
		if dense, ok := col.(*array.DenseUnion); ok {
			idx = int(dense.ValueOffset(i))
		}
		return ValueAt(col.Field(col.ChildID(i)), idx)
	case *array.Dictionary:
		return ValueAt(col.Dictionary(), col.GetValueIndex(i))
	case array.ExtensionArray:
		return vecsql.CastValue(vecsql.NativeOther, strCaster{arr: col, i: i})
	case *array.Boolean:
		return vecsql.BoolValue(col.Value(i))
	case *array.Int8:
		return vecsql.IntValue(int64(col.Value(i)))
	case *array.Int16:
		return vecsql.IntValue(int64(col.Value(i)))
	case *array.Int32:
		return vecsql.IntValue(int64(col.Value(i)))
	case *array.Int64:
		return vecsql.IntValue(col.Value(i))
	case *array.Uint8:
		return vecsql.UintValue(uint64(col.Value(i)))
	case *array.Uint16:
		return vecsql.UintValue(uint64(col.Value(i)))
	case *array.Uint32:
		return vecsql.UintValue(uint64(col.Value(i)))
	case *array.Uint64:
		return vecsql.UintValue(col.Value(i))
	case *array.Float16:
		return vecsql.FloatValue(float64(col.Value(i).Float32()))
	case *array.Float32:
		return vecsql.FloatValue(float64(col.Value(i)))
	case *array.Float64:
		return vecsql.FloatValue(col.Value(i))
	case *array.Decimal128:
		scale := col.DataType().(*arrow.Decimal128Type).Scale
		return vecsql.DecimalValue(col.Value(i).ToFloat64(scale))
	case *array.Decimal256:
		scale := col.DataType().(*arrow.Decimal256Type).Scale
		return vecsql.DecimalValue(col.Value(i).ToFloat64(scale))
	case *array.String:
		return vecsql.TextValue(col.Value(i))
	case *array.LargeString:
		return vecsql.TextValue(col.Value(i))
	case *array.StringView:
		return vecsql.TextValue(col.Value(i))
	case *array.Binary:
		return vecsql.BlobValue(col.Value(i))
	case *array.LargeBinary:
		return vecsql.BlobValue(col.Value(i))
	case *array.BinaryView:
		return vecsql.BlobValue(col.Value(i))
	case *array.FixedSizeBinary:
		return vecsql.BlobValue(col.Value(i))
	case *array.Date32:
		return timeValue(col.Value(i).ToTime(), dateLayout)
	case *array.Date64:
		return timeValue(col.Value(i).ToTime(), dateLayout)
	case *array.Time32:
		return timeValue(col.Value(i).ToTime(col.DataType().(*arrow.Time32Type).Unit), vecsql.TimeOfDayFormat)
	case *array.Time64:
		return timeValue(col.Value(i).ToTime(col.DataType().(*arrow.Time64Type).Unit), vecsql.TimeOfDayFormat)
	case *array.Timestamp:
		return timeValue(col.Value(i).ToTime(col.DataType().(*arrow.TimestampType).Unit), vecsql.TimeFormat)
	}

	typ := NativeTypeOf(arr.DataType())
	if typ == vecsql.NativeDecimal {
		// narrow decimals only offer a textual rendering
		if f, err := strconv.ParseFloat(arr.ValueStr(i), 64); err == nil {
			return vecsql.DecimalValue(f)
		}
	}
	if typ != vecsql.NativeTemporal && typ != vecsql.NativeNested {
		typ = vecsql.NativeOther
	}
	return vecsql.CastValue(typ, strCaster{arr: arr, i: i})
}

const dateLayout = "2006-01-02"

func timeValue(t time.Time, layout string) vecsql.Native {
	return vecsql.CastValue(vecsql.NativeTemporal, timeCaster{t: t, layout: layout})
}

type timeCaster struct {
	t      time.Time
	layout string
}

func (c timeCaster) CastText() (string, error) { return c.t.Format(c.layout), nil }

// strCaster defers to the array's own textual rendering.
type strCaster struct {
	arr arrow.Array
	i   int
}

func (c strCaster) CastText() (s string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cannot render %s as text: %v", c.arr.DataType(), r)
		}
	}()
	return c.arr.ValueStr(c.i), nil
}
