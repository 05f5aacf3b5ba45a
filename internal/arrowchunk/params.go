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
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vecsql/vecsql"
)

// typeOfValue picks the Arrow type for a parameter when the statement
// did not declare one.
func typeOfValue(v any) (arrow.DataType, error) {
	switch v.(type) {
	case nil:
		return arrow.Null, nil
	case int64:
		return arrow.PrimitiveTypes.Int64, nil
	case float64:
		return arrow.PrimitiveTypes.Float64, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case []byte:
		return arrow.BinaryTypes.Binary, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %T", v)
}

// BuildParams builds the single row record binding values. A non nil
// schema supplies the declared type of every parameter, fields of type
// null or missing fields fall back to the type of the value itself.
// names, when given, name the fields; unnamed fields are named by their
// one based position.
func BuildParams(mem memory.Allocator, values []any, names []string, schema *arrow.Schema) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fields := make([]arrow.Field, len(values))
	cols := make([]arrow.Array, len(values))
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i, v := range values {
		var dt arrow.DataType
		if schema != nil && i < schema.NumFields() && schema.Field(i).Type.ID() != arrow.NULL {
			dt = schema.Field(i).Type
		} else {
			var err error
			if dt, err = typeOfValue(v); err != nil {
				return nil, err
			}
		}

		name := strconv.Itoa(i + 1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}

		arr, err := buildOne(mem, dt, v)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		cols[i] = arr
	}

	return array.NewRecordBatch(arrow.NewSchema(fields, nil), cols, 1), nil
}

func buildOne(mem memory.Allocator, dt arrow.DataType, v any) (arrow.Array, error) {
	if dt.ID() == arrow.NULL {
		return array.NewNull(1), nil
	}
	bldr := array.NewBuilder(mem, dt)
	defer bldr.Release()

	if v == nil {
		bldr.AppendNull()
		return bldr.NewArray(), nil
	}
	if err := appendValue(bldr, v); err != nil {
		return nil, err
	}
	return bldr.NewArray(), nil
}

func appendValue(bldr array.Builder, v any) error {
	switch b := bldr.(type) {
	case *array.BooleanBuilder:
		i, err := asInt(v)
		if err != nil {
			return err
		}
		b.Append(i != 0)
	case *array.Int8Builder:
		i, err := asInt(v)
		b.Append(int8(i))
		return err
	case *array.Int16Builder:
		i, err := asInt(v)
		b.Append(int16(i))
		return err
	case *array.Int32Builder:
		i, err := asInt(v)
		b.Append(int32(i))
		return err
	case *array.Int64Builder:
		i, err := asInt(v)
		b.Append(i)
		return err
	case *array.Uint8Builder:
		i, err := asInt(v)
		b.Append(uint8(i))
		return err
	case *array.Uint16Builder:
		i, err := asInt(v)
		b.Append(uint16(i))
		return err
	case *array.Uint32Builder:
		i, err := asInt(v)
		b.Append(uint32(i))
		return err
	case *array.Uint64Builder:
		i, err := asInt(v)
		b.Append(uint64(i))
		return err
	case *array.Float32Builder:
		f, err := asFloat(v)
		b.Append(float32(f))
		return err
	case *array.Float64Builder:
		f, err := asFloat(v)
		b.Append(f)
		return err
	case *array.StringBuilder:
		b.Append(asString(v))
	case *array.LargeStringBuilder:
		b.Append(asString(v))
	case *array.BinaryBuilder:
		switch v := v.(type) {
		case []byte:
			b.Append(v)
		default:
			b.AppendString(asString(v))
		}
	case *array.Date32Builder:
		t, err := asTime(v)
		if err != nil {
			return err
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, err := asTime(v)
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, bldr.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return err
		}
		b.Append(ts)
	default:
		return bldr.AppendValueFromString(asString(v))
	}
	return nil
}

func asInt(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, vecsql.Errorf(vecsql.StatusInvalidArgument, "cannot bind %T as an integer", v)
}

func asFloat(v any) (float64, error) {
	switch v := v.(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, vecsql.Errorf(vecsql.StatusInvalidArgument, "cannot bind %T as a float", v)
}

func asString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

var timeLayouts = []string{vecsql.TimeFormat, time.RFC3339Nano, dateLayout, vecsql.TimeOfDayFormat}

func asTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, vecsql.Errorf(vecsql.StatusInvalidArgument, "cannot bind %T as a date or timestamp", v)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, vecsql.Errorf(vecsql.StatusInvalidArgument, "cannot parse %q as a date or timestamp", s)
}
