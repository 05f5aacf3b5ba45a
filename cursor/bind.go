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
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/vecsql/vecsql"
	"golang.org/x/exp/constraints"
)

func signed[T constraints.Signed](v T) int64 { return int64(v) }

func unsigned[T constraints.Unsigned](v T) (int64, error) {
	if uint64(v) > math.MaxInt64 {
		return 0, vecsql.Errorf(vecsql.StatusInvalidArgument, "unsigned value %d overflows int64", v)
	}
	return int64(v), nil
}

// ToNative converts a bound Go value into one of the parameter types
// engines accept: nil, int64, float64, string or []byte.
func ToNative(v any) (any, error) {
	return toNative(v, 0)
}

const maxValuerDepth = 8

func toNative(v any, depth int) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		if v == nil {
			return nil, nil
		}
		return append(make([]byte, 0, len(v)), v...), nil
	case string:
		return v, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return signed(v), nil
	case int8:
		return signed(v), nil
	case int16:
		return signed(v), nil
	case int32:
		return signed(v), nil
	case int64:
		return v, nil
	case uint:
		return unsigned(v)
	case uint8:
		return unsigned(v)
	case uint16:
		return unsigned(v)
	case uint32:
		return unsigned(v)
	case uint64:
		return unsigned(v)
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case time.Time:
		return vecsql.FormatTime(v), nil
	case driver.Valuer:
		if depth >= maxValuerDepth {
			return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "driver.Valuer %T nests too deeply", v)
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		val, err := v.Value()
		if err != nil {
			return nil, err
		}
		return toNative(val, depth+1)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return toNative(rv.Elem().Interface(), depth)
	case reflect.Bool:
		return toNative(rv.Bool(), depth)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsigned(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return toNative(rv.Bytes(), depth)
		}
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return fmt.Sprint(v), nil
}
