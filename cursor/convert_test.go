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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql"
)

type castFunc func() (string, error)

func (f castFunc) CastText() (string, error) { return f() }

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		in     vecsql.Native
		policy vecsql.PrecisionPolicy
		want   driver.Value
	}{
		{"null", vecsql.Null, vecsql.HighPrecision, nil},
		{"bool", vecsql.BoolValue(true), vecsql.HighPrecision, int64(1)},
		{"int", vecsql.IntValue(-42), vecsql.HighPrecision, int64(-42)},
		{"uint", vecsql.UintValue(7), vecsql.HighPrecision, int64(7)},
		{"uint overflow", vecsql.UintValue(math.MaxUint64), vecsql.HighPrecision, "18446744073709551615"},
		{"double", vecsql.FloatValue(2.75), vecsql.HighPrecision, 2.75},
		{"double low", vecsql.FloatValue(2.75), vecsql.LowPrecisionDouble, 2.75},
		{"double int64", vecsql.FloatValue(-2.75), vecsql.LowPrecisionInt64, int64(-2)},
		{"double int32", vecsql.FloatValue(7.9), vecsql.LowPrecisionInt32, int64(7)},
		{"decimal", vecsql.DecimalValue(12.5), vecsql.HighPrecision, 12.5},
		{"decimal int64", vecsql.DecimalValue(12.5), vecsql.LowPrecisionInt64, int64(12)},
		{"text", vecsql.TextValue("hello"), vecsql.HighPrecision, "hello"},
		{"blob", vecsql.BlobValue([]byte{1, 2}), vecsql.HighPrecision, []byte{1, 2}},
		{"cast", vecsql.CastValue(vecsql.NativeTemporal, castFunc(func() (string, error) { return "2024-01-02", nil })),
			vecsql.HighPrecision, "2024-01-02"},
		{"cast failure", vecsql.CastValue(vecsql.NativeNested, castFunc(func() (string, error) { return "", errors.New("no") })),
			vecsql.HighPrecision, ""},
		{"no caster", vecsql.Native{Type: vecsql.NativeOther}, vecsql.HighPrecision, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.in, tt.policy))
		})
	}
}

func TestConvertCopiesBuffers(t *testing.T) {
	buf := []byte("abc")
	out := Convert(vecsql.BlobValue(buf), vecsql.HighPrecision).([]byte)
	buf[0] = 'x'
	assert.Equal(t, []byte("abc"), out)
}

type valuer struct{ v driver.Value }

func (v valuer) Value() (driver.Value, error) { return v.v, nil }

type loop struct{}

func (l loop) Value() (driver.Value, error) { return l, nil }

type celsius float32

type label string

func (l label) String() string { return "label:" + string(l) }

func TestToNative(t *testing.T) {
	var nilPtr *int
	seven := 7
	date := time.Date(2024, 3, 9, 10, 11, 12, 500_000_000, time.UTC)
	clock := time.Date(0, 1, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nil bytes", []byte(nil), nil},
		{"bytes", []byte("x"), []byte("x")},
		{"string", "s", "s"},
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"int8", int8(-3), int64(-3)},
		{"uint32", uint32(9), int64(9)},
		{"float32", float32(0.5), float64(0.5)},
		{"time", date, "2024-03-09 10:11:12.5"},
		{"time of day", clock, "08:30:00"},
		{"valuer", valuer{v: int64(3)}, int64(3)},
		{"nil pointer", nilPtr, nil},
		{"pointer", &seven, int64(7)},
		{"named float", celsius(1.5), float64(1.5)},
		{"stringer", label("x"), "x"},
		{"struct", struct{ A int }{1}, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToNative(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ToNative(uint64(math.MaxUint64))
	assert.ErrorIs(t, err, vecsql.ErrInvalidArgument)

	_, err = ToNative(loop{})
	assert.ErrorIs(t, err, vecsql.ErrInvalidArgument)
}

func TestResolveNamedBindings(t *testing.T) {
	got, err := ResolveNamedBindings(map[string]any{":b": 2, "a": 1}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, got)

	got, err = ResolveNamedBindings(map[string]any{"1": "x", "name": "y"}, []string{"", "name"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, got)

	got, err = ResolveNamedBindings(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ResolveNamedBindings(map[string]any{"a": 1}, []string{"a", "b"})
	assert.ErrorIs(t, err, vecsql.ErrInvalidArgument)
	assert.ErrorContains(t, err, `"b"`)

	_, err = ResolveNamedBindings(map[string]any{"a": 1, "z": 2, "y": 3}, []string{"a"})
	assert.ErrorContains(t, err, "unknown parameters y, z")

	_, err = ResolveNamedBindings(map[string]any{"a": 1, ":a": 2}, []string{"a"})
	assert.ErrorContains(t, err, "more than once")
}

func TestKindFromDeclType(t *testing.T) {
	tests := map[string]vecsql.Kind{
		"INTEGER":       vecsql.KindInt,
		"int":           vecsql.KindInt,
		"DOUBLE":        vecsql.KindDouble,
		"real":          vecsql.KindDouble,
		"Float":         vecsql.KindDouble,
		"NUMERIC(10,2)": vecsql.KindDouble,
		"blob":          vecsql.KindBytes,
		"BOOLEAN":       vecsql.KindBool,
		"bool":          vecsql.KindBool,
		"VARCHAR":       vecsql.KindString,
		"TIMESTAMP":     vecsql.KindString,
		"BIGINT":        vecsql.KindString,
	}
	for decl, want := range tests {
		assert.Equal(t, want, KindFromDeclType(decl), decl)
	}
}

func TestBuildColumns(t *testing.T) {
	infos := []vecsql.ColumnInfo{
		{Name: `"id"`, DeclType: "INTEGER", Table: `"t"`},
		{Name: "when", Type: vecsql.NativeTemporal, DatabaseType: "timestamp"},
		{Name: "x"},
		{Name: "y"},
	}

	empty := buildColumns(infos, nil)
	assert.Equal(t, []vecsql.Column{
		{Name: "id", Kind: vecsql.KindInt, Table: "t", DatabaseType: "INTEGER"},
		{Name: "when", Kind: vecsql.KindString, DatabaseType: "timestamp"},
		{Name: "x", Kind: vecsql.KindUnknown},
		{Name: "y", Kind: vecsql.KindUnknown},
	}, empty)

	withRow := buildColumns(infos, []vecsql.Native{
		vecsql.IntValue(1), vecsql.TextValue("now"), vecsql.FloatValue(1), vecsql.Null,
	})
	assert.Equal(t, empty[:2], withRow[:2], "declared types win over row content")
	assert.Equal(t, vecsql.KindDouble, withRow[2].Kind)
	assert.Equal(t, vecsql.KindUnknown, withRow[3].Kind)
}
