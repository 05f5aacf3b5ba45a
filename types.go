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

package vecsql

import "strconv"

// NativeType is the engine side type of a single cell.
type NativeType uint8

const (
	NativeNull     NativeType = iota // null
	NativeBool                       // bool
	NativeInt                        // int
	NativeUint                       // uint
	NativeFloat                      // float
	NativeDecimal                    // decimal
	NativeBlob                       // blob
	NativeText                       // text
	NativeTemporal                   // temporal
	NativeNested                     // nested
	NativeOther                      // other
)

func (n NativeType) String() string {
	switch n {
	case NativeNull:
		return "null"
	case NativeBool:
		return "bool"
	case NativeInt:
		return "int"
	case NativeUint:
		return "uint"
	case NativeFloat:
		return "float"
	case NativeDecimal:
		return "decimal"
	case NativeBlob:
		return "blob"
	case NativeText:
		return "text"
	case NativeTemporal:
		return "temporal"
	case NativeNested:
		return "nested"
	case NativeOther:
		return "other"
	}
	return "NativeType(" + strconv.Itoa(int(n)) + ")"
}

// TextCaster renders a cell which has no direct generic representation
// (dates, intervals, lists, structs...) as text.
type TextCaster interface {
	CastText() (string, error)
}

// Native is one engine cell as read out of a Chunk. Only the field
// matching Type is meaningful:
//
//	NativeBool                 I64 (0 or 1)
//	NativeInt                  I64
//	NativeUint                 U64
//	NativeFloat, NativeDecimal F64
//	NativeBlob                 Bytes
//	NativeText                 Str
//	NativeTemporal, NativeNested, NativeOther  Cell
type Native struct {
	Type  NativeType
	I64   int64
	U64   uint64
	F64   float64
	Bytes []byte
	Str   string
	Cell  TextCaster
}

// Null is the null cell.
var Null = Native{Type: NativeNull}

func BoolValue(b bool) Native {
	if b {
		return Native{Type: NativeBool, I64: 1}
	}
	return Native{Type: NativeBool}
}

func IntValue(v int64) Native       { return Native{Type: NativeInt, I64: v} }
func UintValue(v uint64) Native     { return Native{Type: NativeUint, U64: v} }
func FloatValue(v float64) Native   { return Native{Type: NativeFloat, F64: v} }
func DecimalValue(v float64) Native { return Native{Type: NativeDecimal, F64: v} }
func BlobValue(v []byte) Native     { return Native{Type: NativeBlob, Bytes: v} }
func TextValue(v string) Native     { return Native{Type: NativeText, Str: v} }

// CastValue wraps a cell which is only convertible through a text cast.
func CastValue(t NativeType, c TextCaster) Native { return Native{Type: t, Cell: c} }

// IsNull reports whether the cell is null.
func (n Native) IsNull() bool { return n.Type == NativeNull }

// Kind is the generic type tag reported to the host for a column.
type Kind uint8

const (
	KindUnknown Kind = iota // unknown
	KindBool                // bool
	KindInt                 // int
	KindDouble              // double
	KindBytes               // bytes
	KindString              // string
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Column describes one result column as reported to the host.
//
// PrimaryKey, Required, AutoValue and Default are only populated by
// table introspection, never by a query result.
type Column struct {
	Name         string
	Kind         Kind
	Table        string
	DatabaseType string
	Nullable     bool

	PrimaryKey bool
	Required   bool
	AutoValue  bool
	Default    any
}
