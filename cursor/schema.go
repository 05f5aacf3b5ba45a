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
	"strings"

	"github.com/vecsql/vecsql"
)

// KindFromDeclType maps a declared SQL type name onto a generic kind.
func KindFromDeclType(decl string) vecsql.Kind {
	name := strings.ToLower(strings.TrimSpace(decl))
	switch {
	case name == "integer" || name == "int":
		return vecsql.KindInt
	case name == "double" || name == "float" || name == "real" || strings.HasPrefix(name, "numeric"):
		return vecsql.KindDouble
	case name == "blob":
		return vecsql.KindBytes
	case name == "boolean" || name == "bool":
		return vecsql.KindBool
	}
	return vecsql.KindString
}

// KindFromNative maps an engine cell type onto a generic kind.
func KindFromNative(t vecsql.NativeType) vecsql.Kind {
	switch t {
	case vecsql.NativeNull:
		return vecsql.KindUnknown
	case vecsql.NativeBool:
		return vecsql.KindBool
	case vecsql.NativeInt, vecsql.NativeUint:
		return vecsql.KindInt
	case vecsql.NativeFloat, vecsql.NativeDecimal:
		return vecsql.KindDouble
	case vecsql.NativeBlob:
		return vecsql.KindBytes
	}
	return vecsql.KindString
}

func stripQuotes(s string) string { return strings.ReplaceAll(s, `"`, "") }

// buildColumns derives the column descriptors of a result. first holds
// the cells of the first row, or is nil when the result has no rows;
// it is only consulted for columns whose type the engine did not
// declare.
func buildColumns(infos []vecsql.ColumnInfo, first []vecsql.Native) []vecsql.Column {
	cols := make([]vecsql.Column, len(infos))
	for i, info := range infos {
		var kind vecsql.Kind
		switch {
		case info.DeclType != "":
			kind = KindFromDeclType(info.DeclType)
		case info.Type != vecsql.NativeNull:
			kind = KindFromNative(info.Type)
		case i < len(first):
			kind = KindFromNative(first[i].Type)
		}

		dbType := info.DatabaseType
		if dbType == "" {
			dbType = info.DeclType
		}
		cols[i] = vecsql.Column{
			Name:         stripQuotes(info.Name),
			Kind:         kind,
			Table:        stripQuotes(info.Table),
			DatabaseType: dbType,
			Nullable:     info.Nullable,
		}
	}
	return cols
}
