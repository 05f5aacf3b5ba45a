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
	"math"
	"strconv"
	"strings"

	"github.com/vecsql/vecsql"
)

// Convert turns one engine cell into a generic value. Byte and string
// payloads are always copied, so the result stays valid after the
// chunk it came from is released. Cells without a generic form are
// rendered as text, an empty string when that fails.
func Convert(v vecsql.Native, policy vecsql.PrecisionPolicy) driver.Value {
	switch v.Type {
	case vecsql.NativeNull:
		return nil
	case vecsql.NativeBool, vecsql.NativeInt:
		return v.I64
	case vecsql.NativeUint:
		if v.U64 > math.MaxInt64 {
			return strconv.FormatUint(v.U64, 10)
		}
		return int64(v.U64)
	case vecsql.NativeFloat, vecsql.NativeDecimal:
		return applyPolicy(v.F64, policy)
	case vecsql.NativeBlob:
		return append(make([]byte, 0, len(v.Bytes)), v.Bytes...)
	case vecsql.NativeText:
		return strings.Clone(v.Str)
	}

	if v.Cell == nil {
		return ""
	}
	s, err := v.Cell.CastText()
	if err != nil {
		return ""
	}
	return strings.Clone(s)
}

func applyPolicy(f float64, policy vecsql.PrecisionPolicy) driver.Value {
	switch policy {
	case vecsql.LowPrecisionInt32:
		return int64(int32(f))
	case vecsql.LowPrecisionInt64:
		return int64(f)
	}
	return f
}
