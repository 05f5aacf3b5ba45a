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

package sqltext

import "strings"

// EscapeIdentifier quotes id for use in statement text. Identifiers
// which already contain square brackets or are already double quoted
// are returned unchanged. For table names every dot separated segment
// is quoted on its own.
func EscapeIdentifier(id string, tableName bool) string {
	if strings.Contains(id, "[") && strings.Contains(id, "]") {
		return id
	}
	if id == "" || strings.HasPrefix(id, `"`) || strings.HasSuffix(id, `"`) {
		return id
	}
	res := `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	if tableName {
		res = strings.ReplaceAll(res, ".", `"."`)
	}
	return res
}

// IsEscaped reports whether id is enclosed in double quotes.
func IsEscaped(id string) bool {
	return len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"'
}

// Unescape strips the enclosing double quotes of an escaped identifier
// and collapses doubled quotes. Other input is returned unchanged.
func Unescape(id string) string {
	if !IsEscaped(id) {
		return id
	}
	return strings.ReplaceAll(id[1:len(id)-1], `""`, `"`)
}

// SplitTableName splits a possibly schema qualified table name on its
// first dot. A trailing bracketed segment is the table name even if it
// contains dots itself (db.[my.table]); its brackets are removed.
func SplitTableName(name string) (schema, table string) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return "", stripBrackets(name)
	}
	if strings.HasSuffix(name, "]") {
		open := strings.LastIndexByte(name, '[')
		if open > 0 {
			return strings.TrimSuffix(name[:open], "."), name[open+1 : len(name)-1]
		}
		if open == 0 {
			return "", name[1 : len(name)-1]
		}
	}
	return name[:dot], name[dot+1:]
}

func stripBrackets(s string) string {
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
