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

import (
	"slices"

	"github.com/vecsql/vecsql"
)

var (
	queryKeywords = []string{
		"SELECT", "WITH", "VALUES", "TABLE", "FROM", "SHOW", "DESCRIBE",
		"DESC", "EXPLAIN", "SUMMARIZE", "PRAGMA", "CALL",
	}
	changeKeywords = []string{
		"INSERT", "UPDATE", "DELETE", "REPLACE", "MERGE", "UPSERT", "COPY",
	}
)

// ReturnTypeOf guesses the result shape of a statement from its
// leading keyword. Data modifying statements with a RETURNING clause
// produce rows. Engines which can ask the prepared statement for its
// type should prefer that over this guess.
func ReturnTypeOf(sql string) vecsql.ReturnType {
	kw := FirstKeyword(sql)
	switch {
	case slices.Contains(changeKeywords, kw):
		if HasReturning(sql) {
			return vecsql.ReturnQuery
		}
		return vecsql.ReturnChangedRows
	case kw == "PRAGMA" && IsDirective(sql):
		return vecsql.ReturnNothing
	case slices.Contains(queryKeywords, kw):
		return vecsql.ReturnQuery
	}
	return vecsql.ReturnNothing
}

// HasReturning reports whether RETURNING appears as a bare keyword.
func HasReturning(sql string) bool {
	return slices.Contains(words(sql, 0), "RETURNING")
}

// IsDirective reports whether sql changes a session setting and
// produces nothing: SET and RESET statements and the assignment form of
// PRAGMA (PRAGMA name = value).
func IsDirective(sql string) bool {
	switch FirstKeyword(sql) {
	case "SET", "RESET":
		return true
	case "PRAGMA":
	default:
		return false
	}

	i := skipBlank(sql, 0)
	i += len("PRAGMA")
	i = skipBlank(sql, i)
	start := i
	for i < len(sql) && (isIdentChar(sql[i]) || sql[i] == '.') {
		i++
	}
	if i == start {
		return false
	}
	i = skipBlank(sql, i)
	return i < len(sql) && sql[i] == '='
}
