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
	"strconv"
)

// Placeholders returns one entry per parameter position of sql holding
// the parameter's name without its sigil. Anonymous (?) and numbered
// (?1, $1, :1) parameters have an empty name.
//
// A named parameter that appears more than once occupies a single
// position, as does a repeated numbered parameter. The casting operator
// :: is not a placeholder.
func Placeholders(sql string) []string {
	var names []string

	for i := 0; i < len(sql); i++ {
		if next := skipLiteral(sql, i); next != i {
			i = next - 1
			continue
		}

		c := sql[i]
		switch c {
		case '?', '$', ':', '@':
		default:
			continue
		}

		if c == ':' {
			if (i+1 < len(sql) && (sql[i+1] == ':' || sql[i+1] == '=')) || (i > 0 && sql[i-1] == ':') {
				i++
				continue
			}
		}

		j := i + 1
		for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
			j++
		}
		if j > i+1 {
			if c == '@' {
				i = j - 1
				continue
			}
			n, err := strconv.Atoi(sql[i+1 : j])
			if err == nil && n > 0 {
				for len(names) < n {
					names = append(names, "")
				}
			}
			i = j - 1
			continue
		}

		if c == '?' {
			names = append(names, "")
			continue
		}

		if j < len(sql) && isIdentStart(sql[j]) {
			for j < len(sql) && isIdentChar(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
			i = j - 1
		}
	}
	return names
}
