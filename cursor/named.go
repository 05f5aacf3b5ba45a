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
	"slices"
	"strconv"
	"strings"

	"github.com/vecsql/vecsql"
)

// ResolveNamedBindings orders named values by parameter position. names
// holds the parameter name of every position as returned by
// Result.ParameterNames. Keys of named may carry a placeholder sigil
// (":id", "$id", "@id") or not. Anonymous positions can be addressed by
// their one based position ("1", "2", ...).
//
// Every position must be resolved and every entry of named must be
// used, otherwise an error with StatusInvalidArgument is returned.
func ResolveNamedBindings(named map[string]any, names []string) ([]any, error) {
	byName := make(map[string]any, len(named))
	for k, v := range named {
		key := strings.TrimLeft(k, ":$@?")
		if _, dup := byName[key]; dup {
			return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "parameter %q given more than once", key)
		}
		byName[key] = v
	}

	out := make([]any, len(names))
	used := make(map[string]bool, len(byName))
	for i, name := range names {
		key := name
		if key == "" {
			key = strconv.Itoa(i + 1)
		}
		v, ok := byName[key]
		if !ok {
			if name == "" {
				return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "no value for parameter %d", i+1)
			}
			return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "no value for parameter %q", name)
		}
		out[i] = v
		used[key] = true
	}

	if len(used) != len(byName) {
		var unknown []string
		for k := range byName {
			if !used[k] {
				unknown = append(unknown, k)
			}
		}
		slices.Sort(unknown)
		return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "unknown parameters %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
