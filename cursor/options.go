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
	"log/slog"
	"strings"

	"github.com/vecsql/vecsql"
)

// Connection option flags and keys.
const (
	OptionReadOnly         = "OPEN_READONLY"
	OptionSharedCache      = "ENABLE_SHARED_CACHE"
	OptionURI              = "OPEN_URI"
	OptionNumericPrecision = "NUMERIC_PRECISION"
)

// Options is the parsed form of a connection option string.
type Options struct {
	Open vecsql.OpenOptions
	// Precision is set when the option string selects a policy.
	Precision *vecsql.PrecisionPolicy
}

// ParseOptions parses a ';' separated option string such as
// "OPEN_READONLY;NUMERIC_PRECISION=double". Entries are trimmed and
// flags are matched case-insensitively. key=value entries which are
// not recognized are kept in Open.Extra, other unknown entries are
// ignored.
func ParseOptions(s string, logger *slog.Logger) Options {
	var out Options
	for entry := range strings.SplitSeq(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		key, val, hasVal := strings.Cut(entry, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch {
		case !hasVal && strings.EqualFold(key, OptionReadOnly):
			out.Open.ReadOnly = true
		case !hasVal && strings.EqualFold(key, OptionSharedCache):
			out.Open.SharedCache = true
		case !hasVal && strings.EqualFold(key, OptionURI):
			out.Open.URI = true
		case hasVal && strings.EqualFold(key, OptionNumericPrecision):
			p, ok := vecsql.ParsePrecisionPolicy(val)
			if !ok {
				logger.Debug("ignoring connection option", "option", entry)
				continue
			}
			out.Precision = &p
		case hasVal && key != "":
			if out.Open.Extra == nil {
				out.Open.Extra = make(map[string]string)
			}
			out.Open.Extra[key] = val
		default:
			logger.Debug("ignoring connection option", "option", entry)
		}
	}
	return out
}
