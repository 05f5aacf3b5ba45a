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
	"time"

	"github.com/bluele/gcache"
	"github.com/vecsql/vecsql"
)

// Analysis is everything the cursor derives from a statement's text.
type Analysis struct {
	// Statement is the first statement without its terminator.
	Statement string
	// Trailing is set when more statements follow the first one.
	Trailing bool
	// Directive is set for session directives.
	Directive bool
	// Return is the keyword based result shape.
	Return vecsql.ReturnType
	// Params has one name per parameter position.
	Params []string
}

// Analyze scans sql without caching.
func Analyze(sql string) Analysis {
	first, trailing := SplitFirst(sql)
	return Analysis{
		Statement: first,
		Trailing:  trailing,
		Directive: IsDirective(first),
		Return:    ReturnTypeOf(first),
		Params:    Placeholders(first),
	}
}

const (
	DefaultCacheSize       = 64
	defaultCacheExpiration = 10 * time.Minute
)

// Cache memoizes Analyze for recently seen statement texts. The zero
// value is not usable, use NewCache.
type Cache struct {
	lru gcache.Cache
}

// NewCache returns a least recently used cache holding up to size
// analyses. A size of zero or less selects DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	lru := gcache.New(size).LRU().
		Expiration(defaultCacheExpiration).
		LoaderFunc(func(key interface{}) (interface{}, error) {
			sql, ok := key.(string)
			if !ok {
				return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "statement text must be a string, got %T", key)
			}
			return Analyze(sql), nil
		}).Build()
	return &Cache{lru: lru}
}

// Analyze returns the cached analysis of sql, scanning it on a miss.
// The returned Params slice is shared and must not be modified.
func (c *Cache) Analyze(sql string) Analysis {
	v, err := c.lru.Get(sql)
	if err != nil {
		return Analyze(sql)
	}
	return v.(Analysis)
}

// Len is the number of cached analyses.
func (c *Cache) Len() int { return c.lru.Len(false) }

// Purge drops every cached analysis.
func (c *Cache) Purge() { c.lru.Purge() }
