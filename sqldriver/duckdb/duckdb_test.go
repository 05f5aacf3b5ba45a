//go:build duckdb_arrow

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

package duckdb_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql/sqldriver/duckdb"
)

func TestRegistered(t *testing.T) {
	db, err := sql.Open(duckdb.DriverName, "threads=2")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	var n, total int64
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count(*), sum(i)::BIGINT FROM range(10000) t(i)").Scan(&n, &total))
	assert.EqualValues(t, 10000, n)
	assert.EqualValues(t, 49995000, total)

	var setting string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT current_setting('threads')").Scan(&setting))
	assert.Equal(t, "2", setting)
}
