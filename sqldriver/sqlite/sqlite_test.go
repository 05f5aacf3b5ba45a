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

package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql/sqldriver"
	"github.com/vecsql/vecsql/sqldriver/sqlite"
)

func Example() {
	// Be sure to import the driver first:
	// import _ "github.com/vecsql/vecsql/sqldriver/sqlite"

	db, err := sql.Open("vecsql-sqlite", ":memory:")
	if err != nil {
		panic(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE langs (name TEXT, year INTEGER)"); err != nil {
		panic(err)
	}
	for _, l := range []struct {
		name string
		year int
	}{{"go", 2009}, {"c", 1972}} {
		if _, err = db.Exec("INSERT INTO langs VALUES (?, ?)", l.name, l.year); err != nil {
			panic(err)
		}
	}

	rows, err := db.Query("SELECT name, year FROM langs ORDER BY year")
	if err != nil {
		panic(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			year int
		)
		if err := rows.Scan(&name, &year); err != nil {
			panic(err)
		}
		fmt.Println(name, year)
	}

	// Output:
	// c 1972
	// go 2009
}

func TestRegistered(t *testing.T) {
	db, err := sql.Open(sqlite.DriverName, "")
	require.NoError(t, err)
	defer db.Close()

	_, ok := db.Driver().(sqldriver.Driver)
	assert.True(t, ok)

	var answer float64
	ctx := context.Background()
	require.NoError(t, db.QueryRowContext(ctx, "SELECT 42.5").Scan(&answer))
	assert.Equal(t, 42.5, answer)
}
