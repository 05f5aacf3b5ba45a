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

package sqldriver

import (
	"context"
	"database/sql/driver"
	"io"
	"reflect"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/enginetest"
)

func TestParseConnectStr(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		path    string
		options string
	}{
		{"empty", "", "", ""},
		{"bare path", "app.db", "app.db", ""},
		{"path key", "path=app.db", "app.db", ""},
		{"database key", " database = app.db ", "app.db", ""},
		{"uri key", "uri=grpc+tcp://localhost:1234", "grpc+tcp://localhost:1234", ""},
		{"flags", "app.db;OPEN_READONLY;enable_shared_cache", "app.db", "OPEN_READONLY;enable_shared_cache"},
		{"options", "path=app.db ; NUMERIC_PRECISION=double; threads=4",
			"app.db", "NUMERIC_PRECISION=double;threads=4"},
		{"flag first", "OPEN_URI;path=file:app.db", "file:app.db", "OPEN_URI"},
		{"trailing separator", "app.db;", "app.db", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, options, err := parseConnectStr(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.options, options)
		})
	}
}

func TestParseConnectStrErrors(t *testing.T) {
	for _, dsn := range []string{
		"a.db;path=b.db",
		"path=a.db;database=b.db",
		"path=a.db;oops",
	} {
		_, _, err := parseConnectStr(dsn)
		assert.ErrorIs(t, err, vecsql.ErrInvalidArgument, dsn)
	}
}

func TestOpenConnectorNeedsEngine(t *testing.T) {
	_, err := Driver{}.OpenConnector("")
	assert.ErrorIs(t, err, vecsql.ErrInvalidState)
}

func TestColumnTypeScanType(t *testing.T) {
	r := &rows{cols: []vecsql.Column{
		{Name: "b", Kind: vecsql.KindBool},
		{Name: "i", Kind: vecsql.KindInt, DatabaseType: "BIGINT"},
		{Name: "d", Kind: vecsql.KindDouble},
		{Name: "x", Kind: vecsql.KindBytes},
		{Name: "s", Kind: vecsql.KindString, Nullable: true},
		{Name: "u", Kind: vecsql.KindUnknown},
	}}

	assert.Equal(t, []string{"b", "i", "d", "x", "s", "u"}, r.Columns())
	want := []reflect.Type{
		reflect.TypeOf(int64(0)),
		reflect.TypeOf(int64(0)),
		reflect.TypeOf(float64(0)),
		reflect.TypeOf([]byte(nil)),
		reflect.TypeOf(""),
		reflect.TypeOf((*any)(nil)).Elem(),
	}
	for i, typ := range want {
		assert.Equal(t, typ, r.ColumnTypeScanType(i), r.cols[i].Name)
	}
	assert.Equal(t, "BIGINT", r.ColumnTypeDatabaseTypeName(1))

	for _, p := range []vecsql.PrecisionPolicy{vecsql.LowPrecisionInt32, vecsql.LowPrecisionInt64} {
		r.policy = p
		assert.Equal(t, reflect.TypeOf(int64(0)), r.ColumnTypeScanType(2), p.String())
	}
	r.policy = vecsql.LowPrecisionDouble
	assert.Equal(t, reflect.TypeOf(float64(0)), r.ColumnTypeScanType(2))

	nullable, ok := r.ColumnTypeNullable(4)
	assert.True(t, ok)
	assert.True(t, nullable)
}

func TestResult(t *testing.T) {
	n, err := result{affected: 3}.RowsAffected()
	assert.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = result{affected: -1}.RowsAffected()
	assert.ErrorIs(t, err, vecsql.ErrNotImplemented)

	_, err = result{}.LastInsertId()
	assert.ErrorIs(t, err, vecsql.ErrNotImplemented)
}

func TestStaleRows(t *testing.T) {
	ctx := context.Background()
	eng := enginetest.New().On("SELECT n", enginetest.Script{
		Schema:  arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64}}, nil),
		Batches: []string{`[{"n": 1}, {"n": 2}]`},
	})

	dc, err := Driver{Engine: eng}.Open("")
	require.NoError(t, err)
	defer dc.Close()

	st, err := dc.(driver.ConnPrepareContext).PrepareContext(ctx, "SELECT n")
	require.NoError(t, err)
	defer st.Close()
	qc := st.(driver.StmtQueryContext)

	first, err := qc.QueryContext(ctx, nil)
	require.NoError(t, err)
	second, err := qc.QueryContext(ctx, nil)
	require.NoError(t, err)

	dest := make([]driver.Value, 1)
	assert.ErrorIs(t, first.Next(dest), vecsql.ErrInvalidState)
	require.NoError(t, first.Close())

	// closing the stale rows leaves the current ones alone
	require.NoError(t, second.Next(dest))
	assert.Equal(t, int64(1), dest[0])
	require.NoError(t, second.Next(dest))
	assert.Equal(t, int64(2), dest[0])
	assert.Equal(t, io.EOF, second.Next(dest))
	require.NoError(t, second.Close())

	assert.Equal(t, 1, eng.Stats().OpenStmts)
	assert.Zero(t, eng.Stats().OpenSources)
}
