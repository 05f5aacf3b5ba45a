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

package cursor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
)

// mockEngine is a mock implementation of vecsql.Engine for testing
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Open(ctx context.Context, path string, opts vecsql.OpenOptions) (vecsql.Database, error) {
	args := m.Called(ctx, path, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vecsql.Database), args.Error(1)
}

// mockDatabase is a mock implementation of vecsql.Database for testing
type mockDatabase struct {
	mock.Mock
}

func (m *mockDatabase) Prepare(ctx context.Context, query string) (vecsql.Statement, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vecsql.Statement), args.Error(1)
}

func (m *mockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockStatement struct {
	mock.Mock
}

func (m *mockStatement) NumParams() int {
	return m.Called().Int(0)
}

func (m *mockStatement) ReturnType() vecsql.ReturnType {
	return m.Called().Get(0).(vecsql.ReturnType)
}

func (m *mockStatement) Execute(ctx context.Context, params []any) (vecsql.RowSource, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vecsql.RowSource), args.Error(1)
}

func (m *mockStatement) Close() error {
	args := m.Called()
	return args.Error(0)
}

func openMock(t *testing.T, db *mockDatabase, options string) *cursor.Connection {
	t.Helper()
	eng := &mockEngine{}
	eng.On("Open", mock.Anything, "mock.db", mock.AnythingOfType("vecsql.OpenOptions")).Return(db, nil).Once()

	cn := cursor.NewConnection(eng)
	require.True(t, cn.Open(context.Background(), "mock.db", options), "%v", cn.LastError())
	eng.AssertExpectations(t)
	return cn
}

func TestOpenPassesOptions(t *testing.T) {
	db := &mockDatabase{}
	eng := &mockEngine{}
	eng.On("Open", mock.Anything, "", mock.MatchedBy(func(o vecsql.OpenOptions) bool {
		return o.ReadOnly && !o.SharedCache && o.Extra["threads"] == "4"
	})).Return(db, nil)

	cn := cursor.NewConnection(eng)
	require.True(t, cn.Open(context.Background(), "", "open_readonly;threads=4"))
	eng.AssertExpectations(t)

	db.On("Close").Return(nil)
	assert.True(t, cn.Close())
	db.AssertExpectations(t)
}

func TestOpenEngineError(t *testing.T) {
	eng := &mockEngine{}
	eng.On("Open", mock.Anything, "gone.db", mock.Anything).Return(nil, errors.New("no such file"))

	cn := cursor.NewConnection(eng)
	assert.False(t, cn.Open(context.Background(), "gone.db", ""))
	assert.ErrorIs(t, cn.LastError(), vecsql.ErrConnection)
	assert.ErrorContains(t, cn.LastError(), "no such file")
	assert.False(t, cn.IsOpen())
}

func TestCloseReportsEngineError(t *testing.T) {
	db := &mockDatabase{}
	cn := openMock(t, db, "")

	db.On("Close").Return(errors.New("database is locked")).Once()
	assert.False(t, cn.Close())
	assert.ErrorIs(t, cn.LastError(), vecsql.ErrConnection)
	// the connection is closed either way
	assert.False(t, cn.IsOpen())
	assert.True(t, cn.Close())
	db.AssertExpectations(t)
}

func TestPrepareWrapsEngineError(t *testing.T) {
	db := &mockDatabase{}
	cn := openMock(t, db, "")

	db.On("Prepare", mock.Anything, "SELECT x").Return(nil, errors.New("Binder Error: column x not found"))
	r := cn.NewResult()
	assert.False(t, r.Prepare(context.Background(), "SELECT x"))

	var verr vecsql.Error
	require.ErrorAs(t, r.LastError(), &verr)
	assert.Equal(t, vecsql.StatusPrepare, verr.Code)
	assert.Equal(t, "Binder Error: column x not found", verr.Details)

	db.On("Close").Return(nil)
	assert.True(t, cn.Close())
	db.AssertExpectations(t)
}

func TestStatementClosedOnce(t *testing.T) {
	db := &mockDatabase{}
	cn := openMock(t, db, "")

	st := &mockStatement{}
	st.On("NumParams").Return(0)
	st.On("ReturnType").Return(vecsql.ReturnQuery).Maybe()
	// a failing close is only logged
	st.On("Close").Return(errors.New("statement busy")).Once()
	db.On("Prepare", mock.Anything, "SELECT 1").Return(st, nil)

	r := cn.NewResult()
	require.True(t, r.Prepare(context.Background(), "SELECT 1"), "%v", r.LastError())
	r.Finalize()
	r.Finalize()
	st.AssertNumberOfCalls(t, "Close", 1)

	db.On("Close").Return(nil)
	assert.True(t, cn.Close())
	st.AssertExpectations(t)
	db.AssertExpectations(t)
}
