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

// Package adbcbridge is a vecsql engine over any ADBC driver, for
// instance Flight SQL. Results arrive as Arrow record batches and
// parameters are bound as a single row record.
package adbcbridge

import (
	"context"
	"errors"
	"maps"

	"github.com/apache/arrow-adbc/go/adbc"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/internal/arrowchunk"
	"github.com/vecsql/vecsql/internal/sqltext"
)

// Engine opens ADBC databases through Driver. The path given to Open
// is used as the database URI, the extra connection options are passed
// on as database options.
type Engine struct {
	Driver adbc.Driver
	Alloc  memory.Allocator
	name   string
}

func NewEngine(name string, drv adbc.Driver, alloc memory.Allocator) *Engine {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	return &Engine{Driver: drv, Alloc: alloc, name: name}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Open(ctx context.Context, path string, opts vecsql.OpenOptions) (vecsql.Database, error) {
	dbOpts := maps.Clone(opts.Extra)
	if dbOpts == nil {
		dbOpts = make(map[string]string)
	}
	if path != "" {
		dbOpts[adbc.OptionKeyURI] = path
	}

	db, err := e.Driver.NewDatabase(dbOpts)
	if err != nil {
		return nil, kinded(err)
	}
	cnxn, err := db.Open(ctx)
	if err != nil {
		return nil, errors.Join(kinded(err), db.Close())
	}
	if opts.ReadOnly {
		if po, ok := cnxn.(adbc.PostInitOptions); ok {
			if err := po.SetOption(adbc.OptionKeyReadOnly, adbc.OptionValueEnabled); err != nil {
				return nil, errors.Join(kinded(err), cnxn.Close(), db.Close())
			}
		}
	}
	return &database{db: db, cnxn: cnxn, alloc: e.Alloc}, nil
}

type database struct {
	db     adbc.Database
	cnxn   adbc.Connection
	alloc  memory.Allocator
	closed bool
}

func (d *database) Prepare(ctx context.Context, query string) (vecsql.Statement, error) {
	if d.closed {
		return nil, vecsql.Error{Msg: "database is closed", Code: vecsql.StatusConnection}
	}

	switch sqltext.FirstKeyword(query) {
	case "BEGIN", "START":
		return &txnStatement{db: d, op: txnBegin}, nil
	case "COMMIT", "END":
		return &txnStatement{db: d, op: txnCommit}, nil
	case "ROLLBACK", "ABORT":
		return &txnStatement{db: d, op: txnRollback}, nil
	}

	stmt, err := d.cnxn.NewStatement()
	if err != nil {
		return nil, kinded(err)
	}
	if err := stmt.SetSqlQuery(query); err != nil {
		return nil, errors.Join(kinded(err), stmt.Close())
	}
	if err := stmt.Prepare(ctx); err != nil {
		return nil, errors.Join(kinded(err), stmt.Close())
	}

	s := &statement{
		db:    d,
		stmt:  stmt,
		ret:   sqltext.ReturnTypeOf(query),
		names: sqltext.Placeholders(query),
	}
	// not every driver reports parameter types
	if schema, err := stmt.GetParameterSchema(); err == nil && schema != nil && schema.NumFields() > 0 {
		s.params = schema
	}
	return s, nil
}

func (d *database) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.cnxn.Close(), d.db.Close())
}

type statement struct {
	db     *database
	stmt   adbc.Statement
	ret    vecsql.ReturnType
	names  []string
	params *arrow.Schema
}

func (s *statement) NumParams() int {
	if s.params != nil {
		return s.params.NumFields()
	}
	return len(s.names)
}

func (s *statement) ReturnType() vecsql.ReturnType { return s.ret }

func (s *statement) Execute(ctx context.Context, params []any) (vecsql.RowSource, error) {
	if len(params) > 0 {
		rec, err := arrowchunk.BuildParams(s.db.alloc, params, s.names, s.params)
		if err != nil {
			return nil, vecsql.WrapEngine(vecsql.StatusInvalidArgument, "Unable to bind parameters", err)
		}
		err = s.stmt.Bind(ctx, rec)
		rec.Release()
		if err != nil {
			return nil, kinded(err)
		}
	}

	if s.ret == vecsql.ReturnQuery {
		rdr, _, err := s.stmt.ExecuteQuery(ctx)
		if err != nil {
			return nil, kinded(err)
		}
		return arrowchunk.NewSource(rdr), nil
	}

	n, err := s.stmt.ExecuteUpdate(ctx)
	if err != nil {
		return nil, kinded(err)
	}
	return arrowchunk.CountSource(s.db.alloc, n)
}

func (s *statement) Close() error { return s.stmt.Close() }

type txnOp uint8

const (
	txnBegin txnOp = iota
	txnCommit
	txnRollback
)

// txnStatement maps transaction statements onto the ADBC autocommit
// option and the connection's Commit and Rollback.
type txnStatement struct {
	db *database
	op txnOp
}

func (t *txnStatement) NumParams() int { return 0 }

func (t *txnStatement) ReturnType() vecsql.ReturnType { return vecsql.ReturnNothing }

func (t *txnStatement) Execute(ctx context.Context, _ []any) (vecsql.RowSource, error) {
	po, ok := t.db.cnxn.(adbc.PostInitOptions)
	if !ok {
		return nil, adbc.Error{Msg: "transactions are not supported", Code: adbc.StatusNotImplemented}
	}

	var err error
	switch t.op {
	case txnBegin:
		err = po.SetOption(adbc.OptionKeyAutoCommit, adbc.OptionValueDisabled)
	case txnCommit:
		if err = t.db.cnxn.Commit(ctx); err == nil {
			err = po.SetOption(adbc.OptionKeyAutoCommit, adbc.OptionValueEnabled)
		}
	case txnRollback:
		if err = t.db.cnxn.Rollback(ctx); err == nil {
			err = po.SetOption(adbc.OptionKeyAutoCommit, adbc.OptionValueEnabled)
		}
	}
	if err != nil {
		return nil, kinded(err)
	}
	return arrowchunk.CountSource(t.db.alloc, -1)
}

func (t *txnStatement) Close() error { return nil }

// engineError reports the ADBC status as the error kind.
type engineError struct {
	err  error
	kind string
}

func (e engineError) Error() string     { return e.err.Error() }
func (e engineError) Unwrap() error     { return e.err }
func (e engineError) ErrorKind() string { return e.kind }

func kinded(err error) error {
	if err == nil {
		return nil
	}
	var ae adbc.Error
	if errors.As(err, &ae) {
		return engineError{err: err, kind: ae.Code.String()}
	}
	var pae *adbc.Error
	if errors.As(err, &pae) {
		return engineError{err: err, kind: pae.Code.String()}
	}
	return engineError{err: err, kind: "ADBC"}
}
