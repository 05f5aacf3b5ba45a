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

// Command vecsql runs SQL statements against a vecsql engine and prints
// their results.
//
//	vecsql --engine duckdb --dsn warehouse.duckdb "SELECT * FROM sales LIMIT 10"
//	echo "SELECT 1; SELECT 2" | vecsql --format yaml
//	vecsql --engine adbc --options "driver=adbc_driver_sqlite" --dsn app.db "SELECT 1"
//
// Besides SQL, the statements .tables and .schema <table> list the
// tables of the database and describe one table.
//
// The duckdb engine is only available when built with -tags duckdb_arrow.
package main

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/apache/arrow-adbc/go/adbc/driver/flightsql"
	"github.com/apache/arrow-adbc/go/adbc/drivermgr"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/vecsql/vecsql"
	"github.com/vecsql/vecsql/cursor"
	"github.com/vecsql/vecsql/driver/adbcbridge"
	"github.com/vecsql/vecsql/driver/sqlite"
	"github.com/vecsql/vecsql/internal/sqltext"
	"github.com/vecsql/vecsql/internal/telemetry"
)

const version = "0.1.0"

var engines = map[string]func() vecsql.Engine{
	"sqlite": func() vecsql.Engine { return sqlite.NewEngine() },
	"flightsql": func() vecsql.Engine {
		return adbcbridge.NewEngine("flightsql", flightsql.NewDriver(memory.DefaultAllocator), nil)
	},
	// the ADBC driver to load is named by the driver= connection option
	"adbc": func() vecsql.Engine {
		return adbcbridge.NewEngine("adbc", &drivermgr.Driver{}, nil)
	},
}

func engineNames() []string { return slices.Sorted(maps.Keys(engines)) }

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "vecsql:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, stmts, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}

	newEngine, ok := engines[cfg.Engine]
	if !ok {
		return fmt.Errorf("unknown engine %q, expected one of %s", cfg.Engine, strings.Join(engineNames(), ", "))
	}

	script := strings.Join(stmts, ";\n")
	if len(stmts) == 0 {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read statements: %w", err)
		}
		script = string(b)
	}

	logger := telemetry.NilLogger()
	if cfg.Verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	tracer, err := telemetry.NewTracer(ctx, cfg.Engine, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	cn := cursor.NewConnection(newEngine(), cursor.WithLogger(logger), cursor.WithTracer(tracer))
	if !cn.Open(ctx, cfg.DSN, cfg.Options) {
		return cn.LastError()
	}
	defer cn.Close()

	p := newPrinter(cfg.Format, stdout)
	for _, stmt := range sqltext.Split(script) {
		rs, err := execute(ctx, cn, stmt)
		if err != nil {
			return err
		}
		if err := p.Print(rs); err != nil {
			return err
		}
	}
	return p.Close()
}

// resultSet is the fully read result of one statement.
type resultSet struct {
	Columns []string
	Rows    [][]driver.Value
	// Affected is the changed row count, -1 when unknown or when the
	// statement produced rows.
	Affected int64
}

func execute(ctx context.Context, cn *cursor.Connection, stmt string) (*resultSet, error) {
	switch fields := strings.Fields(stmt); {
	case fields[0] == ".tables":
		return listTables(ctx, cn)
	case fields[0] == ".schema" && len(fields) == 2:
		return describe(ctx, cn, fields[1])
	case strings.HasPrefix(fields[0], "."):
		return nil, fmt.Errorf("unknown command %q", stmt)
	}

	r := cn.NewResult()
	defer r.Finalize()
	if !r.Reset(ctx, stmt) {
		return nil, r.LastError()
	}

	rs := &resultSet{Affected: r.NumRowsAffected()}
	if !r.IsSelect() {
		return rs, nil
	}
	for _, col := range r.Record() {
		rs.Columns = append(rs.Columns, col.Name)
	}
	for {
		row := make([]driver.Value, len(rs.Columns))
		if !r.FetchNext(ctx, row, 0) {
			break
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := r.LastError(); err != nil {
		return nil, err
	}
	return rs, nil
}

func listTables(ctx context.Context, cn *cursor.Connection) (*resultSet, error) {
	names := cn.Tables(ctx, cursor.TableTypeTables|cursor.TableTypeViews)
	if err := cn.LastError(); err != nil {
		return nil, err
	}
	rs := &resultSet{Columns: []string{"name"}, Affected: -1}
	for _, n := range names {
		rs.Rows = append(rs.Rows, []driver.Value{n})
	}
	return rs, nil
}

func describe(ctx context.Context, cn *cursor.Connection, table string) (*resultSet, error) {
	cols := cn.Record(ctx, table)
	if err := cn.LastError(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table %q", table)
	}
	rs := &resultSet{
		Columns:  []string{"name", "type", "kind", "nullable", "primary_key", "default"},
		Affected: -1,
	}
	for _, c := range cols {
		rs.Rows = append(rs.Rows, []driver.Value{
			c.Name, c.DatabaseType, c.Kind.String(), c.Nullable, c.PrimaryKey, c.Default,
		})
	}
	return rs, nil
}
