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

// Package telemetry sets up the logger and tracer shared by the
// connections and results of this module.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vecsql/vecsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	Namespace = "vecsql"

	// TracesExporterEnv selects the span exporter.
	TracesExporterEnv = "OTEL_TRACES_EXPORTER"
)

type ExporterType int

const (
	ExporterNone ExporterType = iota
	ExporterOtlp
	ExporterConsole
	ExporterFile
)

var exporterNames = map[string]ExporterType{
	"none":       ExporterNone,
	"otlp":       ExporterOtlp,
	"console":    ExporterConsole,
	"vecsqlfile": ExporterFile,
}

func (e ExporterType) String() string {
	return [...]string{"none", "otlp", "console", "vecsqlfile"}[e]
}

// ParseExporter maps an OTEL_TRACES_EXPORTER value onto an exporter.
func ParseExporter(value string) (ExporterType, bool) {
	e, ok := exporterNames[strings.ToLower(strings.TrimSpace(value))]
	return e, ok
}

// NilLogger discards everything.
func NilLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// NilTracer records nothing.
func NilTracer() trace.Tracer { return noop.NewTracerProvider().Tracer(Namespace) }

// Tracer is a tracer together with the shutdown of the provider that
// owns it, if the provider was created here.
type Tracer struct {
	trace.Tracer
	shutdown func(context.Context) error
}

// Shutdown flushes and stops the exporters. It is a no-op for tracers
// taken from the global provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// NewTracer builds the tracer for an engine from the exporter named in
// OTEL_TRACES_EXPORTER. With the variable unset the globally registered
// provider is used.
func NewTracer(ctx context.Context, engineName, version string) (*Tracer, error) {
	return newTracer(ctx, os.Getenv(TracesExporterEnv), engineName, version)
}

func newTracer(ctx context.Context, exporterName, engineName, version string) (*Tracer, error) {
	fullName := Namespace + "." + engineName
	if exporterName == "" {
		return &Tracer{Tracer: otel.Tracer(fullName)}, nil
	}

	exporterType, ok := ParseExporter(exporterName)
	if !ok {
		return nil, vecsql.Errorf(vecsql.StatusInvalidArgument, "Unknown %s option '%s'", TracesExporterEnv, exporterName)
	}

	var exporters []sdktrace.SpanExporter
	switch exporterType {
	case ExporterNone:
		return &Tracer{Tracer: NilTracer()}, nil
	case ExporterConsole:
		exp, err := stdouttrace.New()
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exp)
	case ExporterOtlp:
		exps, err := newOtlpExporters(ctx)
		if err != nil {
			return nil, err
		}
		exporters = exps
	case ExporterFile:
		exp, err := newFileExporter(fullName)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exp)
	}

	provider, err := newTracerProvider(exporters...)
	if err != nil {
		return nil, err
	}
	return &Tracer{
		Tracer: provider.Tracer(fullName,
			trace.WithInstrumentationVersion(version),
			trace.WithSchemaURL(semconv.SchemaURL)),
		shutdown: provider.Shutdown,
	}, nil
}

func newOtlpExporters(ctx context.Context) ([]sdktrace.SpanExporter, error) {
	// endpoints and headers come from the standard OTEL_EXPORTER_OTLP_*
	// environment variables
	grpcExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
		}))
	if err != nil {
		return nil, err
	}
	httpExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
		}))
	if err != nil {
		return nil, err
	}
	return []sdktrace.SpanExporter{grpcExporter, httpExporter}, nil
}

func newFileExporter(name string) (*stdouttrace.Exporter, error) {
	w, err := NewRotatingFileWriter(WithLogNamePrefix(strings.ToLower(name)))
	if err != nil {
		return nil, err
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}

func newTracerProvider(exporters ...sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(Namespace)),
	)
	if err != nil {
		if !errors.Is(err, resource.ErrSchemaURLConflict) {
			return nil, err
		}
		res = resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(Namespace))
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Attribute keys used on spans and log records.
const (
	KeyEngine   = attribute.Key("vecsql.engine")
	KeyResultID = attribute.Key("vecsql.result_id")
	KeyQuery    = attribute.Key("db.query.text")
	KeyRows     = attribute.Key("vecsql.rows_affected")
)
