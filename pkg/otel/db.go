package otel

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"habitrack/pkg/metrics"
)

const instrumentationName = "habitrack"

// Tracer returns the tracer from the global provider. It is a no-op until a
// provider is installed.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// DBSpan 为数据库操作创建 span
func DBSpan(ctx context.Context, operation string, table string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// WrapDBError 记录数据库错误到 span
func WrapDBError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "no rows")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Observe runs fn inside a db span and records its latency.
func Observe(ctx context.Context, operation string, table string, fn func(context.Context) error) error {
	ctx, span := DBSpan(ctx, operation, table)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
	WrapDBError(span, err)
	return err
}
