package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	queryStartKey    = "slow_query:start"
)

// InstrumentDB adds otelgorm spans and slow query detection to db. It is a
// no-op unless DBTraceEnabled is set.
func InstrumentDB(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(db.Dialector.Name())}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = defaultSlowQuery
	}
	w := &slowQueryWatch{threshold: threshold, logger: logger, now: time.Now}
	if err := w.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", threshold),
	)
	return nil
}

type slowQueryWatch struct {
	threshold time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// register hooks every processor. The after hooks run ahead of otelgorm's
// so the statement span is still current. The start time lives on the
// statement because otelgorm swaps the context back on its way out.
func (w *slowQueryWatch) register(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("slow_query:before_create", w.before),
		cb.Create().After("gorm:create").Before("otel:after:create").Register("slow_query:after_create", w.after),
		cb.Query().Before("gorm:query").Register("slow_query:before_query", w.before),
		cb.Query().After("gorm:query").Before("otel:after:select").Register("slow_query:after_query", w.after),
		cb.Update().Before("gorm:update").Register("slow_query:before_update", w.before),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("slow_query:after_update", w.after),
		cb.Delete().Before("gorm:delete").Register("slow_query:before_delete", w.before),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("slow_query:after_delete", w.after),
		cb.Row().Before("gorm:row").Register("slow_query:before_row", w.before),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("slow_query:after_row", w.after),
		cb.Raw().Before("gorm:raw").Register("slow_query:before_raw", w.before),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("slow_query:after_raw", w.after),
	)
}

func (w *slowQueryWatch) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, w.now())
}

func (w *slowQueryWatch) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	span := trace.SpanFromContext(ctx)

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
	}

	v, ok := db.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := w.now().Sub(start)
	if elapsed < w.threshold {
		return
	}
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	w.logger.Warn("Slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", db.Statement.RowsAffected),
		zap.String("trace_id", TraceID(ctx)),
	)
}
