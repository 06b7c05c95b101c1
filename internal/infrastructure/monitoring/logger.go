// Package monitoring provides the zap-backed logger, Prometheus metrics and
// OpenTelemetry tracing wiring for the careplane service.
package monitoring

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/pkg/logger"
)

type zapLogger struct {
	base *zap.Logger
}

// NewZapLogger builds the production logger from the log configuration.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &zapLogger{zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.base.Debug(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.base.Info(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.base.Warn(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	l.base.Error(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	l.base.Fatal(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	return &zapLogger{l.base.With(l.convert(context.Background(), fields)...)}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{l.base.With(zap.String("component", component))}
}

// convert maps Fields to zap fields, attaching trace identifiers and
// request-scoped context values, with sensitive values masked.
func (l *zapLogger) convert(ctx context.Context, fields []logger.Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)+4)

	if ctx != nil {
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			zapFields = append(zapFields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		for _, f := range logger.ContextFields(ctx) {
			zapFields = append(zapFields, zap.Any(f.Key, f.Value))
		}
	}

	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, logger.SanitizeValue(f.Key, f.Value)))
	}
	return zapFields
}
