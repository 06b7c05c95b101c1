package audit

import (
	"context"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/pkg/logger"
)

// LogRecorder writes signed audit events to the structured log. Used when
// Kafka is disabled, so every deployment keeps an audit trail.
type LogRecorder struct {
	signer *HMACSigner
	logger logger.Logger
}

// NewLogRecorder creates a log-backed audit recorder.
func NewLogRecorder(signer *HMACSigner, log logger.Logger) service.AuditService {
	return &LogRecorder{
		signer: signer,
		logger: log.WithComponent("audit"),
	}
}

// Record signs the event and emits it as a log entry.
func (r *LogRecorder) Record(ctx context.Context, event *models.AuditEvent) error {
	if err := r.signer.Sign(ctx, event); err != nil {
		return err
	}
	r.logger.Info(ctx, "audit event",
		logger.String("event_type", string(event.EventType)),
		logger.String("event_id", event.EventID.String()),
		logger.String("tenant_id", event.TenantID),
		logger.Any("details", event.Details),
		logger.Int("violation_count", len(event.Violations)),
		logger.String("signature", event.Signature),
	)
	return nil
}

// Close is a no-op.
func (r *LogRecorder) Close() error { return nil }
