package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/pkg/logger"
)

// KafkaProducer publishes signed audit events to the audit topic.
type KafkaProducer struct {
	writer *kafka.Writer
	signer *HMACSigner
	logger logger.Logger
}

// NewKafkaProducer creates a producer over the configured brokers.
func NewKafkaProducer(cfg config.KafkaConfig, signer *HMACSigner, log logger.Logger) service.AuditService {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaProducer{
		writer: writer,
		signer: signer,
		logger: log.WithComponent("audit_producer"),
	}
}

// Record signs and publishes one audit event. Publication failures are
// logged and returned but never abort the request that produced the event;
// the denial already happened before audit publication.
func (p *KafkaProducer) Record(ctx context.Context, event *models.AuditEvent) error {
	if err := p.signer.Sign(ctx, event); err != nil {
		p.logger.Error(ctx, "failed to sign audit event", err)
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TenantID),
		Value: payload,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to publish audit event", err,
			logger.String("event_type", string(event.EventType)))
	}
	return err
}

// Close closes the underlying writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
