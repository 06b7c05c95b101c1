// Package audit implements the security audit pipeline: events are
// HMAC-signed and published to Kafka so downstream consumers can detect
// tampering and gaps.
package audit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/infrastructure/kms"
)

// HMACSigner signs audit events with a key from the key provider.
type HMACSigner struct {
	keys kms.KeyProvider
}

// NewHMACSigner creates a signer.
func NewHMACSigner(keys kms.KeyProvider) *HMACSigner {
	return &HMACSigner{keys: keys}
}

// Sign computes the event signature over its canonical JSON form with the
// signature field empty, and sets it on the event.
func (s *HMACSigner) Sign(ctx context.Context, event *models.AuditEvent) error {
	key, err := s.keys.AuditKey(ctx)
	if err != nil {
		return fmt.Errorf("audit key unavailable: %w", err)
	}

	unsigned := *event
	unsigned.Signature = ""
	payload, err := json.Marshal(&unsigned)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	event.Signature = hex.EncodeToString(mac.Sum(nil))
	return nil
}

// Verify recomputes the signature and compares in constant time.
func (s *HMACSigner) Verify(ctx context.Context, event *models.AuditEvent) (bool, error) {
	expected := event.Signature
	if expected == "" {
		return false, nil
	}

	verified := *event
	if err := s.Sign(ctx, &verified); err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(verified.Signature)), nil
}
