package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/infrastructure/kms"
	"github.com/careplane/careplane/pkg/constants"
)

func signedEvent(t *testing.T, signer *HMACSigner) *models.AuditEvent {
	t.Helper()
	event := models.NewAuditEvent(constants.AuditEventIsolationDenied,
		"tenant-a", "user-1", "req-1").
		WithDetail("resource", "/api/v1/care-plans")
	require.NoError(t, signer.Sign(context.Background(), event))
	return event
}

func TestSignAndVerify(t *testing.T) {
	signer := NewHMACSigner(kms.NewStaticProvider("test-key"))

	event := signedEvent(t, signer)
	require.NotEmpty(t, event.Signature)

	ok, err := signer.Verify(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_DetectsTampering(t *testing.T) {
	signer := NewHMACSigner(kms.NewStaticProvider("test-key"))

	event := signedEvent(t, signer)
	event.TenantID = "tenant-b"

	ok, err := signer.Verify(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_UnsignedEvent(t *testing.T) {
	signer := NewHMACSigner(kms.NewStaticProvider("test-key"))
	event := models.NewAuditEvent(constants.AuditEventThreatDetected, "tenant-a", "user-1", "req-1")

	ok, err := signer.Verify(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_WrongKey(t *testing.T) {
	event := signedEvent(t, NewHMACSigner(kms.NewStaticProvider("key-one")))

	ok, err := NewHMACSigner(kms.NewStaticProvider("key-two")).Verify(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSign_Deterministic(t *testing.T) {
	signer := NewHMACSigner(kms.NewStaticProvider("test-key"))

	event := signedEvent(t, signer)
	first := event.Signature
	require.NoError(t, signer.Sign(context.Background(), event))
	assert.Equal(t, first, event.Signature)
}
