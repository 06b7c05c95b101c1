// Package kms provides the audit integrity key. Audit events are HMAC-signed
// before publication; the signing key comes from Vault in production and from
// static configuration in development.
package kms

import "context"

// KeyProvider supplies the audit HMAC key.
type KeyProvider interface {
	AuditKey(ctx context.Context) ([]byte, error)
}
