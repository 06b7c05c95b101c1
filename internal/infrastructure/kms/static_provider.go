package kms

import "context"

// StaticProvider serves a fixed audit key from configuration. Development and
// test use only.
type StaticProvider struct {
	key []byte
}

// NewStaticProvider creates a provider over the configured key.
func NewStaticProvider(key string) *StaticProvider {
	return &StaticProvider{key: []byte(key)}
}

// AuditKey returns the configured key.
func (p *StaticProvider) AuditKey(ctx context.Context) ([]byte, error) {
	return p.key, nil
}
