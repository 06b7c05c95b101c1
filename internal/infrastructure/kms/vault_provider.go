package kms

import (
	"context"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/pkg/logger"
)

// VaultProvider fetches the audit HMAC key from a Vault KV v2 mount and
// caches it for the process lifetime.
type VaultProvider struct {
	client *vault.Client
	config config.VaultConfig
	logger logger.Logger

	mu  sync.RWMutex
	key []byte
}

// NewVaultProvider creates a provider over the given Vault client.
func NewVaultProvider(cfg config.VaultConfig, client *vault.Client, log logger.Logger) *VaultProvider {
	return &VaultProvider{
		client: client,
		config: cfg,
		logger: log.WithComponent("vault_provider"),
	}
}

// AuditKey returns the audit signing key, reading it from Vault on first use.
func (p *VaultProvider) AuditKey(ctx context.Context) ([]byte, error) {
	p.mu.RLock()
	if p.key != nil {
		defer p.mu.RUnlock()
		return p.key, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil {
		return p.key, nil
	}

	path := fmt.Sprintf("%s/data/%s", p.config.MountPath, p.config.SecretKey)
	secret, err := p.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("audit key not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected secret shape at %s", path)
	}
	value, ok := data["hmac_key"].(string)
	if !ok || value == "" {
		return nil, fmt.Errorf("hmac_key missing at %s", path)
	}

	p.key = []byte(value)
	p.logger.Info(ctx, "audit signing key loaded from vault")
	return p.key, nil
}
