// Command server runs the careplane trust-boundary and compliance service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	appservice "github.com/careplane/careplane/internal/application/service"
	"github.com/careplane/careplane/internal/config"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/assessment"
	"github.com/careplane/careplane/internal/infrastructure/audit"
	"github.com/careplane/careplane/internal/infrastructure/cache"
	"github.com/careplane/careplane/internal/infrastructure/geo"
	"github.com/careplane/careplane/internal/infrastructure/kms"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/internal/infrastructure/persistence/gormdb"
	"github.com/careplane/careplane/internal/infrastructure/persistence/postgres"
	"github.com/careplane/careplane/internal/infrastructure/ratelimit"
	"github.com/careplane/careplane/internal/interfaces/http/handlers"
	"github.com/careplane/careplane/internal/interfaces/http/router"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "careplane: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := monitoring.NewTracingManager(cfg, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	// Tenant directory on pgx, grants and snapshots on gorm.
	pgConn, err := postgres.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pgConn.Close()

	gormDB, err := gormdb.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open gorm: %w", err)
	}
	if err := gormdb.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Redis.Addresses,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	defer redisClient.Close()

	auditService, err := buildAuditService(cfg, log)
	if err != nil {
		return err
	}
	defer auditService.Close()

	geoClassifier, err := geo.NewStaticClassifier(cfg.Geo.CIDRCountries)
	if err != nil {
		return fmt.Errorf("init geo classifier: %w", err)
	}

	tenantDirectory := postgres.NewTenantDirectory(pgConn, log)
	tenantCache := cache.NewTenantCache(cfg.Security.TenantCacheTTL, metrics)
	resolver := domainservice.NewTenantContextResolver(tenantDirectory, tenantCache,
		cfg.Security.AllowQueryParamTenant && !cfg.IsProduction(), log)

	permissionRepo := gormdb.NewPermissionRepository(gormDB)
	evaluator := domainservice.NewCrossTenantPermissionEvaluator(permissionRepo, log)
	validator := domainservice.NewIsolationValidator(evaluator, geoClassifier, log)

	scanner := domainservice.NewThreatPatternScanner(cfg.Assistant.BlockHighSeverity, log)
	sanitizer := domainservice.NewInputSanitizer(cfg.Assistant.MaxTextLength, log)
	limiter := ratelimit.NewRedisRateLimiter(redisClient,
		cfg.Assistant.RateLimitPerMinute, time.Minute, log)

	classifier := domainservice.NewJurisdictionClassifier()
	providers := make(map[constants.Jurisdiction]domainservice.AssessmentProvider, len(cfg.Compliance.ProviderURLs))
	for name, baseURL := range cfg.Compliance.ProviderURLs {
		jurisdiction := constants.Jurisdiction(name)
		if !constants.IsValidJurisdiction(jurisdiction) {
			return fmt.Errorf("unknown jurisdiction %q in provider_urls", name)
		}
		providers[jurisdiction] = assessment.NewHTTPProvider(jurisdiction, baseURL, log)
	}

	assessmentRepo := gormdb.NewAssessmentRepository(gormDB)
	aggregator := appservice.NewComplianceAggregator(classifier, providers, assessmentRepo,
		metrics, log, cfg.Compliance.AssessmentTimeout, cfg.Compliance.RetryBackoff)
	gateway := appservice.NewAssistantGateway(sanitizer, auditService, log)
	permissionAdmin := appservice.NewPermissionAdminService(permissionRepo, auditService, log)

	health := handlers.NewHealthHandler(log,
		handlers.ReadinessCheck{Name: "postgres", Check: pgConn.Ping},
		handlers.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	)

	server := router.New(router.Dependencies{
		Config:     cfg,
		Logger:     log,
		Metrics:    metrics,
		Registry:   registry,
		Resolver:   resolver,
		Validator:  validator,
		Scanner:    scanner,
		Limiter:    limiter,
		Audit:      auditService,
		Compliance: handlers.NewComplianceHandler(aggregator, assessmentRepo, log),
		Assistant:  handlers.NewAssistantHandler(gateway, log),
		Permission: handlers.NewPermissionHandler(permissionAdmin, log),
		Health:     health,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http shutdown failed", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "tracing shutdown failed", err)
	}
	log.Info(shutdownCtx, "careplane stopped")
	return nil
}

// buildAuditService selects the Kafka-backed audit trail when brokers are
// configured, falling back to the signed log recorder otherwise. The signing
// key comes from Vault when enabled.
func buildAuditService(cfg *config.Config, log logger.Logger) (domainservice.AuditService, error) {
	var keys kms.KeyProvider
	if cfg.Vault.Enabled {
		vaultConfig := vault.DefaultConfig()
		vaultConfig.Address = cfg.Vault.Address
		client, err := vault.NewClient(vaultConfig)
		if err != nil {
			return nil, fmt.Errorf("init vault client: %w", err)
		}
		client.SetToken(cfg.Vault.Token)
		keys = kms.NewVaultProvider(cfg.Vault, client, log)
	} else {
		keys = kms.NewStaticProvider(cfg.Security.AuditHMACKey)
	}

	signer := audit.NewHMACSigner(keys)
	if cfg.Kafka.Enabled {
		return audit.NewKafkaProducer(cfg.Kafka, signer, log), nil
	}
	return audit.NewLogRecorder(signer, log), nil
}
