// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/authz"
	"github.com/memberhub/memberhub/internal/config"
	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/mfa"
	"github.com/memberhub/memberhub/internal/observability/logger"
	"github.com/memberhub/memberhub/internal/observability/metrics"
	"github.com/memberhub/memberhub/internal/observability/tracing"
	"github.com/memberhub/memberhub/internal/session"
	"github.com/memberhub/memberhub/internal/store/memory"
	"github.com/memberhub/memberhub/internal/store/postgres"
	"github.com/memberhub/memberhub/internal/store/redis"
	"github.com/memberhub/memberhub/internal/tenant"
	transportHTTP "github.com/memberhub/memberhub/internal/transport/http"
	goredis "github.com/redis/go-redis/v9"
)

// stores are the repositories selected by configuration
type stores struct {
	principals identity.Repository
	tenants    tenant.Repository
	features   feature.Repository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTelBridge:  cfg.Observability.OTELEnabled,
	})

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting memberhub")

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		tracer = tracing.Noop()
	}
	defer tracer.Shutdown(context.Background())

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	defer meter.Shutdown(context.Background())

	authMetrics, err := metrics.NewAuthMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to create auth metrics: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	policy, err := identity.NewAdminPolicy(cfg.Auth.BootstrapPrincipalID)
	if err != nil {
		return fmt.Errorf("invalid AUTH_BOOTSTRAP_PRINCIPAL_ID: %w", err)
	}

	signer, err := session.NewHMACSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	sessions := session.NewIssuer(signer, cfg.Auth.SessionTTL)
	features := feature.NewStore(st.features, st.tenants, policy, cfg.Features.Defaults, auditLogger)

	if cfg.Redis.Addr != "" {
		redisCfg := redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Timeout:  cfg.Redis.Timeout,
			Prefix:   cfg.Redis.Prefix,
		}
		client, err := redis.NewClient(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) { _ = c.Close() }(client)

		sessions.WithDenyList(redis.NewDenyList(client, redisCfg))
		features.WithCache(redis.NewFeatureCache(client, redisCfg, cfg.Redis.CacheTTL))
		slog.Info("connected to redis", logger.Component("redis"))
	}

	var verifier mfa.Verifier = mfa.NewTOTPVerifier()
	if cfg.MFA.Mode == config.MFAModeStatic {
		slog.Warn("MFA is using the static development code; do not run this in production")
		verifier = mfa.StaticVerifier{}
	}
	challenge := mfa.NewChallenge(verifier)

	identityService := identity.NewService(st.principals, st.tenants, passwordHasher, policy, auditLogger)
	if cfg.Redis.Addr != "" {
		identityService.WithSessionRevoker(sessions)
	}
	tenantService := tenant.NewService(st.tenants, auditLogger)
	mfaService := mfa.NewService(st.principals, challenge, cfg.MFA.Issuer, auditLogger)

	engine := authz.NewEngine(authz.Deps{
		Principals: st.principals,
		Verifier:   passwordHasher,
		DecoyHash:  passwordHasher.DecoyHash(),
		Policy:     policy,
		Features:   features,
		Challenge:  challenge,
		Sessions:   sessions,
		Audit:      auditLogger,
		Metrics:    authMetrics,
		Tracer:     tracer,
		Timeout:    cfg.Auth.DecisionTimeout,
	})

	bootstrapService := identity.NewBootstrapService(identityService)
	adminID, err := bootstrapService.Bootstrap(ctx, identity.BootstrapInput{
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
		FullName: cfg.Bootstrap.AdminName,
	})
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if adminID != "" {
		slog.Info("platform administrator ready", logger.PrincipalID(adminID.String()))
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).
		WithTrustedProxies(cfg.RateLimit.TrustedProxies)
	defer rateLimiter.Stop()

	handler := transportHTTP.NewHandler(engine, identityService, tenantService, features, mfaService, sessions, auditLogger)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      transportHTTP.NewRouter(handler, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

// openStores connects PostgreSQL when configured and falls back to the
// in-memory store otherwise.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if !cfg.Database.Enabled() {
		slog.Warn("no database configured; using the in-memory store", logger.Component("store"))
		mem := memory.New()
		return &stores{
			principals: mem.Principals(),
			tenants:    mem.Tenants(),
			features:   mem.Features(),
			close:      func() {},
		}, nil
	}

	db, err := postgres.New(ctx, databaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database", logger.Component("store"))

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(postgres.MigrateUp); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &stores{
		principals: postgres.NewPrincipalRepository(db),
		tenants:    postgres.NewTenantRepository(db),
		features:   postgres.NewFeatureRepository(db),
		close:      db.Close,
	}, nil
}

func databaseConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		URL:          cfg.Database.URL,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	}
}

func runMigrate(cfg *config.Config) error {
	if !cfg.Database.Enabled() {
		return errors.New("no database configured")
	}
	ctx := context.Background()
	db, err := postgres.New(ctx, databaseConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(postgres.MigrateUp); err != nil {
		return err
	}
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Migration successful (version %d, dirty=%t).\n", version, dirty)
	return nil
}
