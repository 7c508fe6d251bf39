package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/gateway/internal/config"
	"github.com/ehr/gateway/internal/domain/account"
	"github.com/ehr/gateway/internal/domain/allergies"
	"github.com/ehr/gateway/internal/domain/coversheet"
	"github.com/ehr/gateway/internal/domain/notes"
	"github.com/ehr/gateway/internal/domain/orders"
	"github.com/ehr/gateway/internal/domain/patient"
	"github.com/ehr/gateway/internal/domain/problems"
	"github.com/ehr/gateway/internal/domain/vitals"
	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/internal/platform/backend"
	"github.com/ehr/gateway/internal/platform/cache"
	"github.com/ehr/gateway/internal/platform/db"
	"github.com/ehr/gateway/internal/platform/hipaa"
	"github.com/ehr/gateway/internal/platform/middleware"
	"github.com/ehr/gateway/internal/platform/openapi"
	"github.com/ehr/gateway/internal/platform/telemetry"
)

const (
	apiPrefix         = "/api/v1"
	memoryLogCapacity = 10000
	cachePrefix       = "ehr-gateway:"
)

// accessLog is satisfied by both hipaa.PGAccessLog and hipaa.MemoryAccessLog.
type accessLog interface {
	middleware.AuditRecorder
	hipaa.Searcher
}

// deps are the long-lived resources the server is built from.
type deps struct {
	pool       *pgxpool.Pool
	store      cache.Store
	cacheCheck cache.Pinger
	accessLog  accessLog
	metrics    *telemetry.Metrics
	signingKey []byte
	closers    []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func openDeps(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*deps, error) {
	d := &deps{metrics: telemetry.New()}

	key, err := signingKey(cfg, logger)
	if err != nil {
		return nil, err
	}
	d.signingKey = key

	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL, cachePrefix)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { rs.Close() })
		d.store = rs
		d.cacheCheck = rs
		logger.Info().Msg("using redis cache")
	} else {
		ms := cache.NewMemoryStore()
		ms.StartCleanup(ctx, cfg.CacheTTL+time.Minute)
		d.store = ms
	}

	phiKey, err := cfg.PHIKey()
	if err != nil {
		d.close()
		return nil, err
	}
	if phiKey != nil {
		sealed, err := cache.NewSealedStore(d.store, phiKey)
		if err != nil {
			d.close()
			return nil, err
		}
		d.store = sealed
	}

	hashKey, err := auditKey(cfg, key)
	if err != nil {
		d.close()
		return nil, err
	}
	hasher := hipaa.NewHasher(hashKey)

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			d.close()
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		d.pool = pool
		d.accessLog = hipaa.NewPGAccessLog(pool, hasher)
		logger.Info().Msg("connected to database")
	} else {
		d.accessLog = hipaa.NewMemoryAccessLog(hasher, memoryLogCapacity)
		logger.Warn().Msg("DATABASE_URL not set; PHI access log is kept in memory only")
	}

	return d, nil
}

// signingKey returns the session signing key. Development without a
// configured key gets a random one, so sessions do not survive a restart.
func signingKey(cfg *config.Config, logger zerolog.Logger) ([]byte, error) {
	key, err := cfg.SigningKey()
	if err != nil || key != nil {
		return key, err
	}
	if !cfg.IsDev() {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is required when ENV=%s", cfg.Env)
	}
	logger.Warn().Msg("SESSION_SIGNING_KEY not set; using a random key")
	return randomKey()
}

// auditKey returns the HMAC key for access log patient hashes:
// AUDIT_HASH_KEY if set, else the session signing key.
func auditKey(cfg *config.Config, signing []byte) ([]byte, error) {
	if cfg.AuditHashKey != "" {
		return []byte(cfg.AuditHashKey), nil
	}
	if signing != nil {
		return signing, nil
	}
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("AUDIT_HASH_KEY or SESSION_SIGNING_KEY is required")
	}
	return key, nil
}

func randomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// newServer builds the echo instance with middleware and all routes.
func newServer(cfg *config.Config, logger zerolog.Logger, d *deps) *echo.Echo {
	client := backend.New(backend.Config{
		BaseURL:  cfg.BackendBaseURL,
		UserName: cfg.BackendUserName,
		Password: cfg.BackendPassword,
		Timeout:  cfg.BackendTimeout,
		CacheTTL: cfg.CacheTTL,
		Observer: d.metrics,
	}, d.store, logger)
	sessions := auth.NewManager(d.signingKey, cfg.SessionTTL, d.store)

	authCfg := auth.Config{Manager: sessions, Skipper: auth.Skipper}
	if cfg.IsDev() && cfg.DevDUZ != "" {
		authCfg.DevSession = &auth.Session{
			ID:       "dev",
			DUZ:      cfg.DevDUZ,
			Name:     "DEVELOPER",
			Location: cfg.DefaultLocation,
			Keys:     cfg.DevKeys,
		}
		logger.Warn().Str("duz", cfg.DevDUZ).Msg("development session enabled for unauthenticated requests")
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(d.metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(auth.Middleware(authCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	var pinger db.Pinger
	if d.pool != nil {
		pinger = d.pool
	}
	e.GET("/health/db", db.HealthHandler(pinger))
	e.GET("/health/cache", cache.HealthHandler(d.cacheCheck))
	e.GET("/metrics", d.metrics.Handler())
	openapi.NewGenerator("EHR Gateway API", version, apiPrefix).RegisterRoutes(e)

	api := e.Group(apiPrefix)
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(middleware.Audit(logger, d.accessLog))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	patientSvc := patient.NewService(patient.NewBackendRepo(client))
	allergySvc := allergies.NewService(allergies.NewBackendRepo(client))
	problemSvc := problems.NewService(problems.NewBackendRepo(client))
	vitalSvc := vitals.NewService(vitals.NewBackendRepo(client))
	orderSvc := orders.NewService(orders.NewBackendRepo(client))

	account.NewHandler(account.NewService(account.NewBackendAuthenticator(client), sessions, cfg.DefaultLocation)).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	notes.NewHandler(notes.NewService(notes.NewNoteRepo(client), notes.NewDischargeSummaryRepo(client))).RegisterRoutes(api)
	problems.NewHandler(problemSvc).RegisterRoutes(api)
	allergies.NewHandler(allergySvc).RegisterRoutes(api)
	orders.NewHandler(orderSvc).RegisterRoutes(api)
	vitals.NewHandler(vitalSvc).RegisterRoutes(api)
	coversheet.NewHandler(coversheet.NewService(coversheet.Sources{
		Patients:    patientSvc,
		Allergies:   allergySvc,
		Problems:    problemSvc,
		Vitals:      vitalSvc,
		Medications: orderSvc,
	})).RegisterRoutes(api)
	hipaa.NewHandler(d.accessLog).RegisterRoutes(api, auth.RequireKey(hipaa.AuditKey))

	return e
}
