// Command server starts the Radiowave admin API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"radiowave/internal/analytics"
	"radiowave/internal/api"
	"radiowave/internal/auth"
	"radiowave/internal/icecast"
	"radiowave/internal/observability/logging"
	"radiowave/internal/observability/metrics"
	"radiowave/internal/server"
	"radiowave/internal/storage"
	"radiowave/internal/telemetry"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresQueryTimeout := flag.Duration("postgres-query-timeout", 0, "timeout applied to each Postgres query")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	streamHost := flag.String("stream-host", "", "hostname used when deriving stream URLs")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	sessionTTL := flag.Duration("session-ttl", 0, "idle lifetime for operator sessions")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired session sweeps")
	collectorInterval := flag.Duration("collector-interval", 0, "interval between analytics collection passes")
	liveCacheDriver := flag.String("live-cache-driver", "", "live telemetry cache driver (memory or redis)")
	liveCacheAddr := flag.String("live-cache-redis-addr", "", "Redis address for the live telemetry cache")
	liveCacheUsername := flag.String("live-cache-redis-username", "", "Redis username for the live telemetry cache")
	liveCachePassword := flag.String("live-cache-redis-password", "", "Redis password for the live telemetry cache")
	liveCachePrefix := flag.String("live-cache-key-prefix", "", "key prefix for live telemetry cache entries")
	liveCacheTTL := flag.Duration("live-cache-ttl", 0, "expiry applied to live telemetry cache entries")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisUsername := flag.String("rate-redis-username", "", "Redis username for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated origins allowed to call the API from a browser")
	bootstrapEmail := flag.String("bootstrap-email", "", "email for the operator seeded into an empty datastore")
	bootstrapName := flag.String("bootstrap-name", "", "display name for the seeded operator")
	bootstrapPassword := flag.String("bootstrap-password", "", "password for the seeded operator")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("RADIOWAVE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("RADIOWAVE_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("RADIOWAVE_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("RADIOWAVE_ADDR"))

	tlsCertPath := firstNonEmpty(*tlsCert, os.Getenv("RADIOWAVE_TLS_CERT"))
	tlsKeyPath := firstNonEmpty(*tlsKey, os.Getenv("RADIOWAVE_TLS_KEY"))

	icecastConfig, err := icecast.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load icecast configuration", "error", err)
		os.Exit(1)
	}
	var controller icecast.Controller = icecast.NoopController{}
	if icecastConfig.Enabled() {
		httpController, err := icecastConfig.NewHTTPController()
		if err != nil {
			logger.Error("failed to initialise icecast controller", "error", err)
			os.Exit(1)
		}
		controller = httpController
	}

	options := []storage.Option{storage.WithBackendController(controller)}
	if host := firstNonEmpty(*streamHost, os.Getenv("RADIOWAVE_STREAM_HOST")); host != "" {
		options = append(options, storage.WithStreamHost(host))
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, _, err := resolveStorageDriver(*storageDriver, os.Getenv("RADIOWAVE_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN, os.Getenv("RADIOWAVE_POSTGRES_DSN")); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var (
		store       storage.Repository
		storagePath string
	)
	switch driver {
	case "json":
		storagePath = resolveDataPath(*dataPath, os.Getenv("RADIOWAVE_DATA"))
		store, err = storage.NewJSONRepository(storagePath, options...)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		pgOptions := append([]storage.Option(nil), options...)
		maxConns := resolveInt(*postgresMaxConns, "RADIOWAVE_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "RADIOWAVE_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "RADIOWAVE_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "RADIOWAVE_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "RADIOWAVE_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		if acquireTimeout := resolveDuration(*postgresAcquireTimeout, "RADIOWAVE_POSTGRES_ACQUIRE_TIMEOUT", 0); acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		if queryTimeout := resolveDuration(*postgresQueryTimeout, "RADIOWAVE_POSTGRES_QUERY_TIMEOUT", 0); queryTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresQueryTimeout(queryTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("RADIOWAVE_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		openCtx, cancelOpen := context.WithTimeout(context.Background(), 15*time.Second)
		store, err = storage.NewPostgresRepository(openCtx, postgresDefaultDSN, pgOptions...)
		cancelOpen()
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	ttl := resolveDuration(*sessionTTL, "RADIOWAVE_SESSION_TTL", 24*time.Hour)
	sessions := auth.NewSessionManager(ttl, auth.WithStore(auth.NewMemorySessionStore()))

	if err := bootstrapOperator(store, logger,
		firstNonEmpty(*bootstrapEmail, os.Getenv("RADIOWAVE_BOOTSTRAP_EMAIL")),
		firstNonEmpty(*bootstrapName, os.Getenv("RADIOWAVE_BOOTSTRAP_NAME")),
		firstNonEmpty(*bootstrapPassword, os.Getenv("RADIOWAVE_BOOTSTRAP_PASSWORD")),
	); err != nil {
		logger.Error("failed to bootstrap operator", "error", err)
		os.Exit(1)
	}

	seedRunningStreamsGauge(recorder, store)

	liveCacheConfig := telemetry.RedisCacheConfig{
		Addr:      firstNonEmpty(*liveCacheAddr, os.Getenv("RADIOWAVE_LIVE_CACHE_REDIS_ADDR")),
		Username:  firstNonEmpty(*liveCacheUsername, os.Getenv("RADIOWAVE_LIVE_CACHE_REDIS_USERNAME")),
		Password:  firstNonEmpty(*liveCachePassword, os.Getenv("RADIOWAVE_LIVE_CACHE_REDIS_PASSWORD")),
		KeyPrefix: firstNonEmpty(*liveCachePrefix, os.Getenv("RADIOWAVE_LIVE_CACHE_KEY_PREFIX")),
		TTL:       resolveDuration(*liveCacheTTL, "RADIOWAVE_LIVE_CACHE_TTL", 0),
	}
	liveDriver, liveCache, err := configureLiveCache(
		firstNonEmpty(*liveCacheDriver, os.Getenv("RADIOWAVE_LIVE_CACHE_DRIVER")),
		liveCacheConfig,
	)
	if err != nil {
		logger.Error("failed to configure live telemetry cache", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(store, sessions)
	handler.Live = liveCache

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	purgeInterval := resolveDuration(*sessionPurgeInterval, "RADIOWAVE_SESSION_PURGE_INTERVAL", 15*time.Minute)
	sessionPurgeStop := startSessionPurgeWorker(workerCtx, logging.WithComponent(logger, "session-purger"), sessions, purgeInterval)
	defer sessionPurgeStop()

	collectorStop := func() {}
	collectorEnabled := icecastConfig.Enabled()
	if collectorEnabled {
		collector := analytics.NewCollector(store, controller, logging.WithComponent(logger, "collector"),
			analytics.WithInterval(resolveDuration(*collectorInterval, "RADIOWAVE_COLLECTOR_INTERVAL", analytics.DefaultInterval)),
			analytics.WithLiveCache(liveCache),
			analytics.WithObserver(recorder),
		)
		collectorStop = collector.Start(workerCtx)
	} else {
		logger.Info("analytics collector disabled, no icecast backend configured")
	}
	defer collectorStop()

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "RADIOWAVE_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "RADIOWAVE_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "RADIOWAVE_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "RADIOWAVE_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("RADIOWAVE_RATE_REDIS_ADDR")),
		RedisUsername: firstNonEmpty(*redisUsername, os.Getenv("RADIOWAVE_RATE_REDIS_USERNAME")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("RADIOWAVE_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "RADIOWAVE_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: tlsCertPath,
			KeyFile:  tlsKeyPath,
		},
		RateLimit: rateCfg,
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("RADIOWAVE_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	summary := newStartupSummary(startupSummaryInput{
		StorageDriver:    driver,
		StoragePath:      storagePath,
		StorageDSN:       postgresDefaultDSN,
		RateLimit:        rateCfg,
		LiveCacheDriver:  liveDriver,
		LiveCacheAddr:    liveCacheConfig.Addr,
		BackendBaseURL:   icecastConfig.BaseURL,
		BackendEnabled:   icecastConfig.Enabled(),
		CollectorEnabled: collectorEnabled,
	})
	logger.Info("startup configuration", summary.LogArgs()...)

	errs := make(chan error, 1)
	go func() {
		logger.Info("Radiowave API listening", "addr", listenAddr, "mode", serverMode)
		if tlsCertPath != "" && tlsKeyPath != "" {
			logger.Info("TLS enabled", "cert_file", tlsCertPath)
		}
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	workerCancel()
	sessionPurgeStop()
	collectorStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if liveCache != nil {
		if err := liveCache.Close(); err != nil {
			logger.Warn("failed to close live telemetry cache", "error", err)
		}
	}

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	logger.Info("server stopped")
}
