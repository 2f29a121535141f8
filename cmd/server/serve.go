package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/HanTheDev/content-automation-api/internal/admin"
	"github.com/HanTheDev/content-automation-api/internal/analytics"
	"github.com/HanTheDev/content-automation-api/internal/auth"
	"github.com/HanTheDev/content-automation-api/internal/cache"
	"github.com/HanTheDev/content-automation-api/internal/config"
	"github.com/HanTheDev/content-automation-api/internal/db"
	"github.com/HanTheDev/content-automation-api/internal/gateway"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/handlers"
	"github.com/HanTheDev/content-automation-api/internal/integrations"
	"github.com/HanTheDev/content-automation-api/internal/ratelimit"
	"github.com/HanTheDev/content-automation-api/internal/store"
	"github.com/HanTheDev/content-automation-api/internal/store/memory"
)

const version = "1.0.0"

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	keys := admin.NewKeyService(st, cfg.APIKeyName, log)
	if cfg.BootstrapAPIKey != "" {
		if err := keys.Ensure(ctx, cfg.BootstrapAPIKey); err != nil {
			return fmt.Errorf("register bootstrap key: %w", err)
		}
	}

	limiter, responseCache, closeRedis, err := openRateLimitAndCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	secret := cfg.ReceiptSigningSecret
	if secret == "" {
		if secret, err = admin.GenerateAPIKey(); err != nil {
			return fmt.Errorf("generate receipt secret: %w", err)
		}
		log.Warn().Msg("RECEIPT_SIGNING_SECRET not set, receipts will not verify across restarts")
	}
	publisher := integrations.NewAckPublisher(auth.NewReceiptSigner(secret, cfg.ReceiptTTL), log)

	gen := newGenerator(cfg, responseCache, log)
	engine := analytics.NewEngine(st, cfg.APIKeyName)
	table := handlers.New(st, gen, engine, publisher, log).Table()

	gw := gateway.New(gateway.Config{
		APIName:        cfg.APIName,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		HandlerTimeout: cfg.HandlerTimeout,
	}, auth.NewAuthenticator(st, cfg.APIKeyName), limiter, table, st, log,
		gateway.WithReplayCache(responseCache, cfg.IdempotencyTTL))

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(st)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(gw)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns the configured backend. Postgres is migrated before use.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}

	database, err := db.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(log); err != nil {
		database.Close()
		return nil, nil, err
	}
	return database, database.Close, nil
}

// openRateLimitAndCache shares one Redis client between the limiter and the response cache.
// Without REDIS_URL both stay in process.
func openRateLimitAndCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ratelimit.Limiter, cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		limiter, err := ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init rate limiter: %w", err)
		}
		lru, err := cache.NewLRUCache(cfg.CacheSize)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init cache: %w", err)
		}
		log.Info().Msg("rate limiting and caching in process")
		return limiter, lru, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	return ratelimit.NewRedisLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow), cache.NewRedisCache(client), closeFn, nil
}

// newGenerator uses OpenAI when a key is configured, with the template provider as fallback.
func newGenerator(cfg *config.Config, c cache.Cache, log zerolog.Logger) *generator.Facade {
	opts := []generator.Option{
		generator.WithCache(c, cfg.GenerationCacheTTL),
		generator.WithTokenRate(cfg.TokenRate()),
	}
	template := generator.NewTemplateProvider()
	if cfg.OpenAIAPIKey == "" {
		log.Info().Msg("OPENAI_API_KEY not set, using template generation")
		return generator.New(template, log, opts...)
	}

	primary := generator.NewOpenAIProvider(generator.OpenAIConfig{
		APIKey:           cfg.OpenAIAPIKey,
		BaseURL:          cfg.OpenAIBaseURL,
		Model:            cfg.OpenAIModel,
		FailureThreshold: cfg.OpenAIFailureThreshold,
		OpenTimeout:      cfg.OpenAIOpenTimeout,
	}, log)
	return generator.New(primary, log, append(opts, generator.WithFallback(template))...)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if p, ok := st.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"version": version,
		})
	}
}
