// Package main provides the entrypoint for the SIMBOK delivery quote API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/simbok/delivery/internal/api"
	"github.com/simbok/delivery/internal/api/handler"
	"github.com/simbok/delivery/internal/api/middleware"
	"github.com/simbok/delivery/internal/config"
	"github.com/simbok/delivery/internal/database"
	"github.com/simbok/delivery/internal/delivery"
	"github.com/simbok/delivery/internal/geocoding"
	"github.com/simbok/delivery/internal/otp"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/provider/resilience"
	"github.com/simbok/delivery/internal/routing/backend"
	"github.com/simbok/delivery/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "simbok-delivery-api"

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Server.Environment).
		Msg("starting SIMBOK delivery API")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.Level(cfg.LogLevel()).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	var checks []handler.DependencyCheck

	// Postgres is optional; it only holds pricing profiles.
	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		dbConfig := cfg.Database.DatabaseConfig()
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info().Msg("database schema applied")
		}
		checks = append(checks, handler.DependencyCheck{Name: "postgres", Ping: pool.Ping})
	}

	calculator, err := newCalculator(ctx, cfg, pool)
	if err != nil {
		return err
	}
	log.Info().
		Str("source", cfg.Pricing.Source).
		Str("profile", cfg.Pricing.Profile).
		Int("tiers", len(calculator.Tiers())).
		Msg("pricing loaded")

	// Route resolver
	registry := resilience.NewRegistry()
	routes, err := backend.New(cfg.Routing, registry, log)
	if err != nil {
		return fmt.Errorf("configure routing: %w", err)
	}
	resolver, err := routes.NewService(cfg.Routing, log.With().Str("component", "routing").Logger())
	if err != nil {
		return fmt.Errorf("create routing service: %w", err)
	}
	log.Info().Str("provider", resolver.ProviderName()).Msg("route resolver initialized")

	quotes, err := delivery.NewService(delivery.ServiceConfig{
		Calculator: calculator,
		Resolver:   resolver,
		Logger:     log.With().Str("component", "delivery").Logger(),
	})
	if err != nil {
		return err
	}

	var geocoder handler.GeocodeService
	if routes.Geocoder != nil {
		geocoder = geocoding.NewService(geocoding.ServiceConfig{
			Geocoder: routes.Geocoder,
			Logger:   log.With().Str("component", "geocoding").Logger(),
		})
		log.Info().Msg("geocoding enabled")
	}

	// OTP
	store, err := newOTPStore(ctx, cfg, &checks)
	if err != nil {
		return err
	}
	codes, err := otp.NewService(otp.ServiceConfig{
		Store:      store,
		TTL:        cfg.OTP.TTL,
		CodeLength: cfg.OTP.CodeLength,
		ExposeCode: cfg.OTP.ExposeCode,
		Logger:     log.With().Str("component", "otp").Logger(),
	})
	if err != nil {
		return err
	}
	if cfg.OTP.ExposeCode {
		log.Warn().Msg("otp codes are returned in API responses - not for production")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        metrics,
		QuoteService:   quotes,
		Tariff:         calculator.Config(),
		PricingProfile: cfg.Pricing.Profile,
		GeocodeService: geocoder,
		OTPService:     codes,
		Resolver:       resolver.ProviderName(),
		Registry:       registry,
		Checks:         checks,
		RateLimit:      cfg.Server.RateLimit,
		RequireTLS:     cfg.Server.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newCalculator builds the calculator from configuration or from a stored profile.
func newCalculator(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*pricing.Calculator, error) {
	if cfg.Pricing.Source == config.PricingSourcePostgres {
		calc, err := pricing.LoadCalculator(ctx, pricing.NewPostgresRepository(pool), cfg.Pricing.Profile)
		if err != nil {
			return nil, fmt.Errorf("load pricing profile %q: %w", cfg.Pricing.Profile, err)
		}
		return calc, nil
	}

	tariff, err := cfg.Pricing.Tariff()
	if err != nil {
		return nil, err
	}
	return pricing.NewCalculator(tariff)
}

// newOTPStore connects the configured code store. The memory store is swept
// until ctx is cancelled.
func newOTPStore(ctx context.Context, cfg *config.Config, checks *[]handler.DependencyCheck) (otp.Store, error) {
	if !cfg.UsesRedis() {
		store := otp.NewMemoryStore(nil)
		store.StartCleanup(ctx, time.Minute)
		return store, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	context.AfterFunc(ctx, func() { _ = client.Close() })

	*checks = append(*checks, handler.DependencyCheck{
		Name: "redis",
		Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	return otp.NewRedisStore(client, ""), nil
}
