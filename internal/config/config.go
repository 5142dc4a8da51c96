// Package config loads service configuration from an optional YAML file and
// SIMBOK_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/simbok/delivery/internal/database"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. SIMBOK_SERVER_PORT.
const EnvPrefix = "SIMBOK"

// Routing provider names.
const (
	ProviderHaversine   = "haversine"
	ProviderOSRM        = "osrm"
	ProviderGraphHopper = "graphhopper"
	ProviderGoogleMaps  = "googlemaps"
)

// Pricing sources.
const (
	PricingSourceConfig   = "config"
	PricingSourcePostgres = "postgres"
)

// OTP stores.
const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
)

// Config holds all configuration for the delivery service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	OTP       OTPConfig       `mapstructure:"otp"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP on quote, geocode and OTP routes.
	RateLimit int `mapstructure:"rate_limit"`
	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `mapstructure:"require_tls"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// Pretty switches to human-readable console output.
	Pretty bool `mapstructure:"pretty"`
}

// TelemetryConfig holds OpenTelemetry configuration.
type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Endpoint       string        `mapstructure:"endpoint"`
	Insecure       bool          `mapstructure:"insecure"`
	SampleRatio    float64       `mapstructure:"sample_ratio"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RoutingConfig selects and configures the route resolver.
type RoutingConfig struct {
	Provider        string            `mapstructure:"provider"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	CacheTTL        time.Duration     `mapstructure:"cache_ttl"`
	CacheGridSize   float64           `mapstructure:"cache_grid_size"`
	StaleIfErrorTTL time.Duration     `mapstructure:"stale_if_error_ttl"`
	OSRM            OSRMConfig        `mapstructure:"osrm"`
	GraphHopper     GraphHopperConfig `mapstructure:"graphhopper"`
	GoogleMaps      GoogleMapsConfig  `mapstructure:"googlemaps"`
	Haversine       HaversineConfig   `mapstructure:"haversine"`
}

// OSRMConfig configures the OSRM backend.
type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
}

// GraphHopperConfig configures the GraphHopper backend and geocoder.
type GraphHopperConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Locale  string `mapstructure:"locale"`
}

// GoogleMapsConfig configures the Google Maps Distance Matrix backend.
type GoogleMapsConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Language string `mapstructure:"language"`
}

// HaversineConfig configures the straight-line fallback.
type HaversineConfig struct {
	MinutesPerKm float64 `mapstructure:"minutes_per_km"`
	FixedMinutes float64 `mapstructure:"fixed_minutes"`
}

// PricingConfig holds the tariff. Decimal quantities are strings so they stay exact.
type PricingConfig struct {
	Source             string       `mapstructure:"source"`
	Profile            string       `mapstructure:"profile"`
	BasePrice          string       `mapstructure:"base_price"`
	PricePerKm         string       `mapstructure:"price_per_km"`
	PriceTiers         []TierConfig `mapstructure:"price_tiers"`
	MinDistanceKm      string       `mapstructure:"min_distance_km"`
	MaxDistanceKm      string       `mapstructure:"max_distance_km"`
	MinCharge          string       `mapstructure:"min_charge"`
	PlatformFeePercent string       `mapstructure:"platform_fee_percent"`
	SurgeHours         []int        `mapstructure:"surge_hours"`
	SurgeMultiplier    string       `mapstructure:"surge_multiplier"`
	RainMultiplier     string       `mapstructure:"rain_multiplier"`
	PeakDayMultiplier  string       `mapstructure:"peak_day_multiplier"`
	CarMultiplier      string       `mapstructure:"car_multiplier"`
	Timezone           string       `mapstructure:"timezone"`
}

// TierConfig is one price tier.
type TierConfig struct {
	MinKm     string `mapstructure:"min_km"`
	MaxKm     string `mapstructure:"max_km"`
	RatePerKm string `mapstructure:"rate_per_km"`
}

// OTPConfig holds one-time code configuration.
type OTPConfig struct {
	Store      string        `mapstructure:"store"`
	TTL        time.Duration `mapstructure:"ttl"`
	CodeLength int           `mapstructure:"code_length"`
	// ExposeCode returns issued codes in API responses. Development only.
	ExposeCode bool `mapstructure:"expose_code"`
}

// Load reads configuration. An empty path skips the file and uses defaults and
// environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets a default for every key so each one can be overridden from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.require_tls", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.metric_interval", telemetry.DefaultMetricInterval)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "simbok")
	v.SetDefault("database.password", "localdev")
	v.SetDefault("database.name", "simbok")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("routing.provider", ProviderOSRM)
	v.SetDefault("routing.timeout", 15*time.Second)
	v.SetDefault("routing.cache_ttl", 5*time.Minute)
	v.SetDefault("routing.cache_grid_size", 0.001)
	v.SetDefault("routing.stale_if_error_ttl", 15*time.Minute)
	v.SetDefault("routing.osrm.base_url", "http://router.project-osrm.org")
	v.SetDefault("routing.osrm.profile", "driving")
	v.SetDefault("routing.graphhopper.base_url", "https://graphhopper.com")
	v.SetDefault("routing.graphhopper.api_key", "")
	v.SetDefault("routing.graphhopper.locale", "id")
	v.SetDefault("routing.googlemaps.api_key", "")
	v.SetDefault("routing.googlemaps.language", "id")
	v.SetDefault("routing.haversine.minutes_per_km", 3.0)
	v.SetDefault("routing.haversine.fixed_minutes", 5.0)

	tariff := pricing.DefaultConfig()
	tiers := make([]map[string]any, 0, len(tariff.PriceTiers))
	for _, t := range tariff.PriceTiers {
		tiers = append(tiers, map[string]any{
			"min_km":      t.MinKm.String(),
			"max_km":      t.MaxKm.String(),
			"rate_per_km": t.RatePerKm.String(),
		})
	}
	v.SetDefault("pricing.source", PricingSourceConfig)
	v.SetDefault("pricing.profile", "default")
	v.SetDefault("pricing.base_price", tariff.BasePrice.String())
	v.SetDefault("pricing.price_per_km", tariff.PricePerKm.String())
	v.SetDefault("pricing.price_tiers", tiers)
	v.SetDefault("pricing.min_distance_km", tariff.MinDistanceKm.String())
	v.SetDefault("pricing.max_distance_km", tariff.MaxDistanceKm.String())
	v.SetDefault("pricing.min_charge", tariff.MinCharge.String())
	v.SetDefault("pricing.platform_fee_percent", tariff.PlatformFeePercent.String())
	v.SetDefault("pricing.surge_hours", tariff.SurgeHours)
	v.SetDefault("pricing.surge_multiplier", tariff.SurgeMultiplier.String())
	v.SetDefault("pricing.rain_multiplier", tariff.RainMultiplier.String())
	v.SetDefault("pricing.peak_day_multiplier", tariff.PeakDayMultiplier.String())
	v.SetDefault("pricing.car_multiplier", tariff.CarMultiplier.String())
	v.SetDefault("pricing.timezone", tariff.Timezone)

	v.SetDefault("otp.store", OTPStoreMemory)
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.code_length", 6)
	v.SetDefault("otp.expose_code", false)
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Routing.Timeout <= 0 {
		errs = append(errs, errors.New("routing.timeout must be positive"))
	} else if c.Server.WriteTimeout > 0 && c.Routing.Timeout >= c.Server.WriteTimeout {
		errs = append(errs, fmt.Errorf("routing.timeout %s must be shorter than server.write_timeout %s",
			c.Routing.Timeout, c.Server.WriteTimeout))
	}

	switch c.Routing.Provider {
	case ProviderHaversine, ProviderOSRM:
	case ProviderGraphHopper:
		if c.Routing.GraphHopper.APIKey == "" {
			errs = append(errs, errors.New("routing.graphhopper.api_key is required for the graphhopper provider"))
		}
	case ProviderGoogleMaps:
		if c.Routing.GoogleMaps.APIKey == "" {
			errs = append(errs, errors.New("routing.googlemaps.api_key is required for the googlemaps provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("routing.provider %q is not one of haversine, osrm, graphhopper, googlemaps", c.Routing.Provider))
	}

	switch c.Pricing.Source {
	case PricingSourceConfig:
		if _, err := c.Pricing.Tariff(); err != nil {
			errs = append(errs, err)
		}
	case PricingSourcePostgres:
		if !c.Database.Enabled {
			errs = append(errs, errors.New("pricing.source postgres requires database.enabled"))
		}
		if c.Pricing.Profile == "" {
			errs = append(errs, errors.New("pricing.profile is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("pricing.source %q is not one of config, postgres", c.Pricing.Source))
	}

	switch c.OTP.Store {
	case OTPStoreMemory, OTPStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("otp.store %q is not one of memory, redis", c.OTP.Store))
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured zerolog level, or info when unparseable.
func (c LogConfig) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.OTP.Store == OTPStoreRedis
}

// DatabaseConfig converts to the database package configuration.
func (c DatabaseConfig) DatabaseConfig() database.Config {
	return database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// Tariff parses the pricing section into a validated pricing.Config.
func (p PricingConfig) Tariff() (pricing.Config, error) {
	var (
		cfg  pricing.Config
		errs []error
	)

	parse := func(field, value string) decimal.Decimal {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("pricing.%s: %q is not a number", field, value))
		}
		return d
	}

	cfg.BasePrice = parse("base_price", p.BasePrice)
	cfg.PricePerKm = parse("price_per_km", p.PricePerKm)
	cfg.MinDistanceKm = parse("min_distance_km", p.MinDistanceKm)
	cfg.MaxDistanceKm = parse("max_distance_km", p.MaxDistanceKm)
	cfg.MinCharge = parse("min_charge", p.MinCharge)
	cfg.PlatformFeePercent = parse("platform_fee_percent", p.PlatformFeePercent)
	cfg.SurgeMultiplier = parse("surge_multiplier", p.SurgeMultiplier)
	cfg.RainMultiplier = parse("rain_multiplier", p.RainMultiplier)
	cfg.PeakDayMultiplier = parse("peak_day_multiplier", p.PeakDayMultiplier)
	cfg.CarMultiplier = parse("car_multiplier", p.CarMultiplier)
	cfg.SurgeHours = append([]int(nil), p.SurgeHours...)
	cfg.Timezone = p.Timezone

	for i, t := range p.PriceTiers {
		cfg.PriceTiers = append(cfg.PriceTiers, pricing.Tier{
			MinKm:     parse(fmt.Sprintf("price_tiers[%d].min_km", i), t.MinKm),
			MaxKm:     parse(fmt.Sprintf("price_tiers[%d].max_km", i), t.MaxKm),
			RatePerKm: parse(fmt.Sprintf("price_tiers[%d].rate_per_km", i), t.RatePerKm),
		})
	}

	if len(errs) > 0 {
		return pricing.Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return pricing.Config{}, fmt.Errorf("pricing: %w", err)
	}
	return cfg, nil
}
