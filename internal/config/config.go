package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisURL     string `mapstructure:"REDIS_URL"`
	RedisChannel string `mapstructure:"REDIS_CHANNEL"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	WSSendBuffer      int           `mapstructure:"WS_SEND_BUFFER"`
	WSWriteTimeout    time.Duration `mapstructure:"WS_WRITE_TIMEOUT"`
	WSCompactInterval time.Duration `mapstructure:"WS_COMPACT_INTERVAL"`

	GeofenceRadiusMeters   int     `mapstructure:"GEOFENCE_RADIUS_METERS"`
	LowStockThreshold      int     `mapstructure:"LOW_STOCK_THRESHOLD"`
	CriticalStockThreshold int     `mapstructure:"CRITICAL_STOCK_THRESHOLD"`
	AmbulanceSpeedKmh      float64 `mapstructure:"AMBULANCE_SPEED_KMH"`
}

var keys = []string{
	"PORT", "ENV", "STORE_DRIVER",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGO_URI", "MONGO_DATABASE",
	"REDIS_URL", "REDIS_CHANNEL",
	"JWT_SIGNING_KEY", "JWT_TTL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"WS_SEND_BUFFER", "WS_WRITE_TIMEOUT", "WS_COMPACT_INTERVAL",
	"GEOFENCE_RADIUS_METERS", "LOW_STOCK_THRESHOLD", "CRITICAL_STOCK_THRESHOLD", "AMBULANCE_SPEED_KMH",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGO_DATABASE", "rapidcare")
	v.SetDefault("REDIS_CHANNEL", "rapidcare:events")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")
	v.SetDefault("WS_COMPACT_INTERVAL", "0s")
	v.SetDefault("GEOFENCE_RADIUS_METERS", 100)
	v.SetDefault("LOW_STOCK_THRESHOLD", 5)
	v.SetDefault("CRITICAL_STOCK_THRESHOLD", 2)
	v.SetDefault("AMBULANCE_SPEED_KMH", 40)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 0 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field requirements. Outside development a JWT
// signing key is mandatory; DevAuth is only ever installed in development.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_DRIVER is %q", StoreMongo)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", StoreMemory, StorePostgres, StoreMongo, c.StoreDriver)
	}

	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.CriticalStockThreshold > c.LowStockThreshold {
		return fmt.Errorf("CRITICAL_STOCK_THRESHOLD (%d) must not exceed LOW_STOCK_THRESHOLD (%d)",
			c.CriticalStockThreshold, c.LowStockThreshold)
	}
	if c.GeofenceRadiusMeters <= 0 {
		return fmt.Errorf("GEOFENCE_RADIUS_METERS must be positive")
	}
	if c.AmbulanceSpeedKmh <= 0 {
		return fmt.Errorf("AMBULANCE_SPEED_KMH must be positive")
	}
	return nil
}
