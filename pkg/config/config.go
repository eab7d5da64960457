package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OTel      OTelConfig      `mapstructure:"otel"`
	Admission AdmissionConfig `mapstructure:"admission"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

// JWTConfig holds settings for verifying bearer tokens issued by the auth service
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// AdmissionConfig holds the tunables of the admission engine
type AdmissionConfig struct {
	// Store selects the persistence backend: postgres or memory
	Store string `mapstructure:"store"`
	// CredentialTTL is how long an issued code stays valid
	CredentialTTL time.Duration `mapstructure:"credential_ttl"`
	// CredentialRetention keeps expired codes resolvable so they report as expired, not unknown
	CredentialRetention time.Duration `mapstructure:"credential_retention"`
	// GeofenceDefaultRadius applies when an event enables geofencing without a radius
	GeofenceDefaultRadius   float64       `mapstructure:"geofence_default_radius_meters"`
	GoldenTicketProbability float64       `mapstructure:"golden_ticket_probability"`
	LocationTimeout         time.Duration `mapstructure:"location_timeout"`
	EffectRulesFile         string        `mapstructure:"effect_rules_file"`
	// RNGSeed makes effect draws reproducible when non-zero
	RNGSeed       int64         `mapstructure:"rng_seed"`
	EventCacheTTL time.Duration `mapstructure:"event_cache_ttl"`
	IdempotentTTL time.Duration `mapstructure:"idempotency_ttl"`
	// SeedFile is loaded into the store at startup; meant for the memory store
	SeedFile string `mapstructure:"seed_file"`
}

// OutboxConfig holds settings for the outbox relay
type OutboxConfig struct {
	Topic                string        `mapstructure:"topic"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	RetryInterval        time.Duration `mapstructure:"retry_interval"`
	BatchSize            int           `mapstructure:"batch_size"`
	CleanupInterval      time.Duration `mapstructure:"cleanup_interval"`
	CleanupRetentionDays int           `mapstructure:"cleanup_retention_days"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional; environment variables still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific path
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

// LoadFromViper binds an existing viper instance, e.g. one carrying CLI flags
func LoadFromViper(v *viper.Viper) (*Config, error) {
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	if err := bindConfig(v, cfg); err != nil {
		return nil, fmt.Errorf("failed to bind config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "eventic-admission")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("APP_LOG_LEVEL", "info")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8085)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	// Long enough to hold a request open while the validator's device answers a location prompt
	v.SetDefault("SERVER_WRITE_TIMEOUT", "45s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")

	// Database defaults
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "eventic")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 25)
	v.SetDefault("DATABASE_MIN_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "30m")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "eventic-admission")

	// JWT defaults
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "eventic")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "eventic-admission")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Admission defaults
	v.SetDefault("ADMISSION_STORE", "postgres")
	v.SetDefault("ADMISSION_CREDENTIAL_TTL", "3m")
	v.SetDefault("ADMISSION_CREDENTIAL_RETENTION", "15m")
	v.SetDefault("ADMISSION_GEOFENCE_DEFAULT_RADIUS_METERS", 300)
	v.SetDefault("ADMISSION_GOLDEN_TICKET_PROBABILITY", 0.01)
	v.SetDefault("ADMISSION_LOCATION_TIMEOUT", "30s")
	v.SetDefault("ADMISSION_EFFECT_RULES_FILE", "")
	v.SetDefault("ADMISSION_RNG_SEED", 0)
	v.SetDefault("ADMISSION_EVENT_CACHE_TTL", "1m")
	v.SetDefault("ADMISSION_IDEMPOTENCY_TTL", "5m")
	v.SetDefault("ADMISSION_SEED_FILE", "")

	// Outbox defaults
	v.SetDefault("OUTBOX_TOPIC", "ticket-admissions")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "200ms")
	v.SetDefault("OUTBOX_RETRY_INTERVAL", "5s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("OUTBOX_CLEANUP_INTERVAL", "1h")
	v.SetDefault("OUTBOX_CLEANUP_RETENTION_DAYS", 7)
}

func bindConfig(v *viper.Viper, cfg *Config) error {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")
	cfg.App.LogLevel = v.GetString("APP_LOG_LEVEL")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.AllowedOrigins = splitList(v.GetString("SERVER_ALLOWED_ORIGINS"))

	// Database
	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxConns = v.GetInt("DATABASE_MAX_CONNS")
	cfg.Database.MinConns = v.GetInt("DATABASE_MIN_CONNS")
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")
	cfg.Database.ConnMaxIdleTime = v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME")

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Admission
	cfg.Admission.Store = strings.ToLower(v.GetString("ADMISSION_STORE"))
	cfg.Admission.CredentialTTL = v.GetDuration("ADMISSION_CREDENTIAL_TTL")
	cfg.Admission.CredentialRetention = v.GetDuration("ADMISSION_CREDENTIAL_RETENTION")
	cfg.Admission.GeofenceDefaultRadius = v.GetFloat64("ADMISSION_GEOFENCE_DEFAULT_RADIUS_METERS")
	cfg.Admission.GoldenTicketProbability = v.GetFloat64("ADMISSION_GOLDEN_TICKET_PROBABILITY")
	cfg.Admission.LocationTimeout = v.GetDuration("ADMISSION_LOCATION_TIMEOUT")
	cfg.Admission.EffectRulesFile = v.GetString("ADMISSION_EFFECT_RULES_FILE")
	cfg.Admission.RNGSeed = v.GetInt64("ADMISSION_RNG_SEED")
	cfg.Admission.EventCacheTTL = v.GetDuration("ADMISSION_EVENT_CACHE_TTL")
	cfg.Admission.IdempotentTTL = v.GetDuration("ADMISSION_IDEMPOTENCY_TTL")
	cfg.Admission.SeedFile = v.GetString("ADMISSION_SEED_FILE")

	// Outbox
	cfg.Outbox.Topic = v.GetString("OUTBOX_TOPIC")
	cfg.Outbox.PollInterval = v.GetDuration("OUTBOX_POLL_INTERVAL")
	cfg.Outbox.RetryInterval = v.GetDuration("OUTBOX_RETRY_INTERVAL")
	cfg.Outbox.BatchSize = v.GetInt("OUTBOX_BATCH_SIZE")
	cfg.Outbox.CleanupInterval = v.GetDuration("OUTBOX_CLEANUP_INTERVAL")
	cfg.Outbox.CleanupRetentionDays = v.GetInt("OUTBOX_CLEANUP_RETENTION_DAYS")

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	switch c.Admission.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid admission store: %q", c.Admission.Store)
	}

	if c.IsProduction() && c.Admission.Store == "memory" {
		return fmt.Errorf("memory store is not allowed in production")
	}

	if c.Admission.CredentialTTL <= 0 {
		return fmt.Errorf("credential TTL must be positive")
	}

	if c.Admission.CredentialRetention < c.Admission.CredentialTTL {
		return fmt.Errorf("credential retention (%s) must be at least the credential TTL (%s)",
			c.Admission.CredentialRetention, c.Admission.CredentialTTL)
	}

	if c.Admission.GeofenceDefaultRadius <= 0 {
		return fmt.Errorf("geofence default radius must be positive")
	}

	if c.Admission.GoldenTicketProbability < 0 || c.Admission.GoldenTicketProbability > 1 {
		return fmt.Errorf("golden ticket probability must be within [0,1], got %v", c.Admission.GoldenTicketProbability)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
