package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/effects"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/config"
	"github.com/prohmpiriya/eventic-admission/pkg/database"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	pkgredis "github.com/prohmpiriya/eventic-admission/pkg/redis"
)

// PostgresConfig maps application config onto the pool settings
func PostgresConfig(cfg *config.Config) *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  10 * time.Second,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
}

// RedisConfig maps application config onto the client settings
func RedisConfig(cfg *config.Config) *pkgredis.Config {
	return &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		EnableTracing: cfg.OTel.Enabled,
	}
}

// NewEngine builds the effect engine from the rule file, seed and golden odds
func NewEngine(cfg *config.AdmissionConfig) (effects.Engine, error) {
	table, err := effects.LoadTable(cfg.EffectRulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load effect rules: %w", err)
	}
	return effects.NewEngine(&effects.EngineConfig{
		Table:             table,
		Rand:              effects.NewRand(cfg.RNGSeed),
		GoldenProbability: cfg.GoldenTicketProbability,
	}), nil
}

// Stores are the repositories selected by ADMISSION_STORE
type Stores struct {
	TicketRepo     repository.TicketRepository
	EventRepo      repository.EventRepository
	CredentialRepo repository.CredentialRepository
	OutboxRepo     repository.OutboxRepository

	// Seeding targets; the memory store is empty until seeded
	EventCreator  repository.EventCreator
	TicketCreator repository.TicketCreator
}

// NewMemoryStores builds the in-process store used for local runs and demos
func NewMemoryStores(outboxTopic string) *Stores {
	outbox := repository.NewMemoryOutboxRepository()
	tickets := repository.NewMemoryTicketRepository(outbox, outboxTopic)
	events := repository.NewMemoryEventRepository()

	return &Stores{
		TicketRepo:     tickets,
		EventRepo:      events,
		CredentialRepo: repository.NewMemoryCredentialRepository(),
		OutboxRepo:     outbox,
		EventCreator:   events,
		TicketCreator:  tickets,
	}
}

// NewPostgresStores builds the production store: PostgreSQL for tickets,
// events and the outbox, Redis for credentials and the event cache.
func NewPostgresStores(ctx context.Context, db *database.PostgresDB, redis *pkgredis.Client, cfg *config.Config) (*Stores, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres store requires a database connection")
	}
	if redis == nil {
		return nil, fmt.Errorf("postgres store requires redis for credentials")
	}

	credentials := repository.NewRedisCredentialRepository(redis)
	if err := credentials.LoadScripts(ctx); err != nil {
		logger.Get().Warn("failed to preload credential scripts", zap.Error(err))
	}

	tickets := repository.NewPostgresTicketRepository(db.Pool(), cfg.Outbox.Topic)
	events := repository.NewPostgresEventRepository(db.Pool())

	return &Stores{
		TicketRepo:     tickets,
		EventRepo:      repository.NewCachedEventRepository(events, redis, cfg.Admission.EventCacheTTL),
		CredentialRepo: credentials,
		OutboxRepo:     repository.NewPostgresOutboxRepository(db.Pool()),
		EventCreator:   events,
		TicketCreator:  tickets,
	}, nil
}

// CredentialConfig maps admission config onto the credential service options
func CredentialConfig(cfg *config.AdmissionConfig) *service.CredentialServiceConfig {
	return &service.CredentialServiceConfig{
		TTL:       cfg.CredentialTTL,
		Retention: cfg.CredentialRetention,
	}
}

// AdmissionConfig maps admission config onto the admission service options
func AdmissionConfig(cfg *config.AdmissionConfig) *service.AdmissionServiceConfig {
	return &service.AdmissionServiceConfig{
		DefaultRadius: cfg.GeofenceDefaultRadius,
	}
}
