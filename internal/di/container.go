package di

import (
	"github.com/prohmpiriya/eventic-admission/internal/effects"
	"github.com/prohmpiriya/eventic-admission/internal/handler"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/internal/service"
	"github.com/prohmpiriya/eventic-admission/pkg/database"
	"github.com/prohmpiriya/eventic-admission/pkg/redis"
)

// Container holds all dependencies for the admission service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	TicketRepo     repository.TicketRepository
	EventRepo      repository.EventRepository
	CredentialRepo repository.CredentialRepository

	// Effects
	Engine effects.Engine

	// Services
	CredentialService service.CredentialService
	AdmissionService  service.AdmissionService
	ValidatorService  service.ValidatorService
	TicketService     service.TicketService
	LocationBroker    *service.LocationBroker

	// Handlers
	HealthHandler    *handler.HealthHandler
	AdmissionHandler *handler.AdmissionHandler
	TicketHandler    *handler.TicketHandler
	ValidatorHandler *handler.ValidatorHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	TicketRepo     repository.TicketRepository
	EventRepo      repository.EventRepository
	CredentialRepo repository.CredentialRepository
	Engine         effects.Engine
	LocationBroker *service.LocationBroker

	CredentialConfig *service.CredentialServiceConfig
	AdmissionConfig  *service.AdmissionServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		TicketRepo:     cfg.TicketRepo,
		EventRepo:      cfg.EventRepo,
		CredentialRepo: cfg.CredentialRepo,
		Engine:         cfg.Engine,
		LocationBroker: cfg.LocationBroker,
	}

	if c.Engine == nil {
		c.Engine = effects.NewEngine(nil)
	}
	if c.LocationBroker == nil {
		c.LocationBroker = service.NewLocationBroker(0)
	}

	// Initialize services
	c.CredentialService = service.NewCredentialService(c.CredentialRepo, c.TicketRepo, c.EventRepo, cfg.CredentialConfig)
	c.AdmissionService = service.NewAdmissionService(c.CredentialService, c.TicketRepo, c.EventRepo, c.Engine, cfg.AdmissionConfig)
	c.ValidatorService = service.NewValidatorService(c.EventRepo)
	c.TicketService = service.NewTicketService(c.TicketRepo, c.EventRepo)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.healthComponents())
	c.AdmissionHandler = handler.NewAdmissionHandler(c.AdmissionService, c.LocationBroker)
	c.TicketHandler = handler.NewTicketHandler(c.CredentialService, c.TicketService)
	c.ValidatorHandler = handler.NewValidatorHandler(c.ValidatorService)

	return c
}

func (c *Container) healthComponents() map[string]handler.HealthChecker {
	components := map[string]handler.HealthChecker{
		"database": nil,
		"redis":    nil,
	}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	return components
}
