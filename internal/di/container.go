package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/config"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/repositories"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// Repositories bundles the persistence contracts the services depend on.
// Production wiring supplies Firestore-backed implementations, tests can
// supply in-memory stubs.
type Repositories struct {
	Products repositories.ProductRepository
	Orders   repositories.OrderRepository
	Users    repositories.UserRepository
	Counters repositories.CounterRepository
	Health   repositories.HealthRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders   services.OrderService
	Catalog  services.CatalogService
	Accounts services.AccountService
}

// ContainerDeps carries everything NewContainer needs to assemble the
// service layer.
type ContainerDeps struct {
	Config config.Config
	Repos  Repositories
	Events services.OrderEventPublisher
	Mailer services.AccountMailer
	Logger *zap.Logger
}

// Container wires repositories, policy, and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Repositories
	Services     Services
	Policy       services.AccessPolicy
	Statuses     *services.StatusMachine
	Tokens       *auth.TokenManager
}

// NewContainer constructs the runtime dependencies from configuration and
// the supplied repositories.
func NewContainer(deps ContainerDeps) (*Container, error) {
	if deps.Repos.Products == nil || deps.Repos.Orders == nil || deps.Repos.Users == nil || deps.Repos.Counters == nil {
		return nil, errors.New("di: product, order, user, and counter repositories are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := auth.NewTokenManager(deps.Config.Auth.JWTSecret, deps.Config.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("di: build token manager: %w", err)
	}

	policy := services.NewAccessPolicy(deps.Config.Policy)
	statuses, err := services.NewStatusMachine(deps.Config.Orders)
	if err != nil {
		return nil, fmt.Errorf("di: build status machine: %w", err)
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: deps.Repos.Products,
		Clock:    time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("di: build catalog service: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   deps.Repos.Orders,
		Users:    deps.Repos.Users,
		Counters: deps.Repos.Counters,
		Catalog:  catalogSvc,
		Policy:   policy,
		Statuses: statuses,
		Events:   deps.Events,
		Config:   deps.Config.Orders,
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: build order service: %w", err)
	}

	accountSvc, err := services.NewAccountService(services.AccountServiceDeps{
		Users:         deps.Repos.Users,
		Tokens:        tokens,
		Mailer:        deps.Mailer,
		ResetTokenTTL: deps.Config.Auth.ResetTokenTTL,
		Clock:         time.Now,
		Logger:        serviceLogger(logger.Named("accounts")),
	})
	if err != nil {
		return nil, fmt.Errorf("di: build account service: %w", err)
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Repos,
		Services: Services{
			Orders:   orderSvc,
			Catalog:  catalogSvc,
			Accounts: accountSvc,
		},
		Policy:   policy,
		Statuses: statuses,
		Tokens:   tokens,
	}, nil
}

func serviceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Warn("service event", zFields...)
	}
}
