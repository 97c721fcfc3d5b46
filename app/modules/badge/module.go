package badge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	badgeservice "github.com/Black-And-White-Club/rota-badges/app/modules/badge/application"
	badgeaccess "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/access"
	badgehandlers "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/handlers"
	badgemetrics "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/metrics"
	badgepublisher "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/publisher"
	badgequeue "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/queue"
	badgedb "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/repositories"
	badgerouter "github.com/Black-And-White-Club/rota-badges/app/modules/badge/infrastructure/router"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/eventbus"
	"github.com/Black-And-White-Club/rota-badges/app/shared/observability"
	"github.com/Black-And-White-Club/rota-badges/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Channels are the database handles the module may use. Either may be nil.
type Channels struct {
	Privileged *bun.DB
	Restricted *bun.DB
}

// Primary returns the privileged handle when present.
func (c Channels) Primary() *bun.DB {
	if c.Privileged != nil {
		return c.Privileged
	}
	return c.Restricted
}

func (c Channels) accessConfig(cfg *config.Config) badgeaccess.Config {
	ac := badgeaccess.Config{Timeout: cfg.Badges.OperationTimeout}
	// Typed nil pointers must not leak into the interface fields.
	if c.Privileged != nil {
		ac.Privileged = c.Privileged
	}
	if c.Restricted != nil {
		ac.Restricted = c.Restricted
	}
	return ac
}

// Module represents the badge module.
type Module struct {
	EventBus      eventbus.EventBus
	BadgeService  badgeservice.Service
	Handlers      badgehandlers.Handlers
	BadgeRouter   *badgerouter.BadgeRouter
	Queue         *badgequeue.Service
	config        *config.Config
	cancelFunc    context.CancelFunc
	logger        *slog.Logger
	observability observability.Observability
}

// NewBadgeModule wires the badge service, its handlers and transports.
// eventBus, router and httpRouter are optional.
func NewBadgeModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	channels Channels,
	eventBus eventbus.EventBus,
	router *message.Router,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "badge.NewBadgeModule called")

	metrics, err := badgemetrics.NewPrometheus(obs.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register badge metrics: %w", err)
	}

	selector := badgeaccess.NewSelector(channels.accessConfig(cfg), logger, metrics)
	repo := badgedb.NewRepository(channels.Primary())

	var notifier badgeservice.Notifier
	if eventBus != nil {
		notifier = badgepublisher.NewEventPublisher(eventBus, logger)
	}

	service := badgeservice.NewBadgeService(repo, selector, notifier, logger, metrics, tracer, badgeservice.Settings{
		StreakLookbackWeeks: cfg.Badges.StreakLookbackWeeks,
	})

	module := &Module{
		EventBus:      eventBus,
		BadgeService:  service,
		config:        cfg,
		logger:        logger,
		observability: obs,
	}

	var enqueuer badgehandlers.Enqueuer
	if cfg.Queue.Enabled {
		dsn := cfg.Postgres.ServiceDSN
		if dsn == "" {
			dsn = cfg.Postgres.DSN
		}
		queue, err := badgequeue.NewService(ctx, channels.Primary(), logger, dsn, metrics, service, badgequeue.Config{
			MaxWorkers: cfg.Queue.MaxWorkers,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create badge queue: %w", err)
		}
		module.Queue = queue
		enqueuer = queue
	}

	handlers := badgehandlers.NewBadgeHandlers(service, enqueuer, logger, tracer)
	module.Handlers = handlers

	if router != nil && eventBus != nil {
		badgeRouter := badgerouter.NewBadgeRouter(logger, router, eventBus, eventBus, tracer, obs.Registry)
		if err := badgeRouter.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure badge router: %w", err)
		}
		module.BadgeRouter = badgeRouter
	}

	if httpRouter != nil {
		MountRoutes(httpRouter, handlers, cfg)
	}

	return module, nil
}

// MountRoutes registers the badge API under /api/badges.
func MountRoutes(httpRouter chi.Router, handlers badgehandlers.Handlers, cfg *config.Config) {
	limiter := badgehandlers.NewCallerLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)

	httpRouter.Route("/api/badges", func(r chi.Router) {
		r.Use(badgehandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))
		r.Use(badgehandlers.RateLimitMiddleware(limiter))

		r.Get("/ping", handlers.HandleHTTPPing)

		r.Group(func(r chi.Router) {
			r.Use(badgehandlers.BearerAuthMiddleware([]byte(cfg.HTTP.JWTSecret)))
			r.Post("/check", handlers.HandleHTTPCheck)
			r.Get("/check", handlers.HandleHTTPPreview)
			r.Get("/user", handlers.HandleHTTPUserBadges)
			r.Get("/leaderboard", handlers.HandleHTTPLeaderboard)
			r.Get("/leaderboard/chart", handlers.HandleHTTPLeaderboardChart)
		})
	})
}

// Run starts the queue, if enabled, and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting badge module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Badge queue failed to start", attr.Error(err))
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Badge module goroutine stopped")
}

// Close stops the badge module and cleans up resources.
func (m *Module) Close() error {
	m.logger.Info("Stopping badge module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.Queue != nil {
		if err := m.Queue.Stop(context.Background()); err != nil {
			m.logger.Error("Failed to stop badge queue", attr.Error(err))
		}
	}

	m.logger.Info("Badge module stopped")
	return nil
}
