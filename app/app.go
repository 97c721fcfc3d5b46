package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/rota-badges/app/modules/badge"
	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/Black-And-White-Club/rota-badges/app/shared/eventbus"
	"github.com/Black-And-White-Club/rota-badges/app/shared/observability"
	"github.com/Black-And-White-Club/rota-badges/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	queueGroup          = "rota-badges"
	routerCloseTimeout  = 30 * time.Second
	readHeaderTimeout   = 10 * time.Second
	httpShutdownTimeout = 15 * time.Second
)

// App holds the process-wide resources and the badge module.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	Channels      badge.Channels
	EventBus      eventbus.EventBus
	Router        *message.Router
	HTTPRouter    *chi.Mux
	BadgeModule   *badge.Module

	httpServer    *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// OpenDB opens a bun handle over pgdriver. It does not dial.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenChannels opens a handle per configured DSN.
func OpenChannels(cfg *config.Config) badge.Channels {
	var ch badge.Channels
	if cfg.Postgres.ServiceDSN != "" {
		ch.Privileged = OpenDB(cfg.Postgres.ServiceDSN)
	}
	if cfg.Postgres.DSN != "" {
		ch.Restricted = OpenDB(cfg.Postgres.DSN)
	}
	return ch
}

// Initialize opens connections and wires the badge module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs observability.Observability) error {
	app.Config = cfg
	app.Observability = obs
	logger := obs.Logger

	app.Channels = OpenChannels(cfg)

	if cfg.NATS.URL != "" {
		bus, err := eventbus.NewNATSEventBus(ctx, cfg.NATS.URL, queueGroup, logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus

		router, err := message.NewRouter(message.RouterConfig{CloseTimeout: routerCloseTimeout}, watermill.NewSlogLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to create Watermill router: %w", err)
		}
		app.Router = router
	} else {
		logger.WarnContext(ctx, "NATS URL not set, event handlers and award notifications are disabled")
	}

	app.HTTPRouter = chi.NewRouter()
	app.HTTPRouter.Use(middleware.RequestID)
	app.HTTPRouter.Use(middleware.Recoverer)

	module, err := badge.NewBadgeModule(ctx, cfg, obs, app.Channels, app.EventBus, app.Router, app.HTTPRouter)
	if err != nil {
		return fmt.Errorf("failed to initialize badge module: %w", err)
	}
	app.BadgeModule = module

	metricsAddr := cfg.Observability.MetricsAddress
	if metricsAddr == "" || metricsAddr == cfg.HTTP.Address {
		app.HTTPRouter.Handle("/metrics", obs.MetricsHandler())
	} else {
		mux := chi.NewRouter()
		mux.Handle("/metrics", obs.MetricsHandler())
		app.metricsServer = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	}

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           app.HTTPRouter,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoContext(ctx, "Application initialized",
		attr.Bool("privileged_channel", app.Channels.Privileged != nil),
		attr.Bool("restricted_channel", app.Channels.Restricted != nil),
		attr.Bool("queue_enabled", cfg.Queue.Enabled),
		attr.String("http_address", cfg.HTTP.Address),
	)
	return nil
}
