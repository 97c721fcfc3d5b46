package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Black-And-White-Club/rota-badges/app/shared/attr"
	"github.com/uptrace/bun"
)

// Run serves until ctx is cancelled or a server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.wg.Add(1)
	go app.BadgeModule.Run(ctx, &app.wg)

	errCh := make(chan error, 3)

	if app.Router != nil {
		go func() {
			if err := app.Router.Run(ctx); err != nil {
				errCh <- fmt.Errorf("watermill router: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("HTTP server listening", attr.String("address", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if app.metricsServer != nil {
		go func() {
			logger.Info("Metrics server listening", attr.String("address", app.metricsServer.Addr))
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close shuts down servers, the module and connections.
func (app *App) Close() {
	logger := app.Observability.Logger

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()

	for _, srv := range []*http.Server{app.httpServer, app.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", attr.String("address", srv.Addr), attr.Error(err))
		}
	}

	if app.BadgeModule != nil {
		if err := app.BadgeModule.Close(); err != nil {
			logger.Error("Failed to close badge module", attr.Error(err))
		}
	}
	app.wg.Wait()

	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			logger.Error("Failed to close Watermill router", attr.Error(err))
		}
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", attr.Error(err))
		}
	}

	for _, db := range []*bun.DB{app.Channels.Privileged, app.Channels.Restricted} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", attr.Error(err))
		}
	}
	logger.Info("Application shut down")
}
