package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// EngineMode runs the full engine: the signal intake loop, the notifier,
// the optional archiver, the WebSocket hub, and the API server.
func (a *App) EngineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting engine mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Intake.Run(ctx)
	})

	if deps.Notifier.Enabled() {
		g.Go(func() error {
			return deps.Notifier.Run(ctx, deps.SignalBus)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// APIMode runs only the read surface: the API server and the WebSocket hub.
// Nothing polls for signals and no trades are placed, but POST
// /api/process-analysis still triggers one-off processing.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting api mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer adds the server and hub goroutines to the errgroup, with
// graceful shutdown on context cancellation. No-op when the server is
// disabled in config.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Server == nil {
		a.logger.WarnContext(ctx, "http server disabled")
		return
	}

	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})

	g.Go(func() error {
		return deps.Server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("http server shutting down")
		return deps.Server.Shutdown(shutCtx)
	})
}
