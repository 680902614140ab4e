package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"library-room-booker/internal/api"
	"library-room-booker/internal/mw"
	"library-room-booker/internal/scheduler"
	"library-room-booker/internal/workflow"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var noScheduler bool
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the history API and run the daily scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx, flags, appOptions{requireStore: true})
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a, !noScheduler)
		},
	}
	c.Flags().BoolVar(&noScheduler, "no-scheduler", false, "only serve the API")
	return c
}

func serve(ctx context.Context, a *app, withScheduler bool) error {
	srv := a.cfg.Server
	cacheTTL := time.Duration(srv.CacheTTLSeconds) * time.Second
	responses := cache.New(cacheTTL, 10*time.Minute)

	runTTL := time.Duration(a.cfg.Schedule.MaxRetries) * a.cfg.Schedule.AttemptTimeout
	trigger := api.NewRunTrigger(ctx, a.orch, a.locker, runTTL, a.log)
	trigger.OnDone(func(workflow.Result) { mw.Invalidate(responses) })

	handler := api.NewHandler(a.store, a.webpushOptions(), trigger, a.log)
	router := api.NewRouter(api.RouterConfig{
		RateLimit:        rate.Limit(srv.RateLimitPerSec),
		RateBurst:        srv.RateLimitBurst,
		Cache:            responses,
		CacheTTL:         cacheTTL,
		TriggerTokenHash: srv.TriggerTokenHash,
	}, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", srv.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infof("HTTP server starting on port %d", srv.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	if withScheduler {
		g.Go(func() error {
			svc := scheduler.NewService(a.cfg.Schedule, a.orch, a.locker, a.log)
			svc.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Infof("Shutdown signal received, stopping services...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		trigger.Wait()
		a.log.Infof("Server gracefully stopped")
		return nil
	})
	return g.Wait()
}
