package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/config"
	affiliationhandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/affiliation"
	availabilityhandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/availability"
	cataloghandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/health"
	promhandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/prometheus"
	visithandler "github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/handler/visit"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/middleware"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/postgres"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/router"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/affiliation"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/availability"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/catalog"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/event"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/identity"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/service/visit"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock"
	redislock "github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock/redis"
)

func serveCmd(configPath *string) *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath, withWorker)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "Also run the outbox worker in this process")
	return cmd
}

func serve(ctx context.Context, configPath string, withWorker bool) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg
	clk := clock.System()
	loc := cfg.Location()

	checks := map[string]health.Pinger{"database": a.db}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Scheduling.LockBackend == config.LockBackendRedis {
		client, err := a.redisClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = redislock.NewLocker(client, redislock.Config{
			Prefix:  "salud:lock:",
			TTL:     cfg.Scheduling.LockTTL,
			MaxWait: cfg.Scheduling.LockWait,
		})
		checks["redis"] = redisPinger{client: client}
	}

	// Repositories
	outboxRepo := postgres.NewOutboxRepository(a.db)
	events := event.NewEventService(outboxRepo, clk)

	// Services
	identitySvc := identity.NewService(
		postgres.NewPersonRepository(a.db),
		postgres.NewProfessionalRepository(a.db),
		events, clk, a.logger,
	)
	catalogSvc := catalog.NewService(postgres.NewCatalogRepository(a.db), cfg.Catalog.CacheTTL)
	availabilitySvc := availability.NewService(
		postgres.NewAvailabilityRepository(a.db),
		identitySvc, locker, events, clk, loc, a.metrics, a.logger,
	)
	visitSvc := visit.NewService(
		postgres.NewVisitRepository(a.db),
		identitySvc, availabilitySvc, catalogSvc, events, clk, loc, a.metrics, a.logger,
	)
	affiliationSvc := affiliation.NewService(
		affiliation.NewEngine(affiliation.Rules{
			StaffClaustro:    cfg.Affiliation.StaffClaustro,
			ExternalClaustro: cfg.Affiliation.ExternalClaustro,
		}, loc),
		postgres.NewAffiliationRepository(a.db),
		catalogSvc, identitySvc, events, clk, a.metrics, a.logger,
	)

	// Handlers
	prom := promhandler.New(a.registry)
	routerCfg := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     middleware.DefaultCORSConfig(),
	}
	routerCfg.CORSConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}
	r := router.NewRouter(routerCfg, prom,
		health.NewHandler(checks, prom.Handler()),
		affiliationhandler.NewHandler(affiliationSvc),
		cataloghandler.NewHandler(catalogSvc),
		availabilityhandler.NewHandler(availabilitySvc, identitySvc),
		visithandler.NewHandler(visitSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if withWorker && cfg.Outbox.Enabled {
		stopWorker, err := startWorkers(ctx, a)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("Server exited properly")
	return nil
}
