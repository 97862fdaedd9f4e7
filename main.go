package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"p9e.in/rigops/config"
	"p9e.in/rigops/handlers"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/pkg/access"
	"p9e.in/rigops/pkg/dashboard"
	"p9e.in/rigops/pkg/hierarchy"
	"p9e.in/rigops/pkg/hse"
	"p9e.in/rigops/pkg/reporting"
	"p9e.in/rigops/pkg/storage"
	"p9e.in/rigops/pkg/store"
	"p9e.in/rigops/pkg/workflow"
	"p9e.in/rigops/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg).With().Str("version", Version).Logger()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := config.RunAllSeeding(ctx, st, cfg, log); err != nil {
		log.Warn().Err(err).Msg("seeding encountered issues")
	}

	uploader, closeUploader, err := openUploader(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUploader()

	// slots and "today" are evaluated in the configured zone
	now := func() time.Time { return time.Now().In(cfg.Location) }

	auth := middleware.NewAuth(cfg.JWTSecret, cfg.TokenTTL)
	resolver := access.NewResolver(st)
	wells := workflow.NewWellService(st, log).WithClock(now)
	reports := reporting.NewService(st, st, log).WithClock(now)
	hazards := hse.NewService(st, log).WithClock(now)
	stats := dashboard.NewService(st, log).WithClock(now)

	uploadDir := ""
	if !cfg.UseGCS {
		uploadDir = cfg.UploadDir
	}
	router := routes.RegisterRoutes(routes.Deps{
		Auth:        auth,
		Store:       st,
		UploadDir:   uploadDir,
		Hierarchy:   handlers.NewHierarchyHandler(hierarchy.NewService(st, log)),
		Assignments: handlers.NewAssignmentHandler(st, st),
		Wells:       handlers.NewWellHandler(wells, st, resolver, uploader),
		Reports:     handlers.NewReportHandler(reports, st, st, resolver).WithClock(now),
		Login:       handlers.NewAuthHandler(st, auth),
		Users:       handlers.NewUserHandler(st),
		HSE:         handlers.NewHSEHandler(hazards, resolver, uploader),
		Dashboard:   handlers.NewDashboardHandler(stats, resolver),
	})

	var handler http.Handler = router
	handler = middleware.Security(middleware.DefaultClients(cfg.MobileAppKey, cfg.DashboardKey), log)(handler)
	handler = middleware.RequestLogger(log)(handler)
	handler = middleware.CORS(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Bool("mock", cfg.UseMockData).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.UseMockData {
		log.Warn().Msg("USE_MOCK_DATA is set, using the in-memory store")
		return store.NewMemoryStore(), nil
	}
	db, err := config.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return store.NewPostgresStore(db), nil
}

func openUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, func() error, error) {
	if cfg.UseGCS {
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	}
	return storage.NewLocal(cfg.UploadDir, "/uploads"), func() error { return nil }, nil
}
