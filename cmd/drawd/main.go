package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/park285/cheese-draw/internal/config"
	"github.com/park285/cheese-draw/internal/drawstore"
	"github.com/park285/cheese-draw/internal/httpapi"
	"github.com/park285/cheese-draw/internal/msgcat"
	"github.com/park285/cheese-draw/internal/notation"
	"github.com/park285/cheese-draw/internal/obslog"
	"github.com/park285/cheese-draw/internal/session"
	"github.com/park285/cheese-draw/internal/wsfeed"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := msgcat.New(cfg.MessagesLocale, cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_init_error", zap.Error(err))
	}

	opts := []session.Option{
		session.WithCatalog(catalog),
		session.WithLogger(obslog.Named("session")),
		session.WithMaxSessions(cfg.MaxSessions),
	}

	// Redis snapshot store (optional)
	if cfg.RedisURL != "" {
		store, err := drawstore.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL, obslog.Named("redis"))
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, session.WithStore(store))
	}

	// Postgres result archive (optional)
	if cfg.DatabaseURL != "" {
		repo, err := drawstore.NewRepository(ctx, cfg.DatabaseURL, notation.Options{Event: cfg.PGNEvent, Site: cfg.PGNSite}, obslog.Named("results"))
		if err != nil {
			logger.Fatal("db_init_error", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("db_schema_error", zap.Error(err))
		}
		opts = append(opts, session.WithResults(repo))
	}

	var hub *wsfeed.Hub
	if cfg.FeedAddr != "" {
		hub = wsfeed.NewHub(0, obslog.Named("feed"))
		opts = append(opts, session.WithPublisher(hub))
	}

	registry := session.NewRegistry(opts...)
	api := httpapi.NewServer(registry, obslog.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr))
		return api.ListenAndServe(cfg.ListenAddr)
	})

	var feedSrv *http.Server
	if hub != nil {
		feedSrv = &http.Server{
			Addr:              cfg.FeedAddr,
			Handler:           wsfeed.NewHandler(hub, registry, obslog.Named("feed")).Mux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("feed_listen", zap.String("addr", cfg.FeedAddr))
			if err := feedSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutdown", zap.Int("sessions", registry.Len()))
		var errs []error
		if feedSrv != nil {
			errs = append(errs, feedSrv.Shutdown(sctx))
		}
		errs = append(errs, api.Shutdown(sctx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("drawd_exit", zap.Error(err))
	}
}
