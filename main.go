package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/chat"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/checkins"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/discover"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/favorites"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/location"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/presence"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/routeplan"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/session"
	"github.com/FACorreiaa/go-nightout/internal/app/handlers"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/services/backend"
	"github.com/FACorreiaa/go-nightout/internal/app/services/directions"
	"github.com/FACorreiaa/go-nightout/internal/app/services/places"
	"github.com/FACorreiaa/go-nightout/internal/pkg/cache"
	"github.com/FACorreiaa/go-nightout/internal/pkg/config"
	"github.com/FACorreiaa/go-nightout/internal/pkg/storage"
	"github.com/FACorreiaa/go-nightout/internal/server"
	"github.com/FACorreiaa/go-nightout/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err = logger.Init(logger.ParseLevel(cfg.LogLevel), zap.String("service", "go-nightout")); err != nil {
		return err
	}
	lg := logger.Log
	defer func() { _ = lg.Sync() }()

	otelShutdown, err := server.InitObservability(cfg.Observability, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			lg.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, lg)
	defer srv.Close()

	h, refresher, err := wire(ctx, cfg, srv, lg)
	if err != nil {
		return err
	}

	go func() {
		if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("Presence refresher stopped", zap.Error(err))
		}
	}()

	srv.SetRouter(server.SetupRouter(h, lg))
	server.StartPprofServer(cfg.Observability.PprofAddr, lg)

	httpServer := srv.HTTPServer()
	done := make(chan struct{})
	go server.GracefulShutdown(ctx, httpServer, lg, done)

	lg.Info("Server starting", zap.String("port", cfg.ServerPort))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("Server error", zap.Error(err))
		stop()
	}

	<-done
	lg.Info("Graceful shutdown complete")
	return nil
}

// wire builds the clients and state containers and restores any stored session.
func wire(ctx context.Context, cfg *config.Config, srv *server.Server, lg *zap.Logger) (*handlers.Handlers, presence.Refresher, error) {
	var store storage.Store = storage.NewMemoryStore()
	if cfg.StorageDir != "" {
		fs, err := storage.NewFileStore(cfg.StorageDir, lg)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	}

	api, err := backend.NewClient(cfg.Backend.BaseURL, storage.NewTokenSource(store), cfg.Backend.Timeout, lg)
	if err != nil {
		return nil, nil, err
	}

	searcher := places.NewSearcher(
		places.NewClient(cfg.Places.APIKey, cfg.Places.BaseURL, lg),
		places.Options{MaxPages: cfg.Places.MaxPages, PageDelay: cfg.Places.PageDelay},
		lg,
	)

	caches := cache.NewManager(lg)
	srv.OnClose(caches.Close)
	router := directions.NewClient(cfg.Directions.APIKey, cfg.Directions.BaseURL, cfg.Directions.Mode, caches.Directions, lg)

	sess := session.NewService(api, store, cfg.Session.ProximityRadius, lg)
	favs := favorites.NewState(api, store, lg)
	sess.Subscribe(func(u *models.User) {
		if err := favs.SetUser(ctx, u); err != nil {
			lg.Warn("Favorites resync failed", zap.Error(err))
		}
	})

	var seed *models.Coordinate
	if cfg.DefaultLocation != nil {
		seed = &models.Coordinate{Latitude: cfg.DefaultLocation[0], Longitude: cfg.DefaultLocation[1]}
	}
	tracker := location.NewTracker(seed, lg)

	disc := discover.NewController(tracker, searcher, discover.Options{
		DefaultRadius: cfg.Places.DefaultRadius,
		Timeout:       cfg.Discover.SearchTimeout,
		Debounce:      cfg.Discover.RadiusDebounce,
	}, lg)
	srv.OnClose(disc.Close)

	hub := handlers.NewPresenceHub(lg)
	refresher, err := presenceRefresher(cfg, srv, sess, lg)
	if err != nil {
		return nil, nil, err
	}
	refresher.OnUpdate(hub.Broadcast)

	h := handlers.New(handlers.Deps{
		Session:   sess,
		Favorites: favs,
		Route:     routeplan.NewPlanner(router, lg),
		CheckIns:  checkins.NewLog(),
		Discover:  disc,
		Details:   searcher,
		Shared:    api,
		Chat:      chat.NewAssistant(lg),
		Location:  tracker,
		Presence:  refresher,
		Hub:       hub,
	}, lg)

	if _, err := sess.Restore(ctx); err != nil {
		lg.Warn("Stored session could not be restored", zap.Error(err))
	}

	return h, refresher, nil
}

type updatingRefresher interface {
	presence.Refresher
	OnUpdate(fn presence.UpdateFunc)
}

// presenceRefresher polls by default and subscribes to NATS presence events
// when NATS_URL is set.
func presenceRefresher(cfg *config.Config, srv *server.Server, sess *session.Service, lg *zap.Logger) (updatingRefresher, error) {
	if cfg.NATS.URL == "" {
		return presence.NewPoller(sess, cfg.Session.PresenceInterval, lg), nil
	}

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("go-nightout"))
	if err != nil {
		return nil, err
	}
	srv.OnClose(func() { _ = nc.Drain() })
	lg.Info("Connected to NATS", zap.String("url", cfg.NATS.URL), zap.String("subject", cfg.NATS.PresenceSubject))

	announcer := presence.NewAnnouncer(nc, cfg.NATS.PresenceSubject, lg)
	sess.Subscribe(announcer.Announce)

	return presence.NewNATSSubscriber(nc, cfg.NATS.PresenceSubject, sess, cfg.Session.PresenceInterval, lg), nil
}
