package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/waste3d/civicplatform-api/services/economy-service/config"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/application/audit"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/application/usecase"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/catalog"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/cache"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/repository"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/infrastructure/security"
	"github.com/waste3d/civicplatform-api/services/economy-service/internal/middleware"
	grpc_server "github.com/waste3d/civicplatform-api/services/economy-service/internal/transport/grpc"
	handlers "github.com/waste3d/civicplatform-api/services/economy-service/internal/transport/http"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	bundle, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.WithFields(logrus.Fields{
		"version":      bundle.Version,
		"achievements": bundle.Achievements.Len(),
		"items":        len(bundle.Shop.All()),
	}).Info("Catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.ProfileStore
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		log.Warn("Using in-memory profile store, data is lost on restart")
	default:
		db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		pg := repository.NewPostgresStore(db)
		if err := pg.Migrate(); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
		store = pg
	}
	if err := store.SeedStock(ctx, bundle.Shop.InitialStock()); err != nil {
		log.Fatalf("Failed to seed stock: %v", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		store = cache.NewProfileCache(store, rdb, cfg.ProfileCacheTTL, log)
		limiter = middleware.NewRateLimiter(rdb, log)
		log.Infof("Connected to Redis at %s", cfg.RedisAddr)
	}

	retry := usecase.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.StoreMaxAttempts
	deps := usecase.Deps{Store: store, Logger: log, Retry: retry}

	ledger := usecase.NewCurrencyLedger(deps)
	achievements := usecase.NewAchievementEngine(deps, bundle.Achievements, ledger)
	purchases := usecase.NewPurchaseEngine(deps, bundle.Shop, ledger)
	items := usecase.NewItemEffectEngine(deps, bundle.Shop, nil)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(
		handlers.NewEconomyHandler(store, bundle, achievements, ledger, purchases, items, log),
		security.NewTokenManager(cfg.AccessSecret),
		limiter,
		cfg.Origins(),
		log,
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpc_server.UnaryLogger(log)))
	grpc_server.RegisterEconomyServiceServer(grpcServer,
		grpc_server.NewEconomyServer(store, ledger, achievements, purchases, items))
	reflection.Register(grpcServer)

	auditor := audit.NewLedgerAuditor(store, log)
	if err := auditor.Start(cfg.LedgerAuditSchedule); err != nil {
		log.Fatalf("Failed to start ledger audit: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("HTTP API listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCPort)
		if err != nil {
			return err
		}
		log.Infof("gRPC API listening on %s", cfg.GRPCPort)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		auditor.Stop(shutdownCtx)
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Economy service stopped with error")
		os.Exit(1)
	}
	log.Info("Economy service stopped")
}
