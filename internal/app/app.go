package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/sales-api/internal/adapter/handler"
	"github.com/rl1809/sales-api/internal/adapter/storage"
	"github.com/rl1809/sales-api/internal/config"
	"github.com/rl1809/sales-api/internal/core/service"
	"github.com/rl1809/sales-api/internal/health"
	"github.com/rl1809/sales-api/internal/metrics"
	"github.com/rl1809/sales-api/internal/port"
	"github.com/rl1809/sales-api/internal/version"
)

type App struct {
	cfg    *config.Config
	logger *log.Entry

	db    *sql.DB
	rdb   *redis.Client
	store port.DatabaseRepository
	cache port.CacheRepository

	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *grpchealth.Server
}

// New connects the configured store and cache and builds both servers.
// Connections opened before a failure are closed.
func New(ctx context.Context, cfg *config.Config, logger *log.Entry) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.New()
	services := handler.Services{
		Transactions: service.NewTransactionService(
			a.store,
			service.NewInventoryService(a.store, a.store),
			service.NewLedgerPaymentRecorder(),
			m,
			logger.WithField("component", "transaction_service"),
		),
		Customers: service.NewCustomerService(a.store),
		Articles:  service.NewArticleService(a.store),
		Payments:  service.NewPaymentService(a.store, a.store),
		Inventory: service.NewInventoryService(a.store, a.store),
	}

	healthHandler := health.NewHandler(version.Version())
	healthHandler.RegisterChecker("store", health.NewPingChecker("store", a.store.Ping))
	if a.cache != nil {
		healthHandler.RegisterChecker("redis", health.NewPingChecker("redis", a.cache.Ping))
	}

	httpHandler := handler.NewHTTPHandler(services, a.cache, logger.WithField("component", "http"))
	a.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(httpHandler, healthHandler, m, logger.WithField("component", "http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}
	a.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	handler.RegisterTransactionServiceServer(a.grpcServer,
		handler.NewGRPCHandler(services.Transactions, a.cache, logger.WithField("component", "grpc")))
	grpcMetrics.InitializeMetrics(a.grpcServer)

	a.grpcHealth = grpchealth.NewServer()
	a.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(a.grpcServer, a.grpcHealth)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case config.DriverMemory:
		a.store = storage.NewMemoryAdapter()
		a.logger.Warn("using in-memory store, data is lost on restart")
		return nil
	case config.DriverMySQL:
		db, err := storage.OpenMySQL(ctx, a.cfg.MySQLDSN, storage.PoolConfig{
			MaxOpenConns:    a.cfg.MySQLMaxOpenConns,
			MaxIdleConns:    a.cfg.MySQLMaxIdleConns,
			ConnMaxLifetime: a.cfg.MySQLConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		a.db = db
		adapter := storage.NewMySQLAdapter(db)
		if a.cfg.AutoMigrate {
			if err := adapter.EnsureSchema(ctx); err != nil {
				return err
			}
			a.logger.Info("schema ensured")
		}
		a.store = adapter
		a.logger.Info("connected to mysql")
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}

func (a *App) openCache(ctx context.Context) error {
	if a.cfg.RedisAddr == "" {
		a.logger.Info("REDIS_ADDR not set, Idempotency-Key guard disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	a.rdb = rdb
	a.cache = storage.NewRedisAdapter(rdb, a.cfg.IdempotencyTTL)
	a.logger.WithField("addr", a.cfg.RedisAddr).Info("connected to redis")
	return nil
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// shuts both down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infof("gRPC server listening on %s", a.cfg.GRPCAddr)
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.logger.Infof("HTTP server listening on %s", a.cfg.HTTPAddr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		} else {
			a.logger.Error("server failed, shutting down")
		}
		a.shutdown()
		return nil
	})

	return g.Wait()
}

func (a *App) shutdown() {
	a.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("http shutdown")
	}
	a.logger.Info("HTTP server stopped")

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		a.logger.Warn("graceful stop timed out, forcing gRPC stop")
		a.grpcServer.Stop()
	}
	a.logger.Info("gRPC server stopped")
}

func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.WithError(err).Warn("close redis")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).Warn("close mysql")
		}
	}
	a.logger.Info("connections closed")
}
