package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Billy-Davies-2/championship-draft/internal/auth"
	"github.com/Billy-Davies-2/championship-draft/internal/bracket"
	"github.com/Billy-Davies-2/championship-draft/internal/catalog"
	"github.com/Billy-Davies-2/championship-draft/internal/clickhouse"
	"github.com/Billy-Davies-2/championship-draft/internal/config"
	"github.com/Billy-Davies-2/championship-draft/internal/coordinator"
	"github.com/Billy-Davies-2/championship-draft/internal/dal"
	"github.com/Billy-Davies-2/championship-draft/internal/draft"
	"github.com/Billy-Davies-2/championship-draft/internal/handlers"
	"github.com/Billy-Davies-2/championship-draft/internal/logger"
	"github.com/Billy-Davies-2/championship-draft/internal/mocks"
	"github.com/Billy-Davies-2/championship-draft/internal/pubsub"
	"github.com/Billy-Davies-2/championship-draft/internal/rpc"
)

// analytics is what the draft events end up in
type analytics interface {
	coordinator.Recorder
	handlers.Stats
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize logger first
	logger.Init(cfg.LogLevel)
	logger.Info("Starting championship draft service", "environment", cfg.Environment, "port", cfg.Port)

	battlegroups := catalog.Default()
	policy := draft.Policy{
		BanCap:           cfg.BanCap,
		PickCount:        cfg.PickCount,
		AllowPartialBans: cfg.AllowPartialBans,
		MapDisplayDelay:  cfg.MapDisplayDelay,
	}
	if err := policy.Check(battlegroups); err != nil {
		logger.Error("Draft policy does not fit the catalog", "ban_cap", cfg.BanCap, "pick_count", cfg.PickCount, "error", err)
		log.Fatalf("Invalid draft policy: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize document store", "driver", cfg.DBDriver, "error", err)
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer store.Close()

	upstream, err := openUpstream(cfg)
	if err != nil {
		logger.Error("Failed to initialize NATS", "error", err)
		log.Fatalf("Failed to initialize NATS: %v", err)
	}
	bus := pubsub.NewWithUpstream(upstream)
	defer bus.Close()

	recorder, err := openAnalytics(cfg)
	if err != nil {
		logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer recorder.Close()

	engine := draft.NewEngine(battlegroups, policy)
	repo := dal.NewRepository(store)

	broadcaster := pubsub.NewBroadcaster(bus, coordinator.NewReader(repo, engine))
	defer broadcaster.Close()

	coord := coordinator.New(repo, engine, broadcaster, coordinator.WithRecorder(recorder))
	defer coord.Close()

	resumeCtx, cancelResume := context.WithTimeout(context.Background(), 30*time.Second)
	armed, err := coord.Resume(resumeCtx)
	cancelResume()
	if err != nil {
		logger.Warn("Failed to resume display timers", "error", err)
	} else {
		logger.Info("Resumed display timers", "count", armed)
	}

	sessions := auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL, !cfg.IsDevelopment())

	api := handlers.New(handlers.Options{
		Coordinator:    coord,
		Bracket:        bracket.NewService(repo, engine, broadcaster),
		Broadcaster:    broadcaster,
		Sessions:       sessions,
		Auth:           authProvider(cfg, sessions),
		Store:          store,
		Stats:          recorder,
		PingInterval:   cfg.EventPingInterval,
		BanWarningTTL:  cfg.BanWarningTTL,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not wait out SSE and websocket streams on its own
	server.RegisterOnShutdown(bus.DisconnectSubscribers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC listens next to HTTP; health follows the document store
	grpcAddr := fmt.Sprintf("0.0.0.0:%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
		log.Fatalf("Failed to listen for gRPC: %v", err)
	}

	draftRPC := rpc.NewServer(coord, sessions)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(draftRPC.Authenticate))
	draftRPC.Register(grpcServer)
	health := rpc.NewHealthReporter(store, cfg.GRPCHealthInterval)
	healthpb.RegisterHealthServer(grpcServer, health.Server())
	reflection.Register(grpcServer)
	go health.Run(ctx)

	go func() {
		logger.Info("gRPC server starting", "address", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
}

func openStore(cfg *config.Config) (dal.DocumentStore, error) {
	switch cfg.DBDriver {
	case "memory":
		logger.Info("Using in-memory document store")
		return dal.NewMemoryStore(), nil
	case "file":
		logger.Info("Using file document store", "dir", cfg.DataDir)
		return dal.NewFileStore(cfg.DataDir)
	case "sqlite":
		logger.Info("Using SQLite document store", "file", cfg.SQLiteFile)
		return dal.NewSQLiteStore(cfg.SQLiteFile)
	case "postgres":
		logger.Info("Using Postgres document store")
		return dal.NewPostgresStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, file, sqlite, postgres)", cfg.DBDriver)
	}
}

// openUpstream uses embedded NATS in development mode, real NATS otherwise
func openUpstream(cfg *config.Config) (pubsub.Upstream, error) {
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		embedded, err := pubsub.NewEmbeddedNATSPubSub(pubsub.EmbeddedNATSOptions{
			Port:       -1,
			Subject:    cfg.NATSSubject,
			StreamName: cfg.NATSStream,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
		return embedded, nil
	}

	logger.Info("Using NATS JetStream", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	return pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject, cfg.NATSStream)
}

// openAnalytics records draft events in memory during development
func openAnalytics(cfg *config.Config) (analytics, error) {
	if cfg.IsDevelopment() {
		return mocks.NewMemoryRecorder(), nil
	}

	client, err := clickhouse.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	return client, nil
}

// authProvider uses mock auth in development mode, Authentik OAuth2 otherwise
func authProvider(cfg *config.Config, sessions *auth.Sessions) auth.AuthProvider {
	if cfg.IsDevelopment() {
		logger.Info("Using mock authentication for local development (no Authentik server required)")
		return auth.NewMockAuth(sessions)
	}

	logger.Info("Using Authentik authentication", "url", cfg.AuthentikBaseURL)
	return auth.NewAuthentikAuth(&auth.AuthentikConfig{
		BaseURL:      cfg.AuthentikBaseURL,
		ClientID:     cfg.AuthentikClientID,
		ClientSecret: cfg.AuthentikClientSecret,
		RedirectURL:  cfg.AuthentikRedirectURL,
	}, sessions)
}
