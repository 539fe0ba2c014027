package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"raggate.org/internal/auth"
	"raggate.org/internal/config"
	"raggate.org/internal/httpapi"
	"raggate.org/internal/obs"
	"raggate.org/internal/rbac"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func devBypassFromConfig(cfg config.Config) auth.DevBypass {
	return auth.DevBypass{
		Enabled:        true,
		Key:            cfg.DevAPIKey,
		UserID:         cfg.DevUserID,
		Role:           cfg.DevRole,
		OrganizationID: cfg.DevOrgID,
		Scopes:         auth.ParseScopeList(cfg.DevScopes),
	}
}

func main() {
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.PGDSN == "" {
		log.Fatal("RAGGATE_PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("RAGGATE_JWT_SECRET is required")
	}

	store, err := auth.OpenPGStore(cfg.PGDSN, auth.PoolConfig{
		MaxOpenConns:    cfg.PGMaxOpenConns,
		MaxIdleConns:    cfg.PGMaxIdleConns,
		ConnMaxLifetime: cfg.PGConnLifetime,
		ConnMaxIdleTime: cfg.PGConnIdleTime,
	})
	if err != nil {
		log.Fatalf("open identity store: %v", err)
	}
	defer store.Close()

	tokens, err := auth.NewTokenValidator(cfg.JWTSecret, auth.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		log.Fatalf("token validator: %v", err)
	}

	var keyOpts []auth.KeyOption
	if cfg.DevBypassEnabled {
		obs.LogEvent("warn", "dev_bypass_enabled", nil)
		keyOpts = append(keyOpts, auth.WithDevBypass(devBypassFromConfig(cfg)))
	}
	keys := auth.NewKeyValidator(store, keyOpts...)

	resolver := auth.NewResolver(tokens, keys, store,
		auth.WithAPIKeyHeader(cfg.APIKeyHeader),
		auth.WithTopRole(cfg.TopRole),
	)
	guard := auth.NewGuard(resolver)

	catalog := rbac.NewCatalog()
	engine := rbac.NewEngine(catalog, rbac.NewStaticDirectory())

	probe := httpapi.ReadyProbe{Store: store}
	api := httpapi.New(guard, engine, catalog, probe, version)

	var handler http.Handler = api.Handler()
	handler = httpapi.MaxBodyBytes(handler, cfg.MaxBodyBytes)
	handler = httpapi.RateLimit(handler, cfg.RateBurst, cfg.RatePerSecond)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grpcSrv := grpc.NewServer()
	sidecar := httpapi.NewHealthSidecar(probe, 10*time.Second)
	sidecar.Register(grpcSrv)
	go sidecar.Watch(ctx)

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	log.Printf("starting raggate-api %s on %s (grpc %s)", version, cfg.HTTPAddr, cfg.GRPCAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("shutting down...")

	cancel()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("stopped")
}
