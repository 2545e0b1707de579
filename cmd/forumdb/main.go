package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forumdb/internal/retention"
	"forumdb/pkg/api"
	"forumdb/pkg/banner"
	"forumdb/pkg/config"
	"forumdb/pkg/logger"
	"forumdb/pkg/migrate"
	"forumdb/pkg/security"
	"forumdb/pkg/sensor"
	"forumdb/pkg/shutdown"
	"forumdb/pkg/store"
	"forumdb/pkg/validation"
)

// build metadata, set via ldflags during release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseFlags()
	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := eff.Config

	logger.Init(cfg.Logging.Level)
	defer logger.Sync()

	validation.SetLimits(validation.Limits{
		MaxBodyBytes: cfg.Limits.MaxBodyBytes.Int64(),
	})

	if err := store.Open(eff.DBPath); err != nil {
		log.Fatalf("failed to open pebble at %s: %v", eff.DBPath, err)
	}
	if _, err := migrate.Run(context.Background(), version); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	monitor := sensor.NewMonitor(30*time.Second,
		uint64(cfg.Server.DiskHighWater.Int64()),
		uint64(cfg.Server.DiskLowWater.Int64()))
	monitor.Start()

	stopRetention, err := retention.Start(context.Background(), cfg.Retention)
	if err != nil {
		log.Fatalf("failed to start retention: %v", err)
	}

	verStr := version
	if commit != "none" {
		verStr += " (" + commit + ")"
	}
	banner.Print(eff, verStr)

	outer := http.NewServeMux()
	outer.Handle("/metrics", promhttp.Handler())
	outer.Handle("/", api.NewRouter())

	secCfg := security.SecConfig{
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    cfg.Security.IPWhitelist,
		BackendKeys:    toSet(cfg.Security.APIKeys.Backend),
		FrontendKeys:   toSet(cfg.Security.APIKeys.Frontend),
		AdminKeys:      toSet(cfg.Security.APIKeys.Admin),
	}
	// dev mode: without any configured keys the API stays open
	secCfg.RequireAuth = len(secCfg.BackendKeys)+len(secCfg.FrontendKeys)+len(secCfg.AdminKeys) > 0

	srv := &http.Server{
		Addr:    eff.Addr,
		Handler: security.Middleware(secCfg)(outer),
	}

	go func() {
		cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
		var serveErr error
		if cert != "" && key != "" {
			logger.Info("listening_tls", "addr", eff.Addr)
			serveErr = srv.ListenAndServeTLS(cert, key)
		} else {
			logger.Info("listening", "addr", eff.Addr)
			serveErr = srv.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Fatal(serveErr)
		}
	}()

	shutdown.Wait(srv, 10*time.Second,
		func() error { stopRetention(); return nil },
		func() error { monitor.Stop(); return nil },
		store.Close,
	)
}

func toSet(keys []string) map[string]struct{} {
	s := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}
