package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/auth"
	"github.com/nodesight/nodesight/internal/config"
	"github.com/nodesight/nodesight/internal/dashboard"
	"github.com/nodesight/nodesight/internal/event"
	"github.com/nodesight/nodesight/internal/gateway"
	"github.com/nodesight/nodesight/internal/poll"
	"github.com/nodesight/nodesight/internal/server"
	"github.com/nodesight/nodesight/internal/store"
	"github.com/nodesight/nodesight/internal/version"
	"github.com/nodesight/nodesight/internal/view"
	"github.com/nodesight/nodesight/internal/ws"
	"github.com/nodesight/nodesight/pkg/models"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("NodeSight gateway starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the session database.
	dbPath := viperCfg.GetString("database.path")
	db, err := store.New(dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CheckVersion(ctx, version.Version); err != nil {
		logger.Fatal("database version check failed", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dbPath))

	bus := event.NewBus(logger.Named("event"))

	// Session layer.
	sessionStore, err := auth.NewSessionStore(ctx, db)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}

	sessionTTL := viperCfg.GetDuration("auth.session_ttl")
	if sessionTTL == 0 {
		sessionTTL = 24 * time.Hour
	}
	sessions, err := auth.NewSessionManager(ctx, sessionStore, bus, sessionTTL, logger.Named("auth"))
	if err != nil {
		logger.Fatal("failed to initialize session manager", zap.Error(err))
	}
	sweep := viperCfg.GetDuration("auth.sweep_interval")
	if sweep == 0 {
		sweep = 5 * time.Minute
	}
	sessions.StartSweeper(ctx, sweep)
	defer sessions.StopSweeper()

	cookieSecret := viperCfg.GetString("auth.session_secret")
	if cookieSecret == "" {
		// Generate an ephemeral secret -- cookies won't survive restarts.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			logger.Fatal("failed to generate session secret", zap.Error(err))
		}
		cookieSecret = hex.EncodeToString(b)
		logger.Info("using auto-generated session secret (set auth.session_secret in config to keep logins across restarts)",
			zap.String("component", "auth"),
		)
	}
	codec := auth.NewCookieCodec(
		[]byte(cookieSecret),
		viperCfg.GetString("auth.cookie_name"),
		viperCfg.GetBool("auth.cookie_secure"),
	)

	captcha := auth.NewTurnstileVerifier(
		viperCfg.GetString("captcha.secret"),
		viperCfg.GetString("captcha.verify_url"),
	)
	oidc := auth.OIDCProvider{
		AuthURL:     viperCfg.GetString("oidc.auth_url"),
		ClientID:    viperCfg.GetString("oidc.client_id"),
		RedirectURI: viperCfg.GetString("oidc.redirect_uri"),
		Scopes:      viperCfg.GetString("oidc.scopes"),
	}

	// Monitoring backend.
	backendURL := viperCfg.GetString("backend.url")
	backend := gateway.NewClient(backendURL, viperCfg.GetDuration("backend.timeout"))

	authHandler := auth.NewHandler(logger.Named("auth"), sessions, codec, captcha, oidc, backend)

	forwarder, err := gateway.NewForwarder(backendURL, logger.Named("gateway"))
	if err != nil {
		logger.Fatal("invalid backend URL", zap.Error(err))
	}
	gatewayHandler := gateway.NewHandler(forwarder, logger.Named("gateway"))
	logger.Info("gateway initialized", zap.String("component", "gateway"), zap.String("backend", backendURL))

	// Dashboard view engine.
	entityStore := view.NewEntityStore()
	pollInterval := viperCfg.GetDuration("poll.interval")
	if pollInterval == 0 {
		pollInterval = 3 * time.Second
	}
	poller := poll.New(backend, entityStore, bus, pollInterval, logger.Named("poll"))

	// The reference point is fetched once at startup; absence just means no
	// connector lines.
	var reference *models.ReferencePoint
	refCtx, refCancel := context.WithTimeout(ctx, 10*time.Second)
	reference, err = backend.ReferencePoint(refCtx)
	refCancel()
	if err != nil {
		logger.Warn("reference point unavailable", zap.Error(err))
	}

	wsHandler := ws.NewHandler(
		authHandler, entityStore, poller, backend,
		func() *models.ReferencePoint { return reference },
		bus, logger.Named("ws"),
	)

	dashboardHandler := dashboard.Handler(func(r *http.Request) bool {
		_, ok := authHandler.Authenticate(r)
		return ok
	})

	addr := viperCfg.GetString("server.host") + ":" + viperCfg.GetString("server.port")
	if addr == ":" {
		addr = "0.0.0.0:8080"
	}
	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(addr, logger.Named("server"), readyCheck, authHandler, dashboardHandler, gatewayHandler, wsHandler)

	poller.Start(ctx)
	defer poller.Stop()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("NodeSight gateway ready", zap.String("addr", addr))

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("NodeSight gateway stopped")
}
