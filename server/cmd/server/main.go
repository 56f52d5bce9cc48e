package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/renderworks/plantops/server/internal/alerts"
	"github.com/renderworks/plantops/server/internal/api"
	"github.com/renderworks/plantops/server/internal/auth"
	"github.com/renderworks/plantops/server/internal/config"
	"github.com/renderworks/plantops/server/internal/dashboard"
	"github.com/renderworks/plantops/server/internal/metrics"
	"github.com/renderworks/plantops/server/internal/refresh"
	"github.com/renderworks/plantops/server/internal/store"
	"github.com/renderworks/plantops/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard UI static files from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("plantops-server starting", "config", *configPath)

	if err := run(*configPath, *uiDir); err != nil {
		slog.Error("plantops-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("plantops-server shut down")
}

func run(configPath, uiDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc := cfg.Server
	loc, err := sc.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	slog.Info("config loaded",
		"http_port", sc.HTTPPort,
		"timezone", loc.String(),
		"factories", sc.Factories,
		"auth_mode", sc.Auth.Mode,
		"storage", sc.Storage.Backend,
		"lock_window", sc.Lock.Window,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Records store, optionally persisted to SQLite.
	var backend store.Backend
	if sc.Storage.Backend == "sqlite" {
		db, err := store.OpenSQLite(sc.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		backend = db
		slog.Info("sqlite backend opened", "path", sc.Storage.Path)
	}
	st := store.New(backend, sc.Storage.Retention)
	if err := st.Load(ctx); err != nil {
		return err
	}

	dash := dashboard.New(st, loc)

	supervisor, err := auth.NewSupervisor(sc.Auth.SupervisorHash())
	if err != nil {
		return err
	}
	if !supervisor.Configured() {
		slog.Warn("no supervisor credential configured; locked records cannot be edited")
	}

	alertEngine := alerts.New(sc.Alerts)

	apiHandler := api.New(api.Options{
		Store:      st,
		Dashboard:  dash,
		Alerts:     alertEngine,
		Verifier:   supervisor,
		LockWindow: sc.Lock.Window,
		Factories:  sc.Factories,
	})

	driver := refresh.Driver{
		Active: sc.Refresh.ActiveInterval,
		Idle:   sc.Refresh.IdleInterval,
	}
	hub := ws.New(dash, driver)

	// REST API, WebSocket hub and /metrics share one HTTP port.
	router := mux.NewRouter()
	requireKey := auth.APIKeyMiddleware(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	router.PathPrefix("/api/").Handler(requireKey(apiHandler))
	router.Handle("/ws/factories/{factory}", hub)
	router.Handle("/metrics", metrics.Handler(dash, sc.Factories, nil)).Methods(http.MethodGet)

	// Optional: serve the pre-built dashboard UI from a local directory.
	// Unknown paths fall back to index.html for client-side routing.
	if uiDir != "" {
		fs := http.FileServer(http.Dir(uiDir))
		router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", uiDir)
	}

	cors := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", sc.Auth.EffectiveHeader(), api.CredentialHeader}),
	)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(cors(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// One alert monitor per configured factory, woken early by mutations.
	for _, factory := range sc.Factories {
		factory := factory
		d := refresh.Driver{Idle: sc.Refresh.IdleInterval, Changes: dash.Changes}
		g.Go(func() error {
			alertEngine.Monitor(gctx, dash, factory, d)
			return nil
		})
	}

	// Hot reload: lock window and alert rules apply without a restart.
	g.Go(func() error {
		err := config.Watch(gctx, configPath, func(next *config.Config) {
			apiHandler.SetLockWindow(next.Server.Lock.Window)
			alertEngine.SetConfig(next.Server.Alerts)
			slog.Info("config applied",
				"lock_window", next.Server.Lock.Window,
				"alert_rules", len(next.Server.Alerts.Rules),
			)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("plantops-server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
