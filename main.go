package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"portfoliocms/config"
	"portfoliocms/config/database"
	"portfoliocms/internal/auth"
	"portfoliocms/internal/upload"
	"portfoliocms/pkg/logger"
	"portfoliocms/router"
	"portfoliocms/socket"
	"portfoliocms/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. The application starts here. First, it loads the .env file and the environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	if !cfg.EnvFileLoaded {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. It builds the storage engine selected by STORAGE_DRIVER.
	engine, cleanup, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	st := store.New(engine)
	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("initializing %s store: %w", engine.Name(), err)
	}

	// 3. The admin credentials are hashed once; tokens are signed with JWT_SECRET.
	tokens := auth.NewJWTManager([]byte(cfg.JWTSecret), cfg.JWTExpiresIn)
	authService, err := auth.NewService(cfg.AdminEmail, cfg.AdminPassword, tokens)
	if err != nil {
		return err
	}

	uploads := upload.NewService(cfg.UploadsDir, "/uploads")
	if err := uploads.Init(); err != nil {
		return err
	}

	// 4. A new Hub is created. It pushes content changes to every connected browser.
	hub := socket.NewHub(st)
	// The Hub's main event loop is started in a separate goroutine so it doesn't block the main thread.
	go hub.Run(ctx)

	// 5. The routes are assembled and wrapped with the middleware chain.
	handler := router.Setup(router.Deps{
		Config:  cfg,
		Store:   st,
		Hub:     hub,
		Auth:    authService,
		Uploads: uploads,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	printBanner(cfg, engine.Name())

	// 6. It waits for a shutdown signal and drains in-flight requests.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Sugar.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// newEngine returns the configured engine and a cleanup for any resources it
// holds open.
func newEngine(cfg *config.Config) (store.Engine, func(), error) {
	noop := func() {}
	switch cfg.StorageDriver {
	case config.DriverGist:
		if cfg.GistID == "" || cfg.GithubToken == "" {
			logger.Sugar.Warn("GIST_ID or GITHUB_TOKEN is not set; content requests will fail until configured")
		}
		return store.NewGistEngine(store.GistConfig{
			GistID:   cfg.GistID,
			Token:    cfg.GithubToken,
			CacheTTL: cfg.GistCacheTTL,
		}), noop, nil
	case config.DriverPostgres:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		return store.NewPostgresEngine(db), func() { db.Close() }, nil
	default:
		return store.NewLocalEngine(cfg.ContentPath, cfg.BackupPath), noop, nil
	}
}

func printBanner(cfg *config.Config, engine string) {
	title := color.New(color.FgMagenta, color.Bold)
	label := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	title.Println("Singer Portfolio CMS backend")
	fmt.Printf("  %s http://localhost:%s\n", label.Sprint("listening:"), cfg.Port)
	fmt.Printf("  %s %s\n", label.Sprint("environment:"), cfg.Env)
	fmt.Printf("  %s %s\n", label.Sprint("storage:"), engine)
	fmt.Printf("  %s %s\n", label.Sprint("frontend:"), cfg.FrontendURL)
	if cfg.IsProduction() {
		return
	}
	faint.Println("  GET  /api/health")
	faint.Println("  GET  /api/content[/{section}]")
	faint.Println("  POST /api/auth/login")
	faint.Println("  PUT  /api/content/{section}         (admin)")
	faint.Println("  POST /api/content/{section}/items   (admin)")
	faint.Println("  POST /api/upload                    (admin)")
	faint.Println("  GET  /ws")
	if cfg.MetricsEnabled {
		faint.Println("  GET  /metrics")
	}
}
