package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Zachkp/portfolio/internal/api"
	"github.com/Zachkp/portfolio/internal/audit"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/middleware"
	"github.com/Zachkp/portfolio/internal/relay"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio backend - contact form relay",
		Long: `Portfolio backend. Serves the contact endpoint that relays visitor
messages to the automation webhook, and a terminal contact form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newContactCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNotSent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	// requests are logged through our own logger
	gin.DefaultWriter = io.Discard

	var store *audit.Store
	if cfg.AuditDBPath != "" {
		store, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Cleanup(ctx, time.Now().Add(-cfg.AuditRetention))
		if err != nil {
			logger.Warn("Audit cleanup failed: %v", err)
		} else if removed > 0 {
			logger.Info("Privacy cleanup: removed %d relay attempts older than %s", removed, cfg.AuditRetention)
		}
	}

	r, err := setupRouter(cfg, logger, relay.NewClient(cfg.Relay()), store)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on :%s in %s mode", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	// in-flight relays get their full timeout to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RelayTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(cfg *config.Config, logger *logging.Logger, forwarder api.Forwarder, store *audit.Store) (*gin.Engine, error) {
	r := gin.New()
	// rate limiting and audit hashing key on ClientIP, so only listed proxies may set it
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins, !cfg.IsProduction()),
	)

	salt := generateAdminToken()

	var recorder api.Recorder
	if store != nil {
		recorder = store
	}
	messages := api.NewMessageHandler(forwarder, recorder, logger, salt)
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		PerMinute: cfg.ContactRatePerMinute,
		Burst:     cfg.ContactRateBurst,
	})

	r.GET("/health", api.Health)

	// Contact form submission, relayed to the webhook
	r.POST("/api/messages", limiter.Middleware(), messages.Create)

	switch {
	case !cfg.AdminEnabled():
		logger.Info("Admin API disabled: ADMIN_USERNAME and ADMIN_PASSWORD not set")
	case store == nil:
		logger.Warn("Admin API disabled: it needs the audit log (AUDIT_DB_PATH)")
	default:
		setupAdminRoutes(r, newAdminPanel(cfg, store, logger, salt))
	}

	return r, nil
}
