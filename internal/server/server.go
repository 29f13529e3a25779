// Package server is the composition root: it opens the store, picks the
// identity provider, builds the router and runs the HTTP server until a
// shutdown signal arrives.
//
//	config → Store (sqlite | postgres) → services → handlers → chi router
//	       → identity.Provider (local | gotrue) ↗
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/blogpost-api/internal/auth"
	"github.com/sakif/blogpost-api/internal/config"
	"github.com/sakif/blogpost-api/internal/handler"
	"github.com/sakif/blogpost-api/internal/identity"
	"github.com/sakif/blogpost-api/internal/identity/gotrue"
	"github.com/sakif/blogpost-api/internal/identity/local"
	"github.com/sakif/blogpost-api/internal/middleware"
	"github.com/sakif/blogpost-api/internal/repository"
	"github.com/sakif/blogpost-api/internal/repository/postgres"
	sqliteRepo "github.com/sakif/blogpost-api/internal/repository/sqlite"
	"github.com/sakif/blogpost-api/internal/service"
	"github.com/sakif/blogpost-api/internal/validation"
)

// Store is a database backend: every repository plus lifecycle.
type Store interface {
	repository.PostRepository
	repository.UserRepository
	repository.CredentialRepository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*sqliteRepo.DB)(nil)
	_ Store = (*postgres.DB)(nil)
)

type Server struct {
	router http.Handler
	config *config.Config
	logger *slog.Logger
	store  Store // owned by the server, closed on shutdown
}

// New opens the configured store and identity provider and wires the
// routes. The store is closed again if anything after it fails.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	provider, err := newProvider(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating identity provider: %w", err)
	}

	return &Server{
		router: NewRouter(store, provider, logger),
		config: cfg,
		logger: logger,
		store:  store,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

func newProvider(cfg *config.Config, store Store, logger *slog.Logger) (identity.Provider, error) {
	switch cfg.IdentityProvider {
	case config.ProviderGoTrue:
		return gotrue.New(gotrue.Config{
			URL:            cfg.GoTrue.URL,
			AnonKey:        cfg.GoTrue.AnonKey,
			ServiceRoleKey: cfg.GoTrue.ServiceRoleKey,
		}, logger)
	case config.ProviderLocal:
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		return local.New(store, auth.NewPasswordService(), tokens, logger), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

// NewRouter builds the full route tree on top of store and provider.
//
//	GET    /             → "Server API is working 🚀"
//	GET    /test         → same
//	GET    /healthz      → database ping
//	GET    /posts        → filtered, paginated listing
//	POST   /posts        → create   (ValidatePost)
//	GET    /posts/{id}   → read one
//	PUT    /posts/{id}   → replace  (ValidatePost)
//	DELETE /posts/{id}   → delete
//	POST   /auth/signup
//	POST   /auth/login
//
// Middleware runs in the order added: request id, real IP, logging, panic
// recovery, then CORS.
func NewRouter(store Store, provider identity.Provider, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	validator := validation.New()

	statusHandler := handler.NewStatusHandler(store, logger)
	postHandler := handler.NewPostHandler(service.NewPostService(store, logger), logger)
	authHandler := handler.NewAuthHandler(service.NewAuthService(provider, store, logger), logger)

	r.Get("/", statusHandler.HandleRoot)
	r.Get("/test", statusHandler.HandleRoot)
	r.Get("/healthz", statusHandler.HandleHealth)

	validatePost := middleware.ValidatePost(validator, logger)
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", postHandler.HandleList)
		r.With(validatePost).Post("/", postHandler.HandleCreate)
		r.Get("/{id}", postHandler.HandleGet)
		r.With(validatePost).Put("/{id}", postHandler.HandleUpdate)
		r.Delete("/{id}", postHandler.HandleDelete)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
	})

	return r
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("db_driver", s.config.DBDriver),
			slog.String("identity_provider", s.config.IdentityProvider),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
