// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/chefgpt/server/internal/infrastructure/config"
	"github.com/chefgpt/server/internal/infrastructure/http/handlers"
	"github.com/chefgpt/server/internal/infrastructure/http/middleware"
	"github.com/chefgpt/server/internal/infrastructure/monitoring"
	"github.com/chefgpt/server/internal/ports/inbound"
	"github.com/chefgpt/server/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// APIServer is the JSON API HTTP server
type APIServer struct {
	config        *config.Config
	logger        *zap.Logger
	server        *http.Server
	router        *chi.Mux
	recipeService inbound.RecipeService
	authService   inbound.AuthService
	metrics       *monitoring.MetricsCollector
	health        *healthcheck.HealthCheck
}

// NewAPIServer creates a new API server instance
func NewAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	recipeService inbound.RecipeService,
	authService inbound.AuthService,
	metrics *monitoring.MetricsCollector,
	health *healthcheck.HealthCheck,
) *APIServer {
	s := &APIServer{
		config:        cfg,
		logger:        log.Named("api-server"),
		recipeService: recipeService,
		authService:   authService,
		metrics:       metrics,
		health:        health,
	}

	s.router = s.setupRoutes()

	var handler http.Handler = otelhttp.NewHandler(s.router, "chefgpt-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	if cfg.Server.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	s.server = &http.Server{
		Addr:           cfg.ListenAddr(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(s.logger),
	}

	return s
}

// setupRoutes configures the router
func (s *APIServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}
	r.Use(middleware.Security())
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: s.config.Server.AllowedOrigins}))
	r.Use(middleware.MaxBodyBytes(s.config.Server.MaxBodyBytes))
	if s.config.Server.EnableCompression {
		r.Use(middleware.Compress(5))
	}

	monitoringCfg := s.config.Monitoring
	r.Get(monitoringCfg.HealthCheckPath, s.health.LivenessHandler())
	r.Get(monitoringCfg.ReadinessPath, s.health.ReadinessHandler())
	r.Get("/health/details", s.health.Handler())
	if monitoringCfg.EnableMetrics && s.metrics != nil {
		r.Handle(monitoringCfg.MetricsPath, s.metrics.Handler())
	}

	writeError := handlers.WriteError(s.logger)
	recipeH := handlers.NewRecipeAPIHandlers(s.recipeService, s.authService, s.config.Auth.CookieNames, s.logger)
	authH := handlers.NewAuthAPIHandlers(s.authService, handlers.CookieConfig{
		Names:  s.config.Auth.CookieNames,
		Secure: s.config.Auth.CookieSecure,
		MaxAge: s.config.Auth.CookieMaxAge,
	}, s.logger)
	authenticate := middleware.Authenticate(s.authService, s.config.Auth.CookieNames, writeError)

	// Browser auth flow
	r.Route("/auth", func(r chi.Router) {
		r.Get("/signin", authH.SignIn)
		r.Get("/callback", authH.Callback)
		r.Post("/signout", authH.SignOut)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/session", authH.Session)

		// Resolves its own token: cookie, then header, then body.
		r.Post("/recipes/generate", recipeH.GenerateRecipe)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/recipes", recipeH.ListRecipes)
			r.Post("/recipes", recipeH.CreateRecipe)
			r.Route("/recipes/{id}", func(r chi.Router) {
				r.Get("/", recipeH.GetRecipe)
				r.Delete("/", recipeH.DeleteRecipe)
				r.Put("/rating", recipeH.RateRecipe)
				r.Get("/saved", recipeH.SavedStatus)
				r.Put("/saved", recipeH.SaveRecipe)
				r.Delete("/saved", recipeH.UnsaveRecipe)
				r.Post("/saved/toggle", recipeH.ToggleSavedRecipe)
			})
			r.Get("/saved-recipes", recipeH.ListSavedRecipes)
		})
	})

	return r
}

// Handler returns the root handler, used by tests
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Serve serves on ln until Shutdown. It returns nil on a clean shutdown.
func (s *APIServer) Serve(ln net.Listener) error {
	s.logger.Info("Starting JSON API server",
		zap.String("address", ln.Addr().String()),
		zap.Bool("h2c", s.config.Server.EnableH2C),
	)

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
