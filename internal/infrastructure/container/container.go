// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	authapp "github.com/chefgpt/server/internal/application/auth"
	recipeapp "github.com/chefgpt/server/internal/application/recipe"
	"github.com/chefgpt/server/internal/infrastructure/config"
	"github.com/chefgpt/server/internal/infrastructure/generator"
	"github.com/chefgpt/server/internal/infrastructure/http/apiserver"
	"github.com/chefgpt/server/internal/infrastructure/identity"
	"github.com/chefgpt/server/internal/infrastructure/monitoring"
	gormRepo "github.com/chefgpt/server/internal/infrastructure/persistence/gorm"
	"github.com/chefgpt/server/internal/infrastructure/persistence/migrations"
	"github.com/chefgpt/server/internal/infrastructure/persistence/postgres"
	"github.com/chefgpt/server/internal/infrastructure/persistence/sqlite"
	"github.com/chefgpt/server/internal/infrastructure/session"
	"github.com/chefgpt/server/internal/ports/outbound"
	"github.com/chefgpt/server/pkg/healthcheck"
	"github.com/chefgpt/server/pkg/logger"
	"github.com/redis/go-redis/v9"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigPath is the optional config file given on the command line
type ConfigPath string

// New returns the application wired for the given config file
func New(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		Module,
	)
}

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	ObservabilityModule,
	DatabaseModule,
	SessionModule,

	// Adapters
	RepositoryModule,
	ClientModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging. The atomic level follows app.log_level
// when the config file changes.
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug || cfg.IsDevelopment(),
		})
	},
)

// ObservabilityModule provides metrics, tracing and health checks
var ObservabilityModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(m *monitoring.MetricsCollector) outbound.MetricsRecorder {
		return m
	},
	func(cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		return monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			Insecure:       cfg.Monitoring.OTLPInsecure,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
	},
	NewHealthCheck,
)

// Database bundles the ORM handle with its pool
type Database struct {
	Gorm   *gorm.DB
	SQL    *sql.DB
	Driver string
}

// DatabaseModule provides database connections
var DatabaseModule = fx.Provide(
	NewDatabase,
	func(db *Database) *gorm.DB { return db.Gorm },
)

// NewDatabase opens Postgres through pgx, running the embedded migrations
// first when enabled, or SQLite for local development.
func NewDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	gormLog := gormRepo.NewLogger(log.Named("gorm"), cfg.Database.LogLevel)

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.SetupDatabase(cfg.Database.SQLitePath, gormLog)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.SQLitePath))
		return &Database{Gorm: db, SQL: sqlDB, Driver: "sqlite"}, nil

	default:
		dsn := cfg.GetDSN()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if cfg.Database.AutoMigrate {
			// An explicit URL names its own database; let migrate ask the server.
			databaseName := cfg.Database.Database
			if cfg.Database.URL != "" {
				databaseName = ""
			}
			if err := migrations.Run(ctx, dsn, databaseName, log); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		conn, err := postgres.Connect(ctx, cfg.Database, dsn, gormLog, log)
		if err != nil {
			return nil, err
		}
		return &Database{Gorm: conn.Gorm, SQL: conn.SQL, Driver: "postgres"}, nil
	}
}

// Session bundles the revocation store with its optional Redis client
type Session struct {
	Store  outbound.TokenRevocationStore
	Client redis.UniversalClient
}

// SessionModule provides the token revocation store
var SessionModule = fx.Provide(
	NewSession,
	func(s *Session) outbound.TokenRevocationStore { return s.Store },
)

// NewSession connects to Redis when enabled. An unreachable Redis at
// startup degrades to the no-op store instead of failing the process.
func NewSession(cfg *config.Config, log *zap.Logger) *Session {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, token revocation is not persisted")
		return &Session{Store: session.NewNoopRevocationStore()}
	}

	client, err := session.NewRedisClient(context.Background(), cfg.Redis, log)
	if err != nil {
		log.Warn("Redis unavailable, token revocation is not persisted",
			zap.String("addr", cfg.RedisAddr()),
			zap.Error(err),
		)
		return &Session{Store: session.NewNoopRevocationStore()}
	}

	return &Session{
		Store:  session.NewRedisRevocationStore(client, cfg.Redis.KeyPrefix, log),
		Client: client,
	}
}

// NewHealthCheck registers a probe per dependency. Only the database is
// required; the API keeps serving without Redis or a slow upstream.
func NewHealthCheck(cfg *config.Config, log *zap.Logger, db *Database, s *Session) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log.Named("healthcheck"))
	hc.Register("database", healthcheck.DatabaseChecker(db.SQL))
	if s.Client != nil {
		hc.Register("redis", healthcheck.RedisChecker(s.Client), healthcheck.Optional())
	}

	if cfg.Monitoring.CheckUpstreams {
		client := &http.Client{Timeout: 5 * time.Second}
		hc.Register("identity", healthcheck.HTTPChecker(client,
			strings.TrimRight(cfg.Auth.IdentityURL, "/")+"/auth/v1/health"), healthcheck.Optional())
		hc.Register("generator", healthcheck.HTTPChecker(client,
			strings.TrimRight(cfg.Backend.BaseURL, "/")+"/"), healthcheck.Optional())
	}
	return hc
}

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewRecipeRepository,
	gormRepo.NewSavedRecipeRepository,
)

// ClientModule provides the outbound HTTP clients
var ClientModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.IdentityProvider {
		return identity.NewClient(identity.Config{
			BaseURL: cfg.Auth.IdentityURL,
			AnonKey: cfg.Auth.AnonKey,
			Timeout: cfg.Auth.IdentityTimeout,
		}, log)
	},
	func(cfg *config.Config, log *zap.Logger) outbound.RecipeGenerator {
		return generator.NewClient(generator.Config{
			BaseURL:      cfg.Backend.BaseURL,
			GeneratePath: cfg.Backend.GeneratePath,
			Timeout:      cfg.Backend.Timeout,
		}, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	recipeapp.NewRecipeService,
	func(cfg *config.Config) authapp.Config {
		return authapp.Config{
			PublicURL: cfg.Auth.PublicURL,
			Providers: cfg.Auth.Providers,
		}
	},
	authapp.NewService,
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	apiserver.NewAPIServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	level zap.AtomicLevel,
	db *Database,
	sess *Session,
	tracing *monitoring.TracingProvider,
	server *apiserver.APIServer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting ChefGPT server",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", db.Driver),
			)
			if cfg.IsProduction() && !cfg.Auth.CookieSecure {
				log.Warn("Session cookies are not marked Secure in production")
			}

			if cfg.OnLogLevelChange(func(name string) {
				level.SetLevel(logger.ParseLevel(name))
				log.Info("Log level changed", zap.String("level", name))
			}) {
				log.Info("Watching config file for log level changes")
			}

			// Bind before returning so a taken port fails startup.
			ln, err := net.Listen("tcp", cfg.ListenAddr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr(), err)
			}

			go func() {
				if err := server.Serve(ln); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down ChefGPT server")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			if err := tracing.Shutdown(ctx); err != nil {
				log.Error("Failed to flush traces", zap.Error(err))
			}

			if sess.Client != nil {
				if err := sess.Client.Close(); err != nil {
					log.Error("Failed to close Redis client", zap.Error(err))
				}
			}

			if err := db.SQL.Close(); err != nil {
				log.Error("Failed to close database connection", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
