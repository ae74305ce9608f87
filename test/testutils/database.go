// Package testutils holds fixtures shared by the package tests: container
// backed Postgres and Redis, mocks, factories, token minting and assertions.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/chefgpt/server/internal/infrastructure/persistence/migrations"
	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IntegrationEnv enables container backed tests when set to 1
const IntegrationEnv = "CHEFGPT_INTEGRATION"

const (
	postgresImage = "postgres:15-alpine"
	postgresPort  = nat.Port("5432/tcp")
	postgresDB    = "chefgpt_test"
	postgresUser  = "chef"
	postgresPass  = "chef"

	redisImage = "redis:7-alpine"
	redisPort  = nat.Port("6379/tcp")
)

// RequireIntegration skips the test unless container tests were requested
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(IntegrationEnv) != "1" {
		t.Skipf("set %s=1 to run container backed tests", IntegrationEnv)
	}
}

// startContainer runs req and returns the host and mapped port of exposed.
// The container is terminated when the test ends.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, exposed nat.Port) (string, nat.Port) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start %s", req.Image)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, exposed)
	require.NoError(t, err)

	return host, port
}

// TestDatabase is a migrated Postgres instance owned by one test
type TestDatabase struct {
	DB     *sql.DB
	GormDB *gorm.DB
	DSN    string
}

func postgresDSN(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPass, host, port.Port(), postgresDB)
}

// SetupTestDatabase starts Postgres and applies the embedded migrations
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	RequireIntegration(t)

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_DB":       postgresDB,
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPass,
		},
		WaitingFor: wait.ForSQL(postgresPort, "pgx", postgresDSN).
			WithStartupTimeout(60 * time.Second),
	}, postgresPort)

	ctx := context.Background()
	dsn := postgresDSN(host, port)
	require.NoError(t, migrations.Run(ctx, dsn, postgresDB, zap.NewNop()), "migrate test database")

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &TestDatabase{DB: db, GormDB: gormDB, DSN: dsn}
}

// TruncateAllTables empties every application table
func (td *TestDatabase) TruncateAllTables() error {
	_, err := td.DB.Exec("TRUNCATE TABLE saved_recipes, recipes CASCADE")
	return err
}

// TestRedis is a throwaway Redis server
type TestRedis struct {
	Host string
	Port int
}

// SetupTestRedis starts Redis in a container
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	RequireIntegration(t)

	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{string(redisPort)},
		WaitingFor:   wait.ForListeningPort(redisPort).WithStartupTimeout(30 * time.Second),
	}, redisPort)

	return &TestRedis{Host: host, Port: port.Int()}
}
