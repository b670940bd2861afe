package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/bivex/fitness-stats/internal/infrastructure/config"
	"github.com/bivex/fitness-stats/internal/infrastructure/logging"
)

func main() {
	var databaseURL string
	var migrationsPath string

	flag.StringVar(&databaseURL, "database", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&migrationsPath, "path", "./migrations", "Path to migration files")
	flag.Parse()

	if err := logging.Init(&config.SentryConfig{Environment: os.Getenv("SENTRY_ENVIRONMENT")}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	if databaseURL == "" {
		logging.Logger.Fatal("DATABASE_URL is required")
	}

	args := flag.Args()
	if len(args) < 1 {
		logging.Logger.Fatal("Command required: up, down, version, force <version>")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		logging.Logger.Fatal("Migration setup failed", zap.Error(err))
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logging.Logger.Fatal("Migration up failed", zap.Error(err))
		}
		logging.Logger.Info("Migrations applied")
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logging.Logger.Fatal("Migration down failed", zap.Error(err))
		}
		logging.Logger.Info("Last migration rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logging.Logger.Fatal("Failed to read migration version", zap.Error(err))
		}
		logging.Logger.Info("Migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	case "force":
		if len(args) < 2 {
			logging.Logger.Fatal("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			logging.Logger.Fatal("Invalid version", zap.String("version", args[1]))
		}
		if err := m.Force(version); err != nil {
			logging.Logger.Fatal("Migration force failed", zap.Error(err))
		}
		logging.Logger.Info("Migration version forced", zap.Int("version", version))
	default:
		logging.Logger.Fatal("Unknown command", zap.String("command", args[0]))
	}
}
