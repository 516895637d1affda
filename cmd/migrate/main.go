package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	pgstore "github.com/dwarvesf/payment-listener/internal/store/postgres"
	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

func runMigrations(db *gorm.DB, driverName string, logger *logger.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	var (
		driver database.Driver
		dir    string
	)
	switch driverName {
	case pgstore.DriverMySQL:
		dir = "mysql"
		driver, err = mysql.WithInstance(sqlDB, &mysql.Config{})
	default:
		driverName = "postgres"
		dir = "schema"
		driver, err = postgres.WithInstance(sqlDB, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s driver: %w", driverName, err)
	}

	migrationPath := fmt.Sprintf("file://%s", filepath.Join("migrations", dir))
	m, err := migrate.NewWithDatabaseInstance(migrationPath, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Migrations completed successfully", map[string]string{
		"driver":  driverName,
		"version": fmt.Sprintf("%d", version),
		"dirty":   fmt.Sprintf("%t", dirty),
	})
	return nil
}

func main() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)

	if err := runMigrations(db, appConfig.Postgres.Driver, logger); err != nil {
		logger.Error("[main][runMigrations] failed to run migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
