package connection

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/infrastructure/database/schemas"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func Init(
	postgresUser string,
	postgresHost string,
	postgresPassword string,
	postgresDatabase string,
	postgresPort string,
) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s TimeZone=UTC",
		postgresHost,
		postgresUser,
		postgresPassword,
		postgresDatabase,
		postgresPort)
	db, err := gorm.Open(postgres.Open(dsn), newConfig())
	if err != nil {
		logger.Error("Failed to connect to postgres database", zap.Error(err))
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSQLite opens (and creates) a sqlite database file. ":memory:" is accepted for tests.
func InitSQLite(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), newConfig())
	if err != nil {
		logger.Error("Failed to open sqlite database", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemas.Deployment{}); err != nil {
		logger.Error("Failed to auto migrate DB schemas", zap.Error(err))
		return err
	}
	return nil
}

func newConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	}
}
