package psql

import (
	"context"
	"fmt"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/sources/psql/models"
	"ducksearch/ducksearch/utils/logging"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(ctx context.Context, cfg config.DBConfig) (*Database, error) {
	logging.AppLogger.Info("connecting to database",
		zap.String("host", cfg.Host), zap.String("port", cfg.Port), zap.String("name", cfg.Name))

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		// Logger: logger.Default.LogMode(logger.Info), // Enable SQL logging for debugging
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Auto-migrate models (automatic schema creation)
	if err := db.WithContext(ctx).AutoMigrate(&models.SavedSearch{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return &Database{DB: db}, nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
