package repository

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/entity"
)

// Open connects to the database named by the DSN and migrates the schema.
// Postgres DSNs (postgres:// or key=value form) get the postgres driver;
// anything else is treated as a SQLite file path.
func Open(cfg common.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"),
		strings.HasPrefix(cfg.DSN, "postgresql://"),
		strings.Contains(cfg.DSN, "host="):
		dialector = postgres.Open(cfg.DSN)
	default:
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("configure pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)

	if err := db.AutoMigrate(&entity.Invoice{}, &entity.LineItem{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logger.Info("db.open", "dialect", db.Dialector.Name())
	return db, nil
}
