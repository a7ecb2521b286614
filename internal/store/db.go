package store

import (
	"errors"
	"strings"
	"time"

	"raffle/internal/config"
	"raffle/internal/models"

	"github.com/google/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open connects to the database named by cfg.DatabaseURL.
// A "sqlite://" prefix selects SQLite, anything else is handed to Postgres.
func Open(cfg config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		conn     *gorm.DB
		err      error
		isSQLite = IsSQLite(dsn)
	)
	if isSQLite {
		conn, err = gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), gormCfg)
	} else {
		conn, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// SQLite is single writer; one connection keeps shared in-memory databases alive
		// and avoids table lock errors.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	}
	return conn, nil
}

// IsSQLite reports whether dsn selects the SQLite driver.
func IsSQLite(dsn string) bool {
	return strings.HasPrefix(strings.TrimSpace(dsn), sqlitePrefix)
}

// Migrate runs GORM auto-migrations for the raffle tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db connection is nil")
	}
	if err := conn.AutoMigrate(
		&models.Entry{},
		&models.Prize{},
		&models.Winner{},
		&models.Admin{},
	); err != nil {
		return err
	}
	logger.Info("database migration complete")
	return nil
}
