package database

import (
	"errors"
	"fmt"
	"session_control_backend/internal/config"
	"session_control_backend/internal/model"
	"session_control_backend/internal/util"
	"session_control_backend/pkg/logger"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", util.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		}
		return postgres.Open(dsn), nil
	case util.DriverMySQL:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=Local",
				cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.Charset)
		}
		return mysql.Open(dsn), nil
	case util.DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func logLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// InitDB opens the relational store. TranslateError makes unique violations
// surface as gorm.ErrDuplicatedKey on every supported driver.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if strings.ToLower(cfg.Driver) == util.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// in-memory databases live per connection
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate is the one-shot schema bootstrap run at startup. Requests never probe
// or alter the schema.
func Migrate(db *gorm.DB) error {
	for _, m := range model.AllModels() {
		if err := db.AutoMigrate(m); err != nil {
			if !alreadyExists(err) {
				return err
			}
			logger.Log.Warn("Schema object already exists, skipped",
				zap.String("model", fmt.Sprintf("%T", m)), zap.Error(err))
		}
	}

	// rows written before the ledger column existed
	res := db.Model(&model.Session{}).
		Where("executed_indices IS NULL OR executed_indices = ''").
		Update("executed_indices", "[]")
	if res.Error != nil {
		logger.Log.Warn("executed_indices backfill skipped", zap.Error(res.Error))
	} else if res.RowsAffected > 0 {
		logger.Log.Info("executed_indices backfilled", zap.Int64("rows", res.RowsAffected))
	}

	logger.Log.Info("Database migration completed")
	return nil
}

// postgres duplicate_table and duplicate_object
const (
	pgDuplicateTable  = "42P07"
	pgDuplicateObject = "42710"
)

// alreadyExists reports whether a migration error only says that a table,
// index or constraint is already present. MySQL and SQLite report this in the
// message text.
func alreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateTable || pgErr.Code == pgDuplicateObject
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
