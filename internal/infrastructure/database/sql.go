package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/config"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/repositories"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// slowQueryThreshold is the duration above which gorm reports a query as slow
const slowQueryThreshold = 200 * time.Millisecond

// newGormLogger writes gorm's output through zap. Lookup misses are part of
// normal control flow and are not reported.
func newGormLogger(zl *zap.Logger, queries bool) logger.Interface {
	if zl == nil {
		zl = zap.NewNop()
	}
	level, zapLevel := logger.Warn, zapcore.WarnLevel
	if queries {
		level, zapLevel = logger.Info, zapcore.InfoLevel
	}
	writer, err := zap.NewStdLogAt(zl.Named("gorm"), zapLevel)
	if err != nil {
		writer = zap.NewStdLog(zl.Named("gorm"))
	}
	return logger.New(writer, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open creates a GORM connection for the configured SQL driver
func Open(cfg config.DatabaseConfig, zl *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(zl, cfg.LogQueries),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.TablePrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate creates the user, credential, session and Casbin policy tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repositories.DBUser{},
		&repositories.DBUserAuth{},
		&repositories.DBSession{},
	); err != nil {
		return fmt.Errorf("failed to migrate auth tables: %w", err)
	}

	// The adapter creates casbin_rule on construction
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLHealthcheck returns a ping probe for the health endpoint
func SQLHealthcheck(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
