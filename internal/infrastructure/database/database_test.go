package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/config"
	"github.com/dadecresce/maestro-energy-management-sub000/internal/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), config.RedisConfig{
		URL:            "redis://" + mr.Addr() + "/0",
		RetryAttempts:  1,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, RedisHealthcheck(client)(context.Background()))

	mr.Close()
	assert.ErrorIs(t, RedisHealthcheck(client)(context.Background()), ErrHealthcheckFailed)
}

func TestConnectRedis_InvalidURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), config.RedisConfig{
		URL:            "not-a-url",
		RetryAttempts:  1,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, ErrFailedToParseRedisURL)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), config.RedisConfig{
		URL:            "redis://" + addr + "/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, ErrRedisNotReady)
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:migrate_test?mode=memory&cache=shared",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"users", "user_auths", "user_sessions", "casbin_rule"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.NoError(t, SQLHealthcheck(db)(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: config.DriverMongo}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestOpen_LogsThroughZapWithoutLookupMisses(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	db, err := Open(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		DSN:        "file:gorm_logger_test?mode=memory&cache=shared",
		LogQueries: true,
	}, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, db.AutoMigrate(&repositories.DBUser{}))

	var user repositories.DBUser
	err = db.Where("email = ?", "ghost@x.io").First(&user).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.NotZero(t, logs.Filter(func(e observer.LoggedEntry) bool { return e.LoggerName == "gorm" }).Len(), "queries are traced through zap")
	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())
}
