package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/config"
)

type scratchRow struct {
	ID    int
	Label string
}

func openScratchDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&scratchRow{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func countScratchRows(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&scratchRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOnNil(t *testing.T) {
	conn := openScratchDB(t)
	client := NewFromConn(conn)

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&scratchRow{Label: "kept"}).Error
	}))
	assert.EqualValues(t, 1, countScratchRows(t, conn))
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	conn := openScratchDB(t)
	client := NewFromConn(conn)
	ctx := context.Background()

	boom := errors.New("state write failed")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&scratchRow{Label: "discarded"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countScratchRows(t, conn))

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&scratchRow{Label: "discarded"}).Error)
			panic("handler bug")
		})
	})
	assert.Zero(t, countScratchRows(t, conn))
}

func TestWithTxHonoursCancelledContext(t *testing.T) {
	client := NewFromConn(openScratchDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestNewOpensSQLiteWithPoolSettings(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:             "file:dbclient_new?mode=memory&cache=shared",
		Driver:          config.DBDriverSQLite,
		MaxOpenConns:    4,
		ConnMaxIdleTime: time.Minute,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "sqlite", client.DB().Dialector.Name())
	require.NoError(t, client.Ping(context.Background()))

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
}

func TestPingFailsAfterClose(t *testing.T) {
	client := NewFromConn(openScratchDB(t))
	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, nil)
	assert.Error(t, err)
}
