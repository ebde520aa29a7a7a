package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	first, err := NewRedisLock(store, "lqa:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "lqa:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.data, "lqa:lock:cron")

	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.data, "lqa:lock:cron")

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockDoesNotDeleteForeignOwner(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	lock, err := NewRedisLock(store, "lqa:lock:cron", time.Minute)
	require.NoError(t, err)

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// TTL expired and another replica took over.
	store.data["lqa:lock:cron"] = "other-owner"
	require.ErrorIs(t, lock.Release(context.Background()), ErrLockLost)
	assert.Equal(t, "other-owner", store.data["lqa:lock:cron"])

	require.NoError(t, lock.Release(context.Background()), "second release is a no-op")
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "key", time.Minute)
	require.Error(t, err)
	_, err = NewRedisLock(&memoryStore{data: map[string]string{}}, "", time.Minute)
	require.Error(t, err)

	lock, err := NewRedisLock(&memoryStore{data: map[string]string{}}, "key", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
}
