package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data       map[string]string
	setNXError error
	lastTTL    time.Duration
	deleted    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "fl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "notification-worker", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 24*time.Hour, store.lastTTL)
	assert.Contains(t, store.data, "fl:idempotency:evt:processed:notification-worker:"+eventID.String())

	already, err = manager.CheckAndMarkProcessed(context.Background(), "notification-worker", eventID)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCheckAndMarkProcessedErrors(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "", uuid.New())
	assert.Error(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil)
	assert.Error(t, err)

	store.setNXError = errors.New("redis down")
	_, err = manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.New())
	assert.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)

	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)
}

func TestGuardReleasesMarkOnFailure(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	boom := errors.New("smtp unavailable")
	err = manager.Guard(context.Background(), "worker", eventID, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.data)

	calls := 0
	handler := func(context.Context) error {
		calls++
		return nil
	}
	require.NoError(t, manager.Guard(context.Background(), "worker", eventID, handler))
	err = manager.Guard(context.Background(), "worker", eventID, handler)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, calls)
}
