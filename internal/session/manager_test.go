package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"multasync/internal/constants"
	"multasync/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data   map[string][]byte
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	payload, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return payload, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, payload []byte) error {
	f.data[key] = payload
	return nil
}

func (f *fakeStore) RemoveMany(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSaveAndCurrent(t *testing.T) {
	manager := NewManager(newFakeStore(), testLogger())
	ctx := context.Background()

	original := &models.Session{
		OfficerID:   "agente-12345",
		OfficerName: "Juan Pérez",
		Role:        "agente",
		Token:       "jwt-token",
		LoggedInAt:  time.Now().Truncate(time.Second),
	}
	require.NoError(t, manager.Save(ctx, original))

	current, err := manager.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, original.OfficerID, current.OfficerID)
	assert.Equal(t, original.Token, current.Token)
}

func TestCurrentWhenLoggedOut(t *testing.T) {
	manager := NewManager(newFakeStore(), testLogger())

	current, err := manager.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestCurrentWithCorruptRecord(t *testing.T) {
	store := newFakeStore()
	store.data[constants.StorageKeySession] = []byte("{broken")

	manager := NewManager(store, testLogger())

	current, err := manager.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current, "corrupt session reads as logged out")
}

func TestCurrentPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("read failed")

	manager := NewManager(store, testLogger())

	_, err := manager.Current(context.Background())
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(store, testLogger())
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, &models.Session{OfficerID: "agente-1"}))
	require.NoError(t, manager.Clear(ctx))

	current, err := manager.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
