package session

import (
	"context"
	"encoding/json"

	"multasync/internal/constants"
	apperrors "multasync/internal/errors"
	"multasync/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the record store the session layer needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	RemoveMany(ctx context.Context, keys ...string) error
}

// Manager persists the logged-in officer session. The session key is
// outside the offline core: it is consumed as an opaque blob.
type Manager struct {
	store  Store
	logger *logrus.Logger
}

func NewManager(store Store, logger *logrus.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

func (m *Manager) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewStorageError("serialize", err)
	}
	return m.store.Set(ctx, constants.StorageKeySession, payload)
}

// Current returns the stored session, or nil when nobody is logged in.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	payload, err := m.store.Get(ctx, constants.StorageKeySession)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		m.logger.WithField("component", "session").WithError(err).Warn("Corrupt session record, treating as logged out")
		return nil, nil
	}
	return &session, nil
}

func (m *Manager) Clear(ctx context.Context) error {
	return m.store.RemoveMany(ctx, constants.StorageKeySession)
}
