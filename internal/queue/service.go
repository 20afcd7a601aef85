package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"multasync/internal/constants"
	apperrors "multasync/internal/errors"
	"multasync/internal/models"

	"github.com/sirupsen/logrus"
)

// Store is the slice of the record store the queue needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	RemoveMany(ctx context.Context, keys ...string) error
}

// Service owns the append/list/remove lifecycle of queued citations and
// tow requests. Every write replaces a whole collection, so all
// mutations are serialized through one mutex; two interleaved
// read-modify-write cycles would silently drop records otherwise.
type Service struct {
	store   Store
	session *models.Session
	logger  *logrus.Logger

	mu  sync.Mutex
	now func() time.Time
}

func New(store Store, session *models.Session, logger *logrus.Logger) *Service {
	return &Service{
		store:   store,
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// EnqueueCitation persists a citation captured while offline. The folio
// is assigned here, once; photos are capped at three. If persistence
// fails on size, the record is retried without photos — signatures are
// never dropped.
func (s *Service) EnqueueCitation(ctx context.Context, draft models.CitationDraft) (*models.PendingCitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.loadCitations(ctx)

	if len(draft.Photos) > constants.MaxCitationPhotos {
		s.logger.WithFields(logrus.Fields{
			"component": "queue",
			"provided":  len(draft.Photos),
			"kept":      constants.MaxCitationPhotos,
		}).Warn("Photo cap applied to queued citation")
	}

	record := models.NewPendingCitation(draft, s.session.OfficerID, s.now())
	list = append(list, *record)

	if err := s.saveCitations(ctx, list); err != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "queue",
			"folio":     record.Folio,
		}).WithError(err).Warn("Failed to persist citation, retrying without photos")

		record.DropPhotos()
		list[len(list)-1] = *record

		if err := s.saveCitations(ctx, list); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to enqueue citation").
				WithContext("folio", record.Folio).
				WithUserMessage("The citation could not be saved on this device")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component":   "queue",
		"folio":       record.Folio,
		"local_id":    record.LocalID,
		"queue_depth": len(list),
		"no_photos":   record.NoPhotos,
	}).Info("Citation queued for synchronization")

	return record, nil
}

// ListCitations returns the queued citations, oldest first. Missing or
// corrupt storage yields an empty list, never an error.
func (s *Service) ListCitations(ctx context.Context) []models.PendingCitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCitations(ctx)
}

// GetCitationByLocalID returns the queued citation with the given local
// id, or nil when it is not queued.
func (s *Service) GetCitationByLocalID(ctx context.Context, localID string) *models.PendingCitation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, citation := range s.loadCitations(ctx) {
		if citation.LocalID == localID {
			c := citation
			return &c
		}
	}
	return nil
}

// RemoveCitation deletes a queued citation. Removal is best-effort and
// idempotent: persistence failures are logged, never surfaced, so a
// confirmed sync is not blocked by a local delete hiccup.
func (s *Service) RemoveCitation(ctx context.Context, localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.loadCitations(ctx)
	filtered := list[:0:0]
	for _, citation := range list {
		if citation.LocalID != localID {
			filtered = append(filtered, citation)
		}
	}

	if len(filtered) == len(list) {
		return
	}

	if err := s.saveCitations(ctx, filtered); err != nil {
		s.logger.WithFields(logrus.Fields{
			"component": "queue",
			"local_id":  localID,
		}).WithError(err).Error("Failed to persist citation removal")
	}
}

// CountCitations returns the number of queued citations.
func (s *Service) CountCitations(ctx context.Context) int {
	return len(s.ListCitations(ctx))
}

// EnqueueTowRequest stores the local copy of a tow request. There is no
// photo handling and no drop-retry; persistence failures propagate.
func (s *Service) EnqueueTowRequest(ctx context.Context, draft models.TowDraft) (*models.PendingTowRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.loadTowRequests(ctx)
	record := models.NewPendingTowRequest(draft, s.session.OfficerID, s.now())
	list = append(list, *record)

	if err := s.saveTowRequests(ctx, list); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to save tow request").
			WithContext("local_id", record.LocalID)
	}

	s.logger.WithFields(logrus.Fields{
		"component": "queue",
		"local_id":  record.LocalID,
		"count":     len(list),
	}).Info("Tow request recorded locally")

	return record, nil
}

// ListTowRequests returns all locally recorded tow requests.
func (s *Service) ListTowRequests(ctx context.Context) []models.PendingTowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTowRequests(ctx)
}

// ListTowRequestsToday filters tow requests by calendar-day equality
// against the capture timestamp, in local time.
func (s *Service) ListTowRequestsToday(ctx context.Context) []models.PendingTowRequest {
	all := s.ListTowRequests(ctx)
	today := s.now()
	ty, tm, td := today.Date()

	var result []models.PendingTowRequest
	for _, request := range all {
		y, m, d := request.RequestedAt.Local().Date()
		if y == ty && m == tm && d == td {
			result = append(result, request)
		}
	}
	return result
}

// ClearAll removes both collections unconditionally. Used by the
// logout/reset flow; best-effort.
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.RemoveMany(ctx, constants.StorageKeyCitations, constants.StorageKeyTowRequests)
	if err != nil {
		s.logger.WithField("component", "queue").WithError(err).Error("Failed to clear offline collections")
		return
	}

	s.logger.WithField("component", "queue").Info("Offline collections cleared")
}

func (s *Service) loadCitations(ctx context.Context) []models.PendingCitation {
	payload, err := s.store.Get(ctx, constants.StorageKeyCitations)
	if err != nil {
		s.logger.WithField("component", "queue").WithError(err).Warn("Failed to read citation collection")
		return []models.PendingCitation{}
	}
	if payload == nil {
		return []models.PendingCitation{}
	}

	var list []models.PendingCitation
	if err := json.Unmarshal(payload, &list); err != nil {
		s.logger.WithField("component", "queue").WithError(err).Warn("Corrupt citation collection, treating as empty")
		return []models.PendingCitation{}
	}
	return list
}

func (s *Service) saveCitations(ctx context.Context, list []models.PendingCitation) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return apperrors.NewStorageError("serialize", err)
	}
	return s.store.Set(ctx, constants.StorageKeyCitations, payload)
}

func (s *Service) loadTowRequests(ctx context.Context) []models.PendingTowRequest {
	payload, err := s.store.Get(ctx, constants.StorageKeyTowRequests)
	if err != nil {
		s.logger.WithField("component", "queue").WithError(err).Warn("Failed to read tow request collection")
		return []models.PendingTowRequest{}
	}
	if payload == nil {
		return []models.PendingTowRequest{}
	}

	var list []models.PendingTowRequest
	if err := json.Unmarshal(payload, &list); err != nil {
		s.logger.WithField("component", "queue").WithError(err).Warn("Corrupt tow request collection, treating as empty")
		return []models.PendingTowRequest{}
	}
	return list
}

func (s *Service) saveTowRequests(ctx context.Context, list []models.PendingTowRequest) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return apperrors.NewStorageError("serialize", err)
	}
	return s.store.Set(ctx, constants.StorageKeyTowRequests, payload)
}
