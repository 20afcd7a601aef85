package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "multasync/internal/errors"
	"multasync/internal/models"
	"multasync/pkg/multas"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	citationErr  error
	citationResp *multas.CreateCitationResponse
	citationReq  *multas.CreateCitationRequest

	towErr  error
	towResp *multas.CreateTowRequestResponse

	citationCalls int
	towCalls      int
}

func (f *fakeAPI) CreateCitation(ctx context.Context, req *multas.CreateCitationRequest) (*multas.CreateCitationResponse, error) {
	f.citationCalls++
	f.citationReq = req
	if f.citationErr != nil {
		return nil, f.citationErr
	}
	return f.citationResp, nil
}

func (f *fakeAPI) GetCitationByFolio(ctx context.Context, folio string) (*multas.CitationRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) CreateTowRequest(ctx context.Context, req *multas.CreateTowRequestRequest) (*multas.CreateTowRequestResponse, error) {
	f.towCalls++
	if f.towErr != nil {
		return nil, f.towErr
	}
	return f.towResp, nil
}

func (f *fakeAPI) Ping(ctx context.Context) error { return nil }

type fakeQueue struct {
	citations   []models.CitationDraft
	towRequests []models.TowDraft
	enqueueErr  error
}

func (f *fakeQueue) EnqueueCitation(ctx context.Context, draft models.CitationDraft) (*models.PendingCitation, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.citations = append(f.citations, draft)
	return models.NewPendingCitation(draft, "officer-42", time.Now()), nil
}

func (f *fakeQueue) EnqueueTowRequest(ctx context.Context, draft models.TowDraft) (*models.PendingTowRequest, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.towRequests = append(f.towRequests, draft)
	return models.NewPendingTowRequest(draft, "officer-42", time.Now()), nil
}

type fakeOracle struct{ online bool }

func (f fakeOracle) IsOnline(ctx context.Context) bool { return f.online }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestFlow(api multas.Client, q Queue, online bool) *Flow {
	return NewFlow(api, q, fakeOracle{online: online}, &models.Session{OfficerID: "officer-42"}, 1, testLogger())
}

func validDraft() models.CitationDraft {
	return models.CitationDraft{
		Plate: "abc123",
		Infractions: []models.InfractionItem{
			{Concept: "Exceso de velocidad", Amount: 1200},
			{Concept: "Uso de celular al conducir", Amount: 800},
		},
	}
}

func TestSubmitCitationValidationNeverTouchesNetwork(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(api, &fakeQueue{}, true)

	tests := []struct {
		name  string
		draft models.CitationDraft
		field string
	}{
		{"missing plate", models.CitationDraft{
			Infractions: []models.InfractionItem{{Concept: "x", Amount: 1}},
		}, "placa"},
		{"blank plate", models.CitationDraft{
			Plate:       "   ",
			Infractions: []models.InfractionItem{{Concept: "x", Amount: 1}},
		}, "placa"},
		{"no infractions", models.CitationDraft{Plate: "ABC123"}, "infracciones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.SubmitCitation(context.Background(), tt.draft)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
		})
	}

	assert.Zero(t, api.citationCalls)
}

func TestSubmitCitationOfflineSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(api, &fakeQueue{}, false)

	result, err := flow.SubmitCitation(context.Background(), validDraft())
	require.NoError(t, err)

	assert.True(t, result.OfferOffline)
	assert.False(t, result.Accepted)
	assert.Equal(t, 2000.0, result.Total)
	assert.Zero(t, api.citationCalls)
}

func TestSubmitCitationSuccess(t *testing.T) {
	api := &fakeAPI{citationResp: &multas.CreateCitationResponse{
		Success: true,
		Multa:   &multas.CitationRecord{ID: 7, Folio: "MUL-SRV1"},
	}}
	flow := newTestFlow(api, &fakeQueue{}, true)

	result, err := flow.SubmitCitation(context.Background(), validDraft())
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "MUL-SRV1", result.Folio)
	assert.Equal(t, 2000.0, result.Total)
	assert.False(t, result.OfferOffline)

	require.NotNil(t, api.citationReq)
	assert.Equal(t, "ABC123", api.citationReq.Plate, "plate goes out normalized")
	assert.Equal(t, "officer-42", api.citationReq.OfficerID)
	assert.Equal(t, 2000.0, api.citationReq.FinalAmount)
}

func TestSubmitCitationTransportFailureOffersOfflineQueue(t *testing.T) {
	api := &fakeAPI{citationErr: errors.New("connection refused")}
	q := &fakeQueue{}
	flow := newTestFlow(api, q, true)

	result, err := flow.SubmitCitation(context.Background(), validDraft())
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.True(t, result.OfferOffline)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.FailureMessage, "connection refused")
	assert.Empty(t, q.citations, "queuing is an explicit operator decision")
}

func TestSubmitCitationTimeoutIsFlagged(t *testing.T) {
	api := &fakeAPI{citationErr: context.DeadlineExceeded}
	flow := newTestFlow(api, &fakeQueue{}, true)

	result, err := flow.SubmitCitation(context.Background(), validDraft())
	require.NoError(t, err)

	assert.True(t, result.OfferOffline)
	assert.True(t, result.TimedOut)
}

func TestSubmitCitationServerRejectionIsNotQueueable(t *testing.T) {
	api := &fakeAPI{citationResp: &multas.CreateCitationResponse{
		Success: false,
		Error:   "placa inválida",
	}}
	flow := newTestFlow(api, &fakeQueue{}, true)

	result, err := flow.SubmitCitation(context.Background(), validDraft())
	require.Error(t, err)

	assert.Nil(t, result)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCitationAPI))
	assert.Equal(t, "placa inválida", apperrors.GetUserMessage(err))
}

func TestQueueCitationOffline(t *testing.T) {
	q := &fakeQueue{}
	flow := newTestFlow(&fakeAPI{}, q, false)

	record, err := flow.QueueCitationOffline(context.Background(), validDraft())
	require.NoError(t, err)

	assert.NotEmpty(t, record.Folio)
	assert.Len(t, q.citations, 1)
}

func TestQueueCitationOfflineStillValidates(t *testing.T) {
	q := &fakeQueue{}
	flow := newTestFlow(&fakeAPI{}, q, false)

	_, err := flow.QueueCitationOffline(context.Background(), models.CitationDraft{Plate: "ABC123"})
	require.Error(t, err)
	assert.Empty(t, q.citations)
}

func TestSubmitTowRequestSuccessRecordsLocally(t *testing.T) {
	api := &fakeAPI{towResp: &multas.CreateTowRequestResponse{Success: true, ID: 3}}
	q := &fakeQueue{}
	flow := newTestFlow(api, q, true)

	result, err := flow.SubmitTowRequest(context.Background(), models.TowDraft{
		Plate:  "abc123",
		Reason: "Vehículo abandonado",
	})
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	require.Len(t, q.towRequests, 1)
}

func TestSubmitTowRequestLocalRecordFailureDoesNotUndoAcceptance(t *testing.T) {
	api := &fakeAPI{towResp: &multas.CreateTowRequestResponse{Success: true}}
	q := &fakeQueue{enqueueErr: errors.New("disk gone")}
	flow := newTestFlow(api, q, true)

	result, err := flow.SubmitTowRequest(context.Background(), models.TowDraft{
		Plate:  "ABC123",
		Reason: "Vehículo abandonado",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestSubmitTowRequestValidation(t *testing.T) {
	api := &fakeAPI{}
	flow := newTestFlow(api, &fakeQueue{}, true)

	_, err := flow.SubmitTowRequest(context.Background(), models.TowDraft{Plate: "ABC123"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	assert.Zero(t, api.towCalls)
}

func TestSubmitTowRequestTransportFailureOffersOfflineRecord(t *testing.T) {
	api := &fakeAPI{towErr: errors.New("connection refused")}
	flow := newTestFlow(api, &fakeQueue{}, true)

	result, err := flow.SubmitTowRequest(context.Background(), models.TowDraft{
		Plate:  "ABC123",
		Reason: "Obstrucción de vialidad",
	})
	require.NoError(t, err)
	assert.True(t, result.OfferOffline)
}

func TestSubmitCitationCapsPhotosOnTheWire(t *testing.T) {
	api := &fakeAPI{citationResp: &multas.CreateCitationResponse{Success: true}}
	flow := newTestFlow(api, &fakeQueue{}, true)

	draft := validDraft()
	draft.Photos = []string{"p1", "p2", "p3", "p4"}

	_, err := flow.SubmitCitation(context.Background(), draft)
	require.NoError(t, err)
	require.NotNil(t, api.citationReq)
	assert.Len(t, api.citationReq.Photos, 3)
}
