package capture

import (
	"context"
	"errors"
	"net"
	"time"

	"multasync/internal/constants"
	apperrors "multasync/internal/errors"
	"multasync/internal/models"
	"multasync/internal/privacy"
	"multasync/pkg/multas"

	"github.com/sirupsen/logrus"
)

// Queue is the slice of the offline queue the capture flow needs.
type Queue interface {
	EnqueueCitation(ctx context.Context, draft models.CitationDraft) (*models.PendingCitation, error)
	EnqueueTowRequest(ctx context.Context, draft models.TowDraft) (*models.PendingTowRequest, error)
}

// Oracle reports current connectivity.
type Oracle interface {
	IsOnline(ctx context.Context) bool
}

// SubmitResult tells the UI shell what happened to a direct submission.
// When the server could not be reached, OfferOffline is set and the
// operator decides whether to queue the citation locally; queuing is
// never automatic.
type SubmitResult struct {
	Accepted       bool    `json:"accepted"`
	Folio          string  `json:"folio,omitempty"`
	Total          float64 `json:"total"`
	OfferOffline   bool    `json:"offerOffline"`
	TimedOut       bool    `json:"timedOut"`
	FailureMessage string  `json:"failureMessage,omitempty"`
}

// Flow holds the capture decision logic: validate, compute the total,
// try a direct submit, and fall back to the offline queue on failure.
// The session is injected explicitly; there is no ambient current-user
// state.
type Flow struct {
	api           multas.Client
	queue         Queue
	oracle        Oracle
	session       *models.Session
	logger        *logrus.Logger
	submitTimeout time.Duration
}

func NewFlow(api multas.Client, queue Queue, oracle Oracle, session *models.Session, submitTimeoutSec int, logger *logrus.Logger) *Flow {
	if submitTimeoutSec <= 0 {
		submitTimeoutSec = constants.DefaultSubmitTimeoutSec
	}
	return &Flow{
		api:           api,
		queue:         queue,
		oracle:        oracle,
		session:       session,
		logger:        logger,
		submitTimeout: time.Duration(submitTimeoutSec) * time.Second,
	}
}

// SubmitCitation validates the draft and attempts a direct submission.
// Validation failures return an error and never touch the network. A
// network failure or timeout returns a result with OfferOffline set; a
// reachable server rejecting the citation returns its error instead,
// since queuing a rejected citation would only fail again later.
func (f *Flow) SubmitCitation(ctx context.Context, draft models.CitationDraft) (*SubmitResult, error) {
	if err := validateCitation(draft); err != nil {
		return nil, err
	}

	total := draft.TotalAmount()

	if !f.oracle.IsOnline(ctx) {
		f.logger.WithFields(logrus.Fields{
			"component": "capture",
			"plate":     privacy.MaskPlate(draft.Plate),
		}).Info("Device offline, skipping direct submission")
		return &SubmitResult{
			Total:          total,
			OfferOffline:   true,
			FailureMessage: "device is offline",
		}, nil
	}

	submitCtx, cancel := context.WithTimeout(ctx, f.submitTimeout)
	defer cancel()

	resp, err := f.api.CreateCitation(submitCtx, f.buildRequest(draft, total))
	if err != nil {
		timedOut := isTimeout(err)
		f.logger.WithFields(logrus.Fields{
			"component": "capture",
			"plate":     privacy.MaskPlate(draft.Plate),
			"timed_out": timedOut,
		}).WithError(err).Warn("Direct citation submission failed, offering offline queue")

		return &SubmitResult{
			Total:          total,
			OfferOffline:   true,
			TimedOut:       timedOut,
			FailureMessage: err.Error(),
		}, nil
	}

	if !resp.Success {
		return nil, apperrors.New(apperrors.ErrCodeCitationAPI, "server rejected citation").
			WithContext("server_error", resp.Error).
			WithUserMessage(resp.Error)
	}

	folio := ""
	if resp.Multa != nil {
		folio = resp.Multa.Folio
	}

	f.logger.WithFields(logrus.Fields{
		"component": "capture",
		"folio":     folio,
		"plate":     privacy.MaskPlate(draft.Plate),
	}).Info("Citation submitted directly")

	return &SubmitResult{Accepted: true, Folio: folio, Total: total}, nil
}

// QueueCitationOffline commits the operator's decision to keep the
// citation on the device until the next synchronization pass.
func (f *Flow) QueueCitationOffline(ctx context.Context, draft models.CitationDraft) (*models.PendingCitation, error) {
	if err := validateCitation(draft); err != nil {
		return nil, err
	}
	return f.queue.EnqueueCitation(ctx, draft)
}

// SubmitTowRequest submits a tow request directly. On acceptance the
// request is also recorded locally to feed the same-day list; local
// recording is best-effort and never undoes an accepted submission.
func (f *Flow) SubmitTowRequest(ctx context.Context, draft models.TowDraft) (*SubmitResult, error) {
	if err := validateTowRequest(draft); err != nil {
		return nil, err
	}

	if !f.oracle.IsOnline(ctx) {
		f.logger.WithFields(logrus.Fields{
			"component": "capture",
			"plate":     privacy.MaskPlate(draft.Plate),
		}).Info("Device offline, skipping direct tow submission")
		return &SubmitResult{
			OfferOffline:   true,
			FailureMessage: "device is offline",
		}, nil
	}

	submitCtx, cancel := context.WithTimeout(ctx, f.submitTimeout)
	defer cancel()

	resp, err := f.api.CreateTowRequest(submitCtx, &multas.CreateTowRequestRequest{
		Plate:       models.NormalizePlate(draft.Plate),
		VehicleType: draft.VehicleType,
		Reason:      draft.Reason,
		Address:     draft.Address,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		OfficerID:   f.session.OfficerID,
	})
	if err != nil {
		timedOut := isTimeout(err)
		f.logger.WithFields(logrus.Fields{
			"component": "capture",
			"plate":     privacy.MaskPlate(draft.Plate),
			"timed_out": timedOut,
		}).WithError(err).Warn("Tow request submission failed, offering offline record")

		return &SubmitResult{
			OfferOffline:   true,
			TimedOut:       timedOut,
			FailureMessage: err.Error(),
		}, nil
	}

	if !resp.Success {
		return nil, apperrors.New(apperrors.ErrCodeTowAPI, "server rejected tow request").
			WithContext("server_error", resp.Error).
			WithUserMessage(resp.Error)
	}

	if _, err := f.queue.EnqueueTowRequest(ctx, draft); err != nil {
		f.logger.WithField("component", "capture").WithError(err).
			Warn("Tow request accepted by server but local record failed")
	}

	return &SubmitResult{Accepted: true}, nil
}

// QueueTowRequestOffline records a tow request locally after a failed
// direct submission.
func (f *Flow) QueueTowRequestOffline(ctx context.Context, draft models.TowDraft) (*models.PendingTowRequest, error) {
	if err := validateTowRequest(draft); err != nil {
		return nil, err
	}
	return f.queue.EnqueueTowRequest(ctx, draft)
}

func (f *Flow) buildRequest(draft models.CitationDraft, total float64) *multas.CreateCitationRequest {
	photos := draft.Photos
	if len(photos) > constants.MaxCitationPhotos {
		photos = photos[:constants.MaxCitationPhotos]
	}
	return &multas.CreateCitationRequest{
		Plate:             models.NormalizePlate(draft.Plate),
		Infraction:        draft.InfractionSummary(),
		BaseAmount:        total,
		FinalAmount:       total,
		Description:       draft.Description,
		Address:           draft.Address,
		Latitude:          draft.Latitude,
		Longitude:         draft.Longitude,
		OfficerID:         f.session.OfficerID,
		OfficerSignature:  draft.OfficerSignature,
		OffenderSignature: draft.OffenderSignature,
		Photos:            photos,
	}
}

func validateCitation(draft models.CitationDraft) error {
	if models.NormalizePlate(draft.Plate) == "" {
		return apperrors.NewValidationError("placa", "license plate is required")
	}
	if len(draft.Infractions) == 0 {
		return apperrors.NewValidationError("infracciones", "at least one infraction must be selected")
	}
	return nil
}

func validateTowRequest(draft models.TowDraft) error {
	if models.NormalizePlate(draft.Plate) == "" {
		return apperrors.NewValidationError("placa", "license plate is required")
	}
	if draft.Reason == "" {
		return apperrors.NewValidationError("motivo", "a tow reason is required")
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
