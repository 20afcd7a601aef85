package syncer

import (
	"context"
	"fmt"
	"time"

	"multasync/internal/constants"
	"multasync/internal/metrics"
	"multasync/internal/models"
	"multasync/internal/privacy"
	"multasync/internal/tracing"
	"multasync/pkg/circuitbreaker"
	"multasync/pkg/multas"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Queue is the slice of the offline queue the engine needs.
type Queue interface {
	ListCitations(ctx context.Context) []models.PendingCitation
	RemoveCitation(ctx context.Context, localID string)
}

// Oracle reports current connectivity.
type Oracle interface {
	IsOnline(ctx context.Context) bool
}

// Engine drains the pending-citation queue against the municipal API.
// Citations are submitted strictly one at a time: parallel uploads of
// embedded photo payloads would hammer a constrained backend, and a
// single in-flight submission keeps the submit-then-delete step free of
// interleaving without any extra locking.
type Engine struct {
	queue         Queue
	api           multas.Client
	oracle        Oracle
	breaker       *circuitbreaker.CircuitBreaker
	logger        *logrus.Logger
	submitTimeout time.Duration
}

func New(queue Queue, api multas.Client, oracle Oracle, breaker *circuitbreaker.CircuitBreaker, submitTimeoutSec int, logger *logrus.Logger) *Engine {
	if submitTimeoutSec <= 0 {
		submitTimeoutSec = constants.DefaultSubmitTimeoutSec
	}
	return &Engine{
		queue:         queue,
		api:           api,
		oracle:        oracle,
		breaker:       breaker,
		logger:        logger,
		submitTimeout: time.Duration(submitTimeoutSec) * time.Second,
	}
}

// SynchronizePendingCitations runs one drain pass. Each citation is
// submitted independently; one failure never aborts the batch, and a
// failed item simply stays queued for the next pass. A citation leaves
// the queue only after the server has acknowledged that submission.
func (e *Engine) SynchronizePendingCitations(ctx context.Context) models.BatchSyncResult {
	start := time.Now()

	pending := e.queue.ListCitations(ctx)
	if len(pending) == 0 {
		return models.BatchSyncResult{
			OverallSuccess: true,
			Message:        "no pending citations to synchronize",
			Outcomes:       []models.SyncOutcome{},
		}
	}

	if !e.oracle.IsOnline(ctx) {
		e.logger.WithFields(logrus.Fields{
			"component": "syncer",
			"pending":   len(pending),
		}).Warn("Device is offline, synchronization postponed")
		return models.BatchSyncResult{
			OverallSuccess: false,
			Message:        "device is offline, synchronization postponed",
			Outcomes:       []models.SyncOutcome{},
		}
	}

	batchCtx, batchSpan := tracing.StartSpan(ctx, "citation_queue_drain",
		attribute.Int("queue.pending", len(pending)),
	)
	defer batchSpan.End()

	outcomes := make([]models.SyncOutcome, 0, len(pending))
	succeeded := 0

	for _, citation := range pending {
		outcome := e.submitOne(batchCtx, citation)
		if outcome.Success {
			succeeded++
		}
		outcomes = append(outcomes, outcome)
	}

	failed := len(pending) - succeeded

	metrics.RecordTimer("sync_batch_duration", time.Since(start), nil)
	metrics.SetGauge("citation_queue_depth", float64(len(e.queue.ListCitations(ctx))), nil)

	result := models.BatchSyncResult{
		OverallSuccess: failed == 0,
		Message:        batchMessage(succeeded, failed),
		Synced:         succeeded,
		Failed:         failed,
		Outcomes:       outcomes,
	}

	tracing.AddSpanAttributes(batchCtx,
		attribute.Int("queue.synced", succeeded),
		attribute.Int("queue.failed", failed),
	)
	if failed > 0 {
		tracing.SetSpanStatus(batchCtx, codes.Error, result.Message)
	}

	e.logger.WithFields(logrus.Fields{
		"component":   "syncer",
		"synced":      succeeded,
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Synchronization pass completed")

	return result
}

func (e *Engine) submitOne(ctx context.Context, citation models.PendingCitation) models.SyncOutcome {
	itemCtx, span := tracing.StartSpan(ctx, "citation_submit",
		attribute.String("citation.folio", citation.Folio),
	)
	defer span.End()

	submitCtx, cancel := context.WithTimeout(itemCtx, e.submitTimeout)
	defer cancel()

	payload := buildPayload(citation)

	var resp *multas.CreateCitationResponse
	err := e.breaker.Execute(submitCtx, func(callCtx context.Context) error {
		r, callErr := e.api.CreateCitation(callCtx, payload)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})

	if err != nil {
		tracing.RecordError(itemCtx, err)
		metrics.IncrementCounter("sync_citations_total", map[string]string{"result": "failure"})
		e.logger.WithFields(logrus.Fields{
			"component": "syncer",
			"folio":     citation.Folio,
			"plate":     privacy.MaskPlate(citation.Plate),
		}).WithError(err).Warn("Citation submission failed, keeping it queued")
		return models.SyncOutcome{
			Success:      false,
			Plate:        citation.Plate,
			Folio:        citation.Folio,
			ErrorMessage: err.Error(),
		}
	}

	if !resp.Success {
		tracing.SetSpanStatus(itemCtx, codes.Error, resp.Error)
		metrics.IncrementCounter("sync_citations_total", map[string]string{"result": "failure"})
		e.logger.WithFields(logrus.Fields{
			"component": "syncer",
			"folio":     citation.Folio,
			"plate":     privacy.MaskPlate(citation.Plate),
			"error":     resp.Error,
		}).Warn("Server rejected citation, keeping it queued")
		return models.SyncOutcome{
			Success:      false,
			Plate:        citation.Plate,
			Folio:        citation.Folio,
			ErrorMessage: resp.Error,
		}
	}

	// Commit point: the server accepted this submission, so the local
	// copy goes away. A crash before this line means a resubmission on
	// the next pass; the server deduplicates by folio.
	folio := citation.Folio
	if resp.Multa != nil && resp.Multa.Folio != "" {
		folio = resp.Multa.Folio
	}
	e.queue.RemoveCitation(ctx, citation.LocalID)

	metrics.IncrementCounter("sync_citations_total", map[string]string{"result": "success"})
	e.logger.WithFields(logrus.Fields{
		"component": "syncer",
		"folio":     folio,
		"local_id":  citation.LocalID,
		"plate":     privacy.MaskPlate(citation.Plate),
	}).Info("Citation synchronized")

	return models.SyncOutcome{
		Success: true,
		Plate:   citation.Plate,
		Folio:   folio,
	}
}

// buildPayload re-projects a queued citation into the wire shape. The
// locally assigned folio travels with the payload so resubmissions stay
// idempotent on the server side.
func buildPayload(citation models.PendingCitation) *multas.CreateCitationRequest {
	photos := citation.Photos
	if photos == nil {
		photos = []string{}
	}
	return &multas.CreateCitationRequest{
		Folio:             citation.Folio,
		Plate:             citation.Plate,
		Infraction:        citation.Infraction,
		BaseAmount:        citation.BaseAmount,
		FinalAmount:       citation.FinalAmount,
		Description:       citation.Description,
		Address:           citation.Address,
		Latitude:          citation.Latitude,
		Longitude:         citation.Longitude,
		OfficerID:         citation.OfficerID,
		OfficerSignature:  citation.OfficerSignature,
		OffenderSignature: citation.OffenderSignature,
		Photos:            photos,
	}
}

func batchMessage(succeeded, failed int) string {
	total := succeeded + failed
	switch {
	case failed == 0:
		return fmt.Sprintf("synchronized %d pending citation(s)", succeeded)
	case succeeded == 0:
		return fmt.Sprintf("failed to synchronize %d pending citation(s)", total)
	default:
		return fmt.Sprintf("synchronized %d of %d pending citations, %d failed", succeeded, total, failed)
	}
}
