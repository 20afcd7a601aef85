package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"multasync/internal/capture"
	apperrors "multasync/internal/errors"
	"multasync/internal/metrics"
	"multasync/internal/middleware"
	"multasync/internal/models"
	"multasync/internal/privacy"
	"multasync/internal/queue"
	"multasync/internal/syncer"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the local diagnostics/control surface the device UI shell
// drives. It never leaves the device; the municipal API is only ever
// reached through the capture flow and the sync engine.
type Server struct {
	router *mux.Router
	logger *logrus.Logger
	cfg    *models.Config
	queue  *queue.Service
	engine *syncer.Engine
	flow   *capture.Flow
	oracle syncer.Oracle
	server *http.Server
}

func NewServer(cfg *models.Config, q *queue.Service, engine *syncer.Engine, flow *capture.Flow, oracle syncer.Oracle, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		cfg:    cfg,
		queue:  q,
		engine: engine,
		flow:   flow,
		oracle: oracle,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.handleCatalog()).Methods(http.MethodGet)

	api.HandleFunc("/citations", s.handleSubmitCitation()).Methods(http.MethodPost)
	api.HandleFunc("/citations/queue", s.handleQueueCitation()).Methods(http.MethodPost)
	api.HandleFunc("/tow-requests", s.handleSubmitTowRequest()).Methods(http.MethodPost)
	api.HandleFunc("/tow-requests/queue", s.handleQueueTowRequest()).Methods(http.MethodPost)

	api.HandleFunc("/queue/citations", s.handleListCitations()).Methods(http.MethodGet)
	api.HandleFunc("/queue/citations/{localId}", s.handleDeleteCitation()).Methods(http.MethodDelete)
	api.HandleFunc("/queue/tow-requests", s.handleListTowRequests()).Methods(http.MethodGet)
	api.HandleFunc("/sync", s.handleSync()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.WithField("port", s.cfg.Server.Port).Info("Starting diagnostics server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Warn("Failed to write health response")
		}
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, metrics.GetRegistry().Export())
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"online":           s.oracle.IsOnline(ctx),
			"pendingCitations": s.queue.CountCitations(ctx),
			"towRequestsToday": len(s.queue.ListTowRequestsToday(ctx)),
		})
	}
}

func (s *Server) handleCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, capture.DefaultCatalog())
	}
}

func (s *Server) handleSubmitCitation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft models.CitationDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid citation draft").
				WithUserMessage("Malformed citation payload"))
			return
		}

		result, err := s.flow.SubmitCitation(r.Context(), draft)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleQueueCitation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft models.CitationDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid citation draft").
				WithUserMessage("Malformed citation payload"))
			return
		}

		record, err := s.flow.QueueCitationOffline(r.Context(), draft)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"localId": record.LocalID,
			"folio":   record.Folio,
			"status":  record.Status,
		})
	}
}

func (s *Server) handleSubmitTowRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft models.TowDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid tow request draft").
				WithUserMessage("Malformed tow request payload"))
			return
		}

		result, err := s.flow.SubmitTowRequest(r.Context(), draft)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleQueueTowRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft models.TowDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid tow request draft").
				WithUserMessage("Malformed tow request payload"))
			return
		}

		record, err := s.flow.QueueTowRequestOffline(r.Context(), draft)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"localId": record.LocalID,
		})
	}
}

// queuedCitationView is the diagnostics projection of a queued
// citation. Plates are masked and evidence blobs stay out entirely.
type queuedCitationView struct {
	LocalID    string    `json:"localId"`
	Folio      string    `json:"folio"`
	Plate      string    `json:"placa"`
	Infraction string    `json:"infraccion"`
	Amount     float64   `json:"montoFinal"`
	PhotoCount int       `json:"fotos"`
	NoPhotos   bool      `json:"sinFotos"`
	SavedAt    time.Time `json:"savedAt"`
}

func (s *Server) handleListCitations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		citations := s.queue.ListCitations(r.Context())

		views := make([]queuedCitationView, 0, len(citations))
		for _, c := range citations {
			views = append(views, queuedCitationView{
				LocalID:    c.LocalID,
				Folio:      c.Folio,
				Plate:      privacy.MaskPlate(c.Plate),
				Infraction: c.Infraction,
				Amount:     c.FinalAmount,
				PhotoCount: len(c.Photos),
				NoPhotos:   c.NoPhotos,
				SavedAt:    c.SavedAt,
			})
		}
		s.writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) handleDeleteCitation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		localID := mux.Vars(r)["localId"]

		if s.queue.GetCitationByLocalID(r.Context(), localID) == nil {
			s.writeError(w, apperrors.NewNotFoundError("citation", localID))
			return
		}

		s.queue.RemoveCitation(r.Context(), localID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListTowRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var requests []models.PendingTowRequest
		if r.URL.Query().Get("today") == "1" {
			requests = s.queue.ListTowRequestsToday(r.Context())
		} else {
			requests = s.queue.ListTowRequests(r.Context())
		}
		if requests == nil {
			requests = []models.PendingTowRequest{}
		}
		s.writeJSON(w, http.StatusOK, requests)
	}
}

func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.engine.SynchronizePendingCitations(r.Context())
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	s.writeJSON(w, status, map[string]interface{}{
		"error": apperrors.GetUserMessage(err),
		"code":  apperrors.GetCode(err),
	})
}
