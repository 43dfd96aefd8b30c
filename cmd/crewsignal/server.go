package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crewsignal/internal/constants"
	apperrors "crewsignal/internal/errors"
	"crewsignal/internal/metrics"
	"crewsignal/internal/middleware"
	"crewsignal/internal/models"
	"crewsignal/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router   *mux.Router
	logger   *logrus.Logger
	signals  *service.SignalService
	events   *service.EventHub
	registry *metrics.Registry
	cfg      models.ServerConfig
	server   *http.Server
}

func NewServer(cfg models.ServerConfig, signals *service.SignalService, events *service.EventHub, registry *metrics.Registry, logger *logrus.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		signals:  signals,
		events:   events,
		registry: registry,
		cfg:      cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.registry, s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/location", s.withAuth(s.handleUpdateLocation)).Methods(http.MethodPost)
	api.HandleFunc("/signals", s.withAuth(s.handleCreateSignal)).Methods(http.MethodPost)
	// Registered before /signals/{id} so the literal path wins.
	api.HandleFunc("/signals/stream", s.withAuth(s.handleStream)).Methods(http.MethodGet)
	api.HandleFunc("/signals/{id}", s.withAuth(s.handleGetSignal)).Methods(http.MethodGet)
	api.HandleFunc("/signals/{id}/cancel", s.withAuth(s.handleCancelSignal)).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := s.cfg.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	readTimeout := s.cfg.ReadTimeoutSec
	if readTimeout <= 0 {
		readTimeout = constants.DefaultServerReadTimeoutSec
	}
	writeTimeout := s.cfg.WriteTimeoutSec
	if writeTimeout <= 0 {
		writeTimeout = constants.DefaultServerWriteTimeoutSec
	}
	idleTimeout := s.cfg.IdleTimeoutSec
	if idleTimeout <= 0 {
		idleTimeout = constants.DefaultServerIdleTimeoutSec
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request, userID string) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.New(apperrors.KindInvalidArgument, "invalid request body"))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.writeError(w, r, apperrors.New(apperrors.KindInvalidArgument, "latitude and longitude are required"))
		return
	}

	if err := s.signals.UpdateLocation(r.Context(), userID, *req.Latitude, *req.Longitude); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateSignal(w http.ResponseWriter, r *http.Request, userID string) {
	var req service.CreateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.New(apperrors.KindInvalidArgument, "invalid request body"))
		return
	}

	signal, err := s.signals.CreateSignal(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, signal)
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request, userID string) {
	id := mux.Vars(r)["id"]

	signal, err := s.signals.GetSignal(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, signal)
}

func (s *Server) handleCancelSignal(w http.ResponseWriter, r *http.Request, userID string) {
	id := mux.Vars(r)["id"]

	if err := s.signals.CancelSignal(r.Context(), id, userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.GetKind(err)

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	} else {
		s.logger.WithError(err).WithField("path", r.URL.Path).Debug("Request rejected")
	}

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	s.writeJSON(w, status, errorResponse{Error: errorBody{Kind: string(kind), Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
