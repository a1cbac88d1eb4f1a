// Package status serves a small local diagnostics endpoint. It is off by
// default: a deployed monitor keeps its radio down between upload passes,
// so this is for bench setups running on mains power.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/radmon/internal/device"
	"codeberg.org/mutker/radmon/internal/logger"
	"codeberg.org/mutker/radmon/internal/logstore"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// Source provides the loop state to report.
type Source interface {
	Snapshot() device.Snapshot
}

type Server struct {
	src Source
	srv *http.Server
}

func New(addr string, src Source) *Server {
	s := &Server{src: src}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: handlers.RecoveryHandler()(r),
	}

	return s
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background; listen failures are logged, not fatal,
// since the endpoint is purely diagnostic.
func (s *Server) Start() {
	go func() {
		logger.Info().Str("addr", s.srv.Addr).Msg("status endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("status endpoint failed")
		}
	}()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("status endpoint shutdown failed")
	}
}

type statusResponse struct {
	SampledAt  string  `json:"sampled_at,omitempty"`
	Counts     uint64  `json:"counts"`
	Rate       float64 `json:"rate"`
	Dose       float64 `json:"dose"`
	CaseTemp   float64 `json:"case_temp"`
	CPUTemp    float64 `json:"cpu_temp"`
	Pending    int     `json:"pending"`
	LastUpload string  `json:"last_upload,omitempty"`
	LastAlert  string  `json:"last_alert,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.src.Snapshot()

	resp := statusResponse{
		Counts:   snap.Latest.Counts,
		Rate:     snap.Latest.Rate,
		Dose:     snap.Latest.Dose,
		CaseTemp: snap.Latest.CaseTemp,
		CPUTemp:  snap.Latest.CPUTemp,
		Pending:  snap.Pending,
	}
	if !snap.LastSample.IsZero() {
		resp.SampledAt = snap.LastSample.Format(logstore.TimeLayout)
	}
	if !snap.LastPass.IsZero() {
		resp.LastUpload = snap.LastPass.Format(logstore.TimeLayout)
	}
	if !snap.LastAlert.IsZero() {
		resp.LastAlert = snap.LastAlert.Format(logstore.TimeLayout)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn().Err(err).Msg("failed to encode status response")
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
