// Package telemetry exposes the running engine over HTTP and fans cycle
// records out to websocket clients and Redis.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

// History serves recently journaled cycles.
type History interface {
	RecentCycles(ctx context.Context, limit int) ([]*types.StepResult, error)
}

type Server struct {
	eng     interfaces.Engine
	pub     interfaces.Publisher
	hub     *Hub
	history History
}

// NewServer wires the status API. pub receives the records of cycles run
// through POST /api/run; hub and history may be nil.
func NewServer(eng interfaces.Engine, pub interfaces.Publisher, hub *Hub, history History) *Server {
	return &Server{eng: eng, pub: pub, hub: hub, history: history}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/api/status").HandlerFunc(s.statusHandler)
	router.Methods("POST").Path("/api/run").HandlerFunc(s.runHandler)
	router.Methods("POST").Path("/api/reset").HandlerFunc(s.resetHandler)
	router.Methods("GET").Path("/api/history").HandlerFunc(s.historyHandler)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	if s.hub != nil {
		router.Methods("GET").Path("/ws").HandlerFunc(s.hub.ServeWS)
	}
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Result *types.StepResult `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Snapshot())
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.eng.Step(ctx)
	if res != nil && s.pub != nil {
		_ = s.pub.Publish(ctx, res)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Result: res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Reset(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrCycleInFlight) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.eng.Snapshot())
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "journal not configured"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, 1000)
	}
	cycles, err := s.history.RecentCycles(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if cycles == nil {
		cycles = []*types.StepResult{}
	}
	writeJSON(w, http.StatusOK, cycles)
}
