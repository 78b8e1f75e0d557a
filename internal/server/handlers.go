package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/task"
)

// Task kinds. One current run per kind; starting a new run supersedes the
// previous one.
const (
	TaskKindSimulation   = "simulation"
	TaskKindOptimization = "optimization"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "montecarlo-engine",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleSimulationRun launches a simulation as a background task and returns
// the task handle immediately.
func (s *Server) handleSimulationRun(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	// Validate up front so malformed requests fail with a 400 instead of a
	// failed task.
	validated, err := req.Validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := s.tasks.Start(TaskKindSimulation, func(ctx context.Context, cb task.Callback) (any, error) {
		return s.sim.Run(ctx, validated, cb)
	})

	s.writeJSON(w, http.StatusAccepted, t.Snapshot())
}

// handleOptimizationRun launches an optimization as a background task.
func (s *Server) handleOptimizationRun(w http.ResponseWriter, r *http.Request) {
	var req domain.OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	validated, err := req.Validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t := s.tasks.Start(TaskKindOptimization, func(ctx context.Context, cb task.Callback) (any, error) {
		return s.opt.Run(ctx, validated, cb)
	})

	s.writeJSON(w, http.StatusAccepted, t.Snapshot())
}

// handleTaskGet returns the current snapshot of a task, including its result
// once done.
func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, ok := s.tasks.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	s.writeJSON(w, http.StatusOK, t.Snapshot())
}

// handleTaskCancel requests cooperative cancellation of a running task.
func (s *Server) handleTaskCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !s.tasks.Cancel(id) {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	t, _ := s.tasks.Get(id)
	s.writeJSON(w, http.StatusOK, t.Snapshot())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
