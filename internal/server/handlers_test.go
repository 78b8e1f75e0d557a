package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinren1128/montecarlo-engine/internal/domain"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/optimization"
	"github.com/kevinren1128/montecarlo-engine/internal/engine/simulation"
	"github.com/kevinren1128/montecarlo-engine/internal/task"
	"github.com/kevinren1128/montecarlo-engine/pkg/logger"
)

func testServer() *Server {
	log := logger.New(logger.Config{Level: "error", Pretty: false})
	sim := simulation.NewService(log, 2)
	return New(Config{
		Port:    0,
		Log:     log,
		Sim:     sim,
		Opt:     optimization.NewService(log, sim, 2),
		Tasks:   task.NewManager(log),
		DevMode: true,
	})
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func simulationBody() domain.SimulationRequest {
	return domain.SimulationRequest{
		Positions: []domain.Position{
			{Ticker: "SPY", Quantity: 100, Price: 10, Moments: &domain.Moments{Mu: 0.08, Sigma: 0.20, TailDf: 30}},
			{Ticker: "AGG", Quantity: 100, Price: 10, Moments: &domain.Moments{Mu: 0.05, Sigma: 0.15, TailDf: 30}},
		},
		Correlation: domain.CorrelationMatrix{{1, 0.3}, {0.3, 1}},
		Config:      domain.SimulationConfig{NumPaths: 1000, Seed: 42},
	}
}

// pollTask polls the task endpoint until the task leaves the running state.
func pollTask(t *testing.T, s *Server, id string) task.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(s, http.MethodGet, "/api/tasks/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var snap task.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		if snap.Status != task.StatusRunning {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never finished")
	return task.Snapshot{}
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(testServer(), http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestSimulationRunEndToEnd(t *testing.T) {
	s := testServer()

	rec := doRequest(s, http.MethodPost, "/api/simulation/run", simulationBody())
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted task.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.ID)
	assert.Equal(t, TaskKindSimulation, accepted.Kind)

	snap := pollTask(t, s, accepted.ID)
	require.Equal(t, task.StatusDone, snap.Status)

	// The result round-trips as a SimulationResult.
	data, err := json.Marshal(snap.Result)
	require.NoError(t, err)
	var result domain.SimulationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Terminal.HasData)
	assert.Equal(t, 1000, result.NumPaths)
}

func TestSimulationRunRejectsMalformedJSON(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/api/simulation/run", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestSimulationRunRejectsInvalidRequest(t *testing.T) {
	s := testServer()

	body := simulationBody()
	body.Positions = nil
	rec := doRequest(s, http.MethodPost, "/api/simulation/run", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizationRunEndToEnd(t *testing.T) {
	s := testServer()

	body := domain.OptimizationRequest{
		Positions:   simulationBody().Positions,
		Correlation: domain.CorrelationMatrix{{1, 0.3}, {0.3, 1}},
		Config: domain.OptimizationConfig{
			TopSwaps:   2,
			Simulation: domain.SimulationConfig{NumPaths: 1000, Seed: 42},
		},
	}

	rec := doRequest(s, http.MethodPost, "/api/optimization/run", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted task.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, TaskKindOptimization, accepted.Kind)

	snap := pollTask(t, s, accepted.ID)
	require.Equal(t, task.StatusDone, snap.Status)

	data, err := json.Marshal(snap.Result)
	require.NoError(t, err)
	var result domain.OptimizationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Positions, 2)
	assert.Len(t, result.TopSwaps, 2)
}

func TestTaskNotFound(t *testing.T) {
	s := testServer()

	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/api/tasks/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodPost, "/api/tasks/nope/cancel", nil).Code)
}

func TestTaskCancelEndpoint(t *testing.T) {
	s := testServer()

	body := simulationBody()
	body.Config.NumPaths = 500_000 // long enough to still be running

	rec := doRequest(s, http.MethodPost, "/api/simulation/run", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted task.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	cancelRec := doRequest(s, http.MethodPost, fmt.Sprintf("/api/tasks/%s/cancel", accepted.ID), nil)
	assert.Equal(t, http.StatusOK, cancelRec.Code)

	snap := pollTask(t, s, accepted.ID)
	assert.Contains(t, []task.Status{task.StatusCancelled, task.StatusDone}, snap.Status)
}

func TestSystemStatusEndpoint(t *testing.T) {
	rec := doRequest(testServer(), http.MethodGet, "/api/system/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Contains(t, body, "goroutines")
	assert.Contains(t, body, "memory")
}

func TestNewSimulationSupersedesOld(t *testing.T) {
	s := testServer()

	body := simulationBody()
	body.Config.NumPaths = 500_000
	first := doRequest(s, http.MethodPost, "/api/simulation/run", body)
	require.Equal(t, http.StatusAccepted, first.Code)
	var firstSnap task.Snapshot
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstSnap))

	body.Config.NumPaths = 1000
	second := doRequest(s, http.MethodPost, "/api/simulation/run", body)
	require.Equal(t, http.StatusAccepted, second.Code)
	var secondSnap task.Snapshot
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondSnap))

	done := pollTask(t, s, secondSnap.ID)
	assert.Equal(t, task.StatusDone, done.Status)

	old := pollTask(t, s, firstSnap.ID)
	assert.Equal(t, task.StatusSuperseded, old.Status)
	assert.Nil(t, old.Result)
}
