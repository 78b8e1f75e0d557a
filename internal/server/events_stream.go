package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleTaskEvents handles GET /api/tasks/{id}/events requests (SSE).
// It streams progress updates for one task and closes once the task
// reaches a terminal state.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, ok := s.tasks.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Get flusher for streaming
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	s.log.Info().Str("task_id", id).Msg("Client connected to task event stream")

	// The channel closes when the task finishes or is superseded.
	updates, unsubscribe := t.Subscribe()
	defer unsubscribe()

	// Create done channel to detect client disconnect
	done := r.Context().Done()

	// Send the current state first so late subscribers start from a
	// consistent snapshot.
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", s.encodeEvent(t.Snapshot()))
	flusher.Flush()

	// Heartbeat ticker to keep connection alive
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			s.log.Info().Str("task_id", id).Msg("Client disconnected from task event stream")
			return

		case progress, open := <-updates:
			if !open {
				// Terminal state. Send the final snapshot (with result or
				// error) and close the stream.
				fmt.Fprintf(w, "event: done\ndata: %s\n\n", s.encodeEvent(t.Snapshot()))
				flusher.Flush()
				return
			}

			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", s.encodeEvent(progress))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", s.encodeEvent(map[string]interface{}{
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// encodeEvent encodes an event payload to a JSON string.
func (s *Server) encodeEvent(event interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
