package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/smartsource/agentloop/agent"
	"github.com/smartsource/agentloop/gateway"
)

// Handler serves the HTTP API.
type Handler struct {
	agent *agent.Agent
	gw    *gateway.Gateway
}

// NewHandler creates a handler for the given agent and gateway.
func NewHandler(a *agent.Agent, gw *gateway.Gateway) *Handler {
	return &Handler{agent: a, gw: gw}
}

type invokeRequest struct {
	ThreadID string `json:"threadId,omitempty"`
	Text     string `json:"text"`
}

type invokeResponse struct {
	ThreadID string `json:"threadId"`
	Text     string `json:"text"`
	Rounds   int    `json:"rounds"`
	Error    string `json:"error,omitempty"`
}

// Invoke runs one blocking agent turn and returns the final reply.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	log := slog.With("thread_id", req.ThreadID)
	log.Info("invoke started")

	result := h.agent.Invoke(r.Context(), req.ThreadID, req.Text)

	resp := invokeResponse{
		ThreadID: result.ThreadID,
		Text:     result.Text,
		Rounds:   result.Rounds,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
	log.Info("invoke completed",
		"thread_id", result.ThreadID,
		"rounds", result.Rounds,
		"failed", result.Err != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Stream runs one agent turn and streams reply fragments over SSE.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	log := slog.With("thread_id", req.ThreadID)
	log.Info("stream started")

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	s := h.agent.Stream(r.Context(), req.ThreadID, req.Text)
	defer s.Close()

	// Tell the client which thread the turn ran in before any fragments
	writeSSE(w, flusher, "thread", fmt.Sprintf(`{"threadId":%q}`, s.ThreadID()))

	var fragments int
	for {
		fragment, ok := s.Next()
		if !ok {
			break
		}
		fragments++
		if err := writeSSE(w, flusher, "fragment", fragment); err != nil {
			log.Warn("client disconnected", "error", err)
			return
		}
	}

	writeSSE(w, flusher, "done", "{}")
	log.Info("stream completed",
		"thread_id", s.ThreadID(),
		"fragments", fragments,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// CreateThread allocates a new conversation thread.
func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	id, err := h.agent.CreateThread(r.Context())
	if err != nil {
		slog.Error("thread creation failed", "error", err)
		http.Error(w, "Failed to create thread", http.StatusInternalServerError)
		return
	}
	slog.Info("thread created", "thread_id", id)
	writeJSON(w, http.StatusCreated, map[string]string{"threadId": id})
}

type embedRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

// Embed generates embedding vectors for the request texts.
func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Texts) == 0 {
		http.Error(w, "texts is required", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = "text-embedding-3-small"
	}

	vectors, err := h.gw.Embed(r.Context(), req.Model, req.Texts)
	if err != nil {
		slog.Warn("embedding failed", "model", req.Model, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"embeddings": vectors})
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSSE writes one SSE event and flushes it to the client.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	flusher.Flush()
	return nil
}
