package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haasonsaas/strand/internal/agent"
	"github.com/haasonsaas/strand/internal/observability"
)

const maxBodySize = 1 << 20

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Stream    bool   `json:"stream,omitempty"`
}

type toolCallPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

type chatResponse struct {
	SessionID  string            `json:"session_id"`
	Response   string            `json:"response"`
	ToolCalls  []toolCallPayload `json:"tool_calls,omitempty"`
	Iterations int               `json:"iterations"`
}

// errorResponse is the JSON error body. Code repeats the HTTP status
// numerically; Kind names the failure for clients that branch on it.
type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: status, Kind: kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeChatRequest parses and validates the shared chat body.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (*chatRequest, *agent.Session, bool) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return nil, nil, false
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "message must not be empty")
		return nil, nil, false
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		return nil, nil, false
	}
	return &req, sess, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	req, sess, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	if req.Stream {
		s.streamChat(w, r, sess, req.Message)
		return
	}

	ctx := observability.WithSessionID(r.Context(), sess.ID().String())
	resp, err := s.agent.Process(ctx, sess, req.Message)
	if err != nil {
		s.logger.Error(ctx, "chat failed", "error", err)
		s.metrics.CountError("server", errCode(err))
		s.writeError(w, http.StatusInternalServerError, errCode(err), err.Error())
		return
	}

	out := chatResponse{
		SessionID:  sess.ID().String(),
		Response:   resp.Text,
		Iterations: resp.Iterations,
	}
	for _, call := range resp.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, toolCallPayload{
			ID:      call.ID,
			Name:    call.Name,
			Output:  call.Output,
			IsError: call.IsError,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	req, sess, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}
	s.streamChat(w, r, sess, req.Message)
}

// streamChat relays agent events as server-sent events, one data line
// per event, flushed immediately. The run is cancelled when the client
// disconnects.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, sess *agent.Session, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	ctx := observability.WithSessionID(r.Context(), sess.ID().String())
	events, err := s.agent.ProcessStream(ctx, sess, message)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errCode(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		if ev.IsEnd() {
			break
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"sessions": s.SessionCount(),
	})
}

// errCode maps an agent error to a stable wire code.
func errCode(err error) string {
	if kind, ok := agent.KindOf(err); ok {
		return string(kind)
	}
	return "internal"
}
