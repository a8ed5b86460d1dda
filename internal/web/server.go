// Package web exposes the conversation core over HTTP so the add-in shell
// can talk to a resident process instead of spawning one per turn. The wire
// contract is the same event-in, reply-out exchange as the CLI path.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/MannPATIRA/pascal-ai/internal/agent"
	"github.com/MannPATIRA/pascal-ai/internal/protocol"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

// maxEventBodySize bounds inbound payloads; events are short text.
const maxEventBodySize = 64 << 10

// Server provides the HTTP handlers and their dependencies.
type Server struct {
	agent *agent.Agent
	store *session.Store
}

// NewServer creates a new event API server.
func NewServer(a *agent.Agent, store *session.Store) *Server {
	return &Server{agent: a, store: store}
}

// Routes returns the router for the event API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Post("/sessions/{id}/events", s.handlePostEvent)
	return r
}

type eventRequest struct {
	Event       string `json:"event"`
	UserMessage string `json:"user_message"`
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	var req eventRequest
	body := http.MaxBytesReader(w, r.Body, maxEventBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, malformedPayloadReply(err))
		return
	}
	if req.Event == "" {
		req.Event = string(protocol.EventUserMessage)
	}

	reply, err := s.agent.ProcessEvent(r.Context(), sessionID, protocol.Event(req.Event), req.UserMessage)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("process event failed")
		writeJSON(w, http.StatusInternalServerError, agentErrorReply(err))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	sess, err := s.store.Load(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	type turnView struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	view := struct {
		ID          string            `json:"session_id"`
		LastStatus  string            `json:"last_status"`
		LastActions []protocol.Action `json:"last_actions"`
		Turns       []turnView        `json:"turns"`
	}{
		ID:          sess.ID,
		LastStatus:  string(sess.LastStatus),
		LastActions: sess.LastActions,
		Turns:       make([]turnView, 0, len(sess.Turns)),
	}
	if view.LastActions == nil {
		view.LastActions = []protocol.Action{}
	}
	for _, t := range sess.Turns {
		view.Turns = append(view.Turns, turnView{Role: t.Role, Content: t.Content})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// agentErrorReply keeps the wire contract on the failure path: even a
// storage error is answered with a well-formed reply the shell can render.
func agentErrorReply(err error) protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: "Agent error: " + err.Error(),
		Questions:        []string{"Please try again, or restate your request with specific details."},
		Plan:             []string{},
		Actions:          []protocol.Action{},
	}
}

// malformedPayloadReply keeps the wire contract: even a bad request body is
// answered with a well-formed reply, never a bare error for the shell to
// special-case.
func malformedPayloadReply(err error) protocol.Reply {
	return protocol.Reply{
		Status:           protocol.StatusNeedClarification,
		AssistantMessage: "Could not parse the event payload: " + err.Error(),
		Questions:        []string{"Please resend the event as JSON with fields event and user_message."},
		Plan:             []string{},
		Actions:          []protocol.Action{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}
