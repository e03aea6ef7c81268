// internal/httpapi/server.go
// Package httpapi serves a local inspection API alongside the native
// messaging host, for driving the chat core with curl while the panel
// is not attached.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avanolabs/tradepanel/internal/chat"
	"github.com/avanolabs/tradepanel/internal/suggest"
	"github.com/avanolabs/tradepanel/internal/types"
)

// Server is a lightweight HTTP handler over the chat core.
type Server struct {
	orch  *chat.Orchestrator
	store types.SessionStore
	mux   *http.ServeMux
}

func NewServer(orch *chat.Orchestrator, store types.SessionStore) *Server {
	s := &Server{
		orch:  orch,
		store: store,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/sessions/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/sessions/", s.handleSessionMessages)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
	Current      bool   `json:"current,omitempty"`
}

func (s *Server) summarize(sessions []*types.ConversationSession) []sessionSummary {
	var currentID types.SessionID
	if current, ok := s.store.GetCurrentSession(); ok {
		currentID = current.ID
	}
	result := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionSummary{
			ID:           string(sess.ID),
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
			UpdatedAt:    sess.UpdatedAt.Format(time.RFC3339),
			MessageCount: len(sess.Messages),
			Current:      sess.ID == currentID,
		})
	}
	return result
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.summarize(s.store.ListSessions()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, `{"error":"q is required"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.summarize(s.store.SearchSessions(q)))
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	// Path: /api/sessions/{id}/messages
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[1] != "messages" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	sess, ok := s.store.GetSession(types.SessionID(parts[0]))
	if !ok {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}
	messages := sess.Messages
	if messages == nil {
		messages = []types.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type chatResponse struct {
	Reply       string             `json:"reply"`
	Suggestions []types.Suggestion `json:"suggestions,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content is required"}`, http.StatusBadRequest)
		return
	}

	if err := s.orch.SendMessage(r.Context(), req.Content, req.ImageURL); err != nil {
		slog.Error("chat send failed", "error", err)
		http.Error(w, `{"error":"a message is already in flight"}`, http.StatusConflict)
		return
	}

	state := s.orch.State()
	resp := chatResponse{Error: state.Error}
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == types.RoleAssistant {
			resp.Reply = state.Messages[i].Content
			resp.Suggestions = suggest.Extract(resp.Reply)
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
