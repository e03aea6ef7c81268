// internal/state/store.go
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avanolabs/tradepanel/internal/types"
)

const (
	sessionsFile   = "sessions.json"
	titleWordLimit = 8
	titleMaxRunes  = 50
)

// SessionStore is a JSON-file-backed conversation store. The whole
// collection is serialized to sessions.json on every mutation; concurrent
// writers on the same file race read-modify-write and the last writer wins.
// The current-session pointer is process-local and is not persisted.
type SessionStore struct {
	root    string
	mu      sync.RWMutex
	current types.SessionID
}

// NewSessionStore creates a file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string) *SessionStore {
	return &SessionStore{root: root}
}

func (s *SessionStore) path() string {
	return filepath.Join(s.root, sessionsFile)
}

// load reads the whole collection, newest first. A missing or unreadable
// file is treated as an empty store, logged, never an error.
func (s *SessionStore) load() []*types.ConversationSession {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("session store unreadable, treating as empty", "path", s.path(), "error", err)
		}
		return nil
	}

	var sessions []*types.ConversationSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		slog.Warn("session store corrupt, treating as empty", "path", s.path(), "error", err)
		return nil
	}
	return sessions
}

// save writes the whole collection atomically (temp file then rename).
func (s *SessionStore) save(sessions []*types.ConversationSession) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp sessions: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp sessions: %w", err)
	}
	return nil
}

// ListSessions returns all sessions, newest-created first.
func (s *SessionStore) ListSessions() []*types.ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// RecentSessions returns at most limit sessions from the head of the store.
func (s *SessionStore) RecentSessions(limit int) []*types.ConversationSession {
	sessions := s.ListSessions()
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// GetSession returns the session with the given ID, if present.
func (s *SessionStore) GetSession(id types.SessionID) (*types.ConversationSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.load() {
		if sess.ID == id {
			return sess, true
		}
	}
	return nil, false
}

// CreateSession inserts a new empty session at the head of the store and
// makes it the current session. An empty title defaults to a timestamped one.
func (s *SessionStore) CreateSession(title string) (*types.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if title == "" {
		title = "Chat " + now.Format("2006-01-02 15:04:05")
	}
	session := &types.ConversationSession{
		ID:        types.NewSessionID(),
		Title:     title,
		Messages:  []types.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	sessions := append([]*types.ConversationSession{session}, s.load()...)
	if err := s.save(sessions); err != nil {
		return nil, err
	}

	s.current = session.ID
	return session, nil
}

// UpdateSession merges the patch into the session and refreshes UpdatedAt.
// Returns false with no side effect if the ID is absent.
func (s *SessionStore) UpdateSession(id types.SessionID, patch types.SessionPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	for _, sess := range sessions {
		if sess.ID != id {
			continue
		}
		if patch.Title != nil {
			sess.Title = *patch.Title
		}
		if patch.Messages != nil {
			sess.Messages = *patch.Messages
		}
		sess.UpdatedAt = time.Now()
		if err := s.save(sessions); err != nil {
			slog.Error("persist session update failed", "session_id", id, "error", err)
			return false
		}
		return true
	}
	return false
}

// AddMessage appends the message to the session and refreshes UpdatedAt.
// The first user message titles a still-untitled session.
func (s *SessionStore) AddMessage(id types.SessionID, msg types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	for _, sess := range sessions {
		if sess.ID != id {
			continue
		}
		sess.Messages = append(sess.Messages, msg)
		sess.UpdatedAt = time.Now()
		if sess.Title == "" && msg.Role == types.RoleUser {
			sess.Title = DeriveTitle(msg.Content)
		}
		if err := s.save(sessions); err != nil {
			slog.Error("persist message failed", "session_id", id, "error", err)
			return false
		}
		return true
	}
	return false
}

// DeleteSession removes the session. If it was the current session, the
// current-session pointer is cleared. Returns false if the ID was absent.
func (s *SessionStore) DeleteSession(id types.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.load()
	filtered := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			filtered = append(filtered, sess)
		}
	}
	if len(filtered) == len(sessions) {
		return false
	}

	if err := s.save(filtered); err != nil {
		slog.Error("persist session delete failed", "session_id", id, "error", err)
		return false
	}

	if s.current == id {
		s.current = ""
	}
	return true
}

// ClearAll removes the persisted collection and clears the current pointer.
func (s *SessionStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sessions file: %w", err)
	}
	s.current = ""
	return nil
}

// SetCurrentSession points the store at the given session ID. An empty ID
// clears the pointer. The ID is not validated; a dangling pointer simply
// yields absent on lookup.
func (s *SessionStore) SetCurrentSession(id types.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// GetCurrentSession returns the session the pointer references, if any.
func (s *SessionStore) GetCurrentSession() (*types.ConversationSession, bool) {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()

	if id == "" {
		return nil, false
	}
	return s.GetSession(id)
}

// SearchSessions returns sessions whose title or any message content
// contains the query, case-insensitively, preserving store order.
func (s *SessionStore) SearchSessions(query string) []*types.ConversationSession {
	q := strings.ToLower(query)

	var out []*types.ConversationSession
	for _, sess := range s.ListSessions() {
		if sessionMatches(sess, q) {
			out = append(out, sess)
		}
	}
	return out
}

func sessionMatches(sess *types.ConversationSession, q string) bool {
	if strings.Contains(strings.ToLower(sess.Title), q) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), q) {
			return true
		}
	}
	return false
}

// DeriveTitle builds a session title from the first user message: the first
// eight whitespace-delimited words, truncated to 50 characters with an
// ellipsis if longer.
func DeriveTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > titleWordLimit {
		words = words[:titleWordLimit]
	}
	title := strings.Join(words, " ")
	if runes := []rune(title); len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes-3]) + "..."
	}
	return title
}
