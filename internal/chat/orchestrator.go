// Package chat coordinates the session store, AI gateway, and fallback
// responder to answer user turns and expose consolidated chat state.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/avanolabs/tradepanel/internal/assistant"
	"github.com/avanolabs/tradepanel/internal/types"
	"github.com/avanolabs/tradepanel/pkg/llm"
)

// advisoryError is the soft, user-visible note set when the remote model
// failed and the local fallback answered instead.
const advisoryError = "AI service unavailable, using fallback response."

// Gateway is the slice of the assistant gateway the orchestrator needs.
type Gateway interface {
	Generate(ctx context.Context, req llm.Request) assistant.Reply
	GenerateStreaming(ctx context.Context, req llm.Request, onChunk func(string)) assistant.Reply
}

// Responder produces the local fallback reply for a user message.
type Responder interface {
	Respond(userMessage string) string
}

// Orchestrator drives one conversation turn at a time:
// Idle -> Sending -> {Answered, FallbackAnswered}. A turn appends exactly
// one assistant message, from the gateway or from the fallback responder.
type Orchestrator struct {
	store    types.SessionStore
	gateway  Gateway
	fallback Responder

	// One send in flight at a time. A second SendMessage while one is
	// pending is rejected rather than interleaved.
	sending *semaphore.Weighted

	mu        sync.RWMutex
	visible   []types.Message
	isLoading bool
	lastError string
}

// New creates an Orchestrator over the given collaborators and initializes
// its view from the store's current session, if any.
func New(store types.SessionStore, gateway Gateway, fallback Responder) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		gateway:  gateway,
		fallback: fallback,
		sending:  semaphore.NewWeighted(1),
	}
	if current, ok := store.GetCurrentSession(); ok {
		o.visible = current.Messages
	}
	return o
}

// SendMessage answers one user turn. The user message is persisted before
// the remote call, so a crash mid-call never loses the user's input. On
// gateway failure the fallback responder answers and an advisory error is
// surfaced; the conversation continues either way.
func (o *Orchestrator) SendMessage(ctx context.Context, content, imageURL string) error {
	if !o.sending.TryAcquire(1) {
		return fmt.Errorf("a message is already in flight")
	}
	defer o.sending.Release(1)
	return o.sendMessage(ctx, content, imageURL, nil)
}

// SendMessageStreaming is SendMessage with assistant text increments
// delivered through onChunk as they arrive. The persisted assistant message
// holds the concatenated final text.
func (o *Orchestrator) SendMessageStreaming(ctx context.Context, content, imageURL string, onChunk func(string)) error {
	if !o.sending.TryAcquire(1) {
		return fmt.Errorf("a message is already in flight")
	}
	defer o.sending.Release(1)
	return o.sendMessage(ctx, content, imageURL, onChunk)
}

func (o *Orchestrator) sendMessage(ctx context.Context, content, imageURL string, onChunk func(string)) error {
	session, ok := o.store.GetCurrentSession()
	if !ok {
		var err error
		session, err = o.store.CreateSession("")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}

	userMsg := types.Message{
		ID:        types.NewMessageID(),
		Content:   content,
		Role:      types.RoleUser,
		Timestamp: time.Now(),
		ImageURL:  imageURL,
	}
	if !o.store.AddMessage(session.ID, userMsg) {
		return fmt.Errorf("session %s gone before send", session.ID)
	}

	o.mu.Lock()
	o.visible = append(o.visible, userMsg)
	o.isLoading = true
	o.lastError = ""
	o.mu.Unlock()

	req := llm.Request{Content: content, ImageURL: imageURL}
	var reply assistant.Reply
	if onChunk != nil {
		reply = o.gateway.GenerateStreaming(ctx, req, onChunk)
	} else {
		reply = o.gateway.Generate(ctx, req)
	}

	assistantMsg := types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleAssistant,
		Timestamp: time.Now(),
	}
	var advisory string
	if reply.Err == nil {
		assistantMsg.Content = reply.Content
	} else {
		assistantMsg.Content = o.fallback.Respond(content)
		advisory = advisoryError
	}

	o.store.AddMessage(session.ID, assistantMsg)

	o.mu.Lock()
	o.visible = append(o.visible, assistantMsg)
	o.isLoading = false
	o.lastError = advisory
	o.mu.Unlock()
	return nil
}

// ClearMessages hides the visible transcript and clears the error flag.
// The underlying session and its persisted messages are untouched.
func (o *Orchestrator) ClearMessages() {
	o.mu.Lock()
	o.visible = nil
	o.lastError = ""
	o.mu.Unlock()
}

// CreateNewSession starts a fresh session and makes it the active one.
func (o *Orchestrator) CreateNewSession() (*types.ConversationSession, error) {
	session, err := o.store.CreateSession("")
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.visible = nil
	o.lastError = ""
	o.mu.Unlock()
	return session, nil
}

// SwitchToSession makes the given session active and mirrors its messages
// into the visible transcript. Returns false if the ID is unknown.
func (o *Orchestrator) SwitchToSession(id types.SessionID) bool {
	session, ok := o.store.GetSession(id)
	if !ok {
		return false
	}
	o.store.SetCurrentSession(id)

	o.mu.Lock()
	o.visible = session.Messages
	o.lastError = ""
	o.mu.Unlock()
	return true
}

// DeleteSession removes the session and refreshes the view. Returns false
// if the ID is unknown.
func (o *Orchestrator) DeleteSession(id types.SessionID) bool {
	if !o.store.DeleteSession(id) {
		return false
	}
	o.refreshView()
	return true
}

// UpdateSessionTitle renames a session. Returns false if the ID is unknown.
func (o *Orchestrator) UpdateSessionTitle(id types.SessionID, title string) bool {
	if !o.store.UpdateSession(id, types.SessionPatch{Title: &title}) {
		return false
	}
	o.refreshView()
	return true
}

// SearchSessions filters sessions by title or message content.
func (o *Orchestrator) SearchSessions(query string) []*types.ConversationSession {
	return o.store.SearchSessions(query)
}

// RefreshSessions recomputes the derived view from the store.
func (o *Orchestrator) RefreshSessions() {
	o.refreshView()
}

func (o *Orchestrator) refreshView() {
	var visible []types.Message
	if current, ok := o.store.GetCurrentSession(); ok {
		visible = current.Messages
	}
	o.mu.Lock()
	o.visible = visible
	o.mu.Unlock()
}

// State returns the consolidated chat view: the visible transcript, the
// in-flight flag, the advisory error, the active session, and all sessions
// newest-first.
func (o *Orchestrator) State() types.ChatState {
	o.mu.RLock()
	messages := make([]types.Message, len(o.visible))
	copy(messages, o.visible)
	st := types.ChatState{
		Messages:  messages,
		IsLoading: o.isLoading,
		Error:     o.lastError,
	}
	o.mu.RUnlock()

	if current, ok := o.store.GetCurrentSession(); ok {
		st.CurrentSession = current
	}
	st.Sessions = o.store.ListSessions()
	return st
}
