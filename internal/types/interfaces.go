// internal/types/interfaces.go
package types

import "context"

type SessionStore interface {
	ListSessions() []*ConversationSession
	GetSession(id SessionID) (*ConversationSession, bool)
	CreateSession(title string) (*ConversationSession, error)
	UpdateSession(id SessionID, patch SessionPatch) bool
	AddMessage(id SessionID, msg Message) bool
	DeleteSession(id SessionID) bool
	SetCurrentSession(id SessionID)
	GetCurrentSession() (*ConversationSession, bool)
	SearchSessions(query string) []*ConversationSession
}

// Dispatcher sends typed commands to the hosted page's execution context.
// A missing response means the page had no listener; callers treat it as a
// no-op, not as a distinguishable error.
type Dispatcher interface {
	GetTradeData(ctx context.Context, tabID int64) (*TradeSnapshot, error)
	FillTradeForm(ctx context.Context, tabID int64, s Suggestion) error
}
