// internal/types/models.go
package types

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message. Messages are immutable once created and
// owned by the session that contains them.
type Message struct {
	ID        MessageID `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"image_url,omitempty"`
}

// ConversationSession is one titled conversation thread. Messages are in
// chronological append order and are never reordered.
type ConversationSession struct {
	ID        SessionID `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionPatch carries the fields Update may change. Nil fields are left
// untouched.
type SessionPatch struct {
	Title    *string
	Messages *[]Message
}

// ChatState is the orchestrator's consolidated view. It is recomputed on
// every state transition and never persisted.
type ChatState struct {
	Messages       []Message              `json:"messages"`
	IsLoading      bool                   `json:"is_loading"`
	Error          string                 `json:"error,omitempty"`
	CurrentSession *ConversationSession   `json:"current_session,omitempty"`
	Sessions       []*ConversationSession `json:"sessions"`
}

// TradeAction is the direction of a suggested trade.
type TradeAction string

const (
	ActionLong  TradeAction = "long"
	ActionShort TradeAction = "short"
)

// Suggestion is a structured trading directive extracted from assistant
// text. It is ephemeral and never persisted.
type Suggestion struct {
	Action     TradeAction `json:"action"`
	Collateral *float64    `json:"collateral,omitempty"`
	Leverage   *float64    `json:"leverage,omitempty"`
	TakeProfit *float64    `json:"takeProfit,omitempty"`
	StopLoss   *float64    `json:"stopLoss,omitempty"`
}

// TradeSnapshot is a best-effort scrape of the page's trade-entry form.
// Any field may be empty if the corresponding page element was not found.
type TradeSnapshot struct {
	CurrentPrice string `json:"currentPrice,omitempty"`
	Collateral   string `json:"collateral,omitempty"`
	Leverage     string `json:"leverage,omitempty"`
	PositionSize string `json:"positionSize,omitempty"`
	TradeSide    string `json:"tradeSide,omitempty"`
}
