// internal/types/ids.go
package types

import (
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

type SessionID string
type MessageID string

// NewSessionID returns a collision-resistant session ID built from the
// creation timestamp plus a random suffix, so IDs sort roughly by age.
func NewSessionID() SessionID {
	return SessionID(fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), shortuuid.New()))
}

// NewMessageID returns a message ID built the same way as session IDs.
func NewMessageID() MessageID {
	return MessageID(fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), shortuuid.New()))
}
