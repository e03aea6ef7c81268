// Package fallback provides a deterministic local responder used when the
// remote model is unavailable. Replies are canned professional-assistant
// text varied by simple keyword matching, with the user's original message
// echoed in a trailing clause.
package fallback

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Pool is the fixed set of default replies a Responder picks from.
var Pool = []string{
	"That's an interesting market question! Let me provide some trading insights.",
	"I understand your trading inquiry. Here's my analysis...",
	"Great question about the markets! Based on current trends, I can suggest...",
	"I'd be happy to help with that trading strategy. Here's my response:",
	"That's a thoughtful market inquiry. Let me provide some professional insights.",
	"I can definitely assist with that financial question. Here's what I recommend:",
	"Thanks for asking! Here's my perspective on the market situation:",
	"I'm here to help with your trading needs! Let me give you a comprehensive analysis:",
}

const (
	greetingReply = "Hello! I'm your Trader Assistant. I can help with market analysis, trading strategies, and financial insights. How can I assist you today?"
	helpReply     = "I'm here to help with your trading needs! You can ask me about market analysis, trading strategies, financial instruments, or any trading-related questions. What would you like to know?"
	thanksReply   = "You're very welcome! I'm glad I could help with your trading inquiry. Is there anything else about the markets you'd like to know?"
)

// Responder generates fallback replies. It holds its own random source so
// the pool pick is reproducible in tests.
type Responder struct {
	rng *rand.Rand
}

// New creates a Responder seeded from the current time.
func New() *Responder {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed creates a Responder with a fixed seed.
func NewWithSeed(seed int64) *Responder {
	return &Responder{rng: rand.New(rand.NewSource(seed))}
}

// Respond maps the user's message to a canned reply. Greetings, help
// requests, and thanks get fixed replies; everything else gets a random
// pool entry with an echo of the original message appended.
func (r *Responder) Respond(userMessage string) string {
	lower := strings.ToLower(userMessage)

	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return greetingReply
	case strings.Contains(lower, "help"):
		return helpReply
	case strings.Contains(lower, "thank"):
		return thanksReply
	}

	reply := Pool[r.rng.Intn(len(Pool))]
	if strings.Contains(lower, "price") || strings.Contains(lower, "market") ||
		strings.Contains(lower, "stock") || strings.Contains(lower, "crypto") {
		return reply + fmt.Sprintf(" Regarding %q, I'd be happy to provide more detailed market analysis if you'd like to elaborate on any specific aspect.", userMessage)
	}
	return reply + fmt.Sprintf(" Regarding %q, I'd be happy to provide more detailed trading insights if you'd like to elaborate on any specific aspect.", userMessage)
}
