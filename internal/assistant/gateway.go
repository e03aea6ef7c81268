// Package assistant wraps an LLM provider behind the trading-assistant
// persona. Failures never escape as errors: callers always get usable
// content plus an error field to check.
package assistant

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/avanolabs/tradepanel/pkg/llm"
	"github.com/avanolabs/tradepanel/pkg/llm/gemini"
	"github.com/avanolabs/tradepanel/pkg/llm/openai"
)

// apology is returned as content whenever the remote call fails, so the
// panel always has something to render. Callers must still check Err.
const apology = "I'm sorry, I'm having trouble processing your request right now. Please try again later."

// Reply is the gateway's response contract: Content is always non-empty,
// and a populated Err marks it as a failure reply.
type Reply struct {
	Content string
	Err     error
}

// envKeys maps a provider name to the environment variables consulted when
// no key is configured, in precedence order.
var envKeys = map[string][]string{
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
}

// Gateway calls the configured LLM provider with a fixed system
// instruction. The credential is resolved lazily on every call: configured
// key, then environment, then the transient in-memory override. An empty
// result is passed through so the remote call is the one that fails.
type Gateway struct {
	providerName string
	config       llm.Config
	factory      func(*llm.Config) llm.Provider

	mu       sync.RWMutex
	override string
}

// New creates a Gateway for the named provider ("gemini" or "openai").
func New(providerName string, config llm.Config) *Gateway {
	return &Gateway{
		providerName: providerName,
		config:       config,
		factory:      defaultFactory(providerName),
	}
}

func defaultFactory(providerName string) func(*llm.Config) llm.Provider {
	if providerName == "openai" {
		return func(cfg *llm.Config) llm.Provider { return openai.New(cfg) }
	}
	return func(cfg *llm.Config) llm.Provider { return gemini.New(cfg) }
}

// SetFactory replaces the provider constructor. Used by tests.
func (g *Gateway) SetFactory(fn func(*llm.Config) llm.Provider) {
	g.factory = fn
}

// SetKeyOverride sets the transient in-memory credential. It is consulted
// only when neither the configured key nor the environment yields one, and
// it does not survive a restart.
func (g *Gateway) SetKeyOverride(key string) {
	g.mu.Lock()
	g.override = key
	g.mu.Unlock()
}

func (g *Gateway) resolveKey() string {
	if g.config.APIKey != "" {
		return g.config.APIKey
	}
	for _, name := range envKeys[g.providerName] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.override
}

func (g *Gateway) newProvider() llm.Provider {
	cfg := g.config
	cfg.APIKey = g.resolveKey()
	return g.factory(&cfg)
}

// Generate answers one user turn. On any provider failure it returns the
// fixed apology as content with Err populated.
func (g *Gateway) Generate(ctx context.Context, req llm.Request) Reply {
	content, err := g.newProvider().Generate(ctx, SystemPrompt, req)
	if err != nil {
		slog.Error("assistant generate failed", "provider", g.providerName, "error", err)
		return Reply{Content: apology, Err: err}
	}
	return Reply{Content: content}
}

// GenerateStreaming is Generate with partial text delivered through
// onChunk. The returned Content is the concatenated final text; the
// failure contract is the same as Generate's.
func (g *Gateway) GenerateStreaming(ctx context.Context, req llm.Request, onChunk func(string)) Reply {
	content, err := g.newProvider().Stream(ctx, SystemPrompt, req, onChunk)
	if err != nil {
		slog.Error("assistant stream failed", "provider", g.providerName, "error", err)
		return Reply{Content: apology, Err: err}
	}
	return Reply{Content: content}
}
