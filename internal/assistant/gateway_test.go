// internal/assistant/gateway_test.go
package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/avanolabs/tradepanel/pkg/llm"
)

// fakeProvider records the config it was created with and returns a fixed
// response or error.
type fakeProvider struct {
	content string
	err     error
}

func (f *fakeProvider) Generate(_ context.Context, system string, _ llm.Request) (string, error) {
	if system == "" {
		return "", fmt.Errorf("missing system prompt")
	}
	return f.content, f.err
}

func (f *fakeProvider) Stream(ctx context.Context, system string, req llm.Request, onChunk func(string)) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if onChunk != nil {
		onChunk(f.content)
	}
	return f.content, nil
}

func TestGatewayGenerate(t *testing.T) {
	g := New("gemini", llm.Config{APIKey: "k", Model: "m"})
	g.SetFactory(func(cfg *llm.Config) llm.Provider {
		return &fakeProvider{content: "a confident answer"}
	})

	reply := g.Generate(context.Background(), llm.Request{Content: "should I long?"})
	if reply.Err != nil {
		t.Fatal(reply.Err)
	}
	if reply.Content != "a confident answer" {
		t.Errorf("unexpected content %q", reply.Content)
	}
}

func TestGatewayGenerateFailureContract(t *testing.T) {
	g := New("gemini", llm.Config{APIKey: "k", Model: "m"})
	g.SetFactory(func(cfg *llm.Config) llm.Provider {
		return &fakeProvider{err: fmt.Errorf("connection refused")}
	})

	reply := g.Generate(context.Background(), llm.Request{Content: "hello"})
	if reply.Err == nil {
		t.Fatal("expected Err to be populated")
	}
	if reply.Content != apology {
		t.Errorf("expected apology content, got %q", reply.Content)
	}
}

func TestGatewayStreaming(t *testing.T) {
	g := New("openai", llm.Config{APIKey: "k", Model: "m"})
	g.SetFactory(func(cfg *llm.Config) llm.Provider {
		return &fakeProvider{content: "streamed"}
	})

	var chunks []string
	reply := g.GenerateStreaming(context.Background(), llm.Request{Content: "hi"}, func(c string) {
		chunks = append(chunks, c)
	})
	if reply.Err != nil {
		t.Fatal(reply.Err)
	}
	if reply.Content != "streamed" || len(chunks) != 1 {
		t.Errorf("unexpected streaming result %q %v", reply.Content, chunks)
	}
}

func TestGatewayKeyResolution(t *testing.T) {
	t.Run("configured key wins", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")
		g := New("gemini", llm.Config{APIKey: "config-key"})
		g.SetKeyOverride("override-key")
		if got := g.resolveKey(); got != "config-key" {
			t.Errorf("expected config-key, got %q", got)
		}
	})

	t.Run("environment next", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")
		g := New("gemini", llm.Config{})
		g.SetKeyOverride("override-key")
		if got := g.resolveKey(); got != "env-key" {
			t.Errorf("expected env-key, got %q", got)
		}
	})

	t.Run("google key honored for gemini", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "google-key")
		g := New("gemini", llm.Config{})
		if got := g.resolveKey(); got != "google-key" {
			t.Errorf("expected google-key, got %q", got)
		}
	})

	t.Run("override last", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")
		g := New("gemini", llm.Config{})
		g.SetKeyOverride("override-key")
		if got := g.resolveKey(); got != "override-key" {
			t.Errorf("expected override-key, got %q", got)
		}
	})

	t.Run("empty passes through", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_API_KEY", "")
		g := New("gemini", llm.Config{})
		if got := g.resolveKey(); got != "" {
			t.Errorf("expected empty key, got %q", got)
		}
	})
}

func TestGatewayPassesResolvedKeyToProvider(t *testing.T) {
	g := New("gemini", llm.Config{APIKey: "config-key", Model: "m"})

	var seenKey string
	g.SetFactory(func(cfg *llm.Config) llm.Provider {
		seenKey = cfg.APIKey
		return &fakeProvider{content: "ok"}
	})

	g.Generate(context.Background(), llm.Request{Content: "hi"})
	if seenKey != "config-key" {
		t.Errorf("expected provider to receive config-key, got %q", seenKey)
	}
}
