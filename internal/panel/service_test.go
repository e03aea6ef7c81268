// internal/panel/service_test.go
package panel

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/avanolabs/tradepanel/internal/assistant"
	"github.com/avanolabs/tradepanel/internal/chat"
	"github.com/avanolabs/tradepanel/internal/fallback"
	"github.com/avanolabs/tradepanel/internal/native"
	"github.com/avanolabs/tradepanel/internal/state"
	"github.com/avanolabs/tradepanel/internal/types"
	"github.com/avanolabs/tradepanel/pkg/llm"
)

type fakeGateway struct {
	content string
	lastReq llm.Request
}

func (g *fakeGateway) Generate(_ context.Context, req llm.Request) assistant.Reply {
	g.lastReq = req
	return assistant.Reply{Content: g.content}
}

func (g *fakeGateway) GenerateStreaming(_ context.Context, req llm.Request, onChunk func(string)) assistant.Reply {
	onChunk(g.content)
	return g.Generate(nil, req)
}

type fakeDispatcher struct {
	snapshot    *types.TradeSnapshot
	snapshotErr error
	fillErr     error
	filled      *types.Suggestion
}

func (d *fakeDispatcher) GetTradeData(_ context.Context, _ int64) (*types.TradeSnapshot, error) {
	return d.snapshot, d.snapshotErr
}

func (d *fakeDispatcher) FillTradeForm(_ context.Context, _ int64, s types.Suggestion) error {
	d.filled = &s
	return d.fillErr
}

type fakeKeys struct{ key string }

func (k *fakeKeys) SetKeyOverride(key string) { k.key = key }

// recordingRegistrar captures handler bindings so tests can invoke them.
type recordingRegistrar struct {
	handlers map[string]native.HandlerFunc
}

func newRegistrar() *recordingRegistrar {
	return &recordingRegistrar{handlers: make(map[string]native.HandlerFunc)}
}

func (r *recordingRegistrar) Handle(action string, fn native.HandlerFunc) {
	r.handlers[action] = fn
}

func (r *recordingRegistrar) call(t *testing.T, action string, payload string) (any, error) {
	t.Helper()
	fn, ok := r.handlers[action]
	if !ok {
		t.Fatalf("action %s not registered", action)
	}
	return fn(context.Background(), json.RawMessage(payload))
}

func newTestService(t *testing.T, gw *fakeGateway, d types.Dispatcher, keys KeyConfigurer, saveKey func(provider, key string) error) (*Service, *recordingRegistrar) {
	t.Helper()
	store := state.NewSessionStore(t.TempDir())
	orch := chat.New(store, gw, fallback.New())
	svc := NewService(orch, d, keys, saveKey)
	reg := newRegistrar()
	svc.Register(reg)
	return svc, reg
}

func TestChatSendReturnsReplyAndSuggestions(t *testing.T) {
	gw := &fakeGateway{content: "Here you go.\n```json\n[{\"action\": \"long\", \"collateral\": 50}]\n```"}
	_, reg := newTestService(t, gw, nil, nil, nil)

	res, err := reg.call(t, "chat.send", `{"content":"analyze BTC"}`)
	if err != nil {
		t.Fatal(err)
	}
	sent := res.(sendResult)
	if sent.Reply != gw.content {
		t.Errorf("unexpected reply %q", sent.Reply)
	}
	if len(sent.Suggestions) != 1 || sent.Suggestions[0].Action != types.ActionLong {
		t.Errorf("expected one long suggestion, got %+v", sent.Suggestions)
	}
	if len(sent.State.Messages) != 2 {
		t.Errorf("expected 2 messages in state, got %d", len(sent.State.Messages))
	}
}

func TestChatSendRequiresContent(t *testing.T) {
	_, reg := newTestService(t, &fakeGateway{content: "hi"}, nil, nil, nil)
	if _, err := reg.call(t, "chat.send", `{"content":""}`); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestChatClearAndState(t *testing.T) {
	_, reg := newTestService(t, &fakeGateway{content: "sure"}, nil, nil, nil)

	if _, err := reg.call(t, "chat.send", `{"content":"hello there"}`); err != nil {
		t.Fatal(err)
	}
	res, err := reg.call(t, "chat.clear", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	if st := res.(types.ChatState); len(st.Messages) != 0 {
		t.Errorf("expected cleared view, got %d messages", len(st.Messages))
	}

	// Clearing hides the transcript but the session keeps its messages.
	res, err = reg.call(t, "chat.state", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	st := res.(types.ChatState)
	if st.CurrentSession == nil || len(st.CurrentSession.Messages) != 2 {
		t.Error("expected session messages to survive clear")
	}
}

func TestSessionLifecycleActions(t *testing.T) {
	_, reg := newTestService(t, &fakeGateway{content: "ok"}, nil, nil, nil)

	res, err := reg.call(t, "sessions.create", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	first := res.(*types.ConversationSession)

	res, err = reg.call(t, "sessions.create", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	second := res.(*types.ConversationSession)

	if _, err := reg.call(t, "sessions.rename", `{"id":"`+string(first.ID)+`","title":"BTC scalping"}`); err != nil {
		t.Fatal(err)
	}

	res, err = reg.call(t, "sessions.list", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	sessions := res.([]*types.ConversationSession)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	res, err = reg.call(t, "sessions.switch", `{"id":"`+string(first.ID)+`"}`)
	if err != nil {
		t.Fatal(err)
	}
	if st := res.(types.ChatState); st.CurrentSession == nil || st.CurrentSession.ID != first.ID {
		t.Error("switch did not change current session")
	}

	if _, err := reg.call(t, "sessions.delete", `{"id":"`+string(second.ID)+`"}`); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.call(t, "sessions.delete", `{"id":"`+string(second.ID)+`"}`); err == nil {
		t.Error("expected error deleting twice")
	}
	if _, err := reg.call(t, "sessions.switch", `{"id":"session_0_missing"}`); err == nil {
		t.Error("expected error switching to missing session")
	}
}

func TestSessionSearch(t *testing.T) {
	_, reg := newTestService(t, &fakeGateway{content: "noted"}, nil, nil, nil)

	if _, err := reg.call(t, "chat.send", `{"content":"thoughts on bitcoin funding rates"}`); err != nil {
		t.Fatal(err)
	}
	res, err := reg.call(t, "sessions.search", `{"query":"bitcoin"}`)
	if err != nil {
		t.Fatal(err)
	}
	if matches := res.([]*types.ConversationSession); len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}

	res, err = reg.call(t, "sessions.search", `{"query":""}`)
	if err != nil {
		t.Fatal(err)
	}
	if all := res.([]*types.ConversationSession); len(all) != 1 {
		t.Errorf("expected all sessions on empty query, got %d", len(all))
	}
}

func TestTradeAnalyzeBuildsPromptFromSnapshot(t *testing.T) {
	gw := &fakeGateway{content: "```json\n[{\"action\": \"short\", \"leverage\": 10}]\n```"}
	d := &fakeDispatcher{snapshot: &types.TradeSnapshot{CurrentPrice: "117250.5", TradeSide: "long"}}
	_, reg := newTestService(t, gw, d, nil, nil)

	res, err := reg.call(t, "trade.analyze", `{"tabId":7}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gw.lastReq.Content, analyzePrompt) {
		t.Error("prompt preamble missing from gateway request")
	}
	if !strings.Contains(gw.lastReq.Content, `"currentPrice": "117250.5"`) {
		t.Errorf("snapshot missing from prompt: %q", gw.lastReq.Content)
	}
	sent := res.(sendResult)
	if len(sent.Suggestions) != 1 || sent.Suggestions[0].Action != types.ActionShort {
		t.Errorf("expected short suggestion, got %+v", sent.Suggestions)
	}
}

func TestTradeAnalyzeWithoutDispatcher(t *testing.T) {
	_, reg := newTestService(t, &fakeGateway{content: "x"}, nil, nil, nil)
	if _, err := reg.call(t, "trade.analyze", `{"tabId":1}`); err == nil {
		t.Error("expected error without page bridge")
	}
}

func TestSuggestionApply(t *testing.T) {
	d := &fakeDispatcher{}
	_, reg := newTestService(t, &fakeGateway{content: "x"}, d, nil, nil)

	if _, err := reg.call(t, "suggestion.apply", `{"tabId":3,"suggestion":{"action":"long","collateral":25}}`); err != nil {
		t.Fatal(err)
	}
	if d.filled == nil || d.filled.Action != types.ActionLong {
		t.Fatalf("dispatcher did not receive suggestion: %+v", d.filled)
	}
	if d.filled.Collateral == nil || *d.filled.Collateral != 25 {
		t.Errorf("collateral not forwarded: %+v", d.filled.Collateral)
	}

	if _, err := reg.call(t, "suggestion.apply", `{"tabId":3}`); err == nil {
		t.Error("expected error without suggestion")
	}
}

func TestConfigSetKey(t *testing.T) {
	keys := &fakeKeys{}
	var savedProvider, savedKey string
	save := func(provider, key string) error {
		savedProvider, savedKey = provider, key
		return nil
	}
	_, reg := newTestService(t, &fakeGateway{content: "x"}, nil, keys, save)

	if _, err := reg.call(t, "config.setKey", `{"provider":"gemini","key":"sk-test"}`); err != nil {
		t.Fatal(err)
	}
	if keys.key != "sk-test" {
		t.Errorf("override not applied: %q", keys.key)
	}
	if savedProvider != "gemini" || savedKey != "sk-test" {
		t.Errorf("key not persisted: %q %q", savedProvider, savedKey)
	}
}
