// internal/panel/service.go
// Package panel exposes the chat core to the side panel over the
// native messaging host. Each action maps to one handler; payloads
// and replies are plain JSON objects.
package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/avanolabs/tradepanel/internal/chat"
	"github.com/avanolabs/tradepanel/internal/native"
	"github.com/avanolabs/tradepanel/internal/suggest"
	"github.com/avanolabs/tradepanel/internal/types"
)

// analyzePrompt is the canonical request sent on trade.analyze, with the
// scraped form state appended as a fenced JSON block.
const analyzePrompt = "Please analyze the following trade data and provide suggestions in JSON format. " +
	"The suggestions should be an array of objects, each with 'action' ('long' or 'short'), " +
	"'collateral', 'leverage', 'takeProfit', and 'stopLoss'."

// Registrar is the subset of the native host the service binds to.
type Registrar interface {
	Handle(action string, fn native.HandlerFunc)
}

// KeyConfigurer receives API keys set from the panel.
type KeyConfigurer interface {
	SetKeyOverride(key string)
}

// Service wires panel actions to the orchestrator, the page dispatcher
// and the assistant gateway. The dispatcher may be nil when no page
// bridge is connected; trade actions then fail cleanly.
type Service struct {
	orch       *chat.Orchestrator
	dispatcher types.Dispatcher
	keys       KeyConfigurer
	saveKey    func(provider, key string) error
}

func NewService(orch *chat.Orchestrator, dispatcher types.Dispatcher, keys KeyConfigurer, saveKey func(provider, key string) error) *Service {
	return &Service{orch: orch, dispatcher: dispatcher, keys: keys, saveKey: saveKey}
}

type sendRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type sendResult struct {
	Reply       string             `json:"reply"`
	Suggestions []types.Suggestion `json:"suggestions,omitempty"`
	State       types.ChatState    `json:"state"`
}

type sessionRequest struct {
	ID    types.SessionID `json:"id,omitempty"`
	Title string          `json:"title,omitempty"`
	Query string          `json:"query,omitempty"`
}

type tradeRequest struct {
	TabID      int64             `json:"tabId"`
	Suggestion *types.Suggestion `json:"suggestion,omitempty"`
}

type keyRequest struct {
	Provider string `json:"provider,omitempty"`
	Key      string `json:"key"`
}

// Register binds every panel action on the host.
func (s *Service) Register(host Registrar) {
	host.Handle("chat.send", s.handleSend)
	host.Handle("chat.clear", s.handleClear)
	host.Handle("chat.state", s.handleState)
	host.Handle("sessions.list", s.handleSessionsList)
	host.Handle("sessions.create", s.handleSessionCreate)
	host.Handle("sessions.switch", s.handleSessionSwitch)
	host.Handle("sessions.delete", s.handleSessionDelete)
	host.Handle("sessions.rename", s.handleSessionRename)
	host.Handle("sessions.search", s.handleSessionSearch)
	host.Handle("trade.analyze", s.handleAnalyze)
	host.Handle("suggestion.apply", s.handleApply)
	host.Handle("config.setKey", s.handleSetKey)
}

func (s *Service) handleSend(ctx context.Context, data json.RawMessage) (any, error) {
	var req sendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding chat.send: %w", err)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if err := s.orch.SendMessage(ctx, req.Content, req.ImageURL); err != nil {
		return nil, err
	}
	return s.turnResult(), nil
}

// turnResult packages the settled state after a send, with suggestions
// extracted from the newest assistant reply.
func (s *Service) turnResult() sendResult {
	state := s.orch.State()
	res := sendResult{State: state}
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == types.RoleAssistant {
			res.Reply = state.Messages[i].Content
			res.Suggestions = suggest.Extract(res.Reply)
			break
		}
	}
	return res
}

func (s *Service) handleClear(_ context.Context, _ json.RawMessage) (any, error) {
	s.orch.ClearMessages()
	return s.orch.State(), nil
}

func (s *Service) handleState(_ context.Context, _ json.RawMessage) (any, error) {
	return s.orch.State(), nil
}

func (s *Service) handleSessionsList(_ context.Context, _ json.RawMessage) (any, error) {
	return s.orch.State().Sessions, nil
}

func (s *Service) handleSessionCreate(_ context.Context, _ json.RawMessage) (any, error) {
	sess, err := s.orch.CreateNewSession()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) handleSessionSwitch(_ context.Context, data json.RawMessage) (any, error) {
	var req sessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding sessions.switch: %w", err)
	}
	if !s.orch.SwitchToSession(req.ID) {
		return nil, fmt.Errorf("session %s not found", req.ID)
	}
	return s.orch.State(), nil
}

func (s *Service) handleSessionDelete(_ context.Context, data json.RawMessage) (any, error) {
	var req sessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding sessions.delete: %w", err)
	}
	if !s.orch.DeleteSession(req.ID) {
		return nil, fmt.Errorf("session %s not found", req.ID)
	}
	return s.orch.State(), nil
}

func (s *Service) handleSessionRename(_ context.Context, data json.RawMessage) (any, error) {
	var req sessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding sessions.rename: %w", err)
	}
	if !s.orch.UpdateSessionTitle(req.ID, req.Title) {
		return nil, fmt.Errorf("session %s not found", req.ID)
	}
	return s.orch.State(), nil
}

func (s *Service) handleSessionSearch(_ context.Context, data json.RawMessage) (any, error) {
	var req sessionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding sessions.search: %w", err)
	}
	if req.Query == "" {
		return s.orch.State().Sessions, nil
	}
	return s.orch.SearchSessions(req.Query), nil
}

func (s *Service) handleAnalyze(ctx context.Context, data json.RawMessage) (any, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("no page bridge connected")
	}
	var req tradeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding trade.analyze: %w", err)
	}
	snapshot, err := s.dispatcher.GetTradeData(ctx, req.TabID)
	if err != nil {
		return nil, fmt.Errorf("reading trade data: %w", err)
	}
	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding trade data: %w", err)
	}
	content := fmt.Sprintf("%s\n\n```json\n%s\n```", analyzePrompt, encoded)
	if err := s.orch.SendMessage(ctx, content, ""); err != nil {
		return nil, err
	}
	return s.turnResult(), nil
}

func (s *Service) handleApply(ctx context.Context, data json.RawMessage) (any, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("no page bridge connected")
	}
	var req tradeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding suggestion.apply: %w", err)
	}
	if req.Suggestion == nil {
		return nil, fmt.Errorf("suggestion is required")
	}
	if err := s.dispatcher.FillTradeForm(ctx, req.TabID, *req.Suggestion); err != nil {
		return nil, fmt.Errorf("filling trade form: %w", err)
	}
	return map[string]string{"status": "applied"}, nil
}

func (s *Service) handleSetKey(_ context.Context, data json.RawMessage) (any, error) {
	var req keyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding config.setKey: %w", err)
	}
	if s.saveKey != nil {
		if err := s.saveKey(req.Provider, req.Key); err != nil {
			slog.Warn("persisting api key failed", "error", err)
		}
	}
	if s.keys != nil {
		s.keys.SetKeyOverride(req.Key)
	}
	return map[string]string{"status": "ok"}, nil
}
