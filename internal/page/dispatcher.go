// Package page dispatches typed commands to the hosted page's execution
// context: scrape the trade-entry form, or write suggested values back
// into it. Commands are a single round trip to the active tab with no
// retry; an unanswered page is logged and surfaced as absence of data.
package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avanolabs/tradepanel/internal/native"
	"github.com/avanolabs/tradepanel/internal/types"
)

const (
	actionGetTradeData  = "getTradeData"
	actionFillTradeForm = "fillTradeForm"
)

// Caller performs one correlated request/response round trip to the
// extension. Implemented by *native.Host.
type Caller interface {
	Call(ctx context.Context, action string, tabID int64, data any) (json.RawMessage, error)
}

// Dispatcher implements types.Dispatcher over a Caller.
type Dispatcher struct {
	caller Caller
}

var _ types.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher over the given caller.
func NewDispatcher(caller Caller) *Dispatcher {
	return &Dispatcher{caller: caller}
}

// GetTradeData asks the page for a best-effort snapshot of its trade-entry
// fields. Any snapshot field may be empty.
func (d *Dispatcher) GetTradeData(ctx context.Context, tabID int64) (*types.TradeSnapshot, error) {
	raw, err := d.caller.Call(ctx, actionGetTradeData, tabID, nil)
	if err != nil {
		logUndelivered(actionGetTradeData, err)
		return nil, err
	}

	var snap types.TradeSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode trade snapshot: %w", err)
	}
	return &snap, nil
}

// FillTradeForm writes the suggestion's values into the page form. The
// page acknowledges with {"status":"done"}; anything else is an error.
func (d *Dispatcher) FillTradeForm(ctx context.Context, tabID int64, s types.Suggestion) error {
	raw, err := d.caller.Call(ctx, actionFillTradeForm, tabID, s)
	if err != nil {
		logUndelivered(actionFillTradeForm, err)
		return err
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil {
		return fmt.Errorf("decode fill ack: %w", err)
	}
	if ack.Status != "done" {
		return fmt.Errorf("unexpected fill status %q", ack.Status)
	}
	return nil
}

// logUndelivered records an undeliverable command exactly once. Timed-out
// and unreachable are distinct outcomes but both degrade to "no data" for
// the caller.
func logUndelivered(action string, err error) {
	switch {
	case errors.Is(err, native.ErrTimedOut):
		slog.Warn("page command timed out", "action", action)
	case errors.Is(err, native.ErrUnreachable):
		slog.Warn("page command unreachable", "action", action)
	default:
		slog.Warn("page command failed", "action", action, "error", err)
	}
}
