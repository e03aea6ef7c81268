// internal/page/dispatcher_test.go
package page

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/avanolabs/tradepanel/internal/native"
	"github.com/avanolabs/tradepanel/internal/types"
)

// fakeCaller records the last call and plays back a canned reply.
type fakeCaller struct {
	lastAction string
	lastTabID  int64
	lastData   any
	reply      json.RawMessage
	err        error
}

func (f *fakeCaller) Call(_ context.Context, action string, tabID int64, data any) (json.RawMessage, error) {
	f.lastAction = action
	f.lastTabID = tabID
	f.lastData = data
	return f.reply, f.err
}

func TestGetTradeData(t *testing.T) {
	caller := &fakeCaller{
		reply: json.RawMessage(`{"currentPrice":"117250.5","collateral":"100","tradeSide":"long"}`),
	}
	d := NewDispatcher(caller)

	snap, err := d.GetTradeData(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if caller.lastAction != "getTradeData" || caller.lastTabID != 42 {
		t.Errorf("unexpected call %q tab %d", caller.lastAction, caller.lastTabID)
	}
	if snap.CurrentPrice != "117250.5" || snap.Collateral != "100" || snap.TradeSide != "long" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	// Fields the page didn't find stay empty
	if snap.Leverage != "" || snap.PositionSize != "" {
		t.Errorf("expected absent fields empty, got %+v", snap)
	}
}

func TestGetTradeDataUnreachable(t *testing.T) {
	d := NewDispatcher(&fakeCaller{err: native.ErrUnreachable})
	snap, err := d.GetTradeData(context.Background(), 0)
	if snap != nil {
		t.Error("expected nil snapshot")
	}
	if !errors.Is(err, native.ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestFillTradeForm(t *testing.T) {
	caller := &fakeCaller{reply: json.RawMessage(`{"status":"done"}`)}
	d := NewDispatcher(caller)

	collateral := 50.0
	s := types.Suggestion{Action: types.ActionLong, Collateral: &collateral}
	if err := d.FillTradeForm(context.Background(), 0, s); err != nil {
		t.Fatal(err)
	}
	if caller.lastAction != "fillTradeForm" {
		t.Errorf("unexpected action %q", caller.lastAction)
	}
	sent, ok := caller.lastData.(types.Suggestion)
	if !ok || sent.Action != types.ActionLong {
		t.Errorf("expected suggestion payload, got %#v", caller.lastData)
	}
}

func TestFillTradeFormBadAck(t *testing.T) {
	d := NewDispatcher(&fakeCaller{reply: json.RawMessage(`{"status":"pending"}`)})
	if err := d.FillTradeForm(context.Background(), 0, types.Suggestion{Action: types.ActionShort}); err == nil {
		t.Error("expected error for non-done ack")
	}
}

func TestFillTradeFormTimedOut(t *testing.T) {
	d := NewDispatcher(&fakeCaller{err: native.ErrTimedOut})
	err := d.FillTradeForm(context.Background(), 0, types.Suggestion{Action: types.ActionLong})
	if !errors.Is(err, native.ErrTimedOut) {
		t.Errorf("expected ErrTimedOut, got %v", err)
	}
}
