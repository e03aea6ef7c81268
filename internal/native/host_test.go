// internal/native/host_test.go
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

// pipePair wires a Host and a fake extension to opposite ends of two pipes.
func pipePair() (host *Conn, extension *Conn) {
	hostIn, extOut := io.Pipe()
	extIn, hostOut := io.Pipe()
	return NewConn(hostIn, hostOut), NewConn(extIn, extOut)
}

func TestHostRoutesRequestToHandler(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, time.Second)
	h.Handle("echo", func(_ context.Context, data json.RawMessage) (any, error) {
		return map[string]string{"echo": string(data)}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	if err := ext.WriteMessage(Envelope{ID: "r1", Action: "echo", Data: json.RawMessage(`"hi"`)}); err != nil {
		t.Fatal(err)
	}

	raw, err := ext.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		ID   string `json:"id"`
		OK   bool   `json:"ok"`
		Data struct {
			Echo string `json:"echo"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "r1" || !resp.OK || resp.Data.Echo != `"hi"` {
		t.Errorf("unexpected response %s", raw)
	}
}

func TestHostUnknownAction(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	ext.WriteMessage(Envelope{ID: "r2", Action: "nope"})
	raw, err := ext.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	json.Unmarshal(raw, &resp)
	if resp.OK || resp.Error == "" {
		t.Errorf("expected error response, got %s", raw)
	}
}

func TestHostHandlerError(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, time.Second)
	h.Handle("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, fmt.Errorf("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	ext.WriteMessage(Envelope{ID: "r3", Action: "fail"})
	raw, _ := ext.ReadMessage()
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	json.Unmarshal(raw, &resp)
	if resp.OK || resp.Error != "boom" {
		t.Errorf("expected boom error, got %s", raw)
	}
}

func TestHostCallAnswered(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	// Fake extension: answer any request with a snapshot.
	go func() {
		raw, err := ext.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		json.Unmarshal(raw, &env)
		if env.Action != "getTradeData" {
			t.Errorf("unexpected action %q", env.Action)
		}
		ext.WriteMessage(map[string]any{
			"id":   env.ID,
			"ok":   true,
			"data": map[string]string{"collateral": "100"},
		})
	}()

	data, err := h.Call(ctx, "getTradeData", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	var snap struct {
		Collateral string `json:"collateral"`
	}
	json.Unmarshal(data, &snap)
	if snap.Collateral != "100" {
		t.Errorf("unexpected call data %s", data)
	}
}

func TestHostCallTimedOut(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	// Extension reads the request but never answers.
	go ext.ReadMessage()

	_, err := h.Call(ctx, "getTradeData", 0, nil)
	if !errors.Is(err, ErrTimedOut) {
		t.Errorf("expected ErrTimedOut, got %v", err)
	}
}

func TestHostCallUnreachableWhenNotServing(t *testing.T) {
	hostConn, _ := pipePair()
	h := NewHost(hostConn, time.Second)

	_, err := h.Call(context.Background(), "getTradeData", 0, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestHostCallRemoteError(t *testing.T) {
	hostConn, ext := pipePair()
	h := NewHost(hostConn, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Serve(ctx)

	go func() {
		raw, err := ext.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		json.Unmarshal(raw, &env)
		ext.WriteMessage(map[string]any{"id": env.ID, "ok": false, "error": "no listener"})
	}()

	_, err := h.Call(ctx, "fillTradeForm", 0, map[string]string{"action": "long"})
	if err == nil || errors.Is(err, ErrTimedOut) {
		t.Errorf("expected remote error, got %v", err)
	}
}

func TestHostServeReturnsOnEOF(t *testing.T) {
	hostIn, extOut := io.Pipe()
	_, hostOut := io.Pipe()
	h := NewHost(NewConn(hostIn, hostOut), time.Second)

	done := make(chan error, 1)
	go func() { done <- h.Serve(context.Background()) }()

	extOut.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on EOF, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after pipe close")
	}
}
