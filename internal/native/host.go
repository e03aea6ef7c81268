// internal/native/host.go
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sentinel outcomes for host-initiated requests. A call either answers,
// times out waiting for the page, or finds no connected extension at all.
var (
	ErrTimedOut    = errors.New("request timed out")
	ErrUnreachable = errors.New("no connected extension")
)

const defaultCallTimeout = 5 * time.Second

// Envelope is the wire message in both directions. Requests carry an
// action; responses carry only the correlating ID plus ok/data/error.
type Envelope struct {
	ID     string          `json:"id"`
	Action string          `json:"action,omitempty"`
	TabID  int64           `json:"tabId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	OK     *bool           `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// HandlerFunc processes one inbound panel request.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Host serves the native-messaging pipe. Inbound frames are either panel
// requests, routed by action to a registered handler, or responses to a
// host-initiated Call, routed by ID to the waiting caller.
type Host struct {
	conn    *Conn
	timeout time.Duration
	serving atomic.Bool

	hm       sync.RWMutex
	handlers map[string]HandlerFunc

	pm      sync.Mutex
	pending map[string]chan *Envelope
}

// NewHost creates a Host over the given connection. A non-positive timeout
// falls back to the default for host-initiated calls.
func NewHost(conn *Conn, timeout time.Duration) *Host {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Host{
		conn:     conn,
		timeout:  timeout,
		handlers: make(map[string]HandlerFunc),
		pending:  make(map[string]chan *Envelope),
	}
}

// Handle registers the handler for an inbound action.
func (h *Host) Handle(action string, fn HandlerFunc) {
	h.hm.Lock()
	defer h.hm.Unlock()
	h.handlers[action] = fn
}

// Serve reads frames until the pipe closes or the context is cancelled.
// Requests are handled on their own goroutines so the read loop stays free
// to route responses for in-flight calls.
func (h *Host) Serve(ctx context.Context) error {
	h.serving.Store(true)
	defer h.serving.Store(false)

	for {
		raw, err := h.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("extension disconnected")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("dropping unparseable frame", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if env.Action != "" {
			go h.handleRequest(ctx, &env)
			continue
		}
		if !h.settle(&env) {
			slog.Warn("dropping frame with unknown correlation id", "id", env.ID)
		}
	}
}

func (h *Host) handleRequest(ctx context.Context, env *Envelope) {
	h.hm.RLock()
	fn, ok := h.handlers[env.Action]
	h.hm.RUnlock()

	if !ok {
		h.respond(env.ID, nil, fmt.Errorf("unknown action %q", env.Action))
		return
	}

	data, err := fn(ctx, env.Data)
	h.respond(env.ID, data, err)
}

func (h *Host) respond(id string, data any, err error) {
	resp := response{ID: id, OK: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	if werr := h.conn.WriteMessage(resp); werr != nil {
		slog.Error("write response failed", "id", id, "error", werr)
	}
}

// settle delivers a response envelope to the waiting Call, if any.
func (h *Host) settle(env *Envelope) bool {
	h.pm.Lock()
	ch, ok := h.pending[env.ID]
	if ok {
		delete(h.pending, env.ID)
	}
	h.pm.Unlock()

	if ok {
		ch <- env
	}
	return ok
}

// Call sends a host-initiated request over the pipe and waits for the
// correlated response, for at most the configured timeout. Outcomes are
// three-way: the decoded data, ErrTimedOut, or ErrUnreachable.
func (h *Host) Call(ctx context.Context, action string, tabID int64, data any) (json.RawMessage, error) {
	if !h.serving.Load() {
		return nil, ErrUnreachable
	}

	var payload json.RawMessage
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal call data: %w", err)
		}
	}

	id := uuid.New().String()
	ch := make(chan *Envelope, 1)
	h.pm.Lock()
	h.pending[id] = ch
	h.pm.Unlock()

	cleanup := func() {
		h.pm.Lock()
		delete(h.pending, id)
		h.pm.Unlock()
	}

	env := Envelope{ID: id, Action: action, TabID: tabID, Data: payload}
	if err := h.conn.WriteMessage(env); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, fmt.Errorf("remote error: %s", reply.Error)
		}
		return reply.Data, nil
	case <-time.After(h.timeout):
		cleanup()
		return nil, ErrTimedOut
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}
