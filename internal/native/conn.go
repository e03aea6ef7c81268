// Package native implements the browser native-messaging transport: JSON
// frames prefixed with a 4-byte little-endian length, exchanged with the
// extension over stdio.
package native

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Browser-imposed frame limits: the browser rejects host frames over 1 MiB
// and never sends the host more than 4 MiB.
const (
	maxReadFrame  = 4 << 20
	maxWriteFrame = 1 << 20
)

// Conn frames JSON messages over a reader/writer pair. Reads and writes
// are each serialized with their own lock so one goroutine can read while
// another writes.
type Conn struct {
	r  io.Reader
	w  io.Writer
	rm sync.Mutex
	wm sync.Mutex
}

// NewConn creates a Conn over the given reader and writer.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: r, w: w}
}

// ReadMessage reads one length-prefixed frame and returns its JSON payload.
// Returns io.EOF when the peer has closed the pipe.
func (c *Conn) ReadMessage() (json.RawMessage, error) {
	c.rm.Lock()
	defer c.rm.Unlock()

	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size == 0 || size > maxReadFrame {
		return nil, fmt.Errorf("invalid frame size %d", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// WriteMessage marshals v and writes it as one length-prefixed frame.
func (c *Conn) WriteMessage(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if len(payload) > maxWriteFrame {
		return fmt.Errorf("frame too large: %d bytes", len(payload))
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	c.wm.Lock()
	defer c.wm.Unlock()
	if _, err := c.w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := c.w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
