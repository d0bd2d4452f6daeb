package stream

import (
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by SendFrame once the media connection is gone.
var ErrClosed = errors.New("stream: connection closed")

// Conn wraps the media WebSocket as an outbound frame sink. Writes are
// serialized with a mutex; the closed flag lets an in-flight pacer loop see
// the transport die at its next frame boundary.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewConn wraps an upgraded WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Open reports whether the connection can still accept frames.
func (c *Conn) Open() bool { return !c.closed.Load() }

// SendFrame sends one compressed frame tagged with the stream SID.
func (c *Conn) SendFrame(streamSID string, payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	msg := outboundMedia{
		Event:     "media",
		StreamSid: streamSID,
		Media:     outboundPayload{Payload: base64.StdEncoding.EncodeToString(payload)},
	}
	c.writeMu.Lock()
	err := c.ws.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.Close()
		return err
	}
	return nil
}

// Close marks the connection dead and closes the socket. Idempotent.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) && c.ws != nil {
		_ = c.ws.Close()
	}
}
