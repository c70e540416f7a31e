package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/cimex/cimex-console/internal/views"
)

// Message types exchanged with the browser.
const (
	TypeSnapshot = "snapshot"
	TypeNavigate = "navigate"
	TypeError    = "error"
	TypePong     = "pong"

	TypePause    = "pause"
	TypeResume   = "resume"
	TypeRefresh  = "refresh"
	TypePing     = "ping"
	TypeLocation = "location"
)

const writeTimeout = 5 * time.Second

// Message is a frame on the live socket in either direction.
type Message struct {
	Type  string       `json:"type"`
	ID    string       `json:"id,omitempty"`
	Path  string       `json:"path,omitempty"`
	Error string       `json:"error,omitempty"`
	Frame *views.Frame `json:"frame,omitempty"`
}

// wsConn serializes writes to one websocket.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}
