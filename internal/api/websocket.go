package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/interaction"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/internal/session"
)

// WebSocket message types
const (
	EventPreview       = "preview"
	EventPointer       = "pointer"
	EventCommand       = "command"
	EventSessionOpened = "session_opened"
	EventSessionClosed = "session_closed"
	EventResponse      = "response"
	EventError         = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// WSClient represents a connected WebSocket client. A client that names a
// session on connect receives its previews and may drive it.
type WSClient struct {
	conn    *websocket.Conn
	send    chan WSMessage
	server  *Server
	session *session.Session
	events  <-chan session.Event
	cancel  func()
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	var sess *session.Session
	if id := c.Query("session"); id != "" {
		sess = s.registry.Get(id)
		if sess == nil {
			c.JSON(404, gin.H{"error": "session not found"})
			return
		}
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		fmt.Printf("WebSocket upgrade failed: %v\n", err)
		return
	}

	client := &WSClient{
		conn:    conn,
		send:    make(chan WSMessage, 256),
		server:  s,
		session: sess,
		cancel:  func() {},
		done:    make(chan struct{}),
	}

	if sess != nil {
		client.events, client.cancel = sess.Subscribe()
		if res, err := sess.Preview(); res != nil {
			client.trySend(previewMessage(session.Event{
				Type:    session.EventPreview,
				Session: sess.ID,
				Result:  res,
				Err:     err,
				State:   sess.State(),
			}))
		}
	}

	s.addClient(client)
	fmt.Println("📡 WebSocket client connected")

	// Start goroutines
	go client.readPump()
	go client.writePump()
}

func (s *Server) addClient(client *WSClient) {
	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
}

func (s *Server) removeClient(client *WSClient) {
	s.clientsMu.Lock()
	delete(s.clients, client)
	s.clientsMu.Unlock()
}

// close tears the client down once, from whichever pump stops first
func (c *WSClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		c.server.removeClient(c)
		c.conn.Close()
		fmt.Println("📡 WebSocket client disconnected")
	})
}

func (c *WSClient) write(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *WSClient) writePump() {
	defer c.close()

	for {
		var msg WSMessage
		select {
		case <-c.done:
			return
		case msg = <-c.send:
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			if ev.Type == session.EventClosed {
				c.write(WSMessage{
					Event: EventSessionClosed,
					Data:  map[string]interface{}{"id": ev.Session},
				})
				return
			}
			msg = previewMessage(ev)
		}

		if err := c.write(msg); err != nil {
			fmt.Printf("WebSocket write error: %v\n", err)
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer c.close()

	for {
		var msg WSMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("WebSocket error: %v\n", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	if c.session == nil {
		c.sendError("connect with ?session=<id> to edit a composition")
		return
	}

	switch msg.Event {
	case EventPointer:
		c.handlePointerEvent(msg.Data)
	case EventCommand:
		c.handleCommandEvent(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

func (c *WSClient) handlePointerEvent(data map[string]interface{}) {
	typ, _ := data["type"].(string)
	x, _ := data["x"].(float64)
	y, _ := data["y"].(float64)

	changed, cursor, err := c.session.Pointer(interaction.Event{Type: typ, X: x, Y: y})
	if err != nil {
		c.sendError(err.Error())
		return
	}

	// Moves only answer with the cursor; the preview follows as its own event
	c.sendResponse(map[string]interface{}{
		"changed": changed,
		"cursor":  cursor,
	})
}

func (c *WSClient) handleCommandEvent(data map[string]interface{}) {
	cmd, ok := data["command"].(string)
	if !ok || cmd == "" {
		c.sendError("command is required")
		return
	}

	result := c.server.executor.Execute(c.session, cmd)
	if !result.Success {
		c.sendError(result.Error)
		return
	}

	response := map[string]interface{}{
		"success": true,
	}
	if result.Message != "" {
		response["message"] = result.Message
	}
	for k, v := range result.Data {
		response[k] = v
	}
	c.sendResponse(response)
}

// trySend queues msg unless the client is gone or its buffer is full
func (c *WSClient) trySend(msg WSMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Client send buffer full, skip
	}
}

func (c *WSClient) sendResponse(data map[string]interface{}) {
	c.trySend(WSMessage{
		Event: EventResponse,
		Data:  data,
	})
}

func (c *WSClient) sendError(message string) {
	c.trySend(WSMessage{
		Event: EventError,
		Data: map[string]interface{}{
			"error": message,
		},
	})
}

// previewMessage converts a render event into a websocket message carrying
// the preview as a base64 PNG
func previewMessage(ev session.Event) WSMessage {
	data := map[string]interface{}{
		"session":      ev.Session,
		"title":        ev.State.Title,
		"image_scale":  ev.State.Scale,
		"image_offset": map[string]float64{"x": ev.State.Offset.X, "y": ev.State.Offset.Y},
	}

	var decodeErr *composer.DecodeError
	if ev.Err != nil && !errors.As(ev.Err, &decodeErr) {
		return WSMessage{Event: EventError, Data: map[string]interface{}{"error": ev.Err.Error()}}
	}
	if decodeErr != nil {
		data["decode_error"] = decodeErr.Error()
	}

	if ev.Result != nil {
		var buf bytes.Buffer
		if err := renderer.EncodePNG(&buf, ev.Result.Image); err != nil {
			return WSMessage{Event: EventError, Data: map[string]interface{}{"error": err.Error()}}
		}
		data["png"] = base64.StdEncoding.EncodeToString(buf.Bytes())
		data["lines"] = ev.Result.TitleLines
		data["truncated"] = ev.Result.Truncated
	}

	return WSMessage{Event: EventPreview, Data: data}
}

// BroadcastSessionOpened tells every connected client about a new session
func (s *Server) BroadcastSessionOpened(info session.Info) {
	s.broadcast(WSMessage{
		Event: EventSessionOpened,
		Data: map[string]interface{}{
			"id":    info.ID,
			"title": info.Title,
		},
	})
	fmt.Printf("📡 Broadcast: Session opened - %s\n", info.ID)
}

// BroadcastSessionClosed tells every connected client a session is gone
func (s *Server) BroadcastSessionClosed(id string) {
	s.broadcast(WSMessage{
		Event: EventSessionClosed,
		Data: map[string]interface{}{
			"id": id,
		},
	})
	fmt.Printf("📡 Broadcast: Session closed - %s\n", id)
}

func (s *Server) broadcast(message WSMessage) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		client.trySend(message)
	}
}
