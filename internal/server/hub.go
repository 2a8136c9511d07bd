package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dividend-hunter/internal/app"
	"dividend-hunter/internal/deck"
	"dividend-hunter/internal/domain"
)

// WSConfig configures deck WebSocket connections.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client outbound queue. Messages beyond it are dropped.
	SendBuffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

// Inbound message types.
const (
	MsgDragStart = "dragStart"
	MsgDragMove  = "dragMove"
	MsgDragEnd   = "dragEnd"
	MsgSwipe     = "swipe"
	MsgUndo      = "undo"
	MsgShuffle   = "shuffle"
	MsgState     = "state"
)

// Outbound message types.
const (
	MsgFrame = "frame"
	MsgReset = "reset"
	MsgExit  = "exit"
	MsgToast = "toast"
	MsgError = "error"
)

// ClientMessage is sent by a deck client. T is a timestamp in Unix milliseconds.
type ClientMessage struct {
	Type      string  `json:"type"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	T         float64 `json:"t,omitempty"`
	Direction string  `json:"direction,omitempty"`
}

// ServerMessage is sent to deck clients.
type ServerMessage struct {
	Type      string           `json:"type"`
	State     *app.View        `json:"state,omitempty"`
	Frame     *deck.DragFrame  `json:"frame,omitempty"`
	Direction deck.Direction   `json:"direction,omitempty"`
	Undone    *deck.UndoResult `json:"undone,omitempty"`
	Kind      app.ToastKind    `json:"kind,omitempty"`
	Message   string           `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	out  chan ServerMessage
	done chan struct{}
}

// send queues msg without blocking. A full queue drops the message.
func (c *wsClient) send(msg ServerMessage) {
	select {
	case c.out <- msg:
	default:
	}
}

// Hub broadcasts deck rendering and toasts to connected WebSocket clients.
// It implements deck.Renderer and app.Notifier.
type Hub struct {
	config WSConfig
	logger *log.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	view    func() app.View
}

// NewHub creates a hub. A nil logger discards.
func NewHub(config WSConfig, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		config:  config,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// SetView sets the source of state messages.
func (h *Hub) SetView(view func() app.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.view = view
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.send(msg)
	}
}

func (h *Hub) stateMessage() (ServerMessage, bool) {
	h.mu.RLock()
	view := h.view
	h.mu.RUnlock()
	if view == nil {
		return ServerMessage{}, false
	}
	v := view()
	return ServerMessage{Type: MsgState, State: &v}, true
}

func (h *Hub) broadcastState() {
	if msg, ok := h.stateMessage(); ok {
		h.broadcast(msg)
	}
}

func (h *Hub) RenderCards([]domain.StockRecord) { h.broadcastState() }
func (h *Hub) RenderEmpty()                     { h.broadcastState() }
func (h *Hub) RenderReset()                     { h.broadcast(ServerMessage{Type: MsgReset}) }

func (h *Hub) RenderDrag(frame deck.DragFrame) {
	h.broadcast(ServerMessage{Type: MsgFrame, Frame: &frame})
}

func (h *Hub) RenderExit(direction deck.Direction) {
	h.broadcast(ServerMessage{Type: MsgExit, Direction: direction})
}

// Toast forwards a notification to every client.
func (h *Hub) Toast(kind app.ToastKind, message string) {
	h.broadcast(ServerMessage{Type: MsgToast, Kind: kind, Message: message})
}

// ServeWS upgrades the request and feeds client messages to a.
func (h *Hub) ServeWS(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Printf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		c := &wsClient{
			conn: conn,
			out:  make(chan ServerMessage, h.config.SendBuffer),
			done: make(chan struct{}),
		}

		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
		}()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.writeLoop(c)
		}()

		if msg, ok := h.stateMessage(); ok {
			c.send(msg)
		}

		h.readLoop(r.Context(), a, c)
		close(c.done)
		wg.Wait()
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ping := time.NewTicker(h.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Printf("write: %v", err)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, a *app.App, c *wsClient) {
	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("read: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		if mt != websocket.TextMessage {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(ServerMessage{Type: MsgError, Message: "invalid message"})
			continue
		}
		h.handle(context.WithoutCancel(ctx), a, c, msg)
	}
}

// handle applies one client message. Deck changes reach every client through
// the renderer; replies to this client only carry errors and undo results.
func (h *Hub) handle(ctx context.Context, a *app.App, c *wsClient, msg ClientMessage) {
	at := time.UnixMicro(int64(msg.T * 1000))

	switch msg.Type {
	case MsgDragStart:
		a.Deck().DragStart(msg.X, msg.Y, at)
	case MsgDragMove:
		a.Deck().DragMove(msg.X, msg.Y, at)
	case MsgDragEnd:
		a.DragEnd(msg.X, msg.Y, at)
	case MsgSwipe:
		direction, err := deck.ParseDirection(msg.Direction)
		if err != nil {
			c.send(ServerMessage{Type: MsgError, Message: err.Error()})
			return
		}
		if !a.Swipe(direction) {
			c.send(ServerMessage{Type: MsgError, Message: "no card to swipe or swipe in progress"})
		}
	case MsgUndo:
		res, err := a.Undo(ctx)
		switch {
		case res == nil && err == nil:
			c.send(ServerMessage{Type: MsgError, Message: "nothing to undo"})
		case err != nil:
			c.send(ServerMessage{Type: MsgError, Message: err.Error()})
		default:
			v := a.View()
			c.send(ServerMessage{Type: MsgState, State: &v, Undone: res})
		}
	case MsgShuffle:
		a.Shuffle()
	case MsgState:
		v := a.View()
		c.send(ServerMessage{Type: MsgState, State: &v})
	default:
		c.send(ServerMessage{Type: MsgError, Message: "unknown message type " + msg.Type})
	}
}
