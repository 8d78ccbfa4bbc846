package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"workforce_backend/internal/logger"
	"workforce_backend/pkg/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventHandler обрабатывает входящие события клиента
type EventHandler interface {
	Handle(ctx context.Context, c *Client, env realtime.Envelope)
}

// Client - одно соединение (одна вкладка) пользователя
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	connID string
	ctx    context.Context
	send   chan []byte

	// room меняется только под hub.mu
	room string

	closeOnce sync.Once
}

func newClient(ctx context.Context, hub *Hub, conn *websocket.Conn, userID string) *Client {
	connID := uuid.NewString()
	ctx = logger.WithConnID(logger.WithUserID(ctx, userID), connID)
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		connID: connID,
		ctx:    ctx,
		send:   make(chan []byte, hub.opts.SendBuffer),
	}
}

func (c *Client) UserID() string           { return c.userID }
func (c *Client) ConnID() string           { return c.connID }
func (c *Client) Context() context.Context { return c.ctx }

// trySend не блокирует; false - буфер полон
func (c *Client) trySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) readPump(handler EventHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.CtxWarn(c.ctx, "websocket read error", "error", err)
			}
			return
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.hub.SendTo(c, realtime.EventError, realtime.ErrorPayload{Message: "malformed event"}, 0)
			continue
		}
		handler.Handle(c.ctx, c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// хаб закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.CtxDebug(c.ctx, "websocket write failed", "error", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
