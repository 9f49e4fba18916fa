package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"officepulse/domain/event"
	"officepulse/errors"
	"officepulse/services"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is one websocket client. Send never blocks: a full queue means the client
// is too slow and it gets dropped.
type Conn struct {
	caller    services.Caller
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func newConn(caller services.Caller, ws *websocket.Conn, bufferSize int, log *slog.Logger) *Conn {
	return &Conn{
		caller: caller,
		ws:     ws,
		send:   make(chan []byte, bufferSize),
		done:   make(chan struct{}),
		log:    log.With("session_id", caller.SessionID, "namespace", caller.Namespace),
	}
}

func (c *Conn) ID() string { return c.caller.SessionID }

func (c *Conn) Send(eventType string, payload any) error {
	data, err := json.Marshal(event.Event{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// Close is safe to call many times and from any goroutine.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// serve runs the write pump in the background and the read pump until the client goes away.
func (c *Conn) serve(ctx context.Context, service services.ISocketService) {
	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	reason := c.readPump(ctx, service)
	_ = c.Close()
	if err := service.Disconnect(ctx, c.caller, reason); err != nil {
		c.log.Warn("Disconnect not submitted", "error", err)
	}
}

func (c *Conn) readPump(ctx context.Context, service services.ISocketService) string {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Error("read error", "error", err)
			}
			return reasonOf(err)
		}

		var frame event.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			c.reply(errors.ErrMalformedPayload)
			continue
		}
		if err := service.Handle(ctx, c.caller, frame); err != nil {
			if ctx.Err() != nil {
				return "server shutdown"
			}
			c.reply(err)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends a rejected frame's reason back to this client only. Not-found errors stay silent.
func (c *Conn) reply(err error) {
	if errors.Is(err, errors.ErrNotFound) {
		return
	}
	if errors.Kind(err) == errors.ErrInternal {
		c.log.Error("frame handling failed", "error", err)
	}
	if sendErr := c.Send(event.ErrorType, event.Notice{Message: errors.Reason(err)}); sendErr != nil {
		c.log.Warn("error reply dropped", "error", sendErr)
	}
}

func reasonOf(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Text
	}
	return "transport close"
}
