// Package client is a small websocket client for the presence endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"officepulse/domain"

	"github.com/gorilla/websocket"
)

// Event is one server frame with its payload left raw.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type Client struct {
	ws        *websocket.Conn
	events    chan Event
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
	err       error
}

// Dial opens a connection on the namespace endpoint of baseURL ("ws://host:port").
// A non-empty token is passed as the ?token= query parameter.
func Dial(ctx context.Context, baseURL string, ns domain.Namespace, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	u.Path = "/" + string(ns)
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: unauthorized", u.Redacted())
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &Client{ws: ws, events: make(chan Event, 64), done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

// Emit sends one frame. Safe for concurrent use.
func (c *Client) Emit(eventName string, data any) error {
	frame := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: eventName, Data: data}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(frame)
}

// Events is closed once the connection is gone; Err then tells why.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Err() error {
	return c.err
}

// Next waits for the next event of type eventType, skipping the others.
func (c *Client) Next(ctx context.Context, eventType string) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case e, ok := <-c.events:
			if !ok {
				return Event{}, fmt.Errorf("connection closed while waiting for %q: %w", eventType, c.err)
			}
			if e.Type == eventType {
				return e, nil
			}
		}
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client leaving"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		var e Event
		if err := c.ws.ReadJSON(&e); err != nil {
			c.err = err
			return
		}
		// nobody drains the buffer after Close
		select {
		case c.events <- e:
		case <-c.done:
			c.err = net.ErrClosed
			return
		}
	}
}
