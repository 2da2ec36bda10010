package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/simulagent/pkg/simul"
)

// Client drives a remote pipeline. Calls are serialized.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to a Server's websocket endpoint, e.g. "ws://host:8080/ws".
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("server: dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send pushes seg to the remote pipeline and returns its output.
func (c *Client) Send(ctx context.Context, seg simul.Segment) (simul.Segment, error) {
	f, err := c.roundTrip(ctx, segmentFrame(seg), TypeSegment)
	if err != nil {
		return simul.Segment{}, err
	}
	return f.Segment(), nil
}

// Reset starts a new stream on the remote pipeline.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.roundTrip(ctx, Frame{Type: TypeReset}, TypeReset)
	return err
}

func (c *Client) roundTrip(ctx context.Context, req Frame, want string) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	// A canceled context closes the connection to unblock the read; the
	// client is unusable afterwards.
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	if err := c.conn.WriteJSON(req); err != nil {
		return Frame{}, c.wrap(ctx, "write frame", err)
	}
	var resp Frame
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Frame{}, c.wrap(ctx, "read frame", err)
	}
	switch resp.Type {
	case want:
		return resp, nil
	case TypeError:
		return Frame{}, errors.New("server: remote: " + resp.Error)
	default:
		return Frame{}, fmt.Errorf("server: unexpected frame type %q", resp.Type)
	}
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("server: %s: %w", op, ctxErr)
	}
	return fmt.Errorf("server: %s: %w", op, err)
}

// Close sends a close message and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
