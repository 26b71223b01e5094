package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	marketdatav1 "github.com/TexasCoding/projectx-go/internal/domain/marketdata/v1"
)

// Client connects to the gateway market-data websocket and exposes raw
// payloads through buffered channels. One Client serves one connection
// session: after the read loop exits the messages channel is closed and the
// feed manager builds a fresh Client for the next attempt.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	messages chan []byte
	errs     chan error
	done     chan struct{}

	writeMu sync.Mutex
}

var _ marketdatav1.Transport = (*Client)(nil)

const (
	defaultQueueSize    = 256
	defaultErrQueue     = 16
	defaultWriteTimeout = 10 * time.Second
)

func NewClient(url string) *Client {
	return &Client{
		url:      url,
		dialer:   websocket.DefaultDialer,
		messages: make(chan []byte, defaultQueueSize),
		errs:     make(chan error, defaultErrQueue),
	}
}

// Connect dials the gateway and starts the read pump. The caller reuses one
// Client across reconnect sessions, so each successful dial replaces the
// message and error channels with fresh ones. The ctx bounds the dial only;
// the read pump lives until Close or a read error.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	messages := make(chan []byte, defaultQueueSize)
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.messages = messages
	c.errs = make(chan error, defaultErrQueue)
	c.done = done
	c.mu.Unlock()

	go c.readLoop(conn, messages, done)
	return nil
}

// controlMessage is the outbound request frame understood by the gateway.
type controlMessage struct {
	Method      string   `json:"method"`
	ContractIDs []string `json:"contractIds,omitempty"`
	ContractID  string   `json:"contractId,omitempty"`
}

func (c *Client) Subscribe(ctx context.Context, contractIDs []string) error {
	return c.writeJSON(controlMessage{
		Method:      "subscribe",
		ContractIDs: contractIDs,
	})
}

func (c *Client) Unsubscribe(ctx context.Context, contractIDs []string) error {
	return c.writeJSON(controlMessage{
		Method:      "unsubscribe",
		ContractIDs: contractIDs,
	})
}

func (c *Client) RequestDepthSnapshot(ctx context.Context, contractID string) error {
	return c.writeJSON(controlMessage{
		Method:     "depthSnapshot",
		ContractID: contractID,
	})
}

func (c *Client) Messages() <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages
}

func (c *Client) Errors() <-chan error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.done = nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return conn.WriteJSON(v)
}

func (c *Client) readLoop(conn *websocket.Conn, messages chan []byte, done <-chan struct{}) {
	defer close(messages)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					c.pushErr(fmt.Errorf("read: %w", err))
				}
			}
			return
		}

		select {
		case messages <- msg:
		case <-done:
			return
		}
	}
}

func (c *Client) pushErr(err error) {
	c.mu.Lock()
	errs := c.errs
	c.mu.Unlock()

	select {
	case errs <- err:
	default:
	}
}
