package binance

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	readTimeout      = 60 * time.Second
)

// Dialer opens websocket connections to the quote stream endpoint. It
// carries no reconnect policy: the feed manager owns the session lifecycle.
type Dialer struct {
	url string
}

// NewDialer creates a stream dialer for the given websocket URL.
func NewDialer(url string) *Dialer {
	return &Dialer{url: url}
}

// Dial opens one connection.
func (d *Dialer) Dial(ctx context.Context) (domain.StreamConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, d.url, http.Header{})
	if err != nil {
		return nil, err
	}
	return &streamConn{conn: conn}, nil
}

// streamConn wraps a gorilla connection with serialized writes and a read
// deadline per frame.
type streamConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *streamConn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *streamConn) ReadMessage() ([]byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

// CloseHandshake sends a close frame; the peer's reply surfaces through
// ReadMessage as a CloseError.
func (c *streamConn) CloseHandshake() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}
