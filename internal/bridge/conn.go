package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
)

// conn is a phone connection. Reads happen on the handler goroutine; writes
// may come from the handler and the ping loop.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &conn{ws: ws, done: make(chan struct{})}
}

// keepAlive pings the phone until the connection closes.
func (c *conn) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// send encodes and writes one message.
func (c *conn) send(t string, payload any) error {
	b, err := Encode(t, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

// read blocks for the next message envelope.
func (c *conn) read() (Envelope, error) {
	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Envelope{}, errors.Wrap(err, "failed to read message")
	}
	if msgType != websocket.TextMessage {
		return Envelope{}, errors.New("unsupported message type")
	}
	return DecodeEnvelope(data)
}

// setReadDeadline bounds the next read.
func (c *conn) setReadDeadline(d time.Duration) {
	_ = c.ws.SetReadDeadline(time.Now().Add(d))
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
}
