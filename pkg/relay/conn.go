// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rdtd/rdtd/pkg/rdt"
)

const (
	sendBuffSize = 32 // Frames queued per connection before drops start
	writeTimeout = 10 * time.Second
)

// A Conn is one live relay connection. Send never blocks the caller and is
// a guarded no-op once the peer is gone; connection lifecycle is owned by
// the Server, never by channels or endpoints.
type Conn interface {
	Send(msg *rdt.Message)
	Close()
	RemoteAddr() string
}

// wsConn adapts a websocket connection to Conn. Frames queued on the send
// channel are written by a single writer goroutine, so a slow viewer can
// drop frames but can never stall the relay.
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *logrus.Entry
}

func newWSConn(ws *websocket.Conn, log *logrus.Entry) *wsConn {
	c := &wsConn{
		ws:   ws,
		send: make(chan []byte, sendBuffSize),
		done: make(chan struct{}),
	}
	c.log = log.WithField("remote_addr", c.RemoteAddr())
	go c.writer()
	return c
}

func (c *wsConn) writer() {
	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.log.WithField("error", err).Debug("Write failed; closing connection")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Send(msg *rdt.Message) {
	select {
	case <-c.done:
	case c.send <- msg.Bytes():
	default:
		c.log.Debug("Send buffer full; dropping frame")
	}
}

// Close is idempotent. Closing the websocket makes the reader goroutine
// fail, which is what reports the disconnect to the server.
func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
