// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package relay

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Handsets and viewers connect from anywhere; admission happens in the
	// RDT handshake, not at the HTTP layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ListenAndServe listens for relay connections on addr and serves them
// until the listener fails.
func (srv *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "Listen")
	}
	defer listener.Close()

	srv.log.WithField("addr", addr).Info("Listening for relay connections")
	return srv.Serve(listener)
}

// Serve accepts relay connections from listener. Every request path
// upgrades to a websocket speaking the binary RDT protocol.
func (srv *Server) Serve(listener net.Listener) error {
	httpSrv := &http.Server{
		Handler:           http.HandlerFunc(srv.serveWS),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return errors.Wrap(httpSrv.Serve(listener), "Serve relay")
}

func (srv *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.log.WithFields(logrus.Fields{
			"remote_addr": r.RemoteAddr,
			"error":       err,
		}).Error("Websocket upgrade failed")
		return
	}

	conn := newWSConn(ws, srv.log.WithField("proto", "rdt"))
	conn.log.Info("Connected")
	go srv.readLoop(conn)
}

// readLoop pumps inbound frames into the relay. When the transport drops,
// the one definite, always-handled event fires: disconnect cleanup.
func (srv *Server) readLoop(conn *wsConn) {
	defer func() {
		conn.Close()
		srv.HandleDisconnect(conn)
		conn.log.Info("Disconnected")
	}()

	for {
		kind, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		srv.HandleFrame(conn, data)
	}
}
