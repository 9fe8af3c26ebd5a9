// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package relay implements the RDT relay: it classifies incoming
// connections as handsets or viewers, groups them into per-administrator
// channels, and routes screen frames and control commands between them.
package relay

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rdtd/rdtd/pkg/rdt"
)

// A DeviceIdentity is one registered handset: a phone under an
// administrator account.
type DeviceIdentity struct {
	Phone   string
	SuperID string
}

// A DeviceDirectory lists the registered handsets the relay should know
// about at startup. The account store implements it; the relay never sees
// credentials or any other part of the account model.
type DeviceDirectory interface {
	ActiveDevices() ([]DeviceIdentity, error)
}

// connRole classifies what a connection turned out to be during handshake.
type connRole int

const (
	roleDevice connRole = iota
	roleWebViewer
	roleMobileViewer
)

// A binding records how a live connection was classified: the channel it
// belongs to, whether it is a handset or a viewer, and the handset's phone.
// Inbound frames and disconnects arrive keyed only by connection, so the
// registry of bindings is what makes them routable.
type binding struct {
	channel *Channel
	role    connRole
	phone   string // set for devices only
}

// Server is the relay. It owns the channel set, keyed by administrator id,
// and the registry of live connections.
//
// One mutex guards the channel map, the registry, and all routing through
// them: every frame runs parse → update state → send to completion before
// the next one touches the maps. Socket writes stay outside the critical
// path via each connection's buffered writer.
type Server struct {
	log     *logrus.Logger
	metrics *Metrics

	mu           sync.Mutex
	channels     map[string]*Channel
	registry     map[Conn]binding
	startedAt    time.Time
	maxConns     int
	maxConnsTime time.Time
}

// NewServer creates a relay and preloads channel topology from the
// directory, so handsets reconnecting after a restart do not need to
// re-register.
func NewServer(log *logrus.Logger, dir DeviceDirectory) (*Server, error) {
	now := time.Now()
	srv := &Server{
		log:          log,
		metrics:      newMetrics(),
		channels:     make(map[string]*Channel),
		registry:     make(map[Conn]binding),
		startedAt:    now,
		maxConnsTime: now,
	}

	if dir != nil {
		devices, err := dir.ActiveDevices()
		if err != nil {
			return nil, errors.Wrap(err, "Load registered devices")
		}
		for _, d := range devices {
			srv.checkChannelAndUser(d.Phone, d.SuperID)
		}
		log.WithFields(logrus.Fields{
			"devices":  len(devices),
			"channels": len(srv.channels),
		}).Info("Preloaded channel topology")
	}

	return srv, nil
}

// CheckChannelAndUser synchronizes relay topology with the account store:
// it looks up or creates the channel for superID, then creates a device
// endpoint for phone if the channel does not already have one. The
// registration flow calls this after every successful signup.
func (srv *Server) CheckChannelAndUser(phone, superID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.checkChannelAndUser(phone, superID) {
		// Topology changed; bound viewers get a fresh snapshot.
		ch := srv.channels[superID]
		ch.web.Send(ch.Snapshot(RoleWeb))
		ch.mobile.Send(ch.Snapshot(RoleMobileAdmin))
	}
}

// checkChannelAndUser reports whether a device endpoint was created.
// Callers must hold srv.mu.
func (srv *Server) checkChannelAndUser(phone, superID string) bool {
	if phone == "" || superID == "" {
		return false
	}
	ch, ok := srv.channels[superID]
	if !ok {
		ch = newChannel(superID, srv.log)
		srv.channels[superID] = ch
		srv.metrics.channels.Inc()
	}
	if ch.FindDevice(phone) != nil {
		return false
	}
	ch.CreateDevice(phone)
	return true
}

// Channel returns the channel for superID, or nil.
func (srv *Server) Channel(superID string) *Channel {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.channels[superID]
}

// HandleFrame routes one inbound frame from conn. Unidentified connections
// may only handshake; anything else is discarded. Identified connections
// have their frames dispatched by signal to the owning channel. Malformed
// and unknown frames are discarded, never fatal.
func (srv *Server) HandleFrame(conn Conn, data []byte) {
	msg := rdt.FromBytes(data)
	sig, ok := msg.ReadSignal()
	if !ok {
		return
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	b, identified := srv.registry[conn]
	if !identified {
		srv.handshake(conn, sig, msg)
		return
	}

	handlers := deviceHandlers
	if b.role != roleDevice {
		handlers = viewerHandlers
	}
	handler := handlers[sig]
	if handler == nil {
		srv.log.WithFields(logrus.Fields{
			"signal":      sig,
			"remote_addr": conn.RemoteAddr(),
		}).Debug("Discarding frame with unexpected signal")
		return
	}
	handler(srv, b, msg)
}

// handshake classifies an unidentified connection by its first frame.
// Frames that are not a valid handshake leave the connection unidentified.
// Callers must hold srv.mu.
func (srv *Server) handshake(conn Conn, sig rdt.Signal, msg *rdt.Message) {
	switch sig {
	case rdt.CsUser:
		phone, ok := msg.ReadText()
		if !ok {
			return
		}
		superID, ok := msg.ReadText()
		if !ok {
			return
		}
		ch := srv.channels[superID]
		if ch == nil || ch.FindDevice(phone) == nil {
			srv.log.WithFields(logrus.Fields{
				"phone":    phone,
				"super_id": superID,
			}).Warn("Handshake from unregistered device")
			return
		}
		srv.register(conn, binding{channel: ch, role: roleDevice, phone: phone})
		ch.DeviceConnected(conn, phone)
		srv.metrics.devicesConnected.Inc()

	case rdt.CsVue:
		if ch := srv.viewerChannel(msg); ch != nil {
			srv.register(conn, binding{channel: ch, role: roleWebViewer})
			ch.BindWebViewer(conn)
			srv.metrics.viewersConnected.Inc()
		}

	case rdt.CsMobileAdmin:
		if ch := srv.viewerChannel(msg); ch != nil {
			srv.register(conn, binding{channel: ch, role: roleMobileViewer})
			ch.BindMobileViewer(conn)
			srv.metrics.viewersConnected.Inc()
		}

	default:
		srv.log.WithFields(logrus.Fields{
			"signal":      sig,
			"remote_addr": conn.RemoteAddr(),
		}).Debug("Discarding frame from unidentified connection")
	}
}

// viewerChannel resolves the channel named by a viewer handshake payload.
func (srv *Server) viewerChannel(msg *rdt.Message) *Channel {
	superID, ok := msg.ReadText()
	if !ok {
		return nil
	}
	ch := srv.channels[superID]
	if ch == nil {
		srv.log.WithField("super_id", superID).Warn("Viewer handshake for unknown channel")
	}
	return ch
}

// register inserts a registry entry. Callers must hold srv.mu.
func (srv *Server) register(conn Conn, b binding) {
	srv.registry[conn] = b
	if len(srv.registry) > srv.maxConns {
		srv.maxConns = len(srv.registry)
		srv.maxConnsTime = time.Now()
	}
}

// HandleDisconnect performs channel-level cleanup for a dropped connection
// and removes its registry entry. Unidentified connections have no entry
// and nothing to clean up.
func (srv *Server) HandleDisconnect(conn Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	b, ok := srv.registry[conn]
	if !ok {
		return
	}
	delete(srv.registry, conn)

	switch b.role {
	case roleDevice:
		// A replacement connection may already be bound; only the entry
		// that still owns the endpoint clears it.
		if d := b.channel.FindDevice(b.phone); d != nil && d.conn == conn {
			b.channel.DeviceDisconnected(b.phone)
		}
		srv.metrics.devicesConnected.Dec()
	case roleWebViewer:
		if b.channel.web.conn == conn {
			b.channel.UnbindWebViewer()
		}
		srv.metrics.viewersConnected.Dec()
	case roleMobileViewer:
		if b.channel.mobile.conn == conn {
			b.channel.UnbindMobileViewer()
		}
		srv.metrics.viewersConnected.Dec()
	}
}

// Frame handlers, one per accepted signal, keyed by the role the registry
// recorded for the connection. Handlers run with srv.mu held and get the
// decoded message with the signal already consumed.
type frameHandler func(srv *Server, b binding, msg *rdt.Message)

var deviceHandlers = map[rdt.Signal]frameHandler{
	rdt.CsScreen: func(srv *Server, b binding, msg *rdt.Message) {
		n := b.channel.ScreenFrame(b.phone, msg)
		if n > 0 {
			srv.metrics.framesRelayed.Inc()
			srv.metrics.frameBytes.Add(float64(n))
		}
	},
}

var viewerHandlers = map[rdt.Signal]frameHandler{
	rdt.CsOnOff: func(srv *Server, b binding, msg *rdt.Message) {
		phone, ok := msg.ReadText()
		if !ok {
			return
		}
		flag, ok := msg.ReadInt32()
		if !ok {
			return
		}
		b.channel.ForwardOnOff(phone, flag)
	},
	rdt.CsTouched: func(srv *Server, b binding, msg *rdt.Message) {
		phone, ok := msg.ReadText()
		if !ok {
			return
		}
		x, ok := msg.ReadInt32()
		if !ok {
			return
		}
		y, ok := msg.ReadInt32()
		if !ok {
			return
		}
		b.channel.ForwardTouch(phone, x, y)
	},
}
