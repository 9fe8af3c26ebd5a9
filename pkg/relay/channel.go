// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package relay

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rdtd/rdtd/pkg/rdt"
)

// A Channel is the routing domain for one administrator account. It owns
// every device endpoint registered under that account plus at most one
// viewer endpoint per role, and implements the fan-out rules between them.
// Channels only send on the connections they are handed; they never close
// them.
//
// Channels are not safe for concurrent use; the owning Server serializes
// access.
type Channel struct {
	admin   string
	devices map[string]*DeviceEndpoint
	web     ViewerEndpoint
	mobile  ViewerEndpoint
	log     *logrus.Entry

	// nowMillis is the server clock used for screen-frame latency.
	// Overridable in tests.
	nowMillis func() int32
}

func newChannel(admin string, log *logrus.Logger) *Channel {
	return &Channel{
		admin:     admin,
		devices:   make(map[string]*DeviceEndpoint),
		web:       ViewerEndpoint{role: RoleWeb},
		mobile:    ViewerEndpoint{role: RoleMobileAdmin},
		log:       log.WithField("channel", admin),
		nowMillis: func() int32 { return int32(time.Now().UnixMilli()) },
	}
}

// Admin returns the administrator id that keys this channel.
func (c *Channel) Admin() string {
	return c.admin
}

// CreateDevice registers a device endpoint for a handset not yet known to
// this channel. Callers are responsible for not creating the same phone
// twice.
func (c *Channel) CreateDevice(phone string) *DeviceEndpoint {
	d := &DeviceEndpoint{phone: phone}
	c.devices[phone] = d
	c.log.WithField("phone", phone).Info("Device endpoint created")
	return d
}

// DeviceCount returns the number of known device endpoints, connected or not.
func (c *Channel) DeviceCount() int {
	return len(c.devices)
}

// FindDevice returns the endpoint for phone, or nil if unknown.
func (c *Channel) FindDevice(phone string) *DeviceEndpoint {
	return c.devices[phone]
}

// Snapshot encodes the channel topology for the given viewer role:
// device count, then a phone and connectivity flag per device.
func (c *Channel) Snapshot(role ViewerRole) *rdt.Message {
	msg := rdt.New(role.snapshotSignal())
	msg.WriteInt32(int32(len(c.devices)))

	phones := make([]string, 0, len(c.devices))
	for phone := range c.devices {
		phones = append(phones, phone)
	}
	sort.Strings(phones)
	for _, phone := range phones {
		msg.WriteText(phone)
		var online int32
		if c.devices[phone].Connected() {
			online = 1
		}
		msg.WriteInt32(online)
	}
	return msg
}

// DeviceConnected binds a live connection to the named device endpoint,
// confirms the handshake to the handset, and announces the handset to
// viewers. Unknown phones are a no-op.
func (c *Channel) DeviceConnected(conn Conn, phone string) {
	d := c.devices[phone]
	if d == nil {
		return
	}
	d.conn = conn
	c.log.WithField("phone", phone).Info("Device connected")

	d.Send(rdt.New(rdt.ScUser))

	ann := rdt.New(rdt.ScUser)
	ann.WriteText(phone)
	c.BroadcastToViewers(ann)
}

// DeviceDisconnected clears the device endpoint's connection reference and
// tells viewers the handset dropped. The endpoint itself remains.
func (c *Channel) DeviceDisconnected(phone string) {
	d := c.devices[phone]
	if d == nil {
		return
	}
	d.conn = nil
	c.log.WithField("phone", phone).Info("Device disconnected")

	msg := rdt.New(rdt.ScUserDisconnect)
	msg.WriteText(phone)
	c.BroadcastToViewers(msg)
}

// ScreenFrame relays one screen capture from the named handset: the handset
// gets an ScScreen ack carrying the round-trip latency and frame length,
// and both viewers get the frame stamped with the server receive time.
// Returns the frame byte length for telemetry, or 0 if the frame could not
// be decoded.
func (c *Channel) ScreenFrame(phone string, msg *rdt.Message) int {
	capturedAt, ok := msg.ReadInt32()
	if !ok {
		return 0
	}
	frame, ok := msg.ReadBytes()
	if !ok {
		return 0
	}
	now := c.nowMillis()

	if d := c.devices[phone]; d != nil {
		ack := rdt.New(rdt.ScScreen)
		ack.WriteInt32(now - capturedAt)
		ack.WriteInt32(int32(len(frame)))
		d.Send(ack)
	}

	out := rdt.New(rdt.ScScreen)
	out.WriteText(phone)
	out.WriteInt32(now)
	out.WriteBytes(frame)
	c.BroadcastToViewers(out)

	return len(frame)
}

// BindWebViewer replaces the web viewer's connection and immediately sends
// it the current snapshot. The previous connection, if any, simply stops
// receiving routed traffic.
func (c *Channel) BindWebViewer(conn Conn) {
	c.bindViewer(&c.web, conn)
}

// BindMobileViewer replaces the mobile admin viewer's connection and
// immediately sends it the current snapshot.
func (c *Channel) BindMobileViewer(conn Conn) {
	c.bindViewer(&c.mobile, conn)
}

func (c *Channel) bindViewer(v *ViewerEndpoint, conn Conn) {
	v.conn = conn
	c.log.WithField("role", v.role).Info("Viewer bound")
	v.Send(c.Snapshot(v.role))
}

// UnbindWebViewer clears the web viewer's connection reference.
func (c *Channel) UnbindWebViewer() {
	c.web.conn = nil
	c.log.WithField("role", RoleWeb).Info("Viewer unbound")
}

// UnbindMobileViewer clears the mobile admin viewer's connection reference.
func (c *Channel) UnbindMobileViewer() {
	c.mobile.conn = nil
	c.log.WithField("role", RoleMobileAdmin).Info("Viewer unbound")
}

// ForwardOnOff sends an ScOnOff toggle to the named handset. Unknown or
// disconnected handsets silently miss it.
func (c *Channel) ForwardOnOff(phone string, flag int32) {
	d := c.devices[phone]
	if d == nil || !d.Connected() {
		return
	}
	msg := rdt.New(rdt.ScOnOff)
	msg.WriteInt32(flag)
	d.Send(msg)
}

// ForwardTouch sends an ScTouched tap to the named handset. Unknown or
// disconnected handsets silently miss it.
func (c *Channel) ForwardTouch(phone string, x, y int32) {
	d := c.devices[phone]
	if d == nil || !d.Connected() {
		return
	}
	msg := rdt.New(rdt.ScTouched)
	msg.WriteInt32(x)
	msg.WriteInt32(y)
	d.Send(msg)
}

// BroadcastToViewers sends msg to every viewer role with a bound
// connection.
func (c *Channel) BroadcastToViewers(msg *rdt.Message) {
	c.web.Send(msg)
	c.mobile.Send(msg)
}

// connectedDevices counts device endpoints with a live connection.
func (c *Channel) connectedDevices() int {
	var n int
	for _, d := range c.devices {
		if d.Connected() {
			n++
		}
	}
	return n
}

// connectedViewers counts viewer roles with a live connection.
func (c *Channel) connectedViewers() int {
	var n int
	if c.web.Connected() {
		n++
	}
	if c.mobile.Connected() {
		n++
	}
	return n
}
