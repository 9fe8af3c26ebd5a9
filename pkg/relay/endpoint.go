// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package relay

import "github.com/rdtd/rdtd/pkg/rdt"

// A DeviceEndpoint is one handset identity within a channel. It is created
// once per handset and survives disconnects; dropping the connection clears
// only the connection reference, never channel membership.
type DeviceEndpoint struct {
	phone string
	conn  Conn
}

// Phone returns the handset's phone identifier.
func (d *DeviceEndpoint) Phone() string {
	return d.phone
}

// Connected reports whether a live connection is bound to the endpoint.
func (d *DeviceEndpoint) Connected() bool {
	return d.conn != nil
}

// Send writes a frame to the handset. Sending while disconnected is a no-op.
func (d *DeviceEndpoint) Send(msg *rdt.Message) {
	if d.conn == nil {
		return
	}
	d.conn.Send(msg)
}

// ViewerRole names the two supervising viewer roles of a channel.
type ViewerRole int

const (
	// RoleWeb is the browser viewer. Its snapshots are tagged SC_VUE.
	RoleWeb ViewerRole = iota
	// RoleMobileAdmin is the mobile admin viewer. Its snapshots are
	// tagged SC_MOBILE_ADMIN.
	RoleMobileAdmin
)

func (r ViewerRole) String() string {
	if r == RoleMobileAdmin {
		return "mobile_admin"
	}
	return "web"
}

// snapshotSignal is the tag a snapshot carries when sent to this role.
func (r ViewerRole) snapshotSignal() rdt.Signal {
	if r == RoleMobileAdmin {
		return rdt.ScMobileAdmin
	}
	return rdt.ScVue
}

// A ViewerEndpoint is one viewer role within a channel. At most one live
// connection is bound to a role at a time; binding a new one replaces it.
type ViewerEndpoint struct {
	role ViewerRole
	conn Conn
}

// Role returns the viewer's role.
func (v *ViewerEndpoint) Role() ViewerRole {
	return v.role
}

// Connected reports whether a live connection is bound to the endpoint.
func (v *ViewerEndpoint) Connected() bool {
	return v.conn != nil
}

// Send writes a frame to the viewer. An unbound role silently misses it.
func (v *ViewerEndpoint) Send(msg *rdt.Message) {
	if v.conn == nil {
		return
	}
	v.conn.Send(msg)
}
