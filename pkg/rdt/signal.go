// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package rdt

// DefaultPort is the port the relay listens on for RDT connections.
const DefaultPort = 5050

// A Signal is the leading integer field of every frame. It selects the
// schema of the remaining fields and how the frame is routed.
// Cs* signals flow client to server, Sc* signals server to client.
type Signal int32

const (
	// CsUser identifies a handset: phone, super id.
	// The server confirms with an empty ScUser frame.
	CsUser Signal = 0xFF
	// ScUser confirms a handset handshake (empty when sent to the
	// handset) or announces a newly connected handset to viewers (phone).
	ScUser Signal = 0x100

	// CsVue identifies the web viewer: super id.
	CsVue Signal = 0x101
	// ScVue carries a channel snapshot to the web viewer.
	ScVue Signal = 0x102

	// CsScreen carries one screen capture from a handset:
	// capture timestamp (milliseconds, truncated to int32), frame bytes.
	CsScreen Signal = 0x103
	// ScScreen acknowledges a capture to the handset (latency, frame
	// length) or relays it to viewers (phone, receive timestamp, frame
	// bytes).
	ScScreen Signal = 0x104

	CsUserDisconnect Signal = 0x105
	// ScUserDisconnect tells viewers a handset dropped: phone.
	ScUserDisconnect Signal = 0x106

	// CsMobileAdmin identifies the mobile admin viewer: super id.
	CsMobileAdmin Signal = 0x107
	// ScMobileAdmin carries a channel snapshot to the mobile admin viewer.
	ScMobileAdmin Signal = 0x108

	// CsOnOff toggles a handset's active state: phone, flag.
	CsOnOff Signal = 0x109
	// ScOnOff forwards the toggle to the handset: flag.
	ScOnOff Signal = 0x10a

	// CsTouched injects a tap: phone, x, y.
	// Coordinates are fixed-point screen ratios scaled by 10000.
	CsTouched Signal = 0x10b
	// ScTouched forwards the tap to the handset: x, y.
	ScTouched Signal = 0x10c
)

// TouchScale converts between float screen ratios and the fixed-point
// coordinates carried by CsTouched/ScTouched.
const TouchScale = 10000

func (s Signal) String() string {
	switch s {
	case CsUser:
		return "CS_USER"
	case ScUser:
		return "SC_USER"
	case CsVue:
		return "CS_VUE"
	case ScVue:
		return "SC_VUE"
	case CsScreen:
		return "CS_SCREEN"
	case ScScreen:
		return "SC_SCREEN"
	case CsUserDisconnect:
		return "CS_USER_DISCONNECT"
	case ScUserDisconnect:
		return "SC_USER_DISCONNECT"
	case CsMobileAdmin:
		return "CS_MOBILE_ADMIN"
	case ScMobileAdmin:
		return "SC_MOBILE_ADMIN"
	case CsOnOff:
		return "CS_ONOFF"
	case ScOnOff:
		return "SC_ONOFF"
	case CsTouched:
		return "CS_TOUCHED"
	case ScTouched:
		return "SC_TOUCHED"
	default:
		return "UNKNOWN"
	}
}

// New returns a message with the signal written as its first field.
func New(s Signal) *Message {
	m := NewMessage()
	m.WriteInt32(int32(s))
	return m
}

// ReadSignal consumes the leading signal field of a received frame.
func (m *Message) ReadSignal() (Signal, bool) {
	v, ok := m.ReadInt32()
	return Signal(v), ok
}
