// Copyright © 2024 the rdtd authors
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package rdt implements the RDT wire format: a blind sequential encoding of
// 32-bit integers, 32-bit floats, and length-prefixed text or raw bytes.
// The format carries no field names or type tags; sender and receiver must
// agree on the field order for each signal.
package rdt

import (
	"encoding/binary"
	"math"
)

// A Message is one binary frame of the RDT protocol.
// Writes append fields to the buffer; reads consume them in the order the
// peer wrote them. Reads are defensive: a read that would pass the end of
// the buffer returns the zero value and false, and does not move the cursor.
type Message struct {
	buf []byte
	off int
}

// NewMessage returns an empty message ready for writing.
func NewMessage() *Message {
	return &Message{}
}

// FromBytes wraps a received frame for reading.
// The message takes ownership of data; callers must not modify it afterwards.
func FromBytes(data []byte) *Message {
	return &Message{buf: data}
}

// WriteInt32 appends a little-endian signed 32-bit integer.
func (m *Message) WriteInt32(v int32) {
	m.buf = binary.LittleEndian.AppendUint32(m.buf, uint32(v))
}

// WriteFloat32 appends a little-endian IEEE-754 32-bit float.
func (m *Message) WriteFloat32(v float32) {
	m.buf = binary.LittleEndian.AppendUint32(m.buf, math.Float32bits(v))
}

// WriteText appends a 4-byte length prefix followed by the UTF-8 bytes of s.
func (m *Message) WriteText(s string) {
	m.WriteInt32(int32(len(s)))
	m.buf = append(m.buf, s...)
}

// WriteBytes appends a 4-byte length prefix followed by b.
func (m *Message) WriteBytes(b []byte) {
	m.WriteInt32(int32(len(b)))
	m.buf = append(m.buf, b...)
}

// ReadInt32 consumes a 32-bit integer.
func (m *Message) ReadInt32() (int32, bool) {
	if m.off+4 > len(m.buf) {
		return 0, false
	}
	v := int32(binary.LittleEndian.Uint32(m.buf[m.off:]))
	m.off += 4
	return v, true
}

// ReadFloat32 consumes a 32-bit float.
func (m *Message) ReadFloat32() (float32, bool) {
	if m.off+4 > len(m.buf) {
		return 0, false
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(m.buf[m.off:]))
	m.off += 4
	return v, true
}

// ReadText consumes a length-prefixed UTF-8 string.
func (m *Message) ReadText() (string, bool) {
	b, ok := m.ReadBytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

// ReadBytes consumes a length-prefixed byte field.
// The returned slice is a copy; it does not alias the message buffer.
func (m *Message) ReadBytes() ([]byte, bool) {
	if m.off+4 > len(m.buf) {
		return nil, false
	}
	size := int32(binary.LittleEndian.Uint32(m.buf[m.off:]))
	if size < 0 || int(size) > len(m.buf)-m.off-4 {
		return nil, false
	}
	m.off += 4
	b := make([]byte, size)
	copy(b, m.buf[m.off:m.off+int(size)])
	m.off += int(size)
	return b, true
}

// Bytes returns the accumulated frame for transmission.
func (m *Message) Bytes() []byte {
	return m.buf
}

// Len returns the total frame length in bytes.
func (m *Message) Len() int {
	return len(m.buf)
}

// Remaining returns the number of unread bytes.
func (m *Message) Remaining() int {
	return len(m.buf) - m.off
}
