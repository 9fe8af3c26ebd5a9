package rdt

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	m := NewMessage()
	m.WriteInt32(-42)
	m.WriteText("+15551234567")
	m.WriteFloat32(3.5)
	m.WriteBytes([]byte{0x01, 0x02, 0x03})
	m.WriteText("")

	r := FromBytes(m.Bytes())
	if v, ok := r.ReadInt32(); !ok || v != -42 {
		t.Errorf("ReadInt32 = %d, %v; wanted -42, true", v, ok)
	}
	if s, ok := r.ReadText(); !ok || s != "+15551234567" {
		t.Errorf("ReadText = %q, %v; wanted \"+15551234567\", true", s, ok)
	}
	if f, ok := r.ReadFloat32(); !ok || f != 3.5 {
		t.Errorf("ReadFloat32 = %v, %v; wanted 3.5, true", f, ok)
	}
	if b, ok := r.ReadBytes(); !ok || !bytes.Equal(b, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes = %v, %v; wanted [1 2 3], true", b, ok)
	}
	if s, ok := r.ReadText(); !ok || s != "" {
		t.Errorf("ReadText of empty string = %q, %v; wanted \"\", true", s, ok)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d after reading every field", r.Remaining())
	}
}

func TestLittleEndianLayout(t *testing.T) {
	m := NewMessage()
	m.WriteInt32(0x103)
	wanted := []byte{0x03, 0x01, 0x00, 0x00}
	if !bytes.Equal(m.Bytes(), wanted) {
		t.Errorf("encoded int32 = %v; wanted %v", m.Bytes(), wanted)
	}

	m = NewMessage()
	m.WriteText("AB")
	wanted = []byte{0x02, 0x00, 0x00, 0x00, 'A', 'B'}
	if !bytes.Equal(m.Bytes(), wanted) {
		t.Errorf("encoded text = %v; wanted %v", m.Bytes(), wanted)
	}
}

func TestTruncatedReadIsNoOp(t *testing.T) {
	// Two good bytes are not enough for any field.
	r := FromBytes([]byte{0x01, 0x02})
	if _, ok := r.ReadInt32(); ok {
		t.Error("ReadInt32 succeeded on a 2-byte buffer")
	}
	if _, ok := r.ReadFloat32(); ok {
		t.Error("ReadFloat32 succeeded on a 2-byte buffer")
	}
	if _, ok := r.ReadBytes(); ok {
		t.Error("ReadBytes succeeded on a 2-byte buffer")
	}
	if r.Remaining() != 2 {
		t.Errorf("cursor moved on failed reads; Remaining = %d", r.Remaining())
	}
}

func TestLengthPrefixPastEnd(t *testing.T) {
	// Prefix says 100 bytes but only 2 follow.
	m := NewMessage()
	m.WriteInt32(100)
	m.WriteInt32(0) // partial payload

	r := FromBytes(m.Bytes())
	if _, ok := r.ReadBytes(); ok {
		t.Error("ReadBytes succeeded with a length prefix past the end")
	}
	if r.Remaining() != 8 {
		t.Errorf("cursor moved on failed length-prefixed read; Remaining = %d", r.Remaining())
	}

	// The fields are still readable as integers.
	if v, ok := r.ReadInt32(); !ok || v != 100 {
		t.Errorf("ReadInt32 after failed ReadBytes = %d, %v", v, ok)
	}
}

func TestNegativeLengthPrefix(t *testing.T) {
	m := NewMessage()
	m.WriteInt32(-1)

	r := FromBytes(m.Bytes())
	if _, ok := r.ReadBytes(); ok {
		t.Error("ReadBytes succeeded with a negative length prefix")
	}
	if r.Remaining() != 4 {
		t.Errorf("cursor moved on negative length prefix; Remaining = %d", r.Remaining())
	}
}

func TestReadBytesDoesNotAlias(t *testing.T) {
	m := NewMessage()
	m.WriteBytes([]byte{0xAA, 0xBB})

	r := FromBytes(m.Bytes())
	b, ok := r.ReadBytes()
	if !ok {
		t.Fatal("ReadBytes failed")
	}
	b[0] = 0x00
	if m.Bytes()[4] != 0xAA {
		t.Error("ReadBytes result aliases the message buffer")
	}
}

func TestSignalRoundTrip(t *testing.T) {
	m := New(CsScreen)
	m.WriteInt32(1000)

	r := FromBytes(m.Bytes())
	sig, ok := r.ReadSignal()
	if !ok || sig != CsScreen {
		t.Errorf("ReadSignal = %v, %v; wanted CS_SCREEN, true", sig, ok)
	}
	if sig.String() != "CS_SCREEN" {
		t.Errorf("Signal.String = %q", sig.String())
	}
}
