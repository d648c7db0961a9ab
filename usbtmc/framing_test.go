package usbtmc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// fakeBus records outgoing packets and serves a canned inbound reply.
type fakeBus struct {
	sent  [][]byte
	reply []byte
}

func (f *fakeBus) BulkOut(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	f.sent = append(f.sent, cp)
	return len(p), nil
}

func (f *fakeBus) BulkIn(p []byte) (int, error) {
	return copy(p, f.reply), nil
}

func (f *fakeBus) Close() error { return nil }

func TestWriteFramesAndPads(t *testing.T) {
	bus := &fakeBus{}
	d := NewDevice(bus)
	payload := []byte("OUTPUT ON\n") // 10 bytes, forces 2 bytes of padding
	if err := d.Write(payload); err != nil {
		t.Fatal(err)
	}
	if len(bus.sent) != 1 {
		t.Fatalf("wrote %d packets, want 1", len(bus.sent))
	}
	pkt := bus.sent[0]
	if len(pkt)%alignment != 0 {
		t.Errorf("packet length %d not aligned to %d", len(pkt), alignment)
	}
	if pkt[0] != msgDevDepOut {
		t.Errorf("MsgID = %#x, want %#x", pkt[0], msgDevDepOut)
	}
	if pkt[2] != pkt[1]^0xff {
		t.Errorf("bTagInverse %#x does not invert bTag %#x", pkt[2], pkt[1])
	}
	if size := binary.LittleEndian.Uint32(pkt[4:8]); size != uint32(len(payload)) {
		t.Errorf("transferSize = %d, want %d", size, len(payload))
	}
	if pkt[8] != 0x01 {
		t.Errorf("EOM bit not set, byte 8 = %#x", pkt[8])
	}
	if !bytes.Equal(pkt[headerLen:headerLen+len(payload)], payload) {
		t.Errorf("payload mangled: %q", pkt[headerLen:])
	}
	for _, b := range pkt[headerLen+len(payload):] {
		if b != 0 {
			t.Errorf("padding contains nonzero byte %#x", b)
		}
	}
}

func TestBTagsRotateAndSkipZero(t *testing.T) {
	var g tagGenerator
	g.value = 254
	seen := []byte{g.next(), g.next(), g.next()}
	want := []byte{255, 1, 2} // zero is never a valid bTag
	if !bytes.Equal(seen, want) {
		t.Errorf("tag sequence = %v, want %v", seen, want)
	}
}

func TestReadSplitsHeaderFromData(t *testing.T) {
	reply := make([]byte, headerLen, headerLen+3)
	reply[0] = msgDevDepOut
	reply = append(reply, '1', 0x10, '\n')
	bus := &fakeBus{reply: reply}
	d := NewDevice(bus)
	resp, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	// the request header must have gone out first
	if len(bus.sent) != 1 {
		t.Fatalf("sent %d packets, want 1 read request", len(bus.sent))
	}
	req := bus.sent[0]
	if req[0] != msgRequestDevDepIn {
		t.Errorf("request MsgID = %#x, want %#x", req[0], msgRequestDevDepIn)
	}
	if req[8] != 0x02 || req[9] != '\n' {
		t.Errorf("terminator not requested: bytes 8,9 = %#x, %#x", req[8], req[9])
	}
	if len(resp.Header) != headerLen {
		t.Errorf("header length %d, want %d", len(resp.Header), headerLen)
	}
	if !bytes.Equal(resp.Data, []byte{'1', 0x10, '\n'}) {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestReadRejectsShortResponse(t *testing.T) {
	bus := &fakeBus{reply: []byte{0x01, 0x02}}
	d := NewDevice(bus)
	if _, err := d.Read(); err == nil {
		t.Error("expected an error for a response shorter than the header")
	}
}
