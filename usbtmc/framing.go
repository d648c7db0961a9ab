/*Package usbtmc implements message framing for USB Test and Measurement
Class devices, the transport spoken by Thorlabs laser diode controllers
and most bench instruments with a USB port.

Only the DEV_DEP_MSG bulk transfer pair is implemented.  Multi-packet
messages are not; the remote's buffer is assumed to fit each datagram.

A transmission is a 12 byte header, the payload, and zero padding out to
a multiple of 4 bytes.  A read is a 12 byte request header sent on the
Out endpoint followed by a read on the In endpoint, whose reply carries
its own 12 byte header ahead of the data.

The codec lives in this file and has no USB dependency; the libusb-backed
transport is compiled in with the 'usbtmc' build tag.
*/
package usbtmc

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	// msgDevDepOut is MsgID for a device dependent command message, Table 2
	msgDevDepOut = 0x01

	// msgRequestDevDepIn is MsgID for a request to send a response, Table 2
	msgRequestDevDepIn = 0x02

	reserved = 0x00

	headerLen = 12

	alignment = 4

	// readBufSize is one TCP MTU.  Nothing to do with USB, just comfortably
	// larger than any reply an instrument sends to a SCPI query.
	readBufSize = 1500
)

// tagGenerator hands out bTags.  bTags identify transfers and must be
// nonzero and change between consecutive transfers; we increment with
// wraparound to 1.
type tagGenerator struct {
	sync.Mutex
	value byte
}

func (t *tagGenerator) next() byte {
	t.Lock()
	defer t.Unlock()
	t.value++
	if t.value == 0 {
		t.value = 1
	}
	return t.value
}

// invTag is the bitwise inverse of a bTag, placed at header offset 2
// so the device can validate the header.
func invTag(b byte) byte {
	return b ^ 0xff
}

// Response is a bulk-in reply split into its header and payload.
type Response struct {
	Header []byte
	Data   []byte
}

// encOutHeader builds the DEV_DEP_MSG_OUT header (Table 3) for a payload
// of datalen bytes.  The EOM bit is always set; we never split messages.
func encOutHeader(tag byte, datalen int) [headerLen]byte {
	var out [headerLen]byte
	out[0] = msgDevDepOut
	out[1] = tag
	out[2] = invTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(datalen))
	out[8] = 0x01 // EOM
	return out
}

// encInHeader builds the REQUEST_DEV_DEP_MSG_IN header (Table 4).
// A nil terminator leaves the TermCharEnabled bit clear.
func encInHeader(tag byte, bufsize int, terminator *byte) [headerLen]byte {
	var out [headerLen]byte
	out[0] = msgRequestDevDepIn
	out[1] = tag
	out[2] = invTag(tag)
	out[3] = reserved
	binary.LittleEndian.PutUint32(out[4:8], uint32(bufsize))
	if terminator != nil {
		out[8] = 0x02 // TermCharEnabled
		out[9] = *terminator
	}
	return out
}

// pad returns b extended with zeros to a multiple of the bulk alignment.
func pad(b []byte) []byte {
	if residual := len(b) % alignment; residual > 0 {
		b = append(b, make([]byte, alignment-residual)...)
	}
	return b
}

// Bus moves raw packets over the wire.  The gousb endpoints satisfy it;
// tests substitute an in-memory fake.
type Bus interface {
	// BulkOut sends one packet on the Out endpoint
	BulkOut([]byte) (int, error)

	// BulkIn reads one packet from the In endpoint into p
	BulkIn(p []byte) (int, error)

	// Close releases the bus
	Close() error
}

// Device frames messages over a Bus.
type Device struct {
	tags tagGenerator
	bus  Bus
}

// NewDevice wraps a bus in the framing layer.
func NewDevice(bus Bus) *Device {
	return &Device{bus: bus}
}

// Write sends one complete message to the device.
func (d *Device) Write(b []byte) error {
	hdr := encOutHeader(d.tags.next(), len(b))
	packet := pad(append(hdr[:], b...))
	_, err := d.bus.BulkOut(packet)
	return err
}

// Read requests a response from the device and returns it with the
// header split off.  The newline terminator is requested so the device
// ends the transfer at the end of its reply.
func (d *Device) Read() (Response, error) {
	var out Response
	term := byte('\n')
	hdr := encInHeader(d.tags.next(), readBufSize, &term)
	n, err := d.bus.BulkOut(hdr[:])
	if err != nil {
		return out, err
	}
	if n < headerLen {
		// finish the partial transfer
		m, err := d.bus.BulkOut(hdr[n:])
		if err != nil {
			return out, err
		}
		if n+m != headerLen {
			return out, fmt.Errorf("usbtmc: wrote %d of %d read request bytes", n+m, headerLen)
		}
	}
	buf := make([]byte, readBufSize)
	n, err = d.bus.BulkIn(buf)
	if err != nil {
		return out, err
	}
	if n < headerLen {
		return out, fmt.Errorf("usbtmc: response of %d bytes is shorter than the %d byte header", n, headerLen)
	}
	buf = buf[:n]
	out.Header = buf[:headerLen]
	out.Data = buf[headerLen:]
	return out, nil
}

// Close closes the underlying bus.
func (d *Device) Close() error {
	return d.bus.Close()
}
