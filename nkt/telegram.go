package nkt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/snksoft/crc"
)

// telegrams are encoded as [SOT][MESSAGE][EOT] where the message is
// [DEST] [SOURCE] [TYPE] [REGISTER] [0..240 data bytes] [CRC-16]
// and any special character inside the message is escaped

const (
	// telStart is the start of telegram byte
	telStart = 0x0D

	// telEnd is the end of telegram byte
	telEnd = 0x0A

	// minSourceAddr is the minimum value used for a source address
	minSourceAddr = 0xA1

	// specialCharFirstReplacement is the escape byte for special characters
	specialCharFirstReplacement = 0x5E

	// specialCharShift is the amount special characters are shifted up by.
	// special characters max out at 0x5E, so this never overflows a byte
	specialCharShift = 0x40
)

var (
	// dataOrder is the byte order of register data
	dataOrder = binary.LittleEndian

	// specialChars must not appear raw inside a message
	specialChars = []byte{0x0A, 0x0D, 0x5E}

	crcTable = crc.NewTable(crc.XMODEM)

	// MessageTypesSB maps strings to the bytecode for the message type
	MessageTypesSB = map[string]byte{
		"Nack":      0,
		"CRC Error": 1,
		"Busy":      2,
		"Ack":       3,
		"Read":      4,
		"Write":     5,
		"Write SET": 6,
		"Write CLR": 7,
		"Datagram":  8,
		"Write TGL": 9,
	}

	// MessageTypesBS maps bytecodes to the type of message received
	MessageTypesBS = map[byte]string{
		0: "Nack",
		1: "CRC Error",
		2: "Busy",
		3: "Ack",
		4: "Read",
		5: "Write",
		6: "Write SET",
		7: "Write CLR",
		8: "Datagram",
		9: "Write TGL",
	}

	srcMu   sync.Mutex
	srcAddr byte = minSourceAddr
)

// MessagePrimitive holds the raw pieces of a message before packing,
// CRC and escaping
type MessagePrimitive struct {
	Dest, Src, Register byte
	Type                string
	Data                []byte
}

// getSourceAddr returns a quasi-unique source address.  The mainframe
// echoes the source in its reply, so rotating addresses lets responses be
// matched to requests when commands are in flight concurrently.
func getSourceAddr() byte {
	srcMu.Lock()
	defer srcMu.Unlock()
	addr := srcAddr
	if srcAddr < 254 {
		srcAddr++
	} else {
		srcAddr = minSourceAddr
	}
	return addr
}

// sanitize escapes special characters in a message body
func sanitize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if bytes.IndexByte(specialChars, b) >= 0 {
			out = append(out, specialCharFirstReplacement, b+specialCharShift)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// reverseSanitize undoes sanitize
func reverseSanitize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	subNext := false
	for _, b := range data {
		if b == specialCharFirstReplacement {
			subNext = true
			continue
		}
		if subNext {
			b -= specialCharShift
			subNext = false
		}
		out = append(out, b)
	}
	return out
}

// crcBytes computes the two CRC-16 (CCITT XMODEM) bytes for a message body
func crcBytes(buf []byte) []byte {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, buf)
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, crcTable.CRC16(c))
	return out
}

// MakeTelegram produces a wire-ready telegram from a MessagePrimitive:
// the body is assembled, its CRC appended, special characters escaped,
// and the start/end bytes wrapped around the result.
func MakeTelegram(mp MessagePrimitive) ([]byte, error) {
	typ, ok := MessageTypesSB[mp.Type]
	if !ok {
		return nil, fmt.Errorf("nkt: message type %q is invalid", mp.Type)
	}
	body := append([]byte{mp.Dest, mp.Src, typ, mp.Register}, mp.Data...)
	body = append(body, crcBytes(body)...)
	body = sanitize(body)

	out := make([]byte, 0, len(body)+2)
	out = append(out, telStart)
	out = append(out, body...)
	out = append(out, telEnd)
	return out, nil
}

// DecodeTelegram renders a raw byte stream into a MessagePrimitive,
// verifying the CRC along the way
func DecodeTelegram(tele []byte) (MessagePrimitive, error) {
	iStart := bytes.IndexByte(tele, telStart)
	if iStart < 0 {
		return MessagePrimitive{}, fmt.Errorf("nkt: telegram start byte %X not found", telStart)
	}
	iEnd := bytes.LastIndexByte(tele, telEnd)
	if iEnd < 0 {
		return MessagePrimitive{}, fmt.Errorf("nkt: telegram end byte %X not found", telEnd)
	}
	body := reverseSanitize(tele[iStart+1 : iEnd])
	if len(body) < 6 {
		return MessagePrimitive{}, errors.New("nkt: telegram too short")
	}

	fidx := len(body) - 2
	crcRecv := body[fidx:]
	body = body[:fidx]
	if !bytes.Equal(crcRecv, crcBytes(body)) {
		return MessagePrimitive{}, errors.New("nkt: CRC mismatch, data lost in transmission, device state unknown")
	}

	return MessagePrimitive{
		Dest:     body[0],
		Src:      body[1],
		Type:     MessageTypesBS[body[2]],
		Register: body[3],
		Data:     body[4:],
	}, nil
}
