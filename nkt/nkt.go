// Package nkt enables working with NKT SuperK supercontinuum laser sources.
package nkt

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tarm/serial"

	"github.com/mickp/deviceremotes/comm"
	"github.com/mickp/deviceremotes/util"
)

// MakeSerConf makes a new serial config for an NKT mainframe
func MakeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second}
}

var (
	// StandardAddresses maps registers present on all modules
	StandardAddresses = map[string]byte{
		"TypeCode":         0x61,
		"Firmware Version": 0x64,
		"Serial":           0x65,
		"Status":           0x66,
		"ErrorCode":        0x67,
	}
)

// ModuleInformation is a struct holding information needed to communicate
// with a given module
type ModuleInformation struct {
	// Addresses maps names to register addresses
	Addresses map[string]byte

	// CodeBanks maps bitfield registers to the meaning of each bit
	CodeBanks map[string]map[int]string

	// TypeCode is the module type reported during an address scan
	TypeCode byte
}

// register looks up a register address by name, falling back to the
// registers every module carries
func (mi *ModuleInformation) register(name string) (byte, error) {
	if reg, ok := mi.Addresses[name]; ok {
		return reg, nil
	}
	if reg, ok := StandardAddresses[name]; ok {
		return reg, nil
	}
	return 0, fmt.Errorf("nkt: unknown register %q", name)
}

// Module represents a single module inside an NKT mainframe
type Module struct {
	// pool holds connections to the mainframe; modules of one mainframe
	// share a pool so telegrams do not interleave
	pool *comm.Pool

	// AddrDev is the destination address of the module on the bus
	AddrDev byte

	// Info contains register mapping data for the module
	Info *ModuleInformation
}

// SendRecv writes a telegram to the mainframe and reads back one telegram
func (m *Module) SendRecv(tele []byte) ([]byte, error) {
	conn, err := m.pool.Get()
	if err != nil {
		return nil, err
	}
	resp, err := comm.WriteThenReadUntil(conn, tele, telEnd)
	if err != nil {
		m.pool.Destroy(conn)
		return nil, err
	}
	m.pool.Put(conn)
	return resp, nil
}

// query round-trips one MessagePrimitive and decodes the reply
func (m *Module) query(mp MessagePrimitive) (MessagePrimitive, error) {
	tele, err := MakeTelegram(mp)
	if err != nil {
		return MessagePrimitive{}, err
	}
	resp, err := m.SendRecv(tele)
	if err != nil {
		return MessagePrimitive{}, err
	}
	mpRecv, err := DecodeTelegram(resp)
	if err != nil {
		return MessagePrimitive{}, err
	}
	switch mpRecv.Type {
	case "Nack", "CRC Error", "Busy":
		return mpRecv, fmt.Errorf("nkt: device replied %s to register %02X", mpRecv.Type, mp.Register)
	}
	return mpRecv, nil
}

// GetValue reads a register by name
func (m *Module) GetValue(addrName string) (MessagePrimitive, error) {
	reg, err := m.Info.register(addrName)
	if err != nil {
		return MessagePrimitive{}, err
	}
	return m.query(MessagePrimitive{
		Dest:     m.AddrDev,
		Src:      getSourceAddr(),
		Register: reg,
		Type:     "Read"})
}

// SetValue writes a register by name
func (m *Module) SetValue(addrName string, data []byte) (MessagePrimitive, error) {
	reg, err := m.Info.register(addrName)
	if err != nil {
		return MessagePrimitive{}, err
	}
	return m.query(MessagePrimitive{
		Dest:     m.AddrDev,
		Src:      getSourceAddr(),
		Register: reg,
		Type:     "Write",
		Data:     data})
}

// GetFloat reads a register holding a 10x superresolution uint16 and
// returns it as a float
func (m *Module) GetFloat(addrName string) (float64, error) {
	mp, err := m.GetValue(addrName)
	if err != nil {
		return 0, err
	}
	if len(mp.Data) < 2 {
		return 0, fmt.Errorf("nkt: register %s replied with %d data bytes, wanted 2", addrName, len(mp.Data))
	}
	return float64(dataOrder.Uint16(mp.Data)) / 10, nil
}

// SetFloat writes a float to a register holding a 10x superresolution uint16
func (m *Module) SetFloat(addrName string, v float64) error {
	buf := make([]byte, 2)
	dataOrder.PutUint16(buf, uint16(math.Round(v*10)))
	_, err := m.SetValue(addrName, buf)
	return err
}

// GetUint32 reads a register holding a 32-bit unsigned value
func (m *Module) GetUint32(addrName string) (uint32, error) {
	mp, err := m.GetValue(addrName)
	if err != nil {
		return 0, err
	}
	if len(mp.Data) < 4 {
		return 0, fmt.Errorf("nkt: register %s replied with %d data bytes, wanted 4", addrName, len(mp.Data))
	}
	return dataOrder.Uint32(mp.Data), nil
}

// StatusBitfield reads the module's status register and expands it
// against the module's code bank
func (m *Module) StatusBitfield() (map[string]bool, error) {
	mp, err := m.GetValue("Status")
	if err != nil {
		return nil, err
	}
	if len(mp.Data) < 2 {
		return nil, fmt.Errorf("nkt: status register replied with %d data bytes, wanted 2", len(mp.Data))
	}
	bits := dataOrder.Uint16(mp.Data)
	bank := m.Info.CodeBanks["Status"]
	out := make(map[string]bool, len(bank))
	for bit, label := range bank {
		if label == "-" {
			continue
		}
		out[label] = util.GetBit(bits, uint(bit))
	}
	return out, nil
}

// statusStrings formats a status bitfield as sorted human-readable lines
func statusStrings(bits map[string]bool, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(bits))
	for k := range bits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s: %t", k, bits[k])
	}
	return out, nil
}

// GetID returns the module's serial number
func (m *Module) GetID() (string, error) {
	mp, err := m.GetValue("Serial")
	if err != nil {
		return "", err
	}
	return string(mp.Data), nil
}
