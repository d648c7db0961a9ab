//go:build usbtmc

package usbtmc

import "github.com/google/gousb"

// usbBus is the libusb-backed Bus, endpoint 2 in each direction as the
// USBTMC class interface descriptors specify for bulk transfers.
type usbBus struct {
	ctx    *gousb.Context
	device *gousb.Device
	iface  *gousb.Interface
	done   func()
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
}

func (b *usbBus) BulkOut(p []byte) (int, error) { return b.out.Write(p) }

func (b *usbBus) BulkIn(p []byte) (int, error) { return b.in.Read(p) }

func (b *usbBus) Close() error {
	if b.done != nil {
		b.done()
	}
	err := b.device.Close()
	b.ctx.Close()
	return err
}

// Open claims the first device on the bus with the given vendor and
// product IDs and returns it wrapped in the framing layer.
func Open(vid, pid uint16) (*Device, error) {
	bus := &usbBus{ctx: gousb.NewContext()}
	var err error
	bus.device, err = bus.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		bus.ctx.Close()
		return nil, err
	}
	if err = bus.device.SetAutoDetach(true); err != nil {
		bus.Close()
		return nil, err
	}
	bus.iface, bus.done, err = bus.device.DefaultInterface()
	if err != nil {
		bus.Close()
		return nil, err
	}
	if bus.in, err = bus.iface.InEndpoint(2); err != nil {
		bus.Close()
		return nil, err
	}
	if bus.out, err = bus.iface.OutEndpoint(2); err != nil {
		bus.Close()
		return nil, err
	}
	return NewDevice(bus), nil
}
