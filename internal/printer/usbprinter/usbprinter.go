// Package usbprinter opens the bulk OUT endpoint of a USB receipt printer
// through libusb.
package usbprinter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gousb"
)

var (
	ErrNotFound  = errors.New("usb printer not connected")
	ErrNoBulkOut = errors.New("usb printer has no bulk OUT endpoint")
)

// Printer dials the printer matching VendorID and ProductID.
type Printer struct {
	VendorID  uint16
	ProductID uint16
}

func New(vid, pid uint16) *Printer {
	return &Printer{VendorID: vid, ProductID: pid}
}

func (p *Printer) matches(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == gousb.ID(p.VendorID) && desc.Product == gousb.ID(p.ProductID)
}

// Available enumerates the bus without opening anything.
func (p *Printer) Available() bool {
	if p.VendorID == 0 {
		return false
	}
	ctx := gousb.NewContext()
	defer ctx.Close()

	found := false
	devs, _ := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if p.matches(desc) {
			found = true
		}
		return false
	})
	for _, d := range devs {
		_ = d.Close()
	}
	return found
}

func (p *Printer) Dial(ctx context.Context) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uctx := gousb.NewContext()
	dev, err := uctx.OpenDeviceWithVIDPID(gousb.ID(p.VendorID), gousb.ID(p.ProductID))
	if err != nil {
		_ = uctx.Close()
		return nil, fmt.Errorf("open %04x:%04x: %w", p.VendorID, p.ProductID, err)
	}
	if dev == nil {
		_ = uctx.Close()
		return nil, ErrNotFound
	}
	_ = dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		_ = uctx.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	l := &link{ctx: uctx, dev: dev, done: done}
	for _, desc := range intf.Setting.Endpoints {
		if desc.Direction == gousb.EndpointDirectionOut && desc.TransferType == gousb.TransferTypeBulk {
			l.ep, err = intf.OutEndpoint(desc.Number)
			if err != nil {
				_ = l.Close()
				return nil, fmt.Errorf("bulk OUT endpoint %d: %w", desc.Number, err)
			}
			return l, nil
		}
	}
	_ = l.Close()
	return nil, ErrNoBulkOut
}

type link struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	ep   *gousb.OutEndpoint
}

func (l *link) Write(b []byte) (int, error) {
	return l.ep.Write(b)
}

func (l *link) Close() error {
	l.done()
	return errors.Join(l.dev.Close(), l.ctx.Close())
}
