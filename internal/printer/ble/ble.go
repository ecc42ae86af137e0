// Package ble opens a write link to a BLE receipt printer through the
// platform Bluetooth adapter.
package ble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

const scanTimeout = 10 * time.Second

var ErrNotFound = errors.New("printer not found while scanning")

// Printer dials a GATT characteristic on the printer at Address.
type Printer struct {
	Address        string
	Service        string
	Characteristic string
	Logger         logrus.FieldLogger

	adapter   *bluetooth.Adapter
	enable    sync.Once
	enableErr error
}

func New(address, service, characteristic string, logger logrus.FieldLogger) *Printer {
	return &Printer{
		Address:        address,
		Service:        service,
		Characteristic: characteristic,
		Logger:         logger,
		adapter:        bluetooth.DefaultAdapter,
	}
}

// Available reports whether an address is configured and the platform
// adapter can be enabled.
func (p *Printer) Available() bool {
	if p.Address == "" {
		return false
	}
	p.enable.Do(func() {
		p.enableErr = p.adapter.Enable()
		if p.enableErr != nil && p.Logger != nil {
			p.Logger.WithError(p.enableErr).Debug("bluetooth adapter unavailable")
		}
	})
	return p.enableErr == nil
}

func (p *Printer) Dial(ctx context.Context) (io.WriteCloser, error) {
	svcUUID, err := bluetooth.ParseUUID(p.Service)
	if err != nil {
		return nil, fmt.Errorf("service uuid: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(p.Characteristic)
	if err != nil {
		return nil, fmt.Errorf("characteristic uuid: %w", err)
	}

	addr, err := p.find(ctx)
	if err != nil {
		return nil, err
	}
	device, err := p.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", p.Address, err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("service %s: %w", p.Service, errOrMissing(err))
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		_ = device.Disconnect()
		return nil, fmt.Errorf("characteristic %s: %w", p.Characteristic, errOrMissing(err))
	}

	return &link{device: device, char: chars[0]}, nil
}

// find scans until the configured address shows up. Addresses are compared
// as strings so the same config works on every platform.
func (p *Printer) find(ctx context.Context) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	found := make(chan bluetooth.Address, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- p.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if strings.EqualFold(r.Address.String(), p.Address) {
				select {
				case found <- r.Address:
				default:
				}
				_ = a.StopScan()
			}
		})
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-scanErr:
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		if err == nil {
			err = ErrNotFound
		}
		return bluetooth.Address{}, err
	case <-ctx.Done():
		_ = p.adapter.StopScan()
		<-scanErr
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return bluetooth.Address{}, ErrNotFound
		}
		return bluetooth.Address{}, ctx.Err()
	}
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("not offered by device")
}

type link struct {
	device bluetooth.Device
	char   bluetooth.DeviceCharacteristic
}

func (l *link) Write(b []byte) (int, error) {
	return l.char.WriteWithoutResponse(b)
}

func (l *link) Close() error {
	return l.device.Disconnect()
}
