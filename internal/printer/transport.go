package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	NameBluetooth = "bluetooth"
	NameUSB       = "usb"

	// Largest single write each link accepts.
	BluetoothChunkSize = 100
	USBChunkSize       = 512
)

var ErrTransportUnavailable = errors.New("transport not available on this runtime")

// ConnectError is a failed attempt to open a printer link.
type ConnectError struct {
	Transport string
	Err       error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("%s: connect: %v", e.Transport, e.Err) }
func (e *ConnectError) Unwrap() error { return e.Err }

// TransferError is a chunk write that failed or was cut short.
type TransferError struct {
	Transport string
	Err       error
}

func (e *TransferError) Error() string { return fmt.Sprintf("%s: write: %v", e.Transport, e.Err) }
func (e *TransferError) Unwrap() error { return e.Err }

// Transport is one way of getting bytes to the receipt printer. SendChunk
// is its only write path.
type Transport interface {
	Name() string
	Available() bool
	Connected() bool
	// Connect opens the link. It succeeds immediately when already open.
	Connect(ctx context.Context) error
	SendChunk(ctx context.Context, chunk []byte) error
	MaxChunkSize() int
	Close() error
}

// Dialer is the platform primitive behind a transport: a capability probe
// and a way to open a writable link (a GATT characteristic or a USB bulk
// OUT endpoint).
type Dialer interface {
	Available() bool
	Dial(ctx context.Context) (io.WriteCloser, error)
}

// DeviceTransport is a Transport over a Dialer. The link is opened on first
// use and dropped after a failed write so the next job redials.
type DeviceTransport struct {
	name     string
	maxChunk int
	dialer   Dialer

	mu   sync.Mutex
	link io.WriteCloser
}

func NewBluetooth(d Dialer) *DeviceTransport {
	return &DeviceTransport{name: NameBluetooth, maxChunk: BluetoothChunkSize, dialer: d}
}

func NewUSB(d Dialer) *DeviceTransport {
	return &DeviceTransport{name: NameUSB, maxChunk: USBChunkSize, dialer: d}
}

func (t *DeviceTransport) Name() string      { return t.name }
func (t *DeviceTransport) MaxChunkSize() int { return t.maxChunk }

func (t *DeviceTransport) Available() bool {
	return t.dialer != nil && t.dialer.Available()
}

func (t *DeviceTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link != nil
}

func (t *DeviceTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectLocked(ctx)
}

func (t *DeviceTransport) connectLocked(ctx context.Context) error {
	if t.link != nil {
		return nil
	}
	if !t.Available() {
		return &ConnectError{Transport: t.name, Err: ErrTransportUnavailable}
	}
	if err := ctx.Err(); err != nil {
		return &ConnectError{Transport: t.name, Err: err}
	}
	link, err := t.dialer.Dial(ctx)
	if err != nil {
		return &ConnectError{Transport: t.name, Err: err}
	}
	t.link = link
	return nil
}

func (t *DeviceTransport) SendChunk(ctx context.Context, chunk []byte) error {
	if len(chunk) > t.maxChunk {
		return &TransferError{Transport: t.name, Err: fmt.Errorf("chunk of %d bytes exceeds %d", len(chunk), t.maxChunk)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.connectLocked(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &TransferError{Transport: t.name, Err: err}
	}

	n, err := t.link.Write(chunk)
	if err == nil && n < len(chunk) {
		err = io.ErrShortWrite
	}
	if err != nil {
		_ = t.link.Close()
		t.link = nil
		return &TransferError{Transport: t.name, Err: err}
	}
	return nil
}

func (t *DeviceTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.link == nil {
		return nil
	}
	err := t.link.Close()
	t.link = nil
	return err
}
