package felutils

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const usbTimeout = 10 * time.Second

// USBTransport is a FEL device reached over libusb bulk endpoints.
type USBTransport struct {
	dev *gousb.Device

	cfgNum   int
	ifaceNum int
	alt      int
	inNum    int
	outNum   int

	cfg   *gousb.Config
	intf  *gousb.Interface
	inEp  *gousb.InEndpoint
	outEp *gousb.OutEndpoint

	closed bool
	info   string
}

func newUSBTransport(dev *gousb.Device, cfgNum, ifaceNum, alt, inNum, outNum int) *USBTransport {
	return &USBTransport{
		dev:      dev,
		cfgNum:   cfgNum,
		ifaceNum: ifaceNum,
		alt:      alt,
		inNum:    inNum,
		outNum:   outNum,
		info: fmt.Sprintf("FEL Device - VID:PID=%s:%s Bus:%d Addr:%d",
			dev.Desc.Vendor, dev.Desc.Product, dev.Desc.Bus, dev.Desc.Address),
	}
}

// Open claims the FEL interface and acquires both bulk endpoints.
func (t *USBTransport) Open() error {
	if t.closed {
		return fmt.Errorf("device closed")
	}
	if t.intf != nil {
		return nil
	}
	t.dev.SetAutoDetach(true)

	cfg, err := t.dev.Config(t.cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config %d: %w", t.cfgNum, err)
	}
	intf, err := cfg.Interface(t.ifaceNum, t.alt)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface %d alt %d: %w", t.ifaceNum, t.alt, err)
	}
	inEp, err := intf.InEndpoint(t.inNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		return fmt.Errorf("failed to open IN endpoint %d: %w", t.inNum, err)
	}
	outEp, err := intf.OutEndpoint(t.outNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		return fmt.Errorf("failed to open OUT endpoint %d: %w", t.outNum, err)
	}

	t.cfg, t.intf, t.inEp, t.outEp = cfg, intf, inEp, outEp
	return nil
}

func (t *USBTransport) Reset() error {
	if t.closed {
		return fmt.Errorf("device closed")
	}
	return t.dev.Reset()
}

// Release gives back the interface and config, keeping the device handle.
func (t *USBTransport) Release() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	t.inEp, t.outEp = nil, nil
	if t.cfg != nil {
		cfg := t.cfg
		t.cfg = nil
		if err := cfg.Close(); err != nil {
			return fmt.Errorf("failed to close config %d: %w", t.cfgNum, err)
		}
	}
	return nil
}

// Close releases all USB resources safely.
func (t *USBTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.Release()
	return t.dev.Close()
}

// WriteRaw sends data to the bulk OUT endpoint.
func (t *USBTransport) WriteRaw(p []byte) error {
	if t.outEp == nil {
		return &IoError{Op: "bulk write", Err: fmt.Errorf("interface not claimed")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	n, err := t.outEp.WriteContext(ctx, p)
	if err != nil {
		return &IoError{Op: "bulk write", Err: fmt.Errorf("write to OUT endpoint failed: %w", err)}
	}
	if n != len(p) {
		return &IoError{Op: "bulk write", Err: fmt.Errorf("short write: %d/%d bytes", n, len(p))}
	}
	return nil
}

// ReadRaw reads exactly n bytes from the bulk IN endpoint.
func (t *USBTransport) ReadRaw(n int) ([]byte, error) {
	if t.inEp == nil {
		return nil, &IoError{Op: "bulk read", Err: fmt.Errorf("interface not claimed")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), usbTimeout)
	defer cancel()

	buf := make([]byte, n)
	got, err := t.inEp.ReadContext(ctx, buf)
	if err != nil {
		return nil, &IoError{Op: "bulk read", Err: fmt.Errorf("read from IN endpoint failed: %w", err)}
	}
	if got != n {
		return nil, &IoError{Op: "bulk read", Err: fmt.Errorf("short read: %d/%d bytes", got, n)}
	}
	return buf, nil
}

func (t *USBTransport) String() string {
	if t.closed {
		return "device closed"
	}
	return t.info
}
