package felutils

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

var bootcmdMarker = []byte("bootcmd=")

// Device is a session with one Allwinner SoC in FEL mode.
//
// A Device is not safe for concurrent use: every exchange is a strict request/response on a
// single pair of bulk endpoints. Independent devices may be driven from separate goroutines.
type Device struct {
	transport Transport
	discovery Discovery
	consts    *Constants
	log       Logger

	strictTags bool
	tag        uint32

	isOpen          bool
	dramInitialized bool

	fes1          []byte
	uboot         []byte
	commandOffset uint32

	sleep func(time.Duration)
}

// NewDevice creates a session on top of a transport yielded by discovery.
func NewDevice(transport Transport, opts ...Option) *Device {
	if transport == nil {
		panic("transport cannot be nil")
	}

	d := &Device{
		transport: transport,
		consts:    DefaultConstants,
		log:       nopLogger{},
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open claims the device. It is a no-op if the device is already open.
func (d *Device) Open() error {
	return d.open(false)
}

func (d *Device) open(force bool) error {
	if d.isOpen && !force {
		return nil
	}
	if err := d.transport.Open(); err != nil {
		return fmt.Errorf("open %s: %w", d.transport, err)
	}
	d.isOpen = true
	d.log.Debugf("Opened %s", d.transport)
	return nil
}

// Close resets the device and releases its interface. It is a no-op if the device is not open.
func (d *Device) Close() error {
	return d.close(false)
}

// ForceClose resets and releases the device regardless of whether it is believed open.
func (d *Device) ForceClose() error {
	return d.close(true)
}

func (d *Device) close(force bool) error {
	if !d.isOpen && !force {
		return nil
	}
	d.isOpen = false
	if err := d.transport.Reset(); err != nil {
		d.log.Debugf("Error resetting %s: %v", d.transport, err)
	}
	if err := d.transport.Release(); err != nil {
		return fmt.Errorf("release %s: %w", d.transport, err)
	}
	d.log.Debugf("Closed %s", d.transport)
	return nil
}

// Free closes the device and disposes of its transport for good.
func (d *Device) Free() error {
	if err := d.Close(); err != nil {
		d.log.Debugf("Error closing %s: %v", d.transport, err)
	}
	return d.transport.Close()
}

func (d *Device) IsOpen() bool {
	return d.isOpen
}

func (d *Device) DRAMInitialized() bool {
	return d.dramInitialized
}

func (d *Device) String() string {
	return d.transport.String()
}

// SetFes1 sets the fes1 image used to bring up DRAM.
func (d *Device) SetFes1(fes1 []byte) {
	d.fes1 = fes1
}

// SetUboot sets the uboot image and locates its bootcmd, used to inject commands.
func (d *Device) SetUboot(uboot []byte) {
	d.uboot = uboot
	d.commandOffset = 0
	if i := bytes.Index(uboot, bootcmdMarker); i >= 0 {
		d.commandOffset = uint32(i + len(bootcmdMarker))
	}
}

func (d *Device) Fes1() []byte          { return d.fes1 }
func (d *Device) Uboot() []byte         { return d.uboot }
func (d *Device) Fes1Loaded() bool      { return len(d.fes1) > 0 }
func (d *Device) UbootLoaded() bool     { return len(d.uboot) > 0 }
func (d *Device) CommandOffset() uint32 { return d.commandOffset }

// LoadFes1 reads the fes1 image from a raw or Intel HEX file.
func (d *Device) LoadFes1(path string) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	d.SetFes1(img)
	return nil
}

// LoadUboot reads the uboot image from a raw or Intel HEX file.
func (d *Device) LoadUboot(path string) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	d.SetUboot(img)
	return nil
}

func (d *Device) writeRaw(p []byte) error {
	if err := d.transport.WriteRaw(p); err != nil {
		var ioErr *IoError
		if errors.As(err, &ioErr) {
			return err
		}
		return &IoError{Op: "bulk write", Err: err}
	}
	d.log.Tracef("FEL -> %d bytes", len(p))
	return nil
}

func (d *Device) readRaw(n int) ([]byte, error) {
	p, err := d.transport.ReadRaw(n)
	if err != nil {
		var ioErr *IoError
		if errors.As(err, &ioErr) {
			return nil, err
		}
		return nil, &IoError{Op: "bulk read", Err: err}
	}
	if len(p) != n {
		return nil, &IoError{Op: "bulk read", Err: fmt.Errorf("short read: %d/%d bytes", len(p), n)}
	}
	d.log.Tracef("FEL <- %d bytes", len(p))
	return p, nil
}

func (d *Device) newRequest(command RequestType, length int) *UsbRequest {
	req := NewUsbRequest(command, uint32(length))
	if d.strictTags {
		d.tag++
		req.tag = d.tag
	}
	return req
}

func (d *Device) readResponse(op string, req *UsbRequest) error {
	raw, err := d.readRaw(usbResponseSize)
	if err != nil {
		return err
	}
	resp, err := ParseUsbResponse(raw)
	if err != nil {
		return err
	}
	if resp.Status() != 0 {
		return &ProtocolError{Op: op, State: resp.Status()}
	}
	if d.strictTags && resp.Tag() != req.Tag() {
		return &ProtocolError{Op: op, Detail: fmt.Sprintf("response tag %d does not match request tag %d", resp.Tag(), req.Tag())}
	}
	return nil
}

// envelopedWrite sends payload wrapped in an AWUC write envelope.
func (d *Device) envelopedWrite(payload []byte) error {
	req := d.newRequest(RequestWrite, len(payload))
	if err := d.writeRaw(req.Bytes()); err != nil {
		return err
	}
	if err := d.writeRaw(payload); err != nil {
		return err
	}
	return d.readResponse("write", req)
}

// envelopedRead reads length bytes wrapped in an AWUC read envelope.
func (d *Device) envelopedRead(length int) ([]byte, error) {
	req := d.newRequest(RequestRead, length)
	if err := d.writeRaw(req.Bytes()); err != nil {
		return nil, err
	}
	p, err := d.readRaw(length)
	if err != nil {
		return nil, err
	}
	if err := d.readResponse("read", req); err != nil {
		return nil, err
	}
	return p, nil
}

// felRequest sends a FEL message to the device.
func (d *Device) felRequest(command Command, address, length uint32) error {
	return d.envelopedWrite(NewMessage(command, address, length).Bytes())
}

// readStatus reads the FEL status trailer, failing with op when the state is not zero.
func (d *Device) readStatus(op string) error {
	raw, err := d.envelopedRead(felStatusSize)
	if err != nil {
		return err
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	if status.State() != 0 {
		return &ProtocolError{Op: op, State: status.State()}
	}
	return nil
}

// Execute jumps to the code at address.
func (d *Device) Execute(address uint32) error {
	d.log.Debugf("Executing 0x%08X", address)
	if err := d.felRequest(CmdRun, address, 0); err != nil {
		return err
	}
	return d.readStatus("execute")
}

// VerifyDevice asks the BootROM to identify the board.
func (d *Device) VerifyDevice() (*VerifyDeviceResponse, error) {
	if err := d.felRequest(CmdVerifyDevice, 0, 0); err != nil {
		return nil, err
	}
	raw, err := d.envelopedRead(verifyDeviceSize)
	if err != nil {
		return nil, err
	}
	if err := d.readStatus("verify-device"); err != nil {
		return nil, err
	}
	return ParseVerifyDeviceResponse(raw)
}
