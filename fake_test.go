package felutils

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

const fakePageSize = 0x1000

// sparseMem is paged so tests can touch addresses far apart without allocating gigabytes.
type sparseMem map[uint32][]byte

func (m sparseMem) write(addr uint32, p []byte) {
	for len(p) > 0 {
		base, off := addr&^(fakePageSize-1), addr&(fakePageSize-1)
		page := m[base]
		if page == nil {
			page = make([]byte, fakePageSize)
			m[base] = page
		}
		n := copy(page[off:], p)
		p = p[n:]
		addr += uint32(n)
	}
}

func (m sparseMem) read(addr uint32, n int) []byte {
	out := make([]byte, n)
	for pos := 0; pos < n; {
		base, off := addr&^(fakePageSize-1), addr&(fakePageSize-1)
		end := min(n-pos, int(fakePageSize-off))
		if page := m[base]; page != nil {
			copy(out[pos:pos+end], page[off:])
		}
		pos += end
		addr += uint32(end)
	}
	return out
}

// fakeDevice simulates the BootROM, fes1 and uboot of a FEL device behind the real envelopes.
type fakeDevice struct {
	consts        *Constants
	mem           sparseMem
	flash         sparseMem
	commandOffset uint32

	out             []byte
	expectPayload   int
	curTag          uint32
	pendingDownload *Message
	pendingUpload   *Message
	pendingVerify   bool
	pendingStatus   bool
	rebootPending   bool //efex_test ran, reboot once its status is acknowledged
	rebootArmed     bool //status queued, reboot once the host drains it
	generation      int

	downloads   []*Message
	uploads     []*Message
	runs        []uint32
	ubootCmds   []string
	statusReads int
	reboots     int

	opens, resets, releases, disposals int

	failStatusAt   int  //1-based status read whose state is 1
	failUsbStatus  bool //every AWUS carries status 1
	tagSkew        uint32
	corruptReads   bool //phy_read flips the first byte it copies
	unknownCommand error
	releaseErr     error
}

func newFakeDevice(uboot []byte) *fakeDevice {
	f := &fakeDevice{
		consts:        DefaultConstants,
		mem:           make(sparseMem),
		flash:         make(sparseMem),
		expectPayload: -1,
	}
	if i := bytes.Index(uboot, bootcmdMarker); i >= 0 {
		f.commandOffset = uint32(i + len(bootcmdMarker))
	}
	return f
}

func (f *fakeDevice) newTransport() *fakeTransport {
	return &fakeTransport{dev: f, gen: f.generation}
}

func (f *fakeDevice) queueResponse() {
	status := uint8(0)
	if f.failUsbStatus {
		status = 1
	}
	f.out = append(f.out, NewUsbResponse(f.curTag+f.tagSkew, status).Bytes()...)
}

func (f *fakeDevice) write(p []byte) error {
	if f.expectPayload >= 0 {
		if len(p) != f.expectPayload {
			return fmt.Errorf("payload of %d bytes, envelope announced %d", len(p), f.expectPayload)
		}
		f.expectPayload = -1
		if err := f.handlePayload(p); err != nil {
			return err
		}
		f.queueResponse()
		return nil
	}

	req, err := ParseUsbRequest(p)
	if err != nil {
		return err
	}
	f.curTag = req.Tag()
	switch req.Command() {
	case RequestWrite:
		f.expectPayload = int(req.Length())
	case RequestRead:
		f.handleRead(int(req.Length()))
		f.queueResponse()
	}
	return nil
}

func (f *fakeDevice) handlePayload(p []byte) error {
	if f.pendingDownload != nil {
		f.mem.write(f.pendingDownload.Address(), p)
		f.pendingDownload = nil
		f.pendingStatus = true
		return nil
	}

	msg, err := ParseMessage(p)
	if err != nil {
		return err
	}
	switch msg.Command() {
	case CmdDownload:
		f.downloads = append(f.downloads, msg)
		f.pendingDownload = msg
	case CmdUpload:
		f.uploads = append(f.uploads, msg)
		f.pendingUpload = msg
	case CmdRun:
		f.runs = append(f.runs, msg.Address())
		f.run(msg.Address())
		f.pendingStatus = true
	case CmdVerifyDevice:
		f.pendingVerify = true
	}
	return nil
}

func (f *fakeDevice) handleRead(n int) {
	switch {
	case f.pendingUpload != nil:
		f.out = append(f.out, f.mem.read(f.pendingUpload.Address(), n)...)
		f.pendingUpload = nil
		f.pendingStatus = true
	case f.pendingVerify:
		resp := &VerifyDeviceResponse{Board: 0x00166700, Firmware: 1, DataStartAddress: 0x7E00}
		f.out = append(f.out, resp.Bytes()...)
		f.pendingVerify = false
		f.pendingStatus = true
	case f.pendingStatus && n == felStatusSize:
		f.statusReads++
		state := uint8(0)
		if f.statusReads == f.failStatusAt {
			state = 1
		}
		f.out = append(f.out, NewStatus(state).Bytes()...)
		f.pendingStatus = false
		if f.rebootPending {
			f.rebootPending = false
			f.rebootArmed = true
		}
	default:
		f.out = append(f.out, make([]byte, n)...)
	}
}

func (f *fakeDevice) read(n int) ([]byte, error) {
	if len(f.out) < n {
		return nil, fmt.Errorf("nothing queued for a %d byte read", n)
	}
	p := f.out[:n]
	f.out = f.out[n:]
	if f.rebootArmed && len(f.out) == 0 {
		f.rebootArmed = false
		f.generation++
		f.reboots++
	}
	return p, nil
}

func (f *fakeDevice) run(address uint32) {
	if address != f.consts.UbootBaseM {
		return
	}

	raw := f.mem.read(address+f.commandOffset, 0x200)
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	command := string(raw)
	f.ubootCmds = append(f.ubootCmds, command)

	for _, part := range strings.Split(command, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "sunxi_flash":
			if err := f.sunxiFlash(fields[1:]); err != nil {
				f.unknownCommand = err
			}
		case "efex_test":
			f.rebootPending = true
		}
	}
}

func (f *fakeDevice) sunxiFlash(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("sunxi_flash: bad arguments %v", args)
	}
	var v [3]uint32
	for i := range v {
		n, err := strconv.ParseUint(args[i+1], 16, 32)
		if err != nil {
			return err
		}
		v[i] = uint32(n)
	}
	mem, start, size := v[0], v[1]*f.consts.SectorSize, int(v[2]*f.consts.SectorSize)
	switch args[0] {
	case "phy_read":
		data := f.flash.read(start, size)
		if f.corruptReads && len(data) > 0 {
			data[0] ^= 0xFF
		}
		f.mem.write(mem, data)
	case "phy_write":
		f.flash.write(start, f.mem.read(mem, size))
	default:
		return fmt.Errorf("sunxi_flash: unknown op %s", args[0])
	}
	return nil
}

var errDeviceGone = errors.New("device gone")

// fakeTransport is one OS-level handle on a fakeDevice. A reboot invalidates it.
type fakeTransport struct {
	dev      *fakeDevice
	gen      int
	disposed bool
}

func (t *fakeTransport) alive() error {
	if t.disposed || t.gen != t.dev.generation {
		return errDeviceGone
	}
	return nil
}

func (t *fakeTransport) Open() error {
	if err := t.alive(); err != nil {
		return err
	}
	t.dev.opens++
	return nil
}

func (t *fakeTransport) Reset() error {
	t.dev.resets++
	return nil
}

func (t *fakeTransport) Release() error {
	t.dev.releases++
	return t.dev.releaseErr
}

func (t *fakeTransport) Close() error {
	t.disposed = true
	t.dev.disposals++
	return nil
}

func (t *fakeTransport) WriteRaw(p []byte) error {
	if err := t.alive(); err != nil {
		return err
	}
	return t.dev.write(p)
}

func (t *fakeTransport) ReadRaw(n int) ([]byte, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	return t.dev.read(n)
}

func (t *fakeTransport) String() string {
	return fmt.Sprintf("fake FEL device (gen %d)", t.gen)
}

// fakeDiscovery finds dev again after it reboots, optionally only after some misses.
type fakeDiscovery struct {
	dev     *fakeDevice
	missing int
	extra   int
	calls   int
	handed  []*fakeTransport
}

func (d *fakeDiscovery) FindFelDevices() ([]Transport, error) {
	d.calls++
	if d.missing > 0 {
		d.missing--
		return nil, nil
	}
	var found []Transport
	for i := 0; i <= d.extra; i++ {
		t := d.dev.newTransport()
		d.handed = append(d.handed, t)
		found = append(found, t)
	}
	return found, nil
}

type testRig struct {
	dev       *Device
	fake      *fakeDevice
	transport *fakeTransport
	discovery *fakeDiscovery
	slept     []time.Duration
	fes1      []byte
	uboot     []byte
}

func testFes1() []byte {
	fes1 := make([]byte, 0x200)
	for i := range fes1 {
		fes1[i] = byte(i*7 + 3)
	}
	return fes1
}

func testUboot() []byte {
	uboot := make([]byte, 0x400)
	for i := range uboot {
		uboot[i] = byte(0xA0 + i%0x40)
	}
	copy(uboot[0x80:], "bootcmd=")
	copy(uboot[0x88:], "run setargs boot_normal\x00")
	return uboot
}

func newTestRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()

	r := &testRig{fes1: testFes1(), uboot: testUboot()}
	r.fake = newFakeDevice(r.uboot)
	r.transport = r.fake.newTransport()
	r.discovery = &fakeDiscovery{dev: r.fake}

	opts = append([]Option{WithDiscovery(r.discovery)}, opts...)
	r.dev = NewDevice(r.transport, opts...)
	r.dev.sleep = func(d time.Duration) {
		r.slept = append(r.slept, d)
	}
	r.dev.SetFes1(r.fes1)
	r.dev.SetUboot(r.uboot)
	if err := r.dev.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return r
}

// initDRAM brings DRAM up and forgets its settle delay, which lasts as long as a reconnect wait.
func (r *testRig) initDRAM(t *testing.T) {
	t.Helper()
	if err := r.dev.InitializeDRAM(); err != nil {
		t.Fatalf("InitializeDRAM() error = %v", err)
	}
	r.slept = nil
}

func (r *testRig) countSleeps(d time.Duration) int {
	n := 0
	for _, s := range r.slept {
		if s == d {
			n++
		}
	}
	return n
}

func (r *testRig) downloadsAt(address uint32) []*Message {
	var msgs []*Message
	for _, m := range r.fake.downloads {
		if m.Address() == address {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (r *testRig) runsAt(address uint32) int {
	n := 0
	for _, a := range r.fake.runs {
		if a == address {
			n++
		}
	}
	return n
}

// debugRecorder keeps debug lines and drops everything else.
type debugRecorder struct {
	nopLogger
	lines []string
}

func (l *debugRecorder) Debugf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *debugRecorder) contains(s string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

type progressRecorder struct {
	events []ProgressEvent
}

func (p *progressRecorder) Progress(ev ProgressEvent) {
	p.events = append(p.events, ev)
}

func (p *progressRecorder) last() ProgressEvent {
	if len(p.events) == 0 {
		return ProgressEvent{}
	}
	return p.events[len(p.events)-1]
}
