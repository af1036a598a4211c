package felutils

import (
	"fmt"
	"sync"

	"github.com/google/gousb"
)

var (
	mutexPairs  sync.Mutex
	devicePairs = [][2]gousb.ID{
		{FEL_VID, FEL_PID}, //Allwinner FEL
	}
)

// RegisterDevicePair adds a VID:PID pair to look for in addition to the Allwinner one.
func RegisterDevicePair(vid, pid gousb.ID) {
	mutexPairs.Lock()
	defer mutexPairs.Unlock()

	for _, pair := range devicePairs {
		if pair[0] == vid && pair[1] == pid {
			return
		}
	}
	devicePairs = append(devicePairs, [2]gousb.ID{vid, pid})
}

func isKnownDevice(desc *gousb.DeviceDesc) bool {
	mutexPairs.Lock()
	defer mutexPairs.Unlock()

	for _, pair := range devicePairs {
		if desc.Vendor == pair[0] && desc.Product == pair[1] {
			return true
		}
	}
	return false
}

// USBDiscovery finds FEL devices on the USB bus through libusb.
type USBDiscovery struct {
	ctx *gousb.Context
	log Logger
}

func NewUSBDiscovery(log Logger) *USBDiscovery {
	if log == nil {
		log = nopLogger{}
	}
	return &USBDiscovery{ctx: gousb.NewContext(), log: log}
}

// Close frees the libusb context. Transports handed out must be closed first.
func (u *USBDiscovery) Close() error {
	return u.ctx.Close()
}

// Enumerate opens every attached device with a known VID:PID.
func (u *USBDiscovery) Enumerate() ([]*gousb.Device, error) {
	devs, err := u.ctx.OpenDevices(isKnownDevice)
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("error opening devices: %w", err)
	}
	if err != nil {
		u.log.Debugf("Some devices could not be opened: %v", err)
	}
	return devs, nil
}

// FindFelDevices returns a transport for every attached device that exposes a FEL interface.
func (u *USBDiscovery) FindFelDevices() ([]Transport, error) {
	devs, err := u.Enumerate()
	if err != nil {
		return nil, err
	}

	var found []Transport
	for _, dev := range devs {
		t, ok := MatchFelMode(dev)
		if !ok {
			u.log.Debugf("Skipping %s:%s, no FEL interface", dev.Desc.Vendor, dev.Desc.Product)
			dev.Close()
			continue
		}
		found = append(found, t)
	}
	return found, nil
}

// MatchFelMode looks for an interface with exactly two bulk endpoints, one IN and one OUT.
// Anything else is skipped rather than treated as an error.
func MatchFelMode(dev *gousb.Device) (*USBTransport, bool) {
	for _, cfg := range dev.Desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, setting := range iface.AltSettings {
				in, out, ok := classifyEndpoints(setting)
				if !ok {
					continue
				}
				return newUSBTransport(dev, cfg.Number, iface.Number, setting.Alternate, in, out), true
			}
		}
	}
	return nil, false
}

func classifyEndpoints(setting gousb.InterfaceSetting) (in, out int, ok bool) {
	if len(setting.Endpoints) != 2 {
		return 0, 0, false
	}
	in, out = -1, -1
	for _, ep := range setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			return 0, 0, false
		}
		if ep.Direction == gousb.EndpointDirectionIn {
			in = ep.Number
		} else {
			out = ep.Number
		}
	}
	if in < 0 || out < 0 {
		return 0, 0, false
	}
	return in, out, true
}
