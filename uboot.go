package felutils

import (
	"bytes"
)

// RunUbootCommand makes uboot run command by patching its bootcmd and executing it.
//
// Unless noReturn is set, the command is expected to end with the device rebooting into FEL
// (usually via efex_test). The session then waits for it to come back and rebinds to it.
func (d *Device) RunUbootCommand(command string, noReturn bool, p Progress) error {
	if d.commandOffset == 0 {
		return &ConfigError{Op: "no-command-offset", Detail: "invalid uboot image, bootcmd not found"}
	}

	testSize := d.consts.UbootTestSize
	if uint32(len(d.uboot)) < testSize {
		return &ProtocolError{Op: "uboot-missing", Detail: "can't init uboot, incorrect uboot image"}
	}

	d.log.Infof("Running uboot command: %s", command)

	head, err := d.ReadMemory(d.consts.UbootBaseM, testSize, nil)
	if err != nil {
		return err
	}
	if !bytes.Equal(head[:testSize], d.uboot[:testSize]) {
		d.log.Debugf("Uploading uboot")
		if err := d.WriteMemory(d.consts.UbootBaseM, d.uboot, p); err != nil {
			return err
		}
	}

	cmd := append([]byte(command), 0)
	if err := d.WriteMemory(d.consts.UbootBaseM+d.commandOffset, cmd, nil); err != nil {
		return err
	}
	if err := d.Execute(d.consts.UbootBaseM); err != nil {
		return err
	}

	if noReturn {
		return nil
	}

	for i := 0; i < ubootSettleIter; i++ {
		d.sleep(ubootSettleStep)
	}

	if err := d.ForceClose(); err != nil {
		d.log.Debugf("Error closing %s before reconnect: %v", d.transport, err)
	}
	return d.reconnect()
}

// reconnect waits for the device to enumerate again in FEL mode and takes over its transport.
func (d *Device) reconnect() error {
	if d.discovery == nil {
		return &ConfigError{Op: "no-discovery", Detail: "can't find the device again after it rebooted"}
	}

	errorCount := 0
	for {
		devices, err := d.discovery.FindFelDevices()
		if err != nil {
			d.log.Debugf("Error looking for FEL devices: %v", err)
		}
		if len(devices) == 0 {
			errorCount++
			if errorCount >= reconnectTries {
				return &ProtocolError{Op: "no-answer", Detail: "no answer from device"}
			}
			d.log.Debugf("Waiting for device (%d/%d)", errorCount, reconnectTries)
			d.sleep(reconnectWait)
			continue
		}

		for _, extra := range devices[1:] {
			extra.Close()
		}

		old := d.transport
		d.transport = devices[0]
		if err := old.Close(); err != nil {
			d.log.Debugf("Error disposing of %s: %v", old, err)
		}
		d.log.Debugf("Reconnected to %s", d.transport)
		return d.open(true)
	}
}
