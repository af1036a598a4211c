package felutils

import (
	"bytes"
)

// InitializeDRAM runs fes1 unless a previous session already did.
func (d *Device) InitializeDRAM() error {
	if d.dramInitialized {
		return nil
	}

	testSize := d.consts.Fes1TestSize
	if uint32(len(d.fes1)) < testSize {
		return &ProtocolError{Op: "fes1-missing", Detail: "can't initialize DRAM, incorrect fes1 image"}
	}

	tail := d.fes1[uint32(len(d.fes1))-testSize:]
	buf, err := d.ReadMemory(d.consts.Fes1BaseM+uint32(len(d.fes1))-testSize, testSize, nil)
	if err != nil {
		return err
	}
	if bytes.Equal(buf[:testSize], tail) {
		d.log.Debugf("DRAM already initialized")
		d.dramInitialized = true
		return nil
	}

	d.log.Infof("Initializing DRAM")
	if err := d.WriteMemory(d.consts.Fes1BaseM, d.fes1, nil); err != nil {
		return err
	}
	if err := d.Execute(d.consts.Fes1BaseM); err != nil {
		return err
	}
	d.sleep(dramSettle)

	d.dramInitialized = true
	return nil
}

// WriteMemory writes buffer to device memory at address, padded with zeroes to 4 bytes.
func (d *Device) WriteMemory(address uint32, buffer []byte, p Progress) error {
	if address >= d.consts.DramBase {
		if err := d.InitializeDRAM(); err != nil {
			return err
		}
	}

	if length := (len(buffer) + 3) &^ 3; length != len(buffer) {
		padded := make([]byte, length)
		copy(padded, buffer)
		buffer = padded
	}
	category := d.memoryCategory(address, len(buffer))

	for pos := 0; pos < len(buffer); {
		n := min(len(buffer)-pos, int(d.consts.MaxBulkSize))
		chunkAddr := address + uint32(pos)
		if err := d.felRequest(CmdDownload, chunkAddr, uint32(n)); err != nil {
			return err
		}
		if err := d.envelopedWrite(buffer[pos : pos+n]); err != nil {
			return err
		}
		if err := d.readStatus("memory-write"); err != nil {
			return err
		}
		pos += n

		report(p, ProgressEvent{Transferred: pos, Total: len(buffer), Address: address, Category: category})
	}
	return nil
}

// ReadMemory reads length bytes of device memory at address. The length is rounded up to
// 4 bytes and the result is not truncated back.
func (d *Device) ReadMemory(address, length uint32, p Progress) ([]byte, error) {
	//Strictly greater, unlike WriteMemory; a read at DRAM_BASE itself does not bring up DRAM
	if address > d.consts.DramBase {
		if err := d.InitializeDRAM(); err != nil {
			return nil, err
		}
	}

	total := (int(length) + 3) &^ 3
	category := d.memoryCategory(address, total)
	result := make([]byte, 0, total)

	for pos := 0; pos < total; {
		n := min(total-pos, int(d.consts.MaxBulkSize))
		if err := d.felRequest(CmdUpload, address+uint32(pos), uint32(n)); err != nil {
			return nil, err
		}
		chunk, err := d.envelopedRead(n)
		if err != nil {
			return nil, err
		}
		if err := d.readStatus("memory-read"); err != nil {
			return nil, err
		}
		result = append(result, chunk...)
		pos += n

		report(p, ProgressEvent{Transferred: pos, Total: total, Address: address, Category: category})
	}
	return result, nil
}
