package felutils

import (
	"fmt"
)

func (d *Device) checkFlashRange(address uint32, length int) error {
	if address%d.consts.SectorSize != 0 {
		return &ProtocolError{Op: "bad-flash-address", Detail: fmt.Sprintf("invalid flash address: 0x%X", address)}
	}
	if uint32(length)%d.consts.SectorSize != 0 {
		return &ProtocolError{Op: "bad-flash-length", Detail: fmt.Sprintf("invalid flash length: 0x%X", length)}
	}
	return nil
}

// ReadFlash reads length bytes of NAND at address. Both must be sector aligned.
func (d *Device) ReadFlash(address, length uint32, p Progress) ([]byte, error) {
	if err := d.checkFlashRange(address, int(length)); err != nil {
		return nil, err
	}

	sector := d.consts.SectorSize
	base, total := address, int(length)
	category := d.flashCategory(base, total)
	result := make([]byte, 0, total)

	for length > 0 {
		n := min(length, d.consts.TransferMaxSize)
		cmd := NewFlashRead(d.consts.TransferBaseM, address/sector, n/sector, d.consts.Fastboot)
		if err := d.RunUbootCommand(cmd.String(), false, nil); err != nil {
			return nil, err
		}
		d.sleep(flashReadSettle)

		buf, err := d.ReadMemory(d.consts.TransferBaseM+address%sector, n, nil)
		if err != nil {
			return nil, err
		}
		result = append(result, buf...)
		address += uint32(len(buf))
		length -= uint32(len(buf))

		report(p, ProgressEvent{Transferred: len(result), Total: total, Address: base, Category: category})
	}
	return result, nil
}

// WriteFlash writes buffer to NAND at address. Both must be sector aligned.
func (d *Device) WriteFlash(address uint32, buffer []byte, p Progress) error {
	if err := d.checkFlashRange(address, len(buffer)); err != nil {
		return err
	}

	sector := d.consts.SectorSize
	category := d.flashCategory(address, len(buffer))
	chunkSize := int(d.consts.TransferMaxSize / 8)

	for pos := 0; pos < len(buffer); {
		n := min(len(buffer)-pos, chunkSize)
		if err := d.WriteMemory(d.consts.TransferBaseM, buffer[pos:pos+n], nil); err != nil {
			return err
		}
		cmd := NewFlashWrite(d.consts.TransferBaseM, (address+uint32(pos))/sector, uint32(n)/sector, d.consts.Fastboot)
		if err := d.RunUbootCommand(cmd.String(), false, nil); err != nil {
			return err
		}
		pos += n

		report(p, ProgressEvent{Transferred: pos, Total: len(buffer), Address: address, Category: category})
	}
	return nil
}
