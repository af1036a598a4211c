package felutils

import (
	"bytes"
	"fmt"

	"github.com/JoshuaDoes/crunchio"
)

const verifyDeviceSize = 32

var verifyDeviceMagic = []byte("AWUSBFEX")

// VerifyDeviceResponse identifies the board and BootROM firmware of a FEL device.
type VerifyDeviceResponse struct {
	Board            uint32
	Firmware         uint32
	Mode             uint16
	DataFlag         uint8
	DataLength       uint8
	DataStartAddress uint32
}

// ParseVerifyDeviceResponse decodes the 32 byte AWUSBFEX response.
func ParseVerifyDeviceResponse(data []byte) (*VerifyDeviceResponse, error) {
	if len(data) < verifyDeviceSize || !bytes.Equal(data[:8], verifyDeviceMagic) {
		return nil, &FormatError{Structure: "verify device response", Reason: "missing AWUSBFEX magic"}
	}
	buf := crunchio.NewBuffer("AWUSBFEX", data[:verifyDeviceSize]).Buffer()
	flags := buf.ReadBytes(18, 2)
	return &VerifyDeviceResponse{
		Board:            buf.ReadU32LE(8, 1)[0],
		Firmware:         buf.ReadU32LE(12, 1)[0],
		Mode:             buf.ReadU16LE(16, 1)[0],
		DataFlag:         flags[0],
		DataLength:       flags[1],
		DataStartAddress: buf.ReadU32LE(20, 1)[0],
	}, nil
}

func (v *VerifyDeviceResponse) Bytes() []byte {
	buf := crunchio.NewBuffer("AWUSBFEX", make([]byte, verifyDeviceSize))
	b := buf.Buffer()
	b.WriteBytes(0, verifyDeviceMagic)
	b.WriteU32LE(8, []uint32{v.Board, v.Firmware})
	b.WriteU16LE(16, []uint16{v.Mode})
	b.WriteBytes(18, []byte{v.DataFlag, v.DataLength})
	b.WriteU32LE(20, []uint32{v.DataStartAddress})
	return buf.Bytes()
}

func (v *VerifyDeviceResponse) String() string {
	return fmt.Sprintf("board:0x%08X fw:0x%08X mode:0x%04X data:0x%08X", v.Board, v.Firmware, v.Mode, v.DataStartAddress)
}
