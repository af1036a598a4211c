package felutils

import (
	"bytes"

	"github.com/JoshuaDoes/crunchio"
)

var usbResponseMagic = []byte("AWUS")

// UsbResponse is the 13 byte AWUS status returned after every enveloped transfer.
type UsbResponse struct {
	tag     uint32
	residue uint32
	status  uint8
}

func NewUsbResponse(tag uint32, status uint8) *UsbResponse {
	return &UsbResponse{tag: tag, status: status}
}

// ParseUsbResponse decodes an AWUS response.
func ParseUsbResponse(data []byte) (*UsbResponse, error) {
	if len(data) < usbResponseSize || !bytes.Equal(data[:4], usbResponseMagic) {
		return nil, &FormatError{Structure: "usb response", Reason: "missing AWUS magic"}
	}
	buf := crunchio.NewBuffer("AWUS", data[:usbResponseSize]).Buffer()
	return &UsbResponse{
		tag:     buf.ReadU32LE(4, 1)[0],
		residue: buf.ReadU32LE(8, 1)[0],
		status:  buf.ReadBytes(12, 1)[0],
	}, nil
}

func (r *UsbResponse) Bytes() []byte {
	buf := crunchio.NewBuffer("AWUS", make([]byte, usbResponseSize))
	b := buf.Buffer()
	b.WriteBytes(0, usbResponseMagic)
	b.WriteU32LE(4, []uint32{r.tag})
	b.WriteU32LE(8, []uint32{r.residue})
	b.WriteBytes(12, []byte{r.status})
	return buf.Bytes()
}

func (r *UsbResponse) Tag() uint32     { return r.tag }
func (r *UsbResponse) Residue() uint32 { return r.residue }
func (r *UsbResponse) Status() uint8   { return r.status }

func (r *UsbResponse) SetTag(tag int64) error {
	if err := checkUint32(tag, "tag"); err != nil {
		return err
	}
	r.tag = uint32(tag)
	return nil
}

func (r *UsbResponse) SetResidue(residue int64) error {
	if err := checkUint32(residue, "residue"); err != nil {
		return err
	}
	r.residue = uint32(residue)
	return nil
}

func (r *UsbResponse) SetStatus(status int64) error {
	if err := checkUint8(status, "status"); err != nil {
		return err
	}
	r.status = uint8(status)
	return nil
}
