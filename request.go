package felutils

import (
	"bytes"

	"github.com/JoshuaDoes/crunchio"
)

const (
	usbRequestSize  = 32
	usbResponseSize = 13
)

var usbRequestMagic = []byte("AWUC")

// RequestType selects the direction of an enveloped bulk transfer.
type RequestType uint8

const (
	RequestRead  RequestType = 0x11
	RequestWrite RequestType = 0x12
)

// ParseRequestType converts a raw command byte, rejecting anything outside the known set.
func ParseRequestType(v int64) (RequestType, error) {
	if v == int64(RequestRead) || v == int64(RequestWrite) {
		return RequestType(v), nil
	}
	return 0, &FormatError{Structure: "usb request", Field: "command", Reason: "unknown request type " + hexString(v)}
}

func (rt RequestType) String() string {
	switch rt {
	case RequestRead:
		return "read"
	case RequestWrite:
		return "write"
	}
	return "unknown(" + hexString(int64(rt)) + ")"
}

// UsbRequest is the 32 byte AWUC envelope sent ahead of every bulk transfer.
type UsbRequest struct {
	tag     uint32
	length  uint32
	cmdLen  uint8
	command RequestType
}

func NewUsbRequest(command RequestType, length uint32) *UsbRequest {
	return &UsbRequest{
		length:  length,
		cmdLen:  0x0C,
		command: command,
	}
}

// ParseUsbRequest decodes an AWUC envelope.
func ParseUsbRequest(data []byte) (*UsbRequest, error) {
	if len(data) < usbRequestSize || !bytes.Equal(data[:4], usbRequestMagic) {
		return nil, &FormatError{Structure: "usb request", Reason: "missing AWUC magic"}
	}
	buf := crunchio.NewBuffer("AWUC", data[:usbRequestSize]).Buffer()
	command, err := ParseRequestType(int64(buf.ReadBytes(16, 1)[0]))
	if err != nil {
		return nil, err
	}
	return &UsbRequest{
		tag:     buf.ReadU32LE(4, 1)[0],
		length:  buf.ReadU32LE(8, 1)[0],
		cmdLen:  buf.ReadBytes(15, 1)[0],
		command: command,
	}, nil
}

func (r *UsbRequest) Bytes() []byte {
	buf := crunchio.NewBuffer("AWUC", make([]byte, usbRequestSize))
	b := buf.Buffer()
	b.WriteBytes(0, usbRequestMagic)
	b.WriteU32LE(4, []uint32{r.tag})
	b.WriteU32LE(8, []uint32{r.length})
	b.WriteBytes(15, []byte{r.cmdLen, byte(r.command)})
	b.WriteU32LE(18, []uint32{r.length})
	return buf.Bytes()
}

func (r *UsbRequest) Tag() uint32          { return r.tag }
func (r *UsbRequest) Length() uint32       { return r.length }
func (r *UsbRequest) CommandLen() uint8    { return r.cmdLen }
func (r *UsbRequest) Command() RequestType { return r.command }

func (r *UsbRequest) SetTag(tag int64) error {
	if err := checkUint32(tag, "tag"); err != nil {
		return err
	}
	r.tag = uint32(tag)
	return nil
}

func (r *UsbRequest) SetLength(length int64) error {
	if err := checkUint32(length, "length"); err != nil {
		return err
	}
	r.length = uint32(length)
	return nil
}

func (r *UsbRequest) SetCommandLen(cmdLen int64) error {
	if err := checkUint8(cmdLen, "commandLen"); err != nil {
		return err
	}
	r.cmdLen = uint8(cmdLen)
	return nil
}

func (r *UsbRequest) SetCommand(command RequestType) error {
	rt, err := ParseRequestType(int64(command))
	if err != nil {
		return err
	}
	r.command = rt
	return nil
}
