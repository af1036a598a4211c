package felutils

import (
	"github.com/JoshuaDoes/crunchio"
)

const felMessageSize = 16

// Command is a FEL standard request.
type Command uint16

const (
	CmdVerifyDevice Command = 0x001 //Read length 32 => VerifyDeviceResponse
	CmdSwitchRole   Command = 0x002
	CmdIsReady      Command = 0x003 //Read length 8
	CmdGetCmdSetVer Command = 0x004
	CmdDisconnect   Command = 0x010
	CmdDownload     Command = 0x101 //Write data to the device
	CmdRun          Command = 0x102 //Execute code
	CmdUpload       Command = 0x103 //Read data from the device
)

// ParseCommand converts a raw command value, rejecting anything outside the known set.
func ParseCommand(v int64) (Command, error) {
	switch v {
	case int64(CmdVerifyDevice), int64(CmdSwitchRole), int64(CmdIsReady), int64(CmdGetCmdSetVer),
		int64(CmdDisconnect), int64(CmdDownload), int64(CmdRun), int64(CmdUpload):
		return Command(v), nil
	}
	return 0, &FormatError{Structure: "fel message", Field: "command", Reason: "unknown command " + hexString(v)}
}

func (c Command) String() string {
	switch c {
	case CmdVerifyDevice:
		return "verify-device"
	case CmdSwitchRole:
		return "switch-role"
	case CmdIsReady:
		return "is-ready"
	case CmdGetCmdSetVer:
		return "get-cmd-set-ver"
	case CmdDisconnect:
		return "disconnect"
	case CmdDownload:
		return "download"
	case CmdRun:
		return "run"
	case CmdUpload:
		return "upload"
	}
	return "unknown(" + hexString(int64(c)) + ")"
}

// Message is the 16 byte FEL request carried as the payload of a write envelope.
type Message struct {
	command Command
	tag     uint16
	address uint32
	length  uint32
	flags   uint32
}

func NewMessage(command Command, address, length uint32) *Message {
	return &Message{
		command: command,
		address: address,
		length:  length,
	}
}

// ParseMessage decodes a FEL request.
func ParseMessage(data []byte) (*Message, error) {
	if len(data) < felMessageSize {
		return nil, &FormatError{Structure: "fel message", Reason: "short message"}
	}
	buf := crunchio.NewBuffer("FEL", data[:felMessageSize]).Buffer()
	command, err := ParseCommand(int64(buf.ReadU16LE(0, 1)[0]))
	if err != nil {
		return nil, err
	}
	return &Message{
		command: command,
		tag:     buf.ReadU16LE(2, 1)[0],
		address: buf.ReadU32LE(4, 1)[0],
		length:  buf.ReadU32LE(8, 1)[0],
		flags:   buf.ReadU32LE(12, 1)[0],
	}, nil
}

func (m *Message) Bytes() []byte {
	buf := crunchio.NewBuffer("FEL", make([]byte, felMessageSize))
	b := buf.Buffer()
	b.WriteU16LE(0, []uint16{uint16(m.command), m.tag})
	b.WriteU32LE(4, []uint32{m.address, m.length, m.flags})
	return buf.Bytes()
}

func (m *Message) Command() Command { return m.command }
func (m *Message) Tag() uint16      { return m.tag }
func (m *Message) Address() uint32  { return m.address }
func (m *Message) Length() uint32   { return m.length }
func (m *Message) Flags() uint32    { return m.flags }

func (m *Message) SetCommand(command Command) error {
	c, err := ParseCommand(int64(command))
	if err != nil {
		return err
	}
	m.command = c
	return nil
}

func (m *Message) SetTag(tag int64) error {
	if err := checkUint16(tag, "tag"); err != nil {
		return err
	}
	m.tag = uint16(tag)
	return nil
}

func (m *Message) SetAddress(address int64) error {
	if err := checkUint32(address, "address"); err != nil {
		return err
	}
	m.address = uint32(address)
	return nil
}

func (m *Message) SetLength(length int64) error {
	if err := checkUint32(length, "length"); err != nil {
		return err
	}
	m.length = uint32(length)
	return nil
}

func (m *Message) SetFlags(flags int64) error {
	if err := checkUint32(flags, "flags"); err != nil {
		return err
	}
	m.flags = uint32(flags)
	return nil
}
