package felutils

import (
	"github.com/JoshuaDoes/crunchio"
)

const felStatusSize = 8

// Status is the 8 byte trailer read back after every FEL command.
type Status struct {
	mark  uint16
	tag   uint16
	state uint8
}

func NewStatus(state uint8) *Status {
	return &Status{mark: 0xFFFF, state: state}
}

// ParseStatus decodes a FEL status. The mark is not checked, the BootROM is not consistent about it.
func ParseStatus(data []byte) (*Status, error) {
	if len(data) < felStatusSize {
		return nil, &FormatError{Structure: "fel status", Reason: "short status"}
	}
	buf := crunchio.NewBuffer("status", data[:felStatusSize]).Buffer()
	return &Status{
		mark:  buf.ReadU16LE(0, 1)[0],
		tag:   buf.ReadU16LE(2, 1)[0],
		state: buf.ReadBytes(4, 1)[0],
	}, nil
}

func (s *Status) Bytes() []byte {
	buf := crunchio.NewBuffer("status", make([]byte, felStatusSize))
	b := buf.Buffer()
	b.WriteU16LE(0, []uint16{s.mark, s.tag})
	b.WriteBytes(4, []byte{s.state})
	return buf.Bytes()
}

func (s *Status) Mark() uint16 { return s.mark }
func (s *Status) Tag() uint16  { return s.tag }
func (s *Status) State() uint8 { return s.state }

func (s *Status) SetMark(mark int64) error {
	if err := checkUint16(mark, "mark"); err != nil {
		return err
	}
	s.mark = uint16(mark)
	return nil
}

func (s *Status) SetTag(tag int64) error {
	if err := checkUint16(tag, "tag"); err != nil {
		return err
	}
	s.tag = uint16(tag)
	return nil
}

func (s *Status) SetState(state int64) error {
	if err := checkUint8(state, "state"); err != nil {
		return err
	}
	s.state = uint8(state)
	return nil
}
