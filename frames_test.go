package felutils

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestUsbRequestLayout(t *testing.T) {
	req := NewUsbRequest(RequestWrite, 0x1234)
	if err := req.SetTag(7); err != nil {
		t.Fatal(err)
	}
	raw := req.Bytes()
	if len(raw) != usbRequestSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(raw), usbRequestSize)
	}

	le := binary.LittleEndian
	switch {
	case !bytes.Equal(raw[:4], []byte("AWUC")):
		t.Errorf("magic = %q", raw[:4])
	case le.Uint32(raw[4:]) != 7:
		t.Errorf("tag = %d", le.Uint32(raw[4:]))
	case le.Uint32(raw[8:]) != 0x1234 || le.Uint32(raw[18:]) != 0x1234:
		t.Errorf("length not duplicated at offsets 8 and 18: % X", raw)
	case raw[15] != 0x0C || raw[16] != 0x12:
		t.Errorf("cmd_len/command = 0x%02X/0x%02X", raw[15], raw[16])
	}

	back, err := ParseUsbRequest(raw)
	if err != nil {
		t.Fatalf("ParseUsbRequest() error = %v", err)
	}
	if back.Tag() != 7 || back.Length() != 0x1234 || back.CommandLen() != 0x0C || back.Command() != RequestWrite {
		t.Errorf("ParseUsbRequest() = %+v", back)
	}
}

func TestUsbRequestRejects(t *testing.T) {
	raw := NewUsbRequest(RequestRead, 8).Bytes()

	badMagic := bytes.Clone(raw)
	badMagic[3] = 'X'
	unknown := bytes.Clone(raw)
	unknown[16] = 0x13

	for name, data := range map[string][]byte{
		"magic":   badMagic,
		"command": unknown,
		"short":   raw[:20],
	} {
		var fe *FormatError
		if _, err := ParseUsbRequest(data); !errors.As(err, &fe) {
			t.Errorf("%s: error = %v, want FormatError", name, err)
		}
	}

	req := NewUsbRequest(RequestRead, 8)
	if err := req.SetCommand(RequestType(0x13)); err == nil {
		t.Error("SetCommand(0x13) accepted an unknown request type")
	}
	if req.Command() != RequestRead {
		t.Error("failed SetCommand changed the command")
	}
}

func TestUsbResponseLayout(t *testing.T) {
	resp := NewUsbResponse(0xDEADBEEF, 1)
	if err := resp.SetResidue(3); err != nil {
		t.Fatal(err)
	}
	raw := resp.Bytes()
	if len(raw) != usbResponseSize || !bytes.Equal(raw[:4], []byte("AWUS")) || raw[12] != 1 {
		t.Fatalf("Bytes() = % X", raw)
	}

	back, err := ParseUsbResponse(raw)
	if err != nil {
		t.Fatalf("ParseUsbResponse() error = %v", err)
	}
	if back.Tag() != 0xDEADBEEF || back.Residue() != 3 || back.Status() != 1 {
		t.Errorf("ParseUsbResponse() = %+v", back)
	}

	raw[0] = 'X'
	var fe *FormatError
	if _, err := ParseUsbResponse(raw); !errors.As(err, &fe) {
		t.Errorf("ParseUsbResponse(bad magic) error = %v", err)
	}
}

func TestMessageLayout(t *testing.T) {
	msg := NewMessage(CmdDownload, 0x40000000, 0x10000)
	if err := msg.SetFlags(0x100); err != nil {
		t.Fatal(err)
	}
	raw := msg.Bytes()

	le := binary.LittleEndian
	if len(raw) != felMessageSize ||
		le.Uint16(raw[0:]) != 0x101 ||
		le.Uint32(raw[4:]) != 0x40000000 ||
		le.Uint32(raw[8:]) != 0x10000 ||
		le.Uint32(raw[12:]) != 0x100 {
		t.Fatalf("Bytes() = % X", raw)
	}

	back, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if *back != *msg {
		t.Errorf("ParseMessage() = %+v, want %+v", back, msg)
	}

	le.PutUint16(raw, 0x104)
	var fe *FormatError
	if _, err := ParseMessage(raw); !errors.As(err, &fe) || fe.Field != "command" {
		t.Errorf("ParseMessage(unknown command) error = %v", err)
	}
	if err := msg.SetCommand(Command(0x104)); err == nil {
		t.Error("SetCommand(0x104) accepted an unknown command")
	}
}

func TestStatusLayout(t *testing.T) {
	raw := NewStatus(2).Bytes()
	if !bytes.Equal(raw, []byte{0xFF, 0xFF, 0, 0, 2, 0, 0, 0}) {
		t.Fatalf("Bytes() = % X", raw)
	}

	//Any mark is accepted
	raw[0], raw[1] = 0x12, 0x34
	st, err := ParseStatus(raw)
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if st.Mark() != 0x3412 || st.State() != 2 {
		t.Errorf("ParseStatus() = %+v", st)
	}
}

func TestVerifyDeviceResponse(t *testing.T) {
	want := &VerifyDeviceResponse{
		Board:            0x00166700,
		Firmware:         1,
		Mode:             0x0002,
		DataFlag:         0x44,
		DataLength:       0x08,
		DataStartAddress: 0x7E00,
	}
	raw := want.Bytes()
	if len(raw) != verifyDeviceSize || !bytes.Equal(raw[:8], []byte("AWUSBFEX")) || raw[18] != 0x44 || raw[19] != 0x08 {
		t.Fatalf("Bytes() = % X", raw)
	}

	got, err := ParseVerifyDeviceResponse(raw)
	if err != nil {
		t.Fatalf("ParseVerifyDeviceResponse() error = %v", err)
	}
	if *got != *want {
		t.Errorf("ParseVerifyDeviceResponse() = %+v, want %+v", got, want)
	}

	raw[7] = 'Y'
	if _, err := ParseVerifyDeviceResponse(raw); err == nil {
		t.Error("ParseVerifyDeviceResponse() accepted bad magic")
	}
}

func TestSetterRanges(t *testing.T) {
	req := NewUsbRequest(RequestRead, 0)
	resp := NewUsbResponse(0, 0)
	msg := NewMessage(CmdRun, 0, 0)
	st := NewStatus(0)

	tests := []struct {
		field string
		max   int64
		set   func(int64) error
	}{
		{"tag", math.MaxUint32, req.SetTag},
		{"length", math.MaxUint32, req.SetLength},
		{"commandLen", math.MaxUint8, req.SetCommandLen},
		{"residue", math.MaxUint32, resp.SetResidue},
		{"status", math.MaxUint8, resp.SetStatus},
		{"tag", math.MaxUint16, msg.SetTag},
		{"address", math.MaxUint32, msg.SetAddress},
		{"flags", math.MaxUint32, msg.SetFlags},
		{"mark", math.MaxUint16, st.SetMark},
		{"state", math.MaxUint8, st.SetState},
	}
	for _, tt := range tests {
		for _, v := range []int64{0, tt.max} {
			if err := tt.set(v); err != nil {
				t.Errorf("%s = %d: unexpected error %v", tt.field, v, err)
			}
		}
		for _, v := range []int64{-1, tt.max + 1} {
			var re *RangeError
			if err := tt.set(v); !errors.As(err, &re) || re.Field != tt.field {
				t.Errorf("%s = %d: error = %v, want RangeError", tt.field, v, err)
			}
		}
	}
}

func TestFlashCommandString(t *testing.T) {
	tests := []struct {
		cmd  *FlashCommand
		want string
	}{
		{NewFlashRead(0x47400000, 0x30, 0x20, "efex_test"), "sunxi_flash phy_read 47400000 30 20;efex_test"},
		{NewFlashWrite(0x47400000, 8, 1, "efex_test"), "sunxi_flash phy_write 47400000 8 1;efex_test"},
		{NewFlashRead(0x47400000, 0, 1, ""), "sunxi_flash phy_read 47400000 0 1"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := BootaCommand(0x47400000); got != "boota 47400000" {
		t.Errorf("BootaCommand() = %q", got)
	}
}

func TestUnknownEnumStrings(t *testing.T) {
	if got := Command(0x104).String(); got != "unknown(0x104)" {
		t.Errorf("Command(0x104).String() = %q", got)
	}
	if got := RequestType(0x13).String(); got != "unknown(0x13)" {
		t.Errorf("RequestType(0x13).String() = %q", got)
	}
	_, err := ParseCommand(0x2A)
	if err == nil || !strings.Contains(err.Error(), "unknown command 0x2A") {
		t.Errorf("ParseCommand(0x2A) error = %v", err)
	}
}
