package felutils

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

func isHexFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		return true
	}
	return false
}

// LoadImage reads a firmware image. Intel HEX files are flattened from their lowest address,
// with gaps filled with zeroes; anything else is taken verbatim.
func LoadImage(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isHexFile(path) {
		return raw, nil
	}
	return flattenHex(raw)
}

func flattenHex(raw []byte) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("error parsing Intel HEX: %w", err)
	}
	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("Intel HEX image has no data")
	}

	start, end := segments[0].Address, segments[0].Address
	for _, seg := range segments {
		start = min(start, seg.Address)
		end = max(end, seg.Address+uint32(len(seg.Data)))
	}
	return mem.ToBinary(start, end-start, 0x00), nil
}

// SaveImage writes data read from address to path, as Intel HEX when the extension asks for it.
func SaveImage(path string, address uint32, data []byte) error {
	if !isHexFile(path) {
		return os.WriteFile(path, data, 0644)
	}

	mem := gohex.NewMemory()
	if err := mem.AddBinary(address, data); err != nil {
		return fmt.Errorf("error building Intel HEX: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mem.DumpIntelHex(f, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
