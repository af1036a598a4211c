package felutils

import (
	"bytes"

	"github.com/JoshuaDoes/crunchio"
)

const bootImageHeaderSize = 44

var bootImageMagic = []byte("ANDROID!")

// BootImageHeader is the fixed part of an Android boot image header.
type BootImageHeader struct {
	KernelSize     uint32
	KernelAddr     uint32
	RamdiskSize    uint32
	RamdiskAddr    uint32
	SecondSize     uint32
	SecondAddr     uint32
	TagsAddr       uint32
	PageSize       uint32
	DeviceTreeSize uint32
}

// ParseBootImageHeader reads the header at the start of a boot image.
func ParseBootImageHeader(image []byte) (*BootImageHeader, error) {
	if len(image) < bootImageHeaderSize || !bytes.Equal(image[:8], bootImageMagic) {
		return nil, &FormatError{Structure: "boot image", Reason: "missing ANDROID! magic"}
	}
	f := crunchio.NewBuffer("boot", image[:bootImageHeaderSize]).Buffer().ReadU32LE(8, 9)
	hdr := &BootImageHeader{
		KernelSize:     f[0],
		KernelAddr:     f[1],
		RamdiskSize:    f[2],
		RamdiskAddr:    f[3],
		SecondSize:     f[4],
		SecondAddr:     f[5],
		TagsAddr:       f[6],
		PageSize:       f[7],
		DeviceTreeSize: f[8],
	}
	if hdr.PageSize == 0 {
		return nil, &FormatError{Structure: "boot image", Field: "page_size", Reason: "zero page size"}
	}
	return hdr, nil
}

// Size returns the number of bytes the image occupies, header page included.
func (h *BootImageHeader) Size() int {
	pages := uint64(1)
	pages += h.pages(h.KernelSize)
	pages += h.pages(h.RamdiskSize)
	pages += h.pages(h.SecondSize)
	pages += h.pages(h.DeviceTreeSize)
	return int(pages * uint64(h.PageSize))
}

func (h *BootImageHeader) pages(size uint32) uint64 {
	return (uint64(size) + uint64(h.PageSize) - 1) / uint64(h.PageSize)
}

// CalculateBootImageSize returns the real size of the boot image described by its header.
func CalculateBootImageSize(image []byte) (int, error) {
	hdr, err := ParseBootImageHeader(image)
	if err != nil {
		return 0, err
	}
	return hdr.Size(), nil
}
