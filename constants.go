package felutils

import "time"

const (
	FEL_VID = 0x1F3A
	FEL_PID = 0xEFE8
)

// Settle delays. These are fixed by the behaviour of the BootROM, fes1 and uboot.
const (
	dramSettle      = 2000 * time.Millisecond
	ubootSettleStep = 500 * time.Millisecond
	ubootSettleIter = 10
	flashReadSettle = 500 * time.Millisecond
	reconnectWait   = 2000 * time.Millisecond
	reconnectTries  = 10
)

// Constants holds the memory map and transfer limits used during FEL operations.
// A single instance is shared by reference and never mutated after process start.
type Constants struct {
	Fes1TestSize  uint32 //Size of the fes1 tail used to detect an initialized DRAM
	Fes1BaseM     uint32 //SRAM address fes1 is loaded and run from
	DramBase      uint32
	UbootBaseM    uint32 //DRAM address uboot is loaded and run from
	UbootBaseF    uint32 //NAND address of uboot
	UbootTestSize uint32 //Size of the uboot head used to detect a resident uboot
	SectorSize    uint32
	UbootMaxSizeF uint32

	BootImageBaseF   uint32 //NAND address of the kernel boot image
	BootImageMaxSize uint32

	TransferBaseM   uint32 //DRAM window used to stage flash transfers
	TransferMaxSize uint32
	MaxBulkSize     uint32

	Fastboot string //uboot command that drops the device back into FEL
}

// DefaultConstants matches the memory layout of the NES/SNES Classic family.
var DefaultConstants = newDefaultConstants()

func newDefaultConstants() *Constants {
	c := &Constants{
		Fes1TestSize:  0x80,
		Fes1BaseM:     0x2000,
		DramBase:      0x40000000,
		UbootBaseF:    0x100000,
		UbootTestSize: 0x20,
		SectorSize:    0x20000,
		MaxBulkSize:   0x10000,
		Fastboot:      "efex_test",
	}
	c.UbootBaseM = c.DramBase + 0x7000000
	c.UbootMaxSizeF = c.SectorSize * 0x10
	c.BootImageBaseF = c.SectorSize * 0x30
	c.BootImageMaxSize = c.SectorSize * 0x20
	c.TransferBaseM = c.DramBase + 0x7400000
	c.TransferMaxSize = c.SectorSize * 0x100
	return c
}
