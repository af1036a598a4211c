package felutils

import "strings"

// Category describes what a progress event is about. It is advisory only.
type Category uint8

const (
	CategoryMemory Category = 1 << iota
	CategoryFlash
	CategoryFes1      //Range overlaps the fes1 region
	CategoryUboot     //Range overlaps the uboot region
	CategoryBootImage //Range overlaps the boot image region
)

func (c Category) String() string {
	var parts []string
	if c&CategoryMemory != 0 {
		parts = append(parts, "memory")
	}
	if c&CategoryFlash != 0 {
		parts = append(parts, "flash")
	}
	if c&CategoryFes1 != 0 {
		parts = append(parts, "fes1")
	}
	if c&CategoryUboot != 0 {
		parts = append(parts, "uboot")
	}
	if c&CategoryBootImage != 0 {
		parts = append(parts, "boot")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ProgressEvent is reported once per transferred chunk.
type ProgressEvent struct {
	Transferred int
	Total       int
	Address     uint32 //Base address of the whole operation
	Category    Category
}

// Percentage returns the completion percentage (0.0 to 100.0).
func (ev ProgressEvent) Percentage() float64 {
	if ev.Total <= 0 {
		return 100
	}
	return float64(ev.Transferred) * 100 / float64(ev.Total)
}

// Progress receives progress events on the calling goroutine, between chunks.
// Implementations should return quickly to avoid stalling the protocol.
type Progress interface {
	Progress(ev ProgressEvent)
}

// ProgressFunc adapts an ordinary function to Progress.
type ProgressFunc func(ev ProgressEvent)

func (f ProgressFunc) Progress(ev ProgressEvent) {
	f(ev)
}

func report(p Progress, ev ProgressEvent) {
	if p != nil {
		p.Progress(ev)
	}
}

func overlaps(addr uint32, length int, base uint32, size int) bool {
	if length <= 0 || size <= 0 {
		return false
	}
	start, end := uint64(addr), uint64(addr)+uint64(length)
	rStart, rEnd := uint64(base), uint64(base)+uint64(size)
	return start < rEnd && rStart < end
}

func (d *Device) memoryCategory(addr uint32, length int) Category {
	c := CategoryMemory
	if overlaps(addr, length, d.consts.Fes1BaseM, len(d.fes1)) {
		c |= CategoryFes1
	}
	if overlaps(addr, length, d.consts.UbootBaseM, len(d.uboot)) {
		c |= CategoryUboot
	}
	return c
}

func (d *Device) flashCategory(addr uint32, length int) Category {
	c := CategoryFlash
	if overlaps(addr, length, d.consts.UbootBaseF, int(d.consts.UbootMaxSizeF)) {
		c |= CategoryUboot
	}
	if overlaps(addr, length, d.consts.BootImageBaseF, int(d.consts.BootImageMaxSize)) {
		c |= CategoryBootImage
	}
	return c
}
