package felutils

import (
	"fmt"
)

// FlashCommand is a sunxi_flash uboot command moving whole sectors between NAND and DRAM.
type FlashCommand struct {
	op     string //phy_read or phy_write
	mem    uint32
	sector uint32
	count  uint32
	then   string //Command chained after the transfer, usually efex_test
}

func NewFlashRead(mem, sector, count uint32, then string) *FlashCommand {
	return &FlashCommand{op: "phy_read", mem: mem, sector: sector, count: count, then: then}
}

func NewFlashWrite(mem, sector, count uint32, then string) *FlashCommand {
	return &FlashCommand{op: "phy_write", mem: mem, sector: sector, count: count, then: then}
}

func (c *FlashCommand) String() string {
	cmd := fmt.Sprintf("sunxi_flash %s %x %x %x", c.op, c.mem, c.sector, c.count)
	if c.then != "" {
		cmd += ";" + c.then
	}
	return cmd
}

// BootaCommand boots the Android image staged at address.
func BootaCommand(address uint32) string {
	return fmt.Sprintf("boota %x", address)
}

func hexString(v int64) string {
	return fmt.Sprintf("0x%X", v)
}
