package felutils

// PadToSectorBoundary zero fills input up to the next multiple of sectorSize.
func PadToSectorBoundary(input []byte, sectorSize uint32) []byte {
	rem := len(input) % int(sectorSize)
	if rem == 0 {
		return input
	}
	padded := make([]byte, len(input)+int(sectorSize)-rem)
	copy(padded, input)
	return padded
}

// Memboot loads a boot image into DRAM and boots it without touching NAND.
func Memboot(d *Device, bootImage []byte, p Progress) error {
	size, err := CalculateBootImageSize(bootImage)
	if err != nil {
		return err
	}
	if size > len(bootImage) {
		return &ImageSizeError{Computed: size, Actual: len(bootImage)}
	}
	if len(bootImage) > int(d.consts.TransferMaxSize) {
		return &ProtocolError{Op: "too-large", Detail: "boot image size exceeds the max transfer size"}
	}

	if err := d.Open(); err != nil {
		return err
	}
	if err := d.WriteMemory(d.consts.TransferBaseM, bootImage, p); err != nil {
		return err
	}
	return d.RunUbootCommand(BootaCommand(d.consts.TransferBaseM), true, p)
}

// WriteUboot writes uboot to NAND, optionally reading it back to verify it.
func WriteUboot(d *Device, uboot []byte, verify bool, p Progress) error {
	return writeFlashImage(d, "uboot", d.consts.UbootBaseF, d.consts.UbootMaxSizeF, uboot, verify, p)
}

// WriteBootImage writes a kernel boot image to NAND, optionally reading it back to verify it.
func WriteBootImage(d *Device, bootImage []byte, verify bool, p Progress) error {
	return writeFlashImage(d, "boot image", d.consts.BootImageBaseF, d.consts.BootImageMaxSize, bootImage, verify, p)
}

func writeFlashImage(d *Device, name string, address, maxSize uint32, image []byte, verify bool, p Progress) error {
	image = PadToSectorBoundary(image, d.consts.SectorSize)
	if len(image) > int(maxSize) {
		return &ProtocolError{Op: "too-large", Detail: name + " is too large"}
	}

	if err := d.Open(); err != nil {
		return err
	}
	if err := d.WriteFlash(address, image, p); err != nil {
		return err
	}
	if !verify {
		return nil
	}

	d.log.Infof("Verifying %s", name)
	data, err := d.ReadFlash(address, uint32(len(image)), p)
	if err != nil {
		return err
	}
	for i := range image {
		if i >= len(data) {
			return &VerifyError{Address: address + uint32(i), Expected: image[i]}
		}
		if data[i] != image[i] {
			return &VerifyError{Address: address + uint32(i), Expected: image[i], Actual: data[i]}
		}
	}
	return nil
}

// ReadUboot reads the whole uboot partition from NAND.
func ReadUboot(d *Device, p Progress) ([]byte, error) {
	if err := d.Open(); err != nil {
		return nil, err
	}
	return d.ReadFlash(d.consts.UbootBaseF, d.consts.UbootMaxSizeF, p)
}

// ReadBootImage reads the kernel boot image from NAND, truncated to the size in its header.
func ReadBootImage(d *Device, p Progress) ([]byte, error) {
	if err := d.Open(); err != nil {
		return nil, err
	}
	bootImage, err := d.ReadFlash(d.consts.BootImageBaseF, d.consts.BootImageMaxSize, p)
	if err != nil {
		return nil, err
	}
	size, err := CalculateBootImageSize(bootImage)
	if err != nil {
		return nil, err
	}
	if size > len(bootImage) {
		return nil, &ImageSizeError{Computed: size, Actual: len(bootImage)}
	}
	return bootImage[:size], nil
}
