package felutils

// Transport is one claimed USB interface with a bulk IN/OUT endpoint pair.
// It is owned by exactly one Device at a time.
type Transport interface {
	// Open claims the interface and its endpoints.
	Open() error

	// Reset issues a USB port reset to the device.
	Reset() error

	// Release gives the claimed interface back. The handle stays valid for Open.
	Release() error

	// Close releases everything, the handle must not be used afterwards.
	Close() error

	// WriteRaw writes p to the bulk OUT endpoint in full.
	WriteRaw(p []byte) error

	// ReadRaw reads exactly n bytes from the bulk IN endpoint. A short read is an error.
	ReadRaw(n int) ([]byte, error)

	// String describes the device for logs.
	String() string
}

// Discovery finds devices currently attached in FEL mode.
type Discovery interface {
	FindFelDevices() ([]Transport, error)
}
