package felutils

import (
	"errors"
	"fmt"
)

// FormatError indicates a wire structure or image with bad magic or an unknown enumerant.
type FormatError struct {
	Structure string
	Field     string
	Reason    string
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("fel: malformed %s: %s: %s", e.Structure, e.Field, e.Reason)
	}
	return fmt.Sprintf("fel: malformed %s: %s", e.Structure, e.Reason)
}

// RangeError indicates a field value that does not fit its encoded width.
type RangeError struct {
	Field string
	Value int64
	Min   int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("fel: %s is out of range (%d-%d): %d", e.Field, e.Min, e.Max, e.Value)
}

// ProtocolError indicates the device refused an operation or a precondition of it was not met.
type ProtocolError struct {
	Op     string
	Detail string
	State  byte //Status or state byte reported by the device, if any
}

func (e *ProtocolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("fel: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("fel: %s failed with state 0x%02X", e.Op, e.State)
}

// ConfigError indicates the session is missing something only the caller can supply.
type ConfigError struct {
	Op     string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fel: %s: %s", e.Op, e.Detail)
}

// IoError wraps a failed bulk transfer.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return "fel: " + e.Op + ": " + e.Err.Error()
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// ImageSizeError indicates a boot image whose header claims more bytes than are present.
type ImageSizeError struct {
	Computed int
	Actual   int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("fel: boot image needs %d bytes but only %d are present", e.Computed, e.Actual)
}

// VerifyError indicates flash contents that differ from what was written.
type VerifyError struct {
	Address  uint32
	Expected byte
	Actual   byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("fel: verify failed at 0x%X: expected 0x%02X, got 0x%02X", e.Address, e.Expected, e.Actual)
}

// IsProtocolError reports whether err is a ProtocolError for the given operation.
// An empty op matches any ProtocolError.
func IsProtocolError(err error, op string) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	return op == "" || pe.Op == op
}
