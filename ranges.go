package felutils

import "math"

func checkRange(v, min, max int64, field string) error {
	if v < min || v > max {
		return &RangeError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

func checkUint8(v int64, field string) error {
	return checkRange(v, 0, math.MaxUint8, field)
}

func checkUint16(v int64, field string) error {
	return checkRange(v, 0, math.MaxUint16, field)
}

func checkUint32(v int64, field string) error {
	return checkRange(v, 0, math.MaxUint32, field)
}
