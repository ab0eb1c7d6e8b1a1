package cubemap

import "math/bits"

func BitLength(num uint64) int {
	return bits.Len64(num)
}

// IsPow2 determines if the unsigned value size is a perfect power of 2.
func IsPow2(size uint64) bool {
	return size != 0 && size&(size-1) == 0
}

