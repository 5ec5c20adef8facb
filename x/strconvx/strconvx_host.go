//go:build !(rp2040 || rp2350)

package strconvx

import "strconv"

// ParseUint is strconv.ParseUint on host builds.
func ParseUint(s string, base, bitSize int) (uint64, error) {
	return strconv.ParseUint(s, base, bitSize)
}
