//go:build rp2350

package platform

const ramEnd = 0x20082000
