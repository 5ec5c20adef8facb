//go:build rp2040

package platform

const ramEnd = 0x20042000
