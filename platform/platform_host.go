//go:build !rp2040 && !rp2350

package platform

import (
	"os"

	"bootcode-go/drivers/iap"
	"bootcode-go/drivers/iap/simflash"
	"bootcode-go/x/conv"
)

// Open returns a simulated board: STM32F4 partition on simulated flash, an
// RTC register file and the loader on stdin/stdout.
func Open() (*Board, error) {
	l := iap.STM32F4
	if err := l.Validate(); err != nil {
		return nil, err
	}
	const base = 0x08000000
	cpu := &simflash.CPU{OnJump: func(entry uint32) {
		var b [8]byte
		println("[platform] jump to 0x" + string(conv.U32Hex(b[:], entry)))
	}}
	return &Board{
		Name:   "host",
		Flash:  simflash.New(base, l.BankEnd-base, 0x4000),
		Layout: l,
		CPU:    cpu,
		I2C:    NewRTCSim(),
		Serial: NewStreamPort(os.Stdin, os.Stdout),
	}, nil
}
