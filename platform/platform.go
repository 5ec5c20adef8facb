// Package platform binds the firmware to a board: the flash controller and
// CPU hand-off used by the bootloader, the I²C bus the RTC sits on and the
// serial port the HEX loader listens to.
package platform

import (
	"context"

	"tinygo.org/x/drivers"

	"bootcode-go/drivers/iap"
)

// SerialPort is a byte stream with a cancellable read.
type SerialPort interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Board is everything main needs from the hardware.
type Board struct {
	// Name selects the embedded config.
	Name   string
	Flash  iap.Controller
	Layout iap.Layout
	CPU    iap.CPU
	I2C    drivers.I2C
	Serial SerialPort
}
