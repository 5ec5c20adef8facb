// Package iap implements in-application programming of the internal flash:
// erasing the application partition, programming it word by word with
// readback verification, and handing control to the programmed image.
//
// Hardware is reached only through the Controller and CPU capabilities, so
// the same code runs against machine flash on the device and against a
// simulated controller on the host:
//
//	st := iap.Erase(fc, layout, layout.AppStart)
//	st |= iap.Write(fc, layout, layout.AppStart, words)
//	if st == iap.OK {
//		err := iap.Launch(fc, layout, cpu) // does not return on hardware
//	}
//
// The package performs no logging and never retries; callers interpret the
// returned Status.
package iap

import "errors"

// WordSize is the programming granularity in bytes.
const WordSize = 4

// Layout describes the application partition inside flash bank 1.
type Layout struct {
	// AppStart is the first address of the application image. Everything
	// below it belongs to the resident bootloader.
	AppStart uint32
	// BankEnd is one past the last byte of the flash bank.
	BankEnd uint32
	// Margin is reserved at the top of the bank and never programmed.
	Margin uint32
	// RAMStart and RAMEnd bound the initial stack pointer of a valid image.
	RAMStart uint32
	RAMEnd   uint32
}

// STM32F4 is the partition used by the STM32F4 boards: a 32 KiB bootloader
// followed by the application up to the end of the first 1 MiB bank.
var STM32F4 = Layout{
	AppStart: 0x08008000,
	BankEnd:  0x08100000,
	Margin:   0x10,
	RAMStart: 0x20000000,
	RAMEnd:   0x20020000,
}

var ErrLayout = errors.New("iap: invalid layout")

// AppEnd is the first address past the writable application region.
func (l Layout) AppEnd() uint32 { return l.BankEnd - l.Margin }

// Size is the number of writable bytes in the application region.
func (l Layout) Size() uint32 { return l.AppEnd() - l.AppStart }

// Contains reports whether a whole word at addr fits in [AppStart, AppEnd).
func (l Layout) Contains(addr uint32) bool {
	return addr >= l.AppStart && addr < l.AppEnd() && l.AppEnd()-addr >= WordSize
}

// Validate checks the layout is usable: a non-empty, word-aligned
// application region below the bank end, and a non-empty RAM range.
func (l Layout) Validate() error {
	switch {
	case l.Margin >= l.BankEnd:
		return ErrLayout
	case l.AppStart%WordSize != 0 || l.AppEnd()%WordSize != 0:
		return ErrLayout
	case l.AppStart+2*WordSize > l.AppEnd():
		return ErrLayout
	case l.RAMEnd <= l.RAMStart:
		return ErrLayout
	}
	return nil
}
