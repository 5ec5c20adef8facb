//go:build rp2040 || rp2350

package platform

import (
	"encoding/binary"
	"errors"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"bootcode-go/drivers/iap"
	"bootcode-go/x/mathx"
)

const (
	xipBase  = 0x10000000
	ramStart = 0x20000000
	// QSPI flash page; programs must not cross it.
	pageSize = 256
)

var (
	errLocked = errors.New("platform: flash locked")
	errRange  = errors.New("platform: address outside flash data region")
)

// Open configures the board peripherals. The application partition is the
// flash left free after the bootloader's own image.
func Open() (*Board, error) {
	bs := uint32(machine.Flash.EraseBlockSize())
	start := uint32(machine.FlashDataStart())
	appStart := mathx.CeilDiv(start, bs) * bs

	l := iap.Layout{
		AppStart: appStart,
		BankEnd:  uint32(machine.FlashDataEnd()),
		Margin:   0x10,
		RAMStart: ramStart,
		RAMEnd:   ramEnd,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	// The DS1307 is a standard-mode part.
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, err
	}

	uart := uartx.UART0
	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return nil, err
	}

	return &Board{
		Name:   "pico",
		Flash:  &rp2Flash{base: start},
		Layout: l,
		CPU:    &iap.CortexM{VectorTable: l.AppStart},
		I2C:    i2c,
		Serial: uart,
	}, nil
}

// rp2Flash programs the QSPI flash through machine.Flash, whose offsets are
// relative to FlashDataStart.
type rp2Flash struct {
	base     uint32
	unlocked bool
	page     [pageSize]byte
}

func (f *rp2Flash) Unlock() error { f.unlocked = true; return nil }
func (f *rp2Flash) Lock() error   { f.unlocked = false; return nil }

func (f *rp2Flash) offset(addr uint32) (uint32, error) {
	if addr < f.base || addr >= uint32(machine.FlashDataEnd()) {
		return 0, errRange
	}
	return addr - f.base, nil
}

func (f *rp2Flash) Erase(start, end uint32) error {
	if !f.unlocked {
		return errLocked
	}
	off, err := f.offset(start)
	if err != nil {
		return err
	}
	if end <= start {
		return nil
	}
	bs := uint32(machine.Flash.EraseBlockSize())
	first := off / bs
	last := mathx.CeilDiv(end-f.base, bs)
	return machine.Flash.EraseBlocks(int64(first), int64(last-first))
}

// ProgramWord writes the word's whole page with every other byte left at
// 0xFF, which leaves programmed bytes unchanged.
func (f *rp2Flash) ProgramWord(addr, word uint32) error {
	if !f.unlocked {
		return errLocked
	}
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	page := off &^ (pageSize - 1)
	for i := range f.page {
		f.page[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(f.page[off-page:], word)
	_, err = machine.Flash.WriteAt(f.page[:], int64(page))
	return err
}

func (f *rp2Flash) ReadWord(addr uint32) (uint32, error) {
	off, err := f.offset(addr)
	if err != nil {
		return 0, err
	}
	var b [4]byte
	if _, err := machine.Flash.ReadAt(b[:], int64(off)); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
