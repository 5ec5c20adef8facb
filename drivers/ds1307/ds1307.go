// Package ds1307 provides a driver for the DS1307 real-time clock.
//
// Time fields are stored in BCD in 24-hour mode. The two-digit year is
// combined with a century byte kept in battery backed RAM, and two more RAM
// bytes hold a user UTC offset. The driver does not interpret the offset;
// it only stores and returns it.
//
//	d := ds1307.New(i2c)
//	if err := d.Configure(); err != nil { ... } // starts the oscillator
//	t, err := d.Now()
//
// Datasheet: https://www.analog.com/media/en/technical-documentation/data-sheets/DS1307.pdf
package ds1307

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

var (
	ErrInvalidParam = errors.New("ds1307: invalid parameter")
	ErrInvalidTime  = errors.New("ds1307: clock holds no valid time")
)

// TimeZone is the UTC offset kept in the clock's RAM. The values are stored
// as given; nothing checks that they form a real offset.
type TimeZone struct {
	Hour   int8
	Minute uint8
}

// DefaultTimeZone is written by Configure when no zone is supplied.
var DefaultTimeZone = TimeZone{Hour: 7, Minute: 0}

// Config controls Configure. All fields are optional.
type Config struct {
	// Address defaults to 0x68 if zero.
	Address uint16
	// TimeZone defaults to DefaultTimeZone if nil.
	TimeZone *TimeZone
	// Halt leaves the oscillator stopped.
	Halt bool
}

// Time is the calendar content of the clock registers.
type Time struct {
	Second    uint8
	Minute    uint8
	Hour      uint8 // 0-23
	DayOfWeek uint8 // 0-6, Sunday is 0
	Date      uint8 // 1-31
	Month     uint8 // 1-12
	Year      uint16
}

// Validate checks the ranges accepted by SetTime.
func (t Time) Validate() error {
	switch {
	case t.Second >= 60, t.Minute >= 60, t.Hour >= 24, t.DayOfWeek > 6:
		return ErrInvalidParam
	case t.Date < 1 || t.Date > 31, t.Month < 1 || t.Month > 12:
		return ErrInvalidParam
	case t.Year < 2000 || t.Year > 2099:
		return ErrInvalidParam
	}
	return nil
}

// UTC converts t to a time.Time in UTC.
func (t Time) UTC() time.Time {
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Date),
		int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}

// FromTime converts tt, taken in UTC, to register content.
func FromTime(tt time.Time) Time {
	tt = tt.UTC()
	return Time{
		Second:    uint8(tt.Second()),
		Minute:    uint8(tt.Minute()),
		Hour:      uint8(tt.Hour()),
		DayOfWeek: uint8(tt.Weekday()),
		Date:      uint8(tt.Day()),
		Month:     uint8(tt.Month()),
		Year:      uint16(tt.Year()),
	}
}

// Device wraps an I2C connection to a DS1307.
type Device struct {
	bus     drivers.I2C
	Address uint16

	configured bool
	buf        [8]byte
}

// New creates a Device on an already configured bus. It does not touch the chip.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure starts (or halts) the oscillator and writes the UTC offset.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	tz := DefaultTimeZone
	if c.TimeZone != nil {
		tz = *c.TimeZone
	}

	if err := d.SetClockHalt(c.Halt); err != nil {
		return err
	}
	if err := d.SetTimeZone(tz.Hour, tz.Minute); err != nil {
		return err
	}
	d.configured = true
	return nil
}

// Configured reports whether Configure has completed once.
func (d *Device) Configured() bool { return d.configured }

// ReadRegister reads one register byte.
func (d *Device) ReadRegister(reg uint8) (byte, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}

// WriteRegister writes one register byte.
func (d *Device) WriteRegister(reg, val uint8) error {
	d.buf[0] = reg
	d.buf[1] = val
	return d.bus.Tx(d.Address, d.buf[:2], nil)
}

// ClockHalted reports whether the oscillator is stopped.
func (d *Device) ClockHalted() (bool, error) {
	sec, err := d.ReadRegister(RegSecond)
	if err != nil {
		return false, err
	}
	return sec&clockHalt != 0, nil
}

// SetClockHalt stops or starts the oscillator, keeping the seconds count.
func (d *Device) SetClockHalt(halt bool) error {
	sec, err := d.ReadRegister(RegSecond)
	if err != nil {
		return err
	}
	sec &= secMask
	if halt {
		sec |= clockHalt
	}
	return d.WriteRegister(RegSecond, sec)
}

// SetTimeZone stores the UTC offset as raw bytes.
func (d *Device) SetTimeZone(hr int8, min uint8) error {
	if err := d.WriteRegister(RegUTCHour, uint8(hr)); err != nil {
		return err
	}
	return d.WriteRegister(RegUTCMin, min)
}

// TimeZone returns the stored UTC offset.
func (d *Device) TimeZone() (int8, uint8, error) {
	hr, err := d.ReadRegister(RegUTCHour)
	if err != nil {
		return 0, 0, err
	}
	min, err := d.ReadRegister(RegUTCMin)
	if err != nil {
		return 0, 0, err
	}
	return int8(hr), min, nil
}

// Location returns the stored UTC offset as a fixed zone. The minute part
// takes the sign of the hour.
func (d *Device) Location() (*time.Location, error) {
	hr, min, err := d.TimeZone()
	if err != nil {
		return nil, err
	}
	off := int(hr)*3600 + int(min)*60
	if hr < 0 {
		off = int(hr)*3600 - int(min)*60
	}
	return time.FixedZone("", off), nil
}

// SetTime writes t in 24-hour mode. The clock-halt state is preserved.
func (d *Device) SetTime(t Time) error {
	if err := t.Validate(); err != nil {
		return err
	}
	halted, err := d.ClockHalted()
	if err != nil {
		return err
	}

	sec := EncodeBCD(t.Second)
	if halted {
		sec |= clockHalt
	}
	w := d.buf[:8]
	w[0] = RegSecond
	w[1] = sec
	w[2] = EncodeBCD(t.Minute)
	w[3] = EncodeBCD(t.Hour) & hourMask
	w[4] = EncodeBCD(t.DayOfWeek)
	w[5] = EncodeBCD(t.Date)
	w[6] = EncodeBCD(t.Month)
	w[7] = EncodeBCD(uint8(t.Year % 100))
	if err := d.bus.Tx(d.Address, w, nil); err != nil {
		return err
	}
	// The century byte is plain binary.
	return d.WriteRegister(RegCentury, uint8(t.Year/100))
}

// ReadTime returns the register content. A chip that was never set reads as
// an out-of-range Time; use Now to reject it.
func (d *Device) ReadTime() (Time, error) {
	cen, err := d.ReadRegister(RegCentury)
	if err != nil {
		return Time{}, err
	}

	d.buf[0] = RegSecond
	r := d.buf[1:8]
	if err := d.bus.Tx(d.Address, d.buf[:1], r); err != nil {
		return Time{}, err
	}
	return Time{
		Second:    DecodeBCD(r[0] & secMask),
		Minute:    DecodeBCD(r[1]),
		Hour:      DecodeBCD(r[2] & hourMask),
		DayOfWeek: DecodeBCD(r[3]),
		Date:      DecodeBCD(r[4]),
		Month:     DecodeBCD(r[5]),
		Year:      uint16(DecodeBCD(r[6])) + 100*uint16(cen),
	}, nil
}

// Now returns the current time in UTC, or ErrInvalidTime when the registers
// do not hold a settable time.
func (d *Device) Now() (time.Time, error) {
	t, err := d.ReadTime()
	if err != nil {
		return time.Time{}, err
	}
	if t.Validate() != nil {
		return time.Time{}, ErrInvalidTime
	}
	return t.UTC(), nil
}

// Set writes tt, converted to UTC.
func (d *Device) Set(tt time.Time) error {
	return d.SetTime(FromTime(tt))
}
