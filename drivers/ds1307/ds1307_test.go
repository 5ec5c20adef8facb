package ds1307

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/drivers/tester"
)

func newDevice(c *qt.C) (*Device, *tester.I2CDevice8) {
	bus := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, Address)
	bus.AddDevice(fake)
	d := New(bus)
	return &d, fake
}

func TestBCDRoundTrip(t *testing.T) {
	c := qt.New(t)
	for n := uint8(0); n < 100; n++ {
		c.Assert(DecodeBCD(EncodeBCD(n)), qt.Equals, n)
	}
	c.Assert(EncodeBCD(59), qt.Equals, uint8(0x59))
	c.Assert(DecodeBCD(0x23), qt.Equals, uint8(23))
}

func TestConfigureDefaults(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)
	fake.Registers[RegSecond] = clockHalt | 0x42

	c.Assert(d.Configured(), qt.Equals, false)
	c.Assert(d.Configure(), qt.IsNil)
	c.Assert(d.Configured(), qt.Equals, true)

	// Oscillator running, seconds kept.
	c.Assert(fake.Registers[RegSecond], qt.Equals, uint8(0x42))
	c.Assert(fake.Registers[RegUTCHour], qt.Equals, uint8(7))
	c.Assert(fake.Registers[RegUTCMin], qt.Equals, uint8(0))
}

func TestConfigureCustom(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)
	err := d.Configure(Config{TimeZone: &TimeZone{Hour: -3, Minute: 30}, Halt: true})
	c.Assert(err, qt.IsNil)

	c.Assert(fake.Registers[RegSecond]&clockHalt, qt.Equals, uint8(clockHalt))
	hr, min, err := d.TimeZone()
	c.Assert(err, qt.IsNil)
	c.Assert(hr, qt.Equals, int8(-3))
	c.Assert(min, qt.Equals, uint8(30))

	loc, err := d.Location()
	c.Assert(err, qt.IsNil)
	_, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	c.Assert(off, qt.Equals, -(3*3600 + 30*60))
}

func TestSetTimeWritesRegisters(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)

	err := d.SetTime(Time{Second: 45, Minute: 30, Hour: 23, DayOfWeek: 2, Date: 31, Month: 12, Year: 2099})
	c.Assert(err, qt.IsNil)

	want := []uint8{0x45, 0x30, 0x23, 0x02, 0x31, 0x12, 0x99}
	c.Assert(fake.Registers[RegSecond:RegYear+1], qt.DeepEquals, want)
	c.Assert(fake.Registers[RegCentury], qt.Equals, uint8(20))
}

func TestSetTimePreservesHalt(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)
	fake.Registers[RegSecond] = clockHalt

	err := d.SetTime(Time{Second: 7, Minute: 0, Hour: 0, Date: 1, Month: 1, Year: 2024})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.Registers[RegSecond], qt.Equals, uint8(clockHalt|0x07))

	halted, err := d.ClockHalted()
	c.Assert(err, qt.IsNil)
	c.Assert(halted, qt.Equals, true)
}

func TestSetTimeValidation(t *testing.T) {
	c := qt.New(t)
	ok := Time{Second: 0, Minute: 0, Hour: 0, DayOfWeek: 0, Date: 1, Month: 1, Year: 2000}
	bad := []func(*Time){
		func(t *Time) { t.Second = 60 },
		func(t *Time) { t.Minute = 60 },
		func(t *Time) { t.Hour = 24 },
		func(t *Time) { t.DayOfWeek = 7 },
		func(t *Time) { t.Date = 0 },
		func(t *Time) { t.Date = 32 },
		func(t *Time) { t.Month = 0 },
		func(t *Time) { t.Month = 13 },
		func(t *Time) { t.Year = 1999 },
		func(t *Time) { t.Year = 2100 },
	}
	for i, mutate := range bad {
		d, fake := newDevice(c)
		tm := ok
		mutate(&tm)
		c.Assert(d.SetTime(tm), qt.Equals, ErrInvalidParam, qt.Commentf("case %d", i))
		c.Assert(fake.Registers[RegCentury], qt.Equals, uint8(0), qt.Commentf("case %d wrote", i))
	}
	d, _ := newDevice(c)
	c.Assert(d.SetTime(ok), qt.IsNil)
}

func TestReadTimeMasksControlBits(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)
	copy(fake.Registers[:], []uint8{clockHalt | 0x59, 0x08, 0x40 | 0x13, 0x06, 0x28, 0x02, 0x24})
	fake.Registers[RegCentury] = 20

	tm, err := d.ReadTime()
	c.Assert(err, qt.IsNil)
	c.Assert(tm, qt.Equals, Time{Second: 59, Minute: 8, Hour: 13, DayOfWeek: 6, Date: 28, Month: 2, Year: 2024})
}

func TestNowAndSet(t *testing.T) {
	c := qt.New(t)
	d, _ := newDevice(c)

	want := time.Date(2031, time.March, 14, 15, 9, 26, 0, time.UTC)
	c.Assert(d.Set(want.In(time.FixedZone("", 7*3600))), qt.IsNil)

	got, err := d.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(want), qt.Equals, true, qt.Commentf("got %v", got))
}

func TestNowRejectsBlankClock(t *testing.T) {
	c := qt.New(t)
	d, _ := newDevice(c)
	_, err := d.Now()
	c.Assert(err, qt.Equals, ErrInvalidTime)
}

func TestBusError(t *testing.T) {
	c := qt.New(t)
	d, fake := newDevice(c)
	fake.Err = errors.New("nack")

	_, err := d.ReadTime()
	c.Assert(err, qt.Equals, fake.Err)
	c.Assert(d.Configure(), qt.Equals, fake.Err)
	c.Assert(d.Configured(), qt.Equals, false)
}
