package rtc

import (
	"context"
	"testing"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/ds1307"
	"bootcode-go/errcode"
	"bootcode-go/types"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/drivers/tester"
)

// newService starts the service; a non-nil cfg is published retained on
// config/rtc first so it is applied before any request.
func newService(c *qt.C, cfg any) (*Service, *tester.I2CDevice8, *bus.Connection) {
	i2c := tester.NewI2CBus(c)
	fake := tester.NewI2CDevice8(c, ds1307.Address)
	fake.Registers[ds1307.RegSecond] = 0x80 | 0x12
	i2c.AddDevice(fake)
	dev := ds1307.New(i2c)

	b := bus.NewBus(8)
	if cfg != nil {
		b.Publish(b.NewMessage(bus.T("config", "rtc"), cfg, true))
	}
	svc := New(&dev)
	ctx, cancel := context.WithCancel(context.Background())
	c.Cleanup(cancel)
	c.Assert(svc.Start(ctx, b.NewConnection("rtc")), qt.IsNil)
	return svc, fake, b.NewConnection("rtc_test")
}

func request(c *qt.C, conn *bus.Connection, verb string, payload any) any {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := conn.RequestWait(ctx, conn.NewMessage(TopicControl.Append(verb), payload, false))
	c.Assert(err, qt.IsNil)
	return m.Payload
}

func TestSetThenGet(t *testing.T) {
	c := qt.New(t)
	svc, _, conn := newService(c, nil)

	want := time.Date(2030, time.July, 4, 12, 30, 15, 0, time.UTC)
	rep := request(c, conn, "set", types.RTCSet{Unix: want.Unix()})
	c.Assert(rep, qt.Equals, types.RTCReply{OK: true, Code: "ok"})

	got, err := svc.Now()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(want), qt.Equals, true)

	tm, ok := request(c, conn, "get", nil).(types.RTCTime)
	c.Assert(ok, qt.Equals, true)
	c.Assert(tm.Unix, qt.Equals, want.Unix())
	c.Assert(tm.ISO, qt.Equals, "2030-07-04T12:30:15Z")
}

func TestGetBlankClock(t *testing.T) {
	c := qt.New(t)
	_, _, conn := newService(c, nil)
	rep, ok := request(c, conn, "get", nil).(types.RTCReply)
	c.Assert(ok, qt.Equals, true)
	c.Assert(rep.Code, qt.Equals, string(errcode.ClockUnavailable))
}

func TestSetOutOfRange(t *testing.T) {
	c := qt.New(t)
	_, _, conn := newService(c, nil)
	// 1990 cannot be represented with the stored century.
	rep := request(c, conn, "set", `{"unix":631152000}`).(types.RTCReply)
	c.Assert(rep.OK, qt.Equals, false)
	c.Assert(rep.Code, qt.Equals, string(errcode.InvalidParams))
}

func TestConfigAppliesTimeZone(t *testing.T) {
	c := qt.New(t)
	_, _, conn := newService(c, map[string]any{"tz_hour": float64(-5), "tz_minute": float64(30)})
	request(c, conn, "set", types.RTCSet{Unix: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()})

	tm := request(c, conn, "get", nil).(types.RTCTime)
	c.Assert(tm.TZHour, qt.Equals, int8(-5))
	c.Assert(tm.TZMinute, qt.Equals, uint8(30))
	c.Assert(tm.Halted, qt.Equals, false)
	c.Assert(tm.ISO, qt.Equals, "2024-12-31T18:30:00-05:30")
}
