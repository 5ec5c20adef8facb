package platform

import (
	"context"
	"io"
	"testing"
	"time"

	"bootcode-go/drivers/ds1307"
)

func TestRTCSimWithDriver(t *testing.T) {
	dev := ds1307.New(NewRTCSim())
	if halted, err := dev.ClockHalted(); err != nil || !halted {
		t.Fatalf("power-on halted=%v err=%v", halted, err)
	}
	if _, err := dev.Now(); err == nil {
		t.Fatal("blank chip reported a time")
	}

	want := time.Date(2031, time.March, 9, 23, 59, 58, 0, time.UTC)
	if err := dev.Configure(ds1307.Config{TimeZone: &ds1307.TimeZone{}}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := dev.Set(want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := dev.Now()
	if err != nil || !got.Equal(want) {
		t.Fatalf("Now = %v, %v; want %v", got, err, want)
	}
}

func TestRTCSimPointerWraps(t *testing.T) {
	s := NewRTCSim()
	if err := s.Tx(ds1307.Address, []byte{63, 0xAA, 0xBB}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 2)
	if err := s.Tx(ds1307.Address, []byte{63}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0xAA || r[1] != 0xBB {
		t.Fatalf("read % x", r)
	}
	if err := s.Tx(0x50, []byte{0}, r); err == nil {
		t.Fatal("wrong address answered")
	}
}

func TestStreamPort(t *testing.T) {
	pr, pw := io.Pipe()
	p := NewStreamPort(pr, io.Discard)

	go func() {
		pw.Write([]byte("abcdef"))
		pw.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var got []byte
	buf := make([]byte, 4)
	for {
		n, err := p.RecvSomeContext(ctx, buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
	}
	if string(got) != "abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestStreamPortHonoursContext(t *testing.T) {
	pr, _ := io.Pipe()
	p := NewStreamPort(pr, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.RecvSomeContext(ctx, make([]byte, 1)); err != context.DeadlineExceeded {
		t.Fatalf("err = %v", err)
	}
}
