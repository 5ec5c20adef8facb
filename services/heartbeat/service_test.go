package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"

	"bootcode-go/bus"
	"bootcode-go/types"
)

type fixedClock struct {
	t   time.Time
	err error
}

func (c fixedClock) Now() (time.Time, error) { return c.t, c.err }

type beat struct {
	t     time.Time
	ok    bool
	level types.BootLevel
}

func start(t *testing.T, clock Clock) (chan beat, *bus.Connection) {
	t.Helper()
	b := bus.NewBus(8)
	conn := b.NewConnection("hb_test")
	// Short interval so the test does not wait on the 1 s default.
	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"), map[string]any{"interval": 0.05}, true))
	conn.Publish(conn.NewMessage(bus.T("boot", "state"), types.BootState{Level: types.BootReady}, true))

	beats := make(chan beat, 16)
	s := &Service{
		Clock: clock,
		Beat: func(now time.Time, ok bool, level types.BootLevel) {
			select {
			case beats <- beat{now, ok, level}:
			default:
			}
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := s.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return beats, conn
}

func next(t *testing.T, beats chan beat) beat {
	t.Helper()
	select {
	case b := <-beats:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat")
		return beat{}
	}
}

func TestHeartbeatUsesClock(t *testing.T) {
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	beats, _ := start(t, fixedClock{t: at})
	// The first tick may predate the retained boot state.
	for i := 0; i < 5; i++ {
		b := next(t, beats)
		if !b.ok || !b.t.Equal(at) {
			t.Fatalf("beat = %+v", b)
		}
		if b.level == types.BootReady {
			return
		}
	}
	t.Fatal("boot state never observed")
}

func TestHeartbeatFallsBackWithoutClock(t *testing.T) {
	beats, _ := start(t, fixedClock{err: errors.New("halted")})
	if b := next(t, beats); b.ok {
		t.Fatalf("beat = %+v, want fallback", b)
	}
}
