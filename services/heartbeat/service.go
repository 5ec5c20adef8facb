package heartbeat

import (
	"context"
	"time"

	"bootcode-go/bus"
	"bootcode-go/types"
	"bootcode-go/x/mathx"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicBootState       = bus.T("boot", "state")
)

// Clock is the wall time source, normally the RTC service.
type Clock interface {
	Now() (time.Time, error)
}

type Service struct {
	Clock Clock
	// Beat, if set, is called on every tick instead of printing.
	Beat func(now time.Time, clockOK bool, boot types.BootLevel)
}

func (s *Service) now() (time.Time, bool) {
	if s.Clock != nil {
		if t, err := s.Clock.Now(); err == nil {
			return t, true
		}
	}
	return time.Now(), false
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, stateSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(stateSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	level := types.BootIdle

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case <-tick.C:
			t, ok := s.now()
			if s.Beat != nil {
				s.Beat(t, ok, level)
				continue
			}
			if ok {
				println("Info:", t.Format("2006-01-02 15:04:05"), "Heartbeat", string(level))
			} else {
				println("Info:", t.Format("15:04:05"), "Heartbeat (no rtc)", string(level))
			}
		case msg := <-stateSub.Channel():
			if st, ok := msg.Payload.(types.BootState); ok {
				level = st.Level
			}
		case msg := <-cfgSub.Channel():
			var cfg types.HeartbeatConfig
			if err := types.Decode(msg.Payload, &cfg); err != nil || cfg.Interval <= 0 {
				println("Info:", "Ignoring heartbeat config")
				continue
			}
			interval := mathx.Clamp(cfg.Interval, 0.1, 3600)
			tick.Reset(time.Duration(interval * float64(time.Second)))
			println("Info:", "Heartbeat interval set to", interval, "seconds")
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	stateSub := conn.Subscribe(topicBootState)
	go s.serviceLoop(ctx, conn, cfgSub, stateSub)
	return nil
}
