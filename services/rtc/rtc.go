// Package rtc owns the DS1307 and serves wall time to the rest of the firmware.
package rtc

import (
	"context"
	"errors"
	"sync"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/ds1307"
	"bootcode-go/errcode"
	"bootcode-go/types"
)

var (
	topicConfigRTC = bus.T("config", "rtc")
	TopicControl   = bus.T("rtc", "control")
)

// Service serialises access to the clock. Now may be called from any goroutine.
type Service struct {
	mu  sync.Mutex
	dev *ds1307.Device
}

func New(dev *ds1307.Device) *Service {
	return &Service{dev: dev}
}

// Now reads the clock in UTC. It fails until the chip holds a valid time.
func (s *Service) Now() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Now()
}

// Start subscribes before returning, so requests published afterwards are
// never missed.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigRTC)
	ctlSub := conn.Subscribe(TopicControl.Append("+"))
	go s.serviceLoop(ctx, conn, cfgSub, ctlSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, cfgSub, ctlSub *bus.Subscription) {
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctlSub)

	for {
		// Pending config is applied before the next request.
		select {
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.configure(msg.Payload)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			println("[rtc] service stopping")
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			s.configure(msg.Payload)
		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return
			}
			s.handle(conn, msg)
		}
	}
}

func (s *Service) configure(payload any) {
	var cfg types.RTCConfig
	if err := types.Decode(payload, &cfg); err != nil {
		println("[rtc] bad config:", err.Error())
		return
	}
	s.mu.Lock()
	err := s.dev.Configure(ds1307.Config{
		TimeZone: &ds1307.TimeZone{Hour: cfg.TZHour, Minute: cfg.TZMinute},
		Halt:     cfg.Halt,
	})
	s.mu.Unlock()
	if err != nil {
		println("[rtc] configure failed:", err.Error())
		return
	}
	println("[rtc] configured, utc offset", cfg.TZHour, "h", cfg.TZMinute, "m")
}

func (s *Service) handle(conn *bus.Connection, msg *bus.Message) {
	verb, _ := msg.Topic[len(msg.Topic)-1].(string)
	switch verb {
	case "get":
		t, err := s.read()
		if err != nil {
			conn.Reply(msg, types.RTCReply{Code: string(errcode.ClockUnavailable), Error: err.Error()}, false)
			return
		}
		conn.Reply(msg, t, false)
	case "set":
		var req types.RTCSet
		if err := types.Decode(msg.Payload, &req); err != nil {
			conn.Reply(msg, types.RTCReply{Code: string(errcode.InvalidPayload), Error: err.Error()}, false)
			return
		}
		s.mu.Lock()
		err := s.dev.Set(time.Unix(req.Unix, 0))
		s.mu.Unlock()
		if err != nil {
			conn.Reply(msg, types.RTCReply{Code: string(codeOf(err)), Error: err.Error()}, false)
			return
		}
		conn.Reply(msg, types.RTCReply{OK: true, Code: string(errcode.OK)}, false)
	default:
		conn.Reply(msg, types.RTCReply{Code: string(errcode.InvalidTopic)}, false)
	}
}

func (s *Service) read() (types.RTCTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now, err := s.dev.Now()
	if err != nil {
		return types.RTCTime{}, err
	}
	hr, min, err := s.dev.TimeZone()
	if err != nil {
		return types.RTCTime{}, err
	}
	loc, err := s.dev.Location()
	if err != nil {
		return types.RTCTime{}, err
	}
	halted, err := s.dev.ClockHalted()
	if err != nil {
		return types.RTCTime{}, err
	}
	return types.RTCTime{
		Unix:     now.Unix(),
		ISO:      now.In(loc).Format(time.RFC3339),
		TZHour:   hr,
		TZMinute: min,
		Halted:   halted,
	}, nil
}

func codeOf(err error) errcode.Code {
	if errors.Is(err, ds1307.ErrInvalidParam) {
		return errcode.InvalidParams
	}
	return errcode.ClockUnavailable
}
