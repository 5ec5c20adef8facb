// Package boot is the bootloader control flow. One goroutine owns the flash
// controller; erase, write, flash and launch requests arrive on the bus and
// are handled strictly one at a time.
//
// Topics:
//
//	boot/control/erase   types.EraseRequest  -> types.BootReply
//	boot/control/write   types.WriteRequest  -> types.BootReply
//	boot/control/flash   types.FlashRequest  -> types.BootReply
//	boot/control/launch  (any)               -> types.BootReply, sent before the jump
//	boot/control/status  (any)               -> types.BootInfo
//	boot/state           types.BootState, retained
//	config/boot          types.BootConfig
package boot

import (
	"context"
	"errors"
	"strings"
	"time"

	"bootcode-go/bus"
	"bootcode-go/drivers/iap"
	"bootcode-go/errcode"
	"bootcode-go/services/boot/image"
	"bootcode-go/types"
	"bootcode-go/x/conv"
	"bootcode-go/x/fmtx"
	"bootcode-go/x/mathx"
	"bootcode-go/x/timex"
)

var (
	topicConfigBoot = bus.T("config", "boot")
	TopicState      = bus.T("boot", "state")
	TopicControl    = bus.T("boot", "control")
)

const (
	verbErase  = "erase"
	verbWrite  = "write"
	verbFlash  = "flash"
	verbLaunch = "launch"
	verbStatus = "status"

	maxLaunchDelayMS = 60000
)

// Clock supplies wall time for state timestamps.
type Clock interface {
	Now() (time.Time, error)
}

type Service struct {
	fc     iap.Controller
	layout iap.Layout
	cpu    iap.CPU
	clock  Clock

	state types.BootState
	cfg   types.BootConfig
	// held is set by the first control request; auto-launch stays off after it.
	held bool
}

// New returns a service for the given controller, partition and core.
func New(fc iap.Controller, l iap.Layout, cpu iap.CPU) *Service {
	return &Service{fc: fc, layout: l, cpu: cpu}
}

// SetClock replaces the system time source for state timestamps.
func (s *Service) SetClock(c Clock) { s.clock = c }

// Start validates the layout, subscribes, and runs the service loop until
// ctx ends or an image has been launched.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if err := s.layout.Validate(); err != nil {
		return err
	}
	ctlSub := conn.Subscribe(TopicControl.Append("+"))
	cfgSub := conn.Subscribe(topicConfigBoot)
	go s.serviceLoop(ctx, conn, ctlSub, cfgSub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, ctlSub, cfgSub *bus.Subscription) {
	defer conn.Unsubscribe(ctlSub)
	defer conn.Unsubscribe(cfgSub)

	s.inspect(conn)

	var launchC <-chan time.Time
	var timer *time.Timer
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		launchC = nil
	}
	defer disarm()

	for {
		select {
		case <-ctx.Done():
			println("[boot] service stopping")
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			var cfg types.BootConfig
			if err := types.Decode(msg.Payload, &cfg); err != nil {
				println("[boot] bad config:", err.Error())
				continue
			}
			cfg.LaunchDelayMS = mathx.Clamp(cfg.LaunchDelayMS, 0, maxLaunchDelayMS)
			s.cfg = cfg
			disarm()
			if cfg.AutoLaunch && !s.held && s.state.Level == types.BootReady {
				println("[boot] auto-launch in", cfg.LaunchDelayMS, "ms")
				timer = time.NewTimer(time.Duration(cfg.LaunchDelayMS) * time.Millisecond)
				launchC = timer.C
			}

		case <-launchC:
			launchC, timer = nil, nil
			if s.launch(conn) == nil {
				return
			}

		case msg, ok := <-ctlSub.Channel():
			if !ok {
				return
			}
			if !s.held {
				s.held = true
				disarm()
			}
			if s.handle(conn, msg) {
				return
			}
		}
	}
}

// handle serves one control request. It reports true once control has been
// handed to the application.
func (s *Service) handle(conn *bus.Connection, msg *bus.Message) bool {
	verb, _ := msg.Topic[len(msg.Topic)-1].(string)
	switch verb {
	case verbErase:
		var req types.EraseRequest
		if err := types.Decode(msg.Payload, &req); err != nil {
			conn.Reply(msg, errReply(errcode.InvalidPayload, err), false)
			return false
		}
		conn.Reply(msg, s.erase(conn, req.Address), false)

	case verbWrite:
		var req types.WriteRequest
		if err := types.Decode(msg.Payload, &req); err != nil {
			conn.Reply(msg, errReply(errcode.InvalidPayload, err), false)
			return false
		}
		conn.Reply(msg, s.write(conn, req), false)

	case verbFlash:
		var req types.FlashRequest
		if err := types.Decode(msg.Payload, &req); err != nil {
			conn.Reply(msg, errReply(errcode.InvalidPayload, err), false)
			return false
		}
		rep := s.flash(conn, req)
		if !rep.OK || !req.Launch {
			conn.Reply(msg, rep, false)
			return false
		}
		return s.replyAndLaunch(conn, msg)

	case verbLaunch:
		return s.replyAndLaunch(conn, msg)

	case verbStatus:
		conn.Reply(msg, s.info(), false)

	default:
		conn.Reply(msg, errReply(errcode.InvalidTopic, nil), false)
	}
	return false
}

// ---- Operations ----

func (s *Service) erase(conn *bus.Connection, addr uint32) types.BootReply {
	if addr == 0 {
		addr = s.layout.AppStart
	}
	println("[boot] erase from", hex32(addr))
	s.setState(conn, types.BootErasing, errcode.OK, "")

	st := iap.Erase(s.fc, s.layout, addr)
	if st != iap.OK {
		s.setState(conn, types.BootFailed, codeOf(st), "erase")
		return statusReply(st)
	}
	s.inspect(conn)
	return statusReply(st)
}

func (s *Service) write(conn *bus.Connection, req types.WriteRequest) types.BootReply {
	s.setState(conn, types.BootWriting, errcode.OK, "")
	r := iap.WriteReport(s.fc, s.layout, req.Address, req.Words)
	rep := reportReply(r)
	if r.Status != iap.OK {
		println("[boot] write at", hex32(req.Address), "failed:", r.Status.String())
		s.setState(conn, types.BootFailed, codeOf(r.Status), "write")
		return rep
	}
	s.inspect(conn)
	return rep
}

// flash installs a complete image: check, erase, write every segment, verify.
func (s *Service) flash(conn *bus.Connection, req types.FlashRequest) types.BootReply {
	segs, err := segmentsOf(req)
	if err != nil {
		return errReply(errcode.InvalidPayload, err)
	}
	if err := image.Check(segs, s.layout, true); err != nil {
		return errReply(errcode.InvalidImage, err)
	}
	h, _ := image.Header(segs, s.layout)
	if err := h.Validate(s.layout); err != nil {
		return errReply(errcode.InvalidImage, err)
	}

	println("[boot]", fmtx.Sprintf("flashing %d words in %d segments", image.Size(segs), len(segs)))
	s.setState(conn, types.BootErasing, errcode.OK, "")
	if st := iap.Erase(s.fc, s.layout, s.layout.AppStart); st != iap.OK {
		s.setState(conn, types.BootFailed, codeOf(st), "erase")
		return statusReply(st)
	}

	s.setState(conn, types.BootWriting, errcode.OK, "")
	var total iap.Report
	offset := 0
	for _, seg := range segs {
		r := iap.WriteReport(s.fc, s.layout, seg.Address, seg.Words)
		total.Status |= r.Status
		total.Attempted += r.Attempted
		for _, f := range r.Faults {
			f.Index += offset
			total.Faults = append(total.Faults, f)
		}
		offset += len(seg.Words)
		if r.Status.Has(iap.SizeError) {
			break
		}
	}
	rep := reportReply(total)
	if total.Status != iap.OK {
		s.setState(conn, types.BootFailed, codeOf(total.Status), "write")
		return rep
	}

	s.inspect(conn)
	if s.state.Level != types.BootReady {
		return errReply(errcode.InvalidImage, errors.New(s.state.Detail))
	}
	return rep
}

func segmentsOf(req types.FlashRequest) ([]image.Segment, error) {
	if req.Hex != "" {
		return image.ParseHex(strings.NewReader(req.Hex))
	}
	if len(req.Segments) == 0 {
		return nil, image.ErrEmpty
	}
	segs := make([]image.Segment, 0, len(req.Segments))
	for _, fs := range req.Segments {
		if fs.Address%iap.WordSize != 0 {
			return nil, errors.New("boot: segment address not word aligned")
		}
		segs = append(segs, image.Segment{Address: fs.Address, Words: fs.Words})
	}
	return segs, nil
}

// replyAndLaunch validates the installed image, acknowledges, then jumps.
func (s *Service) replyAndLaunch(conn *bus.Connection, msg *bus.Message) bool {
	h, err := iap.ReadHeader(s.fc, s.layout)
	if err == nil {
		err = h.Validate(s.layout)
	}
	if err != nil {
		conn.Reply(msg, errReply(launchCode(err), err), false)
		return false
	}
	conn.Reply(msg, types.BootReply{OK: true, Code: string(errcode.OK)}, false)
	return s.launch(conn) == nil
}

func (s *Service) launch(conn *bus.Connection) error {
	s.setState(conn, types.BootLaunching, errcode.OK, "")
	println("[boot] launching image at", hex32(s.layout.AppStart))
	if err := iap.Launch(s.fc, s.layout, s.cpu); err != nil {
		println("[boot] launch refused:", err.Error())
		s.setState(conn, types.BootFailed, launchCode(err), err.Error())
		return err
	}
	return nil
}

// inspect publishes ready or empty depending on the installed header.
func (s *Service) inspect(conn *bus.Connection) {
	h, err := iap.ReadHeader(s.fc, s.layout)
	if err == nil {
		err = h.Validate(s.layout)
	}
	if err != nil {
		s.setState(conn, types.BootEmpty, launchCode(err), err.Error())
		return
	}
	s.setState(conn, types.BootReady, errcode.OK, "entry "+hex32(h.Entry))
}

func (s *Service) info() types.BootInfo {
	in := types.BootInfo{
		State:    s.state,
		AppStart: s.layout.AppStart,
		AppEnd:   s.layout.AppEnd(),
	}
	h, err := iap.ReadHeader(s.fc, s.layout)
	if err == nil {
		in.StackPointer, in.Entry = h.StackPointer, h.Entry
		err = h.Validate(s.layout)
	}
	in.Valid = err == nil
	if err != nil {
		in.Error = err.Error()
	}
	return in
}

func (s *Service) setState(conn *bus.Connection, level types.BootLevel, code errcode.Code, detail string) {
	s.state = types.BootState{Level: level, Status: string(code), Detail: detail, TS: s.nowMs()}
	conn.Publish(conn.NewMessage(TopicState, s.state, true))
}

func (s *Service) nowMs() int64 {
	if s.clock != nil {
		if t, err := s.clock.Now(); err == nil {
			return t.UnixMilli()
		}
	}
	return timex.NowMs()
}

// ---- Replies and codes ----

// codeOf maps a flash status onto the bus error vocabulary. When several
// flags are set the most fundamental one wins.
func codeOf(st iap.Status) errcode.Code {
	switch {
	case st == iap.OK:
		return errcode.OK
	case st == iap.GenericError:
		return errcode.EraseFailed
	case st.Has(iap.SizeError):
		return errcode.SizeError
	case st.Has(iap.WriteError):
		return errcode.WriteError
	case st.Has(iap.ReadbackError):
		return errcode.ReadbackError
	}
	return errcode.Error
}

func launchCode(err error) errcode.Code {
	if errors.Is(err, iap.ErrNoImage) {
		return errcode.NoImage
	}
	return errcode.InvalidImage
}

func statusReply(st iap.Status) types.BootReply {
	return types.BootReply{OK: st == iap.OK, Status: uint8(st), Code: string(codeOf(st))}
}

func reportReply(r iap.Report) types.BootReply {
	rep := statusReply(r.Status)
	rep.Attempted = r.Attempted
	for _, f := range r.Faults {
		rep.Faults = append(rep.Faults, types.WordFault{Index: f.Index, Addr: f.Addr, Flags: uint8(f.Flags)})
	}
	return rep
}

// errReply reports a failure that happened before or outside flash access.
func errReply(c errcode.Code, err error) types.BootReply {
	rep := types.BootReply{Status: uint8(iap.GenericError), Code: string(c)}
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}

func hex32(n uint32) string {
	var b [8]byte
	return "0x" + string(conv.U32Hex(b[:], n))
}
