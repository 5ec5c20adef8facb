package boot

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"bootcode-go/bus"
	"bootcode-go/errcode"
	"bootcode-go/types"
	"bootcode-go/x/mathx"
	"bootcode-go/x/strconvx"
)

// Port is the byte stream the serial loader talks over.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// SerialConfig tunes ServeSerial. All fields are optional.
type SerialConfig struct {
	// MaxLine bounds one input line, clamped to 64..1024. Default 600.
	MaxLine int
	// ChunkLines is how many data records are buffered before they are
	// written, clamped to 1..256. Default 64.
	ChunkLines int
	// EraseTimeout and WriteTimeout bound each bus request.
	EraseTimeout time.Duration
	WriteTimeout time.Duration
}

const (
	eofRecord = ":00000001FF"
	// Buffered record text above this must end on a word boundary.
	maxPendingBytes = 32 << 10
)

// ServeSerial runs the line protocol on port until ctx ends or the port
// reports io.EOF.
//
// Every line is answered with "OK" or "ERR <code>" so the host can pace
// itself. Intel HEX records are checksummed on arrival, buffered and written
// in chunks that end on a word boundary; the first data record of a session
// erases the partition and the EOF record flushes and verifies the installed
// header. A line "L" launches the image, "S" answers "OK <state>".
//
// An ERR ends the session: buffered records are dropped and the next data
// record erases the partition again, so the host resends the image from its
// first record. The extended address base survives the error.
func ServeSerial(ctx context.Context, port Port, conn *bus.Connection, cfg SerialConfig) {
	l := newLoader(conn, cfg)
	maxLine := l.cfg.MaxLine

	buf := make([]byte, 64)
	line := make([]byte, 0, maxLine)
	overflow := false

	for {
		if ctx.Err() != nil {
			return
		}
		// Bound the blocking wait to assist shutdown.
		rctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		n, err := port.RecvSomeContext(rctx, buf)
		cancel()
		if n == 0 && err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			if !errors.Is(err, io.EOF) {
				println("[boot] serial port failed:", err.Error())
			}
			return
		}

		for i := 0; i < n; i++ {
			switch b := buf[i]; b {
			case '\n':
				var reply string
				if overflow {
					l.abort()
					reply = "ERR " + string(errcode.InvalidPayload)
				} else {
					reply = l.handleLine(ctx, strings.TrimSpace(string(line)))
				}
				line, overflow = line[:0], false
				if reply != "" {
					_, _ = port.Write([]byte(reply + "\n"))
				}
			case '\r':
				// ignore
			default:
				if len(line) < maxLine {
					line = append(line, b)
				} else {
					overflow = true
				}
			}
		}
	}
}

type loader struct {
	conn *bus.Connection
	cfg  SerialConfig

	active       bool   // partition erased for the current session
	ext          string // last extended address record, replayed per chunk
	pending      []pendingRecord
	pendingBytes int
}

type pendingRecord struct {
	line string
	end  uint32 // offset past the data within the current base
}

func newLoader(conn *bus.Connection, cfg SerialConfig) *loader {
	if cfg.MaxLine == 0 {
		cfg.MaxLine = 600
	}
	cfg.MaxLine = mathx.Clamp(cfg.MaxLine, 64, 1024)
	if cfg.ChunkLines == 0 {
		cfg.ChunkLines = 64
	}
	cfg.ChunkLines = mathx.Clamp(cfg.ChunkLines, 1, 256)
	if cfg.EraseTimeout <= 0 {
		cfg.EraseTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &loader{conn: conn, cfg: cfg}
}

// reset ends the session.
func (l *loader) reset() {
	l.abort()
	l.ext = ""
}

// abort drops the session after an error but keeps the address base.
func (l *loader) abort() {
	l.active = false
	l.pending = l.pending[:0]
	l.pendingBytes = 0
}

func fail(c errcode.Code) string { return "ERR " + string(c) }

// handleLine processes one line and returns the reply, or "" to stay silent.
func (l *loader) handleLine(ctx context.Context, line string) string {
	switch {
	case line == "":
		return ""
	case line == "L":
		l.reset()
		return l.launch(ctx)
	case line == "S":
		return l.status(ctx)
	case line[0] != ':':
		return fail(errcode.InvalidPayload)
	}

	rec, err := parseRecord(line)
	if err != nil {
		l.abort()
		return fail(errcode.InvalidPayload)
	}

	switch rec.kind {
	case 0x00:
		if !l.active {
			if c := l.erase(ctx); c != errcode.OK {
				l.abort()
				return fail(c)
			}
			l.active = true
		}
		l.pending = append(l.pending, pendingRecord{line: line, end: rec.end})
		l.pendingBytes += len(line)
		if len(l.pending) < l.cfg.ChunkLines && l.pendingBytes < maxPendingBytes {
			break
		}
		n := l.alignedPrefix()
		if n == 0 {
			if l.pendingBytes >= maxPendingBytes {
				l.abort()
				return fail(errcode.InvalidPayload)
			}
			break
		}
		if c := l.flush(ctx, n); c != errcode.OK {
			l.abort()
			return fail(c)
		}
	case 0x02, 0x04:
		// New base: write out what belongs to the old one first.
		if c := l.flush(ctx, len(l.pending)); c != errcode.OK {
			l.abort()
			return fail(c)
		}
		l.ext = line
	case 0x01:
		c := l.flush(ctx, len(l.pending))
		if c == errcode.OK {
			c = l.verify(ctx)
		}
		l.reset()
		if c != errcode.OK {
			return fail(c)
		}
	default:
		// Start address records carry nothing to program.
	}
	return "OK"
}

type record struct {
	kind byte
	end  uint32 // offset past the data within the current base
}

var errChecksum = errors.New("boot: record checksum mismatch")

// parseRecord checks the framing and checksum of one Intel HEX record.
func parseRecord(line string) (record, error) {
	if len(line) < len(eofRecord) || len(line)%2 == 0 {
		return record{}, errors.New("boot: short record")
	}
	n, err := strconvx.ParseUint(line[1:3], 16, 8)
	if err != nil {
		return record{}, err
	}
	off, err := strconvx.ParseUint(line[3:7], 16, 16)
	if err != nil {
		return record{}, err
	}
	kind, err := strconvx.ParseUint(line[7:9], 16, 8)
	if err != nil {
		return record{}, err
	}
	if len(line) != 11+2*int(n) {
		return record{}, errors.New("boot: record length mismatch")
	}
	var sum byte
	for i := 1; i < len(line); i += 2 {
		b, err := strconvx.ParseUint(line[i:i+2], 16, 8)
		if err != nil {
			return record{}, err
		}
		sum += byte(b)
	}
	if sum != 0 {
		return record{}, errChecksum
	}
	return record{kind: byte(kind), end: uint32(off) + uint32(n)}, nil
}

// alignedPrefix returns how many buffered records can be written without
// leaving a partly filled word for the next chunk to program again.
func (l *loader) alignedPrefix() int {
	for i := len(l.pending) - 1; i >= 0; i-- {
		if l.pending[i].end%4 == 0 {
			return i + 1
		}
	}
	return 0
}

// flush writes the first n buffered records and keeps the rest.
func (l *loader) flush(ctx context.Context, n int) errcode.Code {
	if n == 0 {
		return errcode.OK
	}
	var sb strings.Builder
	if l.ext != "" {
		sb.WriteString(l.ext)
		sb.WriteByte('\n')
	}
	for _, r := range l.pending[:n] {
		sb.WriteString(r.line)
		sb.WriteByte('\n')
		l.pendingBytes -= len(r.line)
	}
	sb.WriteString(eofRecord)
	sb.WriteByte('\n')
	l.pending = l.pending[:copy(l.pending, l.pending[n:])]

	segs, err := segmentsOf(types.FlashRequest{Hex: sb.String()})
	if err != nil {
		return errcode.InvalidPayload
	}
	for _, seg := range segs {
		rep, c := l.request(ctx, verbWrite, types.WriteRequest{Address: seg.Address, Words: seg.Words}, l.cfg.WriteTimeout)
		if c != errcode.OK {
			return c
		}
		if !rep.OK {
			return errcode.Code(rep.Code)
		}
	}
	return errcode.OK
}

func (l *loader) erase(ctx context.Context) errcode.Code {
	rep, c := l.request(ctx, verbErase, types.EraseRequest{}, l.cfg.EraseTimeout)
	if c != errcode.OK {
		return c
	}
	if !rep.OK {
		return errcode.Code(rep.Code)
	}
	return errcode.OK
}

func (l *loader) verify(ctx context.Context) errcode.Code {
	in, c := l.info(ctx)
	if c != errcode.OK {
		return c
	}
	if !in.Valid {
		return errcode.InvalidImage
	}
	return errcode.OK
}

func (l *loader) status(ctx context.Context) string {
	in, c := l.info(ctx)
	if c != errcode.OK {
		return fail(c)
	}
	return "OK " + string(in.State.Level)
}

func (l *loader) info(ctx context.Context) (types.BootInfo, errcode.Code) {
	rctx, cancel := context.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()
	m, err := l.conn.RequestWait(rctx, l.conn.NewMessage(TopicControl.Append(verbStatus), nil, false))
	if err != nil {
		return types.BootInfo{}, errcode.Timeout
	}
	in, ok := m.Payload.(types.BootInfo)
	if !ok {
		return types.BootInfo{}, errcode.InvalidPayload
	}
	return in, errcode.OK
}

// launch asks the service to jump. On hardware nothing runs after a
// successful jump, so only a refusal is ever written back.
func (l *loader) launch(ctx context.Context) string {
	rep, c := l.request(ctx, verbLaunch, nil, l.cfg.WriteTimeout)
	if c != errcode.OK {
		return fail(c)
	}
	if !rep.OK {
		return fail(errcode.Code(rep.Code))
	}
	return "OK"
}

func (l *loader) request(ctx context.Context, verb string, payload any, d time.Duration) (types.BootReply, errcode.Code) {
	rctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	m, err := l.conn.RequestWait(rctx, l.conn.NewMessage(TopicControl.Append(verb), payload, false))
	if err != nil {
		return types.BootReply{}, errcode.Timeout
	}
	rep, ok := m.Payload.(types.BootReply)
	if !ok {
		return types.BootReply{}, errcode.InvalidPayload
	}
	return rep, errcode.OK
}
