package platform

import (
	"context"
	"io"
)

// StreamPort adapts a reader and writer pair, such as stdin and stdout, to
// SerialPort. A goroutine owns the reader; reads end with io.EOF once it fails.
type StreamPort struct {
	w    io.Writer
	ch   chan []byte
	rest []byte
}

func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	p := &StreamPort{w: w, ch: make(chan []byte, 4)}
	go p.pump(r)
	return p
}

func (p *StreamPort) pump(r io.Reader) {
	defer close(p.ch)
	for {
		buf := make([]byte, 256)
		n, err := r.Read(buf)
		if n > 0 {
			p.ch <- buf[:n]
		}
		if err != nil {
			return
		}
	}
}

func (p *StreamPort) Write(b []byte) (int, error) { return p.w.Write(b) }

// RecvSomeContext blocks until some bytes arrive or ctx ends.
func (p *StreamPort) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(p.rest) == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case chunk, ok := <-p.ch:
			if !ok {
				return 0, io.EOF
			}
			p.rest = chunk
		}
	}
	n := copy(b, p.rest)
	p.rest = p.rest[n:]
	return n, nil
}
