package platform

import (
	"errors"
	"sync"

	"bootcode-go/drivers/ds1307"
)

var errNoDevice = errors.New("platform: no device at address")

// RTCSim answers I²C transfers like a DS1307: 64 bytes of registers and RAM
// behind an auto-incrementing pointer that wraps. The clock does not advance.
type RTCSim struct {
	mu   sync.Mutex
	regs [64]byte
	ptr  byte
}

// NewRTCSim returns a chip in its power-on state, oscillator halted.
func NewRTCSim() *RTCSim {
	s := &RTCSim{}
	s.regs[ds1307.RegSecond] = 0x80
	return s
}

func (s *RTCSim) Tx(addr uint16, w, r []byte) error {
	if addr != ds1307.Address {
		return errNoDevice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(w) > 0 {
		s.ptr = w[0] % byte(len(s.regs))
		for _, b := range w[1:] {
			s.regs[s.ptr] = b
			s.next()
		}
	}
	for i := range r {
		r[i] = s.regs[s.ptr]
		s.next()
	}
	return nil
}

func (s *RTCSim) next() { s.ptr = (s.ptr + 1) % byte(len(s.regs)) }
