// Package simflash simulates a NOR flash controller and a Cortex-M core for
// host builds and tests of the iap package.
//
// Programming behaves like NOR flash: a program can only clear bits, an
// erase sets a whole sector back to 0xFF. Faults can be injected per address.
package simflash

import (
	"encoding/binary"
	"errors"
	"sync"
)

// Errors returned by the simulated controller.
var (
	ErrLocked   = errors.New("simflash: controller locked")
	ErrRange    = errors.New("simflash: address out of range")
	ErrAlign    = errors.New("simflash: unaligned address")
	ErrInjected = errors.New("simflash: injected fault")
)

// Erased is the value of an erased word.
const Erased = 0xFFFFFFFF

// Flash is a simulated flash bank at [Base, Base+len(mem)).
type Flash struct {
	mu     sync.Mutex
	base   uint32
	sector uint32
	mem    []byte
	locked bool

	// Fault injection.
	failProgram map[uint32]bool
	stuckHigh   map[uint32]uint32
	failErase   bool
	failUnlock  bool

	// Counters.
	unlocks  int
	locks    int
	erases   int
	programs int
}

// New returns an erased, locked bank of size bytes starting at base, erased
// in sectors of sectorSize bytes.
func New(base, size, sectorSize uint32) *Flash {
	if sectorSize == 0 || size%sectorSize != 0 {
		panic("simflash: size must be a multiple of the sector size")
	}
	f := &Flash{
		base:        base,
		sector:      sectorSize,
		mem:         make([]byte, size),
		locked:      true,
		failProgram: map[uint32]bool{},
		stuckHigh:   map[uint32]uint32{},
	}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

func (f *Flash) Unlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUnlock {
		return ErrInjected
	}
	f.locked = false
	f.unlocks++
	return nil
}

func (f *Flash) Lock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = true
	f.locks++
	return nil
}

// Erase erases every sector overlapping [start, end).
func (f *Flash) Erase(start, end uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return ErrLocked
	}
	if start < f.base || end > f.end() || start >= end {
		return ErrRange
	}
	f.erases++
	if f.failErase {
		return ErrInjected
	}
	from := (start - f.base) / f.sector * f.sector
	to := end - f.base
	for i := from; i < to; i++ {
		f.mem[i] = 0xFF
	}
	// Round the tail up to a sector boundary.
	for i := to; i%f.sector != 0 && i < uint32(len(f.mem)); i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

func (f *Flash) ProgramWord(addr, word uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return ErrLocked
	}
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	f.programs++
	if f.failProgram[addr] {
		return ErrInjected
	}
	old := binary.LittleEndian.Uint32(f.mem[off:])
	binary.LittleEndian.PutUint32(f.mem[off:], (old&word)|f.stuckHigh[addr])
	return nil
}

func (f *Flash) ReadWord(addr uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off, err := f.offset(addr)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(f.mem[off:]), nil
}

func (f *Flash) offset(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, ErrAlign
	}
	if addr < f.base || addr > f.end()-4 {
		return 0, ErrRange
	}
	return addr - f.base, nil
}

func (f *Flash) end() uint32 { return f.base + uint32(len(f.mem)) }

// ---- Fault injection ----

// FailProgramAt makes every program of addr fail without touching memory.
func (f *Flash) FailProgramAt(addr uint32) {
	f.mu.Lock()
	f.failProgram[addr] = true
	f.mu.Unlock()
}

// StickHigh forces the bits in mask to read as 1 at addr after programming.
func (f *Flash) StickHigh(addr, mask uint32) {
	f.mu.Lock()
	f.stuckHigh[addr] = mask
	f.mu.Unlock()
}

// FailErase makes subsequent erases report failure.
func (f *Flash) FailErase(fail bool) {
	f.mu.Lock()
	f.failErase = fail
	f.mu.Unlock()
}

// FailUnlock makes subsequent unlocks report failure.
func (f *Flash) FailUnlock(fail bool) {
	f.mu.Lock()
	f.failUnlock = fail
	f.mu.Unlock()
}

// ---- Inspection ----

// Stats is a snapshot of the controller counters.
type Stats struct {
	Unlocks, Locks, Erases, Programs int
	Locked                           bool
}

func (f *Flash) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Unlocks:  f.unlocks,
		Locks:    f.locks,
		Erases:   f.erases,
		Programs: f.programs,
		Locked:   f.locked,
	}
}

// IsErased reports whether every word in [start, end) reads as Erased.
func (f *Flash) IsErased(start, end uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if start < f.base || end > f.end() || start > end {
		return false
	}
	for _, b := range f.mem[start-f.base : end-f.base] {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// Poke stores a word directly, bypassing lock and NOR rules. Tests use it to
// plant data outside the programming path.
func (f *Flash) Poke(addr, word uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off, err := f.offset(addr)
	if err != nil {
		panic(err)
	}
	binary.LittleEndian.PutUint32(f.mem[off:], word)
}
