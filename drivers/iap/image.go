package iap

import (
	"errors"
	"fmt"
)

// Header is the start of a Cortex-M vector table: the initial main stack
// pointer followed by the reset handler address.
type Header struct {
	StackPointer uint32
	Entry        uint32
}

const erasedWord = 0xFFFFFFFF

var (
	ErrNoImage      = errors.New("iap: no image installed")
	ErrStackPointer = errors.New("iap: stack pointer outside RAM")
	ErrEntryPoint   = errors.New("iap: entry point outside application")
)

// ReadHeader reads the two header words at AppStart.
func ReadHeader(fc Controller, l Layout) (Header, error) {
	sp, err := fc.ReadWord(l.AppStart)
	if err != nil {
		return Header{}, fmt.Errorf("iap: read stack pointer: %w", err)
	}
	entry, err := fc.ReadWord(l.AppStart + WordSize)
	if err != nil {
		return Header{}, fmt.Errorf("iap: read entry point: %w", err)
	}
	return Header{StackPointer: sp, Entry: entry}, nil
}

// Validate checks that the header plausibly describes an application for
// this layout. It does not checksum the image; the format has no room for one.
func (h Header) Validate(l Layout) error {
	if h.StackPointer == erasedWord && h.Entry == erasedWord {
		return ErrNoImage
	}
	// The stack is full-descending, so the initial value may equal RAMEnd.
	if h.StackPointer%WordSize != 0 || h.StackPointer <= l.RAMStart || h.StackPointer > l.RAMEnd {
		return fmt.Errorf("%w: %#08x", ErrStackPointer, h.StackPointer)
	}
	// Thumb state is mandatory on Cortex-M; the vector table occupies at
	// least the two header words.
	pc := h.Entry &^ 1
	if h.Entry&1 == 0 || pc < l.AppStart+2*WordSize || pc >= l.AppEnd() {
		return fmt.Errorf("%w: %#08x", ErrEntryPoint, h.Entry)
	}
	return nil
}
