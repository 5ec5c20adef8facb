package simflash

import "sync"

// CPU records the hand-off sequence instead of performing it.
type CPU struct {
	mu    sync.Mutex
	calls []string
	msp   uint32
	entry uint32
	// OnJump, if set, runs when Jump is called.
	OnJump func(entry uint32)
}

func (c *CPU) Deinit() {
	c.mu.Lock()
	c.calls = append(c.calls, "deinit")
	c.mu.Unlock()
}

func (c *CPU) SetMSP(sp uint32) {
	c.mu.Lock()
	c.calls = append(c.calls, "msp")
	c.msp = sp
	c.mu.Unlock()
}

func (c *CPU) Jump(entry uint32) {
	c.mu.Lock()
	c.calls = append(c.calls, "jump")
	c.entry = entry
	fn := c.OnJump
	c.mu.Unlock()
	if fn != nil {
		fn(entry)
	}
}

// Calls returns the recorded call sequence.
func (c *CPU) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// MSP returns the last stack pointer loaded.
func (c *CPU) MSP() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msp
}

// Entry returns the last jump target, or 0 if Jump was never called.
func (c *CPU) Entry() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// Jumped reports whether Jump was called.
func (c *CPU) Jumped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.calls {
		if s == "jump" {
			return true
		}
	}
	return false
}
