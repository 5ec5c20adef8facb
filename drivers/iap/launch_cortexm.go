//go:build tinygo && cortexm

package iap

import "device/arm"

// CortexM starts an image on an ARMv6-M or ARMv7-M core.
type CortexM struct {
	// VectorTable is loaded into SCB.VTOR during Deinit; usually AppStart.
	VectorTable uint32
	// ResetPeripherals, if set, runs first in Deinit to release board
	// peripherals (UART, I2C, ...) configured by the bootloader.
	ResetPeripherals func()

	sp uint32
}

func (c *CortexM) Deinit() {
	if c.ResetPeripherals != nil {
		c.ResetPeripherals()
	}
	arm.DisableInterrupts()

	arm.SYST.SYST_CSR.Set(0)
	arm.SYST.SYST_RVR.Set(0)
	arm.SYST.SYST_CVR.Set(0)

	for i := range arm.NVIC.ICER {
		arm.NVIC.ICER[i].Set(0xFFFFFFFF)
		arm.NVIC.ICPR[i].Set(0xFFFFFFFF)
	}

	if c.VectorTable != 0 {
		arm.SCB.VTOR.Set(c.VectorTable)
	}
}

// SetMSP records the stack pointer; Jump loads it. A Go frame cannot survive
// the stack moving underneath it, so the load and the branch share one asm block.
func (c *CortexM) SetMSP(sp uint32) { c.sp = sp }

func (c *CortexM) Jump(entry uint32) {
	arm.AsmFull(`
		msr msp, {sp}
		dsb
		isb
		cpsie i
		bx {entry}
	`, map[string]interface{}{
		"sp":    c.sp,
		"entry": entry,
	})
	for {
	}
}
