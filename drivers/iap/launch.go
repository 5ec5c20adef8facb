package iap

// CPU is the processor capability needed to start another image.
type CPU interface {
	// Deinit returns peripherals, interrupts and the system timer to their
	// reset state so the application starts from a clean hardware state.
	Deinit()
	// SetMSP loads the main stack pointer.
	SetMSP(sp uint32)
	// Jump branches to entry. It does not return on hardware.
	Jump(entry uint32)
}

// JumpUnchecked transfers control to the image described by h without any
// validation. h must come from ReadHeader and have passed Validate; any
// other value hands the processor to arbitrary data.
//
// Ordering is fixed: deinit, stack pointer, branch.
func JumpUnchecked(cpu CPU, h Header) {
	cpu.Deinit()
	cpu.SetMSP(h.StackPointer)
	cpu.Jump(h.Entry)
}

// Launch reads and validates the installed image header, then jumps to it.
// It returns only when the image is rejected, or after the jump when cpu is
// a simulation.
func Launch(fc Controller, l Layout, cpu CPU) error {
	h, err := ReadHeader(fc, l)
	if err != nil {
		return err
	}
	if err := h.Validate(l); err != nil {
		return err
	}
	JumpUnchecked(cpu, h)
	return nil
}
