package iap

// Controller is exclusive access to the flash controller. Implementations
// wrap the MCU flash peripheral or a simulation of it.
//
// Program and erase operations are only valid between Unlock and Lock.
type Controller interface {
	Unlock() error
	Lock() error
	// Erase erases every sector overlapping [start, end).
	Erase(start, end uint32) error
	// ProgramWord programs one 32-bit word at a word-aligned address.
	ProgramWord(addr, word uint32) error
	// ReadWord reads the word currently stored at addr.
	ReadWord(addr uint32) (uint32, error)
}

// unlock opens the controller and returns the matching release. The
// release is meant to be deferred so the controller is relocked on every
// path out of the caller, panics included.
func unlock(fc Controller) (release func(), err error) {
	if err := fc.Unlock(); err != nil {
		return nil, err
	}
	return func() { _ = fc.Lock() }, nil
}
