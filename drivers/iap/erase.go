package iap

// Erase erases flash from start to the end of the bank and reports OK or
// GenericError. The erase covers whole sectors and destroys everything in
// them, including data past the end of the current image.
//
// Addresses below AppStart are refused so the resident bootloader can never
// be erased from here.
func Erase(fc Controller, l Layout, start uint32) Status {
	if start < l.AppStart || start >= l.BankEnd {
		return GenericError
	}

	release, err := unlock(fc)
	if err != nil {
		return GenericError
	}
	defer release()

	if err := fc.Erase(start, l.BankEnd); err != nil {
		return GenericError
	}
	return OK
}
