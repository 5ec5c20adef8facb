package iap

// Fault records the flags raised by one word of a write.
type Fault struct {
	Index int    // position in the word sequence
	Addr  uint32 // flash address of the word
	Flags Status
}

// Report is the detailed outcome of WriteReport.
type Report struct {
	// Status is the OR of every fault's flags, identical to what Write returns.
	Status Status
	// Attempted counts words for which a program operation was issued.
	Attempted int
	Faults    []Fault
}

// Write programs words from start onwards and returns the combined status.
//
// The region must already be erased. Each word is read back after
// programming. WRITE and READBACK failures are flagged and the remaining
// words are still attempted; reaching an address outside the application
// region flags SIZE and stops the loop before that word is programmed.
func Write(fc Controller, l Layout, start uint32, words []uint32) Status {
	return write(fc, l, start, words, nil)
}

// WriteReport behaves like Write and additionally reports which words failed.
func WriteReport(fc Controller, l Layout, start uint32, words []uint32) Report {
	var r Report
	r.Status = write(fc, l, start, words, &r)
	return r
}

func write(fc Controller, l Layout, start uint32, words []uint32, r *Report) Status {
	if len(words) == 0 {
		return OK
	}

	release, err := unlock(fc)
	if err != nil {
		if r != nil {
			r.Faults = append(r.Faults, Fault{Index: 0, Addr: start, Flags: WriteError})
		}
		return WriteError
	}
	defer release()

	status := OK
	addr := start
	for i, w := range words {
		var flags Status
		if !l.Contains(addr) {
			flags = SizeError
		} else {
			if err := fc.ProgramWord(addr, w); err != nil {
				flags |= WriteError
			}
			if got, err := fc.ReadWord(addr); err != nil || got != w {
				flags |= ReadbackError
			}
			if r != nil {
				r.Attempted++
			}
		}

		status |= flags
		if flags != OK && r != nil {
			r.Faults = append(r.Faults, Fault{Index: i, Addr: addr, Flags: flags})
		}
		if flags.Has(SizeError) {
			break
		}
		addr += WordSize
	}
	return status
}
