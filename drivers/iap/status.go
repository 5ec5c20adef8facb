package iap

// Status is the outcome of an erase or write. SizeError, WriteError and
// ReadbackError are flags and combine; GenericError has every bit set.
type Status uint8

const (
	OK            Status = 0x00 // the action was successful
	SizeError     Status = 0x01 // the image does not fit the application region
	WriteError    Status = 0x02 // the controller rejected a program operation
	ReadbackError Status = 0x04 // memory content differs from what was written
	GenericError  Status = 0xFF // erase failed, no finer classification
)

// Has reports whether every bit of flag is set in s. Has(OK) is true only for OK.
func (s Status) Has(flag Status) bool {
	if flag == OK {
		return s == OK
	}
	return s&flag == flag
}

// Err returns nil for OK and the status itself otherwise.
func (s Status) Err() error {
	if s == OK {
		return nil
	}
	return s
}

func (s Status) Error() string { return s.String() }

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case GenericError:
		return "error"
	}
	out := ""
	add := func(name string) {
		if out != "" {
			out += "|"
		}
		out += name
	}
	if s&SizeError != 0 {
		add("size")
	}
	if s&WriteError != 0 {
		add("write")
	}
	if s&ReadbackError != 0 {
		add("readback")
	}
	if rest := s &^ (SizeError | WriteError | ReadbackError); rest != 0 {
		add("unknown")
	}
	return out
}
