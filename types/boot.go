package types

// ------------------------
// Boot state (retained on boot/state)
// ------------------------

type BootLevel string

const (
	BootIdle      BootLevel = "idle"      // no request handled yet
	BootErasing   BootLevel = "erasing"   // erase in progress
	BootWriting   BootLevel = "writing"   // program in progress
	BootReady     BootLevel = "ready"     // a valid image is installed
	BootEmpty     BootLevel = "empty"     // nothing or garbage at AppStart
	BootLaunching BootLevel = "launching" // hand-off started
	BootFailed    BootLevel = "failed"    // last operation returned an error
)

type BootState struct {
	Level  BootLevel `json:"level"`
	Status string    `json:"status"`           // errcode value, "ok" on success
	Detail string    `json:"detail,omitempty"` // short human hint
	TS     int64     `json:"ts_ms"`
}

// ------------------------
// Requests (boot/control/<verb>)
// ------------------------

// EraseRequest erases from Address to the end of the bank. Zero means AppStart.
type EraseRequest struct {
	Address uint32 `json:"address,omitempty"`
}

// WriteRequest programs Words from Address onwards into erased flash.
type WriteRequest struct {
	Address uint32   `json:"address"`
	Words   []uint32 `json:"words"`
}

type FlashSegment struct {
	Address uint32   `json:"address"`
	Words   []uint32 `json:"words"`
}

// FlashRequest installs a whole image: either Intel HEX text or segments.
// The image is checked, the partition erased, every segment written and the
// installed header validated.
type FlashRequest struct {
	Hex      string         `json:"hex,omitempty"`
	Segments []FlashSegment `json:"segments,omitempty"`
	Launch   bool           `json:"launch,omitempty"` // jump when installed
}

// ------------------------
// Replies
// ------------------------

type WordFault struct {
	Index int    `json:"index"`
	Addr  uint32 `json:"addr"`
	Flags uint8  `json:"flags"`
}

// BootReply answers erase, write, flash and launch requests. Status carries
// the raw flash status byte.
type BootReply struct {
	OK        bool        `json:"ok"`
	Status    uint8       `json:"status"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Attempted int         `json:"attempted,omitempty"`
	Faults    []WordFault `json:"faults,omitempty"`
}

// BootInfo answers boot/control/status.
type BootInfo struct {
	State        BootState `json:"state"`
	AppStart     uint32    `json:"app_start"`
	AppEnd       uint32    `json:"app_end"`
	StackPointer uint32    `json:"stack_pointer"`
	Entry        uint32    `json:"entry"`
	Valid        bool      `json:"valid"`
	Error        string    `json:"error,omitempty"`
}
