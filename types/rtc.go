package types

// RTCTime answers rtc/control/get.
type RTCTime struct {
	Unix     int64  `json:"unix"`
	ISO      string `json:"iso"` // RFC 3339 in the stored zone
	TZHour   int8   `json:"tz_hour"`
	TZMinute uint8  `json:"tz_minute"`
	Halted   bool   `json:"halted"`
}

// RTCSet is the payload of rtc/control/set.
type RTCSet struct {
	Unix int64 `json:"unix"`
}

type RTCReply struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}
