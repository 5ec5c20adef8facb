package types

// Service configuration published retained on "config/<key>".

// BootConfig is supplied on "config/boot".
type BootConfig struct {
	AutoLaunch    bool `json:"auto_launch"`
	LaunchDelayMS int  `json:"launch_delay_ms"` // clamped to 0..60000
}

// RTCConfig is supplied on "config/rtc". TZHour and TZMinute are stored in
// the clock unchecked.
type RTCConfig struct {
	TZHour   int8  `json:"tz_hour"`
	TZMinute uint8 `json:"tz_minute"`
	Halt     bool  `json:"halt,omitempty"`
}

// HeartbeatConfig is supplied on "config/heartbeat".
type HeartbeatConfig struct {
	Interval float64 `json:"interval"` // seconds
}
