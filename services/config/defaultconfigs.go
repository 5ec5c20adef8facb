package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "boot": {
      "auto_launch": true,
      "launch_delay_ms": 3000
  },
  "rtc": {
      "tz_hour": 7,
      "tz_minute": 0
  },
  "heartbeat": {
      "interval": 10
  }
}`

// Bench boards stay in the bootloader until told otherwise.
const cfgHost = `{
  "boot": {
      "auto_launch": false
  },
  "rtc": {
      "tz_hour": 0,
      "tz_minute": 0
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
