package ds1307

// Address is the fixed 7-bit I2C address of the DS1307.
const Address = 0x68

// Registers. 0x00-0x06 hold the BCD time fields; 0x08 onwards is battery
// backed RAM, of which three bytes carry the UTC offset and the century.
const (
	RegSecond  = 0x00
	RegMinute  = 0x01
	RegHour    = 0x02
	RegDOW     = 0x03
	RegDate    = 0x04
	RegMonth   = 0x05
	RegYear    = 0x06
	RegControl = 0x07
	RegUTCHour = 0x08
	RegUTCMin  = 0x09
	RegCentury = 0x10
)

const (
	clockHalt = 0x80 // seconds register, oscillator stopped when set
	hourMask  = 0x3F // drops the 12/24h select bit
	secMask   = 0x7F
)
