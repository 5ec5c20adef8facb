package ds1307

// EncodeBCD packs a decimal value 0..99 into two BCD nibbles.
func EncodeBCD(dec uint8) uint8 {
	return dec%10 | (dec/10)<<4
}

// DecodeBCD unpacks a two-nibble BCD byte.
func DecodeBCD(bcd uint8) uint8 {
	return (bcd>>4)*10 + bcd&0x0F
}
