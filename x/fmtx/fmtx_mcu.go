//go:build rp2040 || rp2350

package fmtx

import "bootcode-go/x/conv"

// Sprintf supports %s %d %x %X %v %t and %%. Width, precision and flags
// are parsed and ignored; keep MCU cost low.
func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

type builder struct {
	buf []byte
	tmp [20]byte
}

func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.buf = append(b.buf, c)
			continue
		}
		i++
		for i < len(format) && (format[i] == '.' || ('0' <= format[i] && format[i] <= '9')) {
			i++
		}
		if i >= len(format) {
			return
		}
		verb := format[i]
		if verb == '%' {
			b.buf = append(b.buf, '%')
			continue
		}
		if ai >= len(args) {
			b.str("%!")
			b.buf = append(b.buf, verb)
			continue
		}
		arg := args[ai]
		ai++
		switch verb {
		case 'x', 'X':
			b.hex(arg, verb == 'X')
		default:
			b.any(arg)
		}
	}
}

func (b *builder) any(v any) {
	switch x := v.(type) {
	case string:
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case bool:
		if x {
			b.str("true")
		} else {
			b.str("false")
		}
	case error:
		b.str(x.Error())
	default:
		if n, ok := signed(v); ok {
			b.buf = append(b.buf, conv.Itoa(b.tmp[:], n)...)
		} else if u, ok := unsigned(v); ok {
			b.buf = append(b.buf, conv.Utoa(b.tmp[:], u)...)
		} else {
			b.str("?")
		}
	}
}

func (b *builder) hex(v any, upper bool) {
	u, ok := unsigned(v)
	if !ok {
		n, ok := signed(v)
		if !ok {
			b.any(v)
			return
		}
		u = uint64(n)
	}
	digits := "0123456789abcdef"
	if upper {
		digits = "0123456789ABCDEF"
	}
	i := len(b.tmp)
	for {
		i--
		b.tmp[i] = digits[u&0xF]
		u >>= 4
		if u == 0 {
			break
		}
	}
	b.buf = append(b.buf, b.tmp[i:]...)
}

func signed(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func unsigned(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case uintptr:
		return uint64(t), true
	}
	return 0, false
}
