package input

// Mouse is one decoded SGR mouse report. Col and Row are 1-based terminal
// cells.
type Mouse struct {
	Valid   bool
	Col     int
	Row     int
	Button  int
	Pressed bool // false on release
	Motion  bool
}

// sgrMaxLen bounds how long a mouse report may be before it is treated as
// garbage.
const sgrMaxLen = 32

// parseSGRMouse decodes "ESC [ < b ; col ; row (M|m)" at the start of buf.
// It returns the number of bytes consumed. complete is false when buf ends
// before the report does; n is 0 when buf does not hold a valid report.
func parseSGRMouse(buf []byte) (m Mouse, n int, complete bool) {
	if len(buf) < 3 || buf[0] != '\x1b' || buf[1] != '[' || buf[2] != '<' {
		return Mouse{}, 0, true
	}

	var fields [3]int
	field := 0
	digits := 0
	for i := 3; i < len(buf); i++ {
		if i >= sgrMaxLen {
			return Mouse{}, 0, true
		}
		b := buf[i]
		switch {
		case b >= '0' && b <= '9':
			fields[field] = fields[field]*10 + int(b-'0')
			digits++
		case b == ';':
			if digits == 0 || field == 2 {
				return Mouse{}, 0, true
			}
			field++
			digits = 0
		case b == 'M' || b == 'm':
			if field != 2 || digits == 0 {
				return Mouse{}, 0, true
			}
			return Mouse{
				Valid:   true,
				Button:  fields[0] & 0x03,
				Motion:  fields[0]&32 != 0,
				Col:     fields[1],
				Row:     fields[2],
				Pressed: b == 'M',
			}, i + 1, true
		default:
			return Mouse{}, 0, true
		}
	}
	return Mouse{}, 0, len(buf) >= sgrMaxLen
}
