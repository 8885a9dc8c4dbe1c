package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Value is one decoded column value.
type Value struct {
	Column Column
	Null   bool
	Raw    []byte
	Text   string // string form of Value, always populated when !Null
}

// DecodeRecord reads one physical record's column values starting at origin
// (the record's origin offset, i.e. where the 5-byte extra header ends and
// column data begins), using vh to know which columns are null and how long
// each variable-length column is.
func DecodeRecord(pageData []byte, origin int, cols []Column, vh VarHeader) ([]Value, error) {
	values := make([]Value, len(cols))
	pos := origin
	varIdx := 0
	nullIdx := 0
	for i, c := range cols {
		isNull := false
		if c.Nullable {
			if nullIdx >= len(vh.Null) {
				return nil, fmt.Errorf("record: null bitmap exhausted at column %d", i)
			}
			isNull = vh.Null[nullIdx]
			nullIdx++
		}
		if isNull {
			values[i] = Value{Column: c, Null: true}
			continue
		}
		length := c.Length
		if c.Variable {
			if varIdx >= len(vh.Lengths) {
				return nil, fmt.Errorf("record: variable length list exhausted at column %d", i)
			}
			length = vh.Lengths[varIdx]
			varIdx++
		}
		if pos+length > len(pageData) {
			return nil, fmt.Errorf("record: column %q overruns page at offset %d", c.Name, pos)
		}
		raw := pageData[pos : pos+length]
		pos += length
		text, err := decodeValue(c, raw)
		if err != nil {
			return nil, fmt.Errorf("record: column %q: %w", c.Name, err)
		}
		values[i] = Value{Column: c, Raw: raw, Text: text}
	}
	return values, nil
}

func decodeValue(c Column, raw []byte) (string, error) {
	switch c.Storage {
	case StorageInteger:
		if c.Unsigned {
			return fmt.Sprintf("%d", decodeUnsigned(raw)), nil
		}
		return fmt.Sprintf("%d", decodeSigned(raw)), nil
	case StorageFloat:
		if len(raw) < 4 {
			return "", fmt.Errorf("float needs 4 bytes, got %d", len(raw))
		}
		b := untransformFloatBytes(raw[:4])
		bits := binary.LittleEndian.Uint32(b)
		return fmt.Sprintf("%g", float64(math.Float32frombits(bits))), nil
	case StorageDouble:
		if len(raw) < 8 {
			return "", fmt.Errorf("double needs 8 bytes, got %d", len(raw))
		}
		b := untransformFloatBytes(raw[:8])
		bits := binary.LittleEndian.Uint64(b)
		return fmt.Sprintf("%g", math.Float64frombits(bits)), nil
	case StorageDate:
		return decodeDate(raw)
	case StorageDatetime:
		return decodeDatetime(raw, c.FSP)
	case StorageTimestamp:
		return decodeTimestamp(raw, c.FSP)
	case StorageTime:
		return decodeTime(raw, c.FSP)
	case StorageYear:
		return decodeYear(raw)
	case StorageChar:
		return decodeCharLike(raw, true, c.Charset)
	case StorageVarchar, StorageText:
		return decodeCharLike(raw, false, c.Charset)
	case StorageBlob:
		return decodeCharLike(raw, false, "")
	case StorageEnum:
		return decodeEnum(raw, c.EnumElements)
	case StorageSet:
		return decodeSet(raw, c.EnumElements)
	case StorageDecimal:
		return decodeDecimal(raw, c.Precision, c.Scale), nil
	default:
		return fmt.Sprintf("0x%x", raw), nil
	}
}

// decodeUnsigned and decodeSigned undo InnoDB's memcmp-friendly integer
// encoding: the stored value is big-endian with the sign bit (the top bit of
// the first byte) flipped, so that signed comparisons order the same as an
// unsigned byte-wise comparison.
func decodeUnsigned(raw []byte) uint64 {
	b := append([]byte(nil), raw...)
	b[0] ^= 0x80
	var u uint64
	for _, x := range b {
		u = u<<8 | uint64(x)
	}
	return u
}

func decodeSigned(raw []byte) int64 {
	u := decodeUnsigned(raw)
	bits := uint(len(raw) * 8)
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

// untransformFloatBytes reverses the sortable IEEE-754 encoding: the sign
// bit is inverted for positive values and every bit is inverted for
// negative values (so that byte-wise comparison orders floats correctly),
// then the byte order is reversed to recover native-endian IEEE-754 bits.
func untransformFloatBytes(raw []byte) []byte {
	b := append([]byte(nil), raw...)
	if b[0]&0x80 != 0 {
		b[0] &^= 0x80
	} else {
		for i := range b {
			b[i] ^= 0xFF
		}
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func decodeDate(raw []byte) (string, error) {
	if len(raw) < 3 {
		return "", fmt.Errorf("date needs 3 bytes, got %d", len(raw))
	}
	v := decodeUnsigned(raw[:3])
	day := v & 0x1F
	month := (v >> 5) & 0xF
	year := v >> 9
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

// fspBytesAndScale returns the byte width of the fractional-seconds tail for
// a given precision (0-6) and the multiplier that converts the tail's raw
// big-endian value into microseconds.
func fspBytesAndScale(fsp int) (nbytes int, scale int64) {
	switch fsp {
	case 0:
		return 0, 0
	case 1:
		return 1, 100000
	case 2:
		return 1, 10000
	case 3:
		return 2, 1000
	case 4:
		return 2, 100
	case 5:
		return 3, 10
	case 6:
		return 3, 1
	default:
		return 0, 0
	}
}

func decodeFracMicros(raw []byte) int64 {
	var v int64
	for _, b := range raw {
		v = v<<8 | int64(b)
	}
	return v
}

func formatFrac(micros int64, fsp int) string {
	if fsp == 0 {
		return ""
	}
	s := fmt.Sprintf("%06d", micros)
	if len(s) > 6 {
		s = s[:6]
	}
	return "." + s[:fsp]
}

func decodeDatetime(raw []byte, fsp int) (string, error) {
	if len(raw) < 5 {
		return "", fmt.Errorf("datetime needs 5 bytes, got %d", len(raw))
	}
	nbytes, scale := fspBytesAndScale(fsp)
	if len(raw) < 5+nbytes {
		return "", fmt.Errorf("datetime needs %d fsp bytes, got %d", nbytes, len(raw)-5)
	}
	v := decodeUnsigned(raw[:5])
	second := v & 0x3F
	v >>= 6
	minute := v & 0x3F
	v >>= 6
	hour := v & 0x1F
	v >>= 5
	day := v & 0x1F
	v >>= 5
	yearMonth := v & 0x1FFFF
	year := yearMonth / 13
	month := yearMonth % 13
	micros := decodeFracMicros(raw[5:5+nbytes]) * scale
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d%s", year, month, day, hour, minute, second, formatFrac(micros, fsp)), nil
}

func decodeTimestamp(raw []byte, fsp int) (string, error) {
	if len(raw) < 4 {
		return "", fmt.Errorf("timestamp needs 4 bytes, got %d", len(raw))
	}
	nbytes, scale := fspBytesAndScale(fsp)
	if len(raw) < 4+nbytes {
		return "", fmt.Errorf("timestamp needs %d fsp bytes, got %d", nbytes, len(raw)-4)
	}
	secs := binary.BigEndian.Uint32(raw[:4])
	t := time.Unix(int64(secs), 0).UTC()
	micros := decodeFracMicros(raw[4:4+nbytes]) * scale
	return fmt.Sprintf("%s%s", t.Format("2006-01-02 15:04:05"), formatFrac(micros, fsp)), nil
}

func decodeTime(raw []byte, fsp int) (string, error) {
	if len(raw) < 3 {
		return "", fmt.Errorf("time needs 3 bytes, got %d", len(raw))
	}
	nbytes, scale := fspBytesAndScale(fsp)
	if len(raw) < 3+nbytes {
		return "", fmt.Errorf("time needs %d fsp bytes, got %d", nbytes, len(raw)-3)
	}
	raw3 := decodeUnsigned(raw[:3])
	v := int64(raw3) - 0x800000
	negative := v < 0
	if negative {
		v = -v
	}
	second := v & 0x3F
	v >>= 6
	minute := v & 0x3F
	v >>= 6
	hour := v
	micros := decodeFracMicros(raw[3:3+nbytes]) * scale
	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d%s", sign, hour, minute, second, formatFrac(micros, fsp)), nil
}

func decodeYear(raw []byte) (string, error) {
	if len(raw) < 1 {
		return "", fmt.Errorf("year needs 1 byte, got 0")
	}
	if raw[0] == 0 {
		return "0000", nil
	}
	return fmt.Sprintf("%04d", 1900+int(raw[0])), nil
}

var utf8Sanitizer = unicode.UTF8.NewDecoder()

// singleByteDecoders maps a column's Charset (as named by
// dictionary.CharsetFromCollation) to the x/text/encoding/charmap codepage
// that decodes it. MySQL's latin1 is Windows-1252, not ISO-8859-1 (it
// assigns the 0x80-0x9F range to the same characters Windows does), so
// Windows1252 is the correct table, not ISOLatin1.
var singleByteDecoders = map[string]encoding.Encoding{
	"latin1": charmap.Windows1252,
	"ascii":  charmap.Windows1252,
}

// decodeCharLike decodes a CHAR/VARCHAR/TEXT/BLOB column's raw bytes per
// its charset. charset names a MySQL charset ("latin1", "utf8mb4", ...);
// single-byte Windows-125x-family charsets get their own charmap decoder,
// everything else (including an empty/unknown charset, and BLOB, which
// has none) falls back to the lossy UTF-8 sanitizer.
func decodeCharLike(raw []byte, stripTrailingSpace bool, charset string) (string, error) {
	dec, ok := singleByteDecoders[charset]
	var s string
	var err error
	if ok {
		s, err = dec.NewDecoder().String(string(raw))
	} else {
		s, _, err = transform.String(utf8Sanitizer, string(raw))
	}
	if err != nil {
		s = string(raw)
	}
	if stripTrailingSpace {
		s = strings.TrimRight(s, " ")
	}
	return s, nil
}

func decodeEnum(raw []byte, elements []string) (string, error) {
	width := 1
	if len(elements) > 255 {
		width = 2
	}
	if len(raw) < width {
		return "", fmt.Errorf("enum needs %d bytes, got %d", width, len(raw))
	}
	var idx uint64
	for _, b := range raw[:width] {
		idx = idx<<8 | uint64(b)
	}
	if idx == 0 || int(idx) > len(elements) {
		return "", nil
	}
	return elements[idx-1], nil
}

func decodeSet(raw []byte, elements []string) (string, error) {
	width := (len(elements) + 7) / 8
	if len(raw) < width {
		return "", fmt.Errorf("set needs %d bytes, got %d", width, len(raw))
	}
	var mask uint64
	for i := width - 1; i >= 0; i-- {
		mask = mask<<8 | uint64(raw[i])
	}
	var parts []string
	for i, e := range elements {
		if mask&(1<<uint(i)) != 0 {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, ","), nil
}

// decodeDecimal decodes InnoDB's packed BCD DECIMAL encoding: the integer
// and fractional parts are each split into 9-digit groups stored as 4-byte
// big-endian values, with a smaller leading/trailing group absorbing the
// digit count that doesn't divide evenly by 9. The sign is carried in the
// top bit of the first byte (1 = positive); negative values have every
// other bit inverted.
func decodeDecimal(raw []byte, precision, scale int) string {
	if len(raw) == 0 {
		return "0"
	}
	buf := append([]byte(nil), raw...)
	positive := buf[0]&0x80 != 0
	buf[0] ^= 0x80
	if !positive {
		for i := range buf {
			buf[i] ^= 0xFF
		}
	}

	intg := precision - scale
	frac := scale
	intg0, intgRem := intg/9, intg%9
	frac0, fracRem := frac/9, frac%9
	dig2bytes := [10]int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

	pos := 0
	readGroup := func(n int) uint32 {
		var v uint32
		for i := 0; i < n; i++ {
			if pos >= len(buf) {
				break
			}
			v = v<<8 | uint32(buf[pos])
			pos++
		}
		return v
	}

	var intgDigits strings.Builder
	if intgRem > 0 {
		v := readGroup(dig2bytes[intgRem])
		fmt.Fprintf(&intgDigits, "%0*d", intgRem, v)
	}
	for i := 0; i < intg0; i++ {
		v := readGroup(4)
		fmt.Fprintf(&intgDigits, "%09d", v)
	}
	intgStr := strings.TrimLeft(intgDigits.String(), "0")
	if intgStr == "" {
		intgStr = "0"
	}

	var fracDigits strings.Builder
	for i := 0; i < frac0; i++ {
		v := readGroup(4)
		fmt.Fprintf(&fracDigits, "%09d", v)
	}
	if dig2bytes[fracRem] > 0 {
		v := readGroup(dig2bytes[fracRem])
		fmt.Fprintf(&fracDigits, "%0*d", fracRem, v)
	}

	result := intgStr
	if scale > 0 {
		result += "." + fracDigits.String()
	}
	if !positive && result != "0" {
		result = "-" + result
	}
	return result
}
