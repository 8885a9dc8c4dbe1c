package record

import "fmt"

// VarHeader is the decoded variable-length header preceding a record's
// extra header: which nullable columns are null, and the byte length of
// each variable-length column that isn't.
type VarHeader struct {
	Null      []bool // indexed by position among nullable columns, in column order
	Lengths   []int  // indexed by position among variable columns, in column order
	Overflow  []bool // true when the corresponding Lengths entry is externally stored
}

// IsNull reports whether the column at cols[idx] is null, per the decoded
// bitmap. Only meaningful for nullable columns.
func (h VarHeader) IsNull(cols []Column, idx int) bool {
	pos := 0
	for i := 0; i < idx; i++ {
		if cols[i].Nullable {
			pos++
		}
	}
	if !cols[idx].Nullable || pos >= len(h.Null) {
		return false
	}
	return h.Null[pos]
}

// ParseVarHeader walks backward from a record's extra-header start (origin
// minus the 5-byte extra header, i.e. origin-5) decoding the null bitmap
// and then the variable-length field lengths:
//
// The null bitmap sits nearest the extra header (ceil(N_nullable/8) bytes,
// LSB-first in column order). Immediately before it — further back — is one
// length entry per non-null variable-length column, in column order. Each
// entry is 1 byte if its top bit is clear; if set, that byte holds the high
// 6 bits and the preceding byte holds the low 8 bits (14-bit length), with
// bit 6 of the first byte flagging external (off-page) storage.
func ParseVarHeader(pageData []byte, origin int, cols []Column) (VarHeader, error) {
	headerEnd := origin - 5
	nullBytes := NullBitmapSize(cols)
	if headerEnd-nullBytes < 0 {
		return VarHeader{}, fmt.Errorf("record: null bitmap out of bounds")
	}
	bitmapBytes := pageData[headerEnd-nullBytes : headerEnd]

	nNullable := 0
	for _, c := range cols {
		if c.Nullable {
			nNullable++
		}
	}
	nullFlags := make([]bool, nNullable)
	for i := 0; i < nNullable; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		nullFlags[i] = bitmapBytes[byteIdx]&(1<<bitIdx) != 0
	}

	pos := headerEnd - nullBytes
	var lengths []int
	var overflow []bool
	nullSeen := 0
	for _, c := range cols {
		isNull := false
		if c.Nullable {
			isNull = nullFlags[nullSeen]
			nullSeen++
		}
		if !c.Variable {
			continue
		}
		if isNull {
			continue // null variable columns consume no length byte
		}
		if pos-1 < 0 {
			return VarHeader{}, fmt.Errorf("record: variable-length header out of bounds")
		}
		b1 := pageData[pos-1]
		if b1&0x80 == 0 {
			lengths = append(lengths, int(b1))
			overflow = append(overflow, false)
			pos--
			continue
		}
		if pos-2 < 0 {
			return VarHeader{}, fmt.Errorf("record: 2-byte length out of bounds")
		}
		b2 := pageData[pos-2]
		ext := b1&0x40 != 0
		length := (int(b1&0x3F) << 8) | int(b2)
		lengths = append(lengths, length)
		overflow = append(overflow, ext)
		pos -= 2
	}
	return VarHeader{Null: nullFlags, Lengths: lengths, Overflow: overflow}, nil
}
