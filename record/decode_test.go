package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeIntegerUnsigned(t *testing.T) {
	v := decodeUnsigned([]byte{0x80, 0x00, 0x00, 0x2A})
	require.Equal(t, uint64(42), v)
}

func TestDecodeIntegerSignedNegativeOne(t *testing.T) {
	v := decodeSigned([]byte{0x7F, 0xFF, 0xFF, 0xFF})
	require.Equal(t, int64(-1), v)
}

func TestDecodeIntegerSignedMin(t *testing.T) {
	v := decodeSigned([]byte{0x00, 0x00, 0x00, 0x00})
	require.Equal(t, int64(-2147483648), v)
}

func TestDecodeDate(t *testing.T) {
	// day=15, month=6, year=2024 packed LSB-first: day(5)|month(4)|year(rest)
	raw := []byte{0x80, 0x00, 0x00}
	packed := uint64(2024)<<9 | uint64(6)<<5 | uint64(15)
	raw[0] = byte(packed >> 16)
	raw[1] = byte(packed >> 8)
	raw[2] = byte(packed)
	raw[0] ^= 0x80 // undo the sign-bit XOR decodeDate will apply
	s, err := decodeDate(raw)
	require.NoError(t, err)
	require.Equal(t, "2024-06-15", s)
}

func TestDecodeYearZero(t *testing.T) {
	s, err := decodeYear([]byte{0})
	require.NoError(t, err)
	require.Equal(t, "0000", s)
}

func TestDecodeYearNonZero(t *testing.T) {
	s, err := decodeYear([]byte{124})
	require.NoError(t, err)
	require.Equal(t, "2024", s)
}

func TestDecodeEnum(t *testing.T) {
	elements := []string{"small", "medium", "large"}
	s, err := decodeEnum([]byte{2}, elements)
	require.NoError(t, err)
	require.Equal(t, "medium", s)
}

func TestDecodeEnumEmpty(t *testing.T) {
	elements := []string{"small", "medium", "large"}
	s, err := decodeEnum([]byte{0}, elements)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestDecodeSet(t *testing.T) {
	elements := []string{"a", "b", "c", "d"}
	// bits 0 and 2 set -> "a,c"
	s, err := decodeSet([]byte{0x05}, elements)
	require.NoError(t, err)
	require.Equal(t, "a,c", s)
}

func TestDecodeDecimalPositive(t *testing.T) {
	// precision=9, scale=2: intg=7 digits (intg0=0, intgRem=7 -> 4 bytes),
	// frac=2 digits (frac0=0, fracRem=2 -> 1 byte). Value: 1234567.89
	raw := make([]byte, 5)
	raw[0] = 0x80 // positive
	intgVal := uint32(1234567)
	raw[0] |= byte(intgVal >> 24 & 0x7F)
	raw[1] = byte(intgVal >> 16)
	raw[2] = byte(intgVal >> 8)
	raw[3] = byte(intgVal)
	raw[4] = 89
	s := decodeDecimal(raw, 9, 2)
	require.Equal(t, "1234567.89", s)
}

func TestDecodeDecimalNegative(t *testing.T) {
	positive := make([]byte, 5)
	positive[0] = 0x80
	intgVal := uint32(42)
	positive[0] |= byte(intgVal >> 24 & 0x7F)
	positive[1] = byte(intgVal >> 16)
	positive[2] = byte(intgVal >> 8)
	positive[3] = byte(intgVal)
	positive[4] = 5
	negative := make([]byte, len(positive))
	for i := range positive {
		negative[i] = positive[i] ^ 0xFF
	}
	s := decodeDecimal(negative, 9, 2)
	require.Equal(t, "-42.05", s)
}

func TestNullBitmapSize(t *testing.T) {
	cols := []Column{
		{Nullable: true},
		{Nullable: false},
		{Nullable: true},
		{Nullable: true},
		{Nullable: true},
		{Nullable: true},
		{Nullable: true},
		{Nullable: true},
		{Nullable: true},
	}
	require.Equal(t, 1, NullBitmapSize(cols))
}

func TestDecodeCharLikeLatin1(t *testing.T) {
	// 0xE9 is "é" in Windows-1252/latin1 but is not valid standalone UTF-8;
	// a plain UTF-8 decode would replace it with U+FFFD.
	raw := []byte{0x63, 0x61, 0x66, 0xE9} // "caf" + 0xE9
	s, err := decodeCharLike(raw, false, "latin1")
	require.NoError(t, err)
	require.Equal(t, "café", s)
}

func TestDecodeCharLikeUTF8Default(t *testing.T) {
	raw := []byte("r\xc3\xa9sum\xc3\xa9")
	s, err := decodeCharLike(raw, false, "utf8mb4")
	require.NoError(t, err)
	require.Equal(t, "résumé", s)
}

func TestParseVarHeaderMixedNullableFixedAndVariable(t *testing.T) {
	// id INT, age INT NULL, bio VARCHAR(200) NULL: a nullable fixed-length
	// column ("age") precedes a nullable variable-length column ("bio").
	cols := []Column{
		{Name: "id", Nullable: false, Variable: false},
		{Name: "age", Nullable: true, Variable: false},
		{Name: "bio", Nullable: true, Variable: true},
	}

	// origin = 10, so headerEnd = origin-5 = 5. nullBytes = ceil(2/8) = 1,
	// so the bitmap byte sits at pageData[4]. "age" is null (bit 0 set),
	// "bio" is not null (bit 1 clear) -> bitmap byte = 0x01.
	// Since "bio" is not null it must consume a 1-byte length entry at
	// pageData[3] (pos = headerEnd - nullBytes = 4, length byte at pos-1).
	pageData := make([]byte, 10)
	pageData[4] = 0x01
	pageData[3] = 77

	vh, err := ParseVarHeader(pageData, 10, cols)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, vh.Null)
	// Before the fix, nullSeen only advanced on variable columns, so "bio"
	// was checked against "age"'s null bit (true) and its length byte was
	// wrongly skipped, leaving Lengths empty.
	require.Equal(t, []int{77}, vh.Lengths)
	require.Equal(t, []bool{false}, vh.Overflow)
	require.False(t, vh.IsNull(cols, 2))
	require.True(t, vh.IsNull(cols, 1))
}
