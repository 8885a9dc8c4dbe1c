// Package record decodes the InnoDB compact row format: the intra-page
// record chain, each record's variable-length header, and the typed column
// values it frames. Decoding requires a Column list built once from the
// dictionary (see package dictionary) and shared read-only across all
// records in a file.
package record

// StorageType identifies how a column's bytes are physically encoded,
// independent of its SQL type name (several SQL types share an encoding,
// e.g. TINYINT/SMALLINT/INT/BIGINT are all StorageInteger at different
// widths).
type StorageType int

const (
	StorageInteger StorageType = iota
	StorageFloat
	StorageDouble
	StorageDate
	StorageDatetime
	StorageTimestamp
	StorageTime
	StorageYear
	StorageChar
	StorageVarchar
	StorageText
	StorageBlob
	StorageEnum
	StorageSet
	StorageDecimal
	StorageOther
)

// Column describes one column's physical storage, built once from the
// dictionary record and shared read-only by every record decoded against
// that table.
type Column struct {
	Name          string
	Storage       StorageType
	Length        int  // fixed length in bytes, or max length for variable-length types
	Variable      bool // true if length-prefixed in the record header
	Nullable      bool
	Unsigned      bool
	CharMaxBytes  int      // max bytes per code point for the column's character set
	Charset       string   // charset name derived from the column's collation ("latin1", "utf8mb4", ...); empty means decode as UTF-8
	FSP           int      // fractional-seconds precision for temporal types (0-6)
	EnumElements  []string // ENUM/SET element list, 1-based for ENUM
	Precision     int      // DECIMAL precision
	Scale         int      // DECIMAL scale
	IsSystem      bool     // synthetic trx_id / roll_ptr / row_id column
	Ordinal       int      // position within the physical record, primary key first
}

// NullBitmapSize returns the number of bytes the null bitmap occupies for a
// column list, ceil(nullableCount/8).
func NullBitmapSize(cols []Column) int {
	n := 0
	for _, c := range cols {
		if c.Nullable {
			n++
		}
	}
	return (n + 7) / 8
}
