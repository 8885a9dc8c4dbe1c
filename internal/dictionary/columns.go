package dictionary

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/idbkit/idbkit/record"
)

// BuildRecordColumns parses a "Table" SDI record's JSON payload into a
// physical record.Column list, ready to pass to record.ParseVarHeader and
// record.DecodeRecord. This is the physical-decode counterpart to
// ExtractSchemaFromSDI's DDL-oriented TableSchema: both read the same
// dd_object, but only this one carries the byte-level width/encoding
// details recovery needs.
func BuildRecordColumns(sdiJSON string) ([]record.Column, error) {
	var env ddEnvelope
	if err := json.Unmarshal([]byte(sdiJSON), &env); err != nil {
		return nil, fmt.Errorf("dictionary: parse SDI JSON: %w", err)
	}
	dd := env.DdObject

	visible := make([]ddColumn, 0, len(dd.Columns))
	for _, c := range dd.Columns {
		if c.Hidden == 1 {
			visible = append(visible, c)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].OrdinalPosition < visible[j].OrdinalPosition })

	cols := make([]record.Column, 0, len(visible))
	for i, c := range visible {
		cols = append(cols, buildRecordColumn(c, i))
	}
	return cols, nil
}

// buildRecordColumn maps one dd_type code and its associated length/scale
// fields to the physical storage description record.DecodeRecord needs.
func buildRecordColumn(c ddColumn, ordinal int) record.Column {
	col := record.Column{
		Name:     c.Name,
		Nullable: c.IsNullable,
		Unsigned: c.IsUnsigned,
		Ordinal:  ordinal,
	}

	switch c.DdType {
	case 1: // TINYINT
		col.Storage, col.Length = record.StorageInteger, 1
	case 2: // SMALLINT
		col.Storage, col.Length = record.StorageInteger, 2
	case 3: // MEDIUMINT
		col.Storage, col.Length = record.StorageInteger, 3
	case 4: // INT
		col.Storage, col.Length = record.StorageInteger, 4
	case 5: // BIGINT
		col.Storage, col.Length = record.StorageInteger, 8
	case 6: // DECIMAL
		col.Storage = record.StorageDecimal
		col.Precision = int(c.NumericPrecision)
		col.Scale = int(c.NumericScale)
	case 7: // FLOAT
		col.Storage, col.Length = record.StorageFloat, 4
	case 8: // DOUBLE
		col.Storage, col.Length = record.StorageDouble, 8
	case 9, 29: // BINARY family
		col.Storage, col.Length = record.StorageChar, int(c.CharLength)
	case 11: // YEAR
		col.Storage, col.Length = record.StorageYear, 1
	case 12: // DATE
		col.Storage, col.Length = record.StorageDate, 3
	case 13: // TIME
		col.Storage = record.StorageTime
		col.FSP = int(c.NumericScale)
	case 14: // DATETIME
		col.Storage = record.StorageDatetime
		col.FSP = int(c.NumericScale)
	case 15: // TIMESTAMP
		col.Storage = record.StorageTimestamp
		col.FSP = int(c.NumericScale)
	case 16: // VARCHAR
		col.Storage, col.Variable = record.StorageVarchar, true
		col.Length = int(c.CharLength)
		col.CharMaxBytes = charMaxBytesFromCollation(c.CollationID)
		col.Charset, _ = CharsetFromCollation(c.CollationID)
	case 17: // CHAR
		col.Storage = record.StorageChar
		col.Length = int(c.CharLength)
		col.CharMaxBytes = charMaxBytesFromCollation(c.CollationID)
		col.Charset, _ = CharsetFromCollation(c.CollationID)
	case 18: // BIT
		col.Storage, col.Length = record.StorageOther, int((c.CharLength+7)/8)
	case 19: // ENUM
		col.Storage, col.Length = record.StorageEnum, 1
		col.EnumElements = parseEnumElements(c.ColumnTypeUTF8)
		if len(col.EnumElements) > 255 {
			col.Length = 2
		}
	case 20: // SET
		col.Storage = record.StorageSet
		col.EnumElements = parseEnumElements(c.ColumnTypeUTF8)
		col.Length = (len(col.EnumElements) + 7) / 8
		if col.Length == 0 {
			col.Length = 1
		}
	case 23, 24, 25, 26: // {TINY,MEDIUM,LONG,}BLOB
		col.Storage, col.Variable = record.StorageBlob, true
	case 27: // TEXT family
		col.Storage, col.Variable = record.StorageText, true
		col.CharMaxBytes = charMaxBytesFromCollation(c.CollationID)
		col.Charset, _ = CharsetFromCollation(c.CollationID)
	case 28: // VARBINARY
		col.Storage, col.Variable = record.StorageVarchar, true
		col.Length = int(c.CharLength)
	case 30: // GEOMETRY
		col.Storage, col.Variable = record.StorageBlob, true
	case 31: // JSON
		col.Storage, col.Variable = record.StorageBlob, true
	default:
		col.Storage, col.Variable = record.StorageOther, true
	}

	col.IsSystem = c.Hidden != 1 && strings.HasPrefix(c.Name, "DB_")
	return col
}

// parseEnumElements pulls the quoted element list out of a column_type_utf8
// string like "enum('a','b','c')"; returns nil if it can't find one.
func parseEnumElements(columnType string) []string {
	open := strings.Index(columnType, "(")
	shut := strings.LastIndex(columnType, ")")
	if open < 0 || shut <= open {
		return nil
	}
	inner := columnType[open+1 : shut]
	var elems []string
	for _, raw := range strings.Split(inner, ",") {
		raw = strings.TrimSpace(raw)
		if unquoted, err := strconv.Unquote(strings.ReplaceAll(raw, "'", `"`)); err == nil {
			elems = append(elems, unquoted)
		} else {
			elems = append(elems, strings.Trim(raw, "'"))
		}
	}
	return elems
}

// charMaxBytesFromCollation returns the per-code-point byte width for a
// column's collation, backed by the shared collationMaxBytes table.
func charMaxBytesFromCollation(collationID uint64) int {
	return int(charsetMaxBytes(collationID))
}
