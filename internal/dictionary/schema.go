package dictionary

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/tablespace"
)

// ddEnvelope is the top-level SDI JSON wrapper around a table definition.
type ddEnvelope struct {
	MysqldVersionID uint64  `json:"mysqld_version_id"`
	DdObjectType    string  `json:"dd_object_type"`
	DdObject        ddTable `json:"dd_object"`
}

type ddTable struct {
	Name          string            `json:"name"`
	SchemaRef     string            `json:"schema_ref"`
	Engine        string            `json:"engine"`
	CollationID   uint64            `json:"collation_id"`
	RowFormat     uint64            `json:"row_format"`
	Comment       string            `json:"comment"`
	Columns       []ddColumn        `json:"columns"`
	Indexes       []ddIndex         `json:"indexes"`
	ForeignKeys   []ddForeignKey    `json:"foreign_keys"`
}

type ddColumn struct {
	Name                     string          `json:"name"`
	DdType                   uint64          `json:"type"`
	ColumnTypeUTF8           string          `json:"column_type_utf8"`
	OrdinalPosition          uint64          `json:"ordinal_position"`
	Hidden                   uint64          `json:"hidden"`
	IsNullable               bool            `json:"is_nullable"`
	IsUnsigned               bool            `json:"is_unsigned"`
	IsAutoIncrement          bool            `json:"is_auto_increment"`
	IsVirtual                bool            `json:"is_virtual"`
	CharLength               uint64          `json:"char_length"`
	NumericPrecision         uint64          `json:"numeric_precision"`
	NumericScale             uint64          `json:"numeric_scale"`
	CollationID              uint64          `json:"collation_id"`
	DefaultValueUTF8         string          `json:"default_value_utf8"`
	DefaultValueUTF8Null     bool            `json:"default_value_utf8_null"`
	HasNoDefault             bool            `json:"has_no_default"`
	DefaultOption            string          `json:"default_option"`
	GenerationExpressionUTF8 string          `json:"generation_expression_utf8"`
	Comment                  string          `json:"comment"`
}

type ddIndex struct {
	Name      string        `json:"name"`
	IndexType uint64        `json:"type"`
	Hidden    bool          `json:"hidden"`
	Elements  []ddIndexElem `json:"elements"`
	Comment   string        `json:"comment"`
	IsVisible bool          `json:"is_visible"`
}

type ddIndexElem struct {
	ColumnOpx uint64 `json:"column_opx"`
	Length    uint64 `json:"length"`
	Order     uint64 `json:"order"`
	Hidden    bool   `json:"hidden"`
}

type ddForeignKey struct {
	Name                        string          `json:"name"`
	ReferencedTableSchemaName   string          `json:"referenced_table_schema_name"`
	ReferencedTableName         string          `json:"referenced_table_name"`
	UpdateRule                  uint64          `json:"update_rule"`
	DeleteRule                  uint64          `json:"delete_rule"`
	Elements                    []ddFkElem      `json:"elements"`
}

type ddFkElem struct {
	ColumnOpx            uint64 `json:"column_opx"`
	ReferencedColumnName string `json:"referenced_column_name"`
}

// TableSchema is a reconstructed table definition, ready to render as DDL.
type TableSchema struct {
	SchemaName   string
	TableName    string
	Engine       string
	RowFormat    string
	Collation    string
	Charset      string
	Comment      string
	MySQLVersion string
	Source       string // "sdi" or "inferred"
	Columns      []ColumnDef
	Indexes      []IndexDef
	ForeignKeys  []ForeignKeyDef
	DDL          string
}

type ColumnDef struct {
	Name                  string
	ColumnType            string
	IsNullable            bool
	DefaultValue          string
	HasDefault            bool
	IsAutoIncrement       bool
	GenerationExpression  string
	HasGeneration         bool
	IsVirtual             bool
	Comment               string
}

type IndexDef struct {
	Name      string
	IndexType string // PRIMARY KEY / UNIQUE KEY / KEY / FULLTEXT KEY / SPATIAL KEY
	Columns   []IndexColumnDef
	Comment   string
	IsVisible bool
}

type IndexColumnDef struct {
	Name         string
	PrefixLength uint64
	HasPrefix    bool
	Order        string // "DESC", empty for ASC
}

type ForeignKeyDef struct {
	Name                string
	Columns             []string
	ReferencedTable     string
	ReferencedColumns   []string
	OnUpdate            string
	OnDelete            string
}

// CollationName maps a MySQL collation ID to its name, covering the most
// common collations; returns ok=false for anything else.
func CollationName(id uint64) (string, bool) {
	switch id {
	case 2, 8:
		return "latin1_swedish_ci", true
	case 11:
		return "ascii_general_ci", true
	case 33:
		return "utf8mb3_general_ci", true
	case 45:
		return "utf8mb4_general_ci", true
	case 46:
		return "utf8mb4_bin", true
	case 47:
		return "latin1_bin", true
	case 48:
		return "latin1_general_ci", true
	case 63:
		return "binary", true
	case 83:
		return "utf8mb3_bin", true
	case 224:
		return "utf8mb4_unicode_ci", true
	case 255:
		return "utf8mb4_0900_ai_ci", true
	default:
		return "", false
	}
}

// CharsetFromCollation maps a collation ID to its character set name.
func CharsetFromCollation(id uint64) (string, bool) {
	switch id {
	case 2, 8, 47, 48:
		return "latin1", true
	case 11:
		return "ascii", true
	case 33, 83:
		return "utf8mb3", true
	case 45, 46, 224, 255:
		return "utf8mb4", true
	case 63:
		return "binary", true
	default:
		return "", false
	}
}

// RowFormatName maps a row_format code to its name.
func RowFormatName(id uint64) string {
	switch id {
	case 1:
		return "FIXED"
	case 2:
		return "DYNAMIC"
	case 3:
		return "COMPRESSED"
	case 4:
		return "REDUNDANT"
	case 5:
		return "COMPACT"
	default:
		return "UNKNOWN"
	}
}

// FKRuleName maps a foreign-key ON UPDATE/DELETE rule code to its SQL name.
func FKRuleName(rule uint64) string {
	switch rule {
	case 0:
		return "NO ACTION"
	case 1:
		return "RESTRICT"
	case 2:
		return "CASCADE"
	case 3:
		return "SET NULL"
	case 4:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// collationMaxBytes maps a collation ID to the max bytes one character can
// occupy in its charset. Kept as a data table so new collation ids can be
// added without touching code; unknown ids fall back to 4, the utf8mb4
// upper bound, which can only over-reserve, never truncate.
var collationMaxBytes = map[uint64]uint64{
	2: 1, 8: 1, 11: 1, 47: 1, 48: 1, 63: 1, // latin1 / ascii / binary
	33: 3, 83: 3, // utf8mb3
	45: 4, 46: 4, 224: 4, 255: 4, // utf8mb4
}

// charsetMaxBytes returns the max bytes per character for a collation ID,
// used to convert char_length (stored in bytes) to character counts.
func charsetMaxBytes(collationID uint64) uint64 {
	if n, ok := collationMaxBytes[collationID]; ok {
		return n
	}
	return 4
}

// ddTypeToSQL is the fallback type renderer used only when column_type_utf8
// is empty; MySQL normally supplies that field directly.
func ddTypeToSQL(c ddColumn) string {
	switch c.DdType {
	case 1:
		return "tinyint"
	case 2:
		return "smallint"
	case 3:
		return "mediumint"
	case 4:
		return "int"
	case 5:
		return "bigint"
	case 6:
		return formatDecimal(c)
	case 7:
		return "float"
	case 8:
		return "double"
	case 9, 10:
		return "binary"
	case 11:
		return "year"
	case 12:
		return "date"
	case 13:
		return "time"
	case 14:
		return "datetime"
	case 15:
		return "timestamp"
	case 16:
		return formatVarchar(c)
	case 17:
		return formatChar(c)
	case 18:
		return "bit"
	case 19:
		return "enum"
	case 20:
		return "set"
	case 23:
		return "tinyblob"
	case 24:
		return "mediumblob"
	case 25:
		return "longblob"
	case 26:
		return "blob"
	case 27:
		return formatText(c)
	case 28:
		return "varbinary"
	case 29:
		return "binary"
	case 30:
		return "geometry"
	case 31:
		return "json"
	default:
		return fmt.Sprintf("unknown_type(%d)", c.DdType)
	}
}

func formatDecimal(c ddColumn) string {
	if c.NumericPrecision == 0 {
		return "decimal"
	}
	if c.NumericScale > 0 {
		return fmt.Sprintf("decimal(%d,%d)", c.NumericPrecision, c.NumericScale)
	}
	return fmt.Sprintf("decimal(%d)", c.NumericPrecision)
}

func charLen(c ddColumn) uint64 {
	maxBytes := charsetMaxBytes(c.CollationID)
	if maxBytes > 0 {
		return c.CharLength / maxBytes
	}
	return c.CharLength
}

func formatVarchar(c ddColumn) string {
	return fmt.Sprintf("varchar(%d)", charLen(c))
}

func formatChar(c ddColumn) string {
	n := charLen(c)
	if n > 1 {
		return fmt.Sprintf("char(%d)", n)
	}
	return "char"
}

func formatText(c ddColumn) string {
	switch {
	case c.CharLength <= 255:
		return "tinytext"
	case c.CharLength <= 65535:
		return "text"
	case c.CharLength <= 16777215:
		return "mediumtext"
	default:
		return "longtext"
	}
}

// formatMySQLVersion renders a numeric version_id (e.g. 90001) as "9.0.1".
func formatMySQLVersion(versionID uint64) string {
	if versionID == 0 {
		return "unknown"
	}
	major := versionID / 10000
	minor := (versionID % 10000) / 100
	patch := versionID % 100
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// ExtractSchemaFromSDI parses a "Table" SDI record's JSON payload into a
// TableSchema and generates its CREATE TABLE DDL.
func ExtractSchemaFromSDI(sdiJSON string) (TableSchema, error) {
	var env ddEnvelope
	if err := json.Unmarshal([]byte(sdiJSON), &env); err != nil {
		return TableSchema{}, fmt.Errorf("dictionary: parse SDI JSON: %w", err)
	}
	dd := env.DdObject

	columnByIndex := make(map[uint64]ddColumn, len(dd.Columns))
	for i, c := range dd.Columns {
		columnByIndex[uint64(i)] = c
	}

	visible := make([]ddColumn, 0, len(dd.Columns))
	for _, c := range dd.Columns {
		if c.Hidden == 1 {
			visible = append(visible, c)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].OrdinalPosition < visible[j].OrdinalPosition })

	columns := make([]ColumnDef, 0, len(visible))
	for _, c := range visible {
		columns = append(columns, buildColumnDef(c))
	}

	indexes := make([]IndexDef, 0, len(dd.Indexes))
	for _, idx := range dd.Indexes {
		if idx.Hidden {
			continue
		}
		indexes = append(indexes, buildIndexDef(idx, columnByIndex))
	}

	fks := make([]ForeignKeyDef, 0, len(dd.ForeignKeys))
	for _, fk := range dd.ForeignKeys {
		fks = append(fks, buildFKDef(fk, columnByIndex))
	}

	rowFmt := RowFormatName(dd.RowFormat)
	collation, _ := CollationName(dd.CollationID)
	charset, _ := CharsetFromCollation(dd.CollationID)

	schema := TableSchema{
		SchemaName:   dd.SchemaRef,
		TableName:    dd.Name,
		Engine:       dd.Engine,
		RowFormat:    rowFmt,
		Collation:    collation,
		Charset:      charset,
		Comment:      dd.Comment,
		MySQLVersion: formatMySQLVersion(env.MysqldVersionID),
		Source:       "sdi",
		Columns:      columns,
		Indexes:      indexes,
		ForeignKeys:  fks,
	}
	schema.DDL = GenerateDDL(schema)
	return schema, nil
}

func buildColumnDef(c ddColumn) ColumnDef {
	columnType := c.ColumnTypeUTF8
	if columnType == "" {
		columnType = ddTypeToSQL(c)
	}

	var defaultValue string
	var hasDefault bool
	switch {
	case c.DefaultOption != "":
		defaultValue, hasDefault = c.DefaultOption, true
	case !c.HasNoDefault && !c.DefaultValueUTF8Null && c.DefaultValueUTF8 != "":
		defaultValue = "'" + strings.ReplaceAll(c.DefaultValueUTF8, "'", "''") + "'"
		hasDefault = true
	case !c.HasNoDefault && c.IsNullable && c.DefaultValueUTF8Null:
		defaultValue, hasDefault = "NULL", true
	}

	var generation string
	var hasGeneration bool
	if c.GenerationExpressionUTF8 != "" {
		generation, hasGeneration = c.GenerationExpressionUTF8, true
	}

	return ColumnDef{
		Name:                 c.Name,
		ColumnType:           columnType,
		IsNullable:           c.IsNullable,
		DefaultValue:         defaultValue,
		HasDefault:           hasDefault,
		IsAutoIncrement:      c.IsAutoIncrement,
		GenerationExpression: generation,
		HasGeneration:        hasGeneration,
		IsVirtual:            c.IsVirtual,
		Comment:              c.Comment,
	}
}

func buildIndexDef(idx ddIndex, columns map[uint64]ddColumn) IndexDef {
	indexType := "KEY"
	switch idx.IndexType {
	case 1:
		indexType = "PRIMARY KEY"
	case 2:
		indexType = "UNIQUE KEY"
	case 3:
		indexType = "KEY"
	case 4:
		indexType = "FULLTEXT KEY"
	case 5:
		indexType = "SPATIAL KEY"
	}

	var idxCols []IndexColumnDef
	for _, e := range idx.Elements {
		if e.Hidden {
			continue
		}
		col, ok := columns[e.ColumnOpx]
		name := fmt.Sprintf("col_%d", e.ColumnOpx)
		if ok {
			name = col.Name
		}

		var prefixLen uint64
		var hasPrefix bool
		if e.Length < 4294967295 {
			fullCharLen := uint64(0)
			if ok {
				fullCharLen = charLen(col)
			}
			if e.Length < fullCharLen {
				prefixLen, hasPrefix = e.Length, true
			}
		}

		order := ""
		if e.Order == 1 {
			order = "DESC"
		}

		idxCols = append(idxCols, IndexColumnDef{Name: name, PrefixLength: prefixLen, HasPrefix: hasPrefix, Order: order})
	}

	return IndexDef{
		Name:      idx.Name,
		IndexType: indexType,
		Columns:   idxCols,
		Comment:   idx.Comment,
		IsVisible: idx.IsVisible,
	}
}

func buildFKDef(fk ddForeignKey, columns map[uint64]ddColumn) ForeignKeyDef {
	fkColumns := make([]string, 0, len(fk.Elements))
	refColumns := make([]string, 0, len(fk.Elements))
	for _, e := range fk.Elements {
		name := fmt.Sprintf("col_%d", e.ColumnOpx)
		if col, ok := columns[e.ColumnOpx]; ok {
			name = col.Name
		}
		fkColumns = append(fkColumns, name)
		refColumns = append(refColumns, e.ReferencedColumnName)
	}

	refTable := fmt.Sprintf("`%s`", fk.ReferencedTableName)
	if fk.ReferencedTableSchemaName != "" {
		refTable = fmt.Sprintf("`%s`.`%s`", fk.ReferencedTableSchemaName, fk.ReferencedTableName)
	}

	return ForeignKeyDef{
		Name:              fk.Name,
		Columns:           fkColumns,
		ReferencedTable:   refTable,
		ReferencedColumns: refColumns,
		OnUpdate:          FKRuleName(fk.UpdateRule),
		OnDelete:          FKRuleName(fk.DeleteRule),
	}
}

// GenerateDDL renders a CREATE TABLE statement from a TableSchema.
func GenerateDDL(schema TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE `%s` (\n", schema.TableName)

	parts := make([]string, 0, len(schema.Columns)+len(schema.Indexes)+len(schema.ForeignKeys))
	for _, c := range schema.Columns {
		parts = append(parts, formatColumnDDL(c))
	}
	for _, idx := range schema.Indexes {
		parts = append(parts, formatIndexDDL(idx))
	}
	for _, fk := range schema.ForeignKeys {
		parts = append(parts, formatFKDDL(fk))
	}
	b.WriteString(strings.Join(parts, ",\n"))
	b.WriteString("\n)")

	var options []string
	if schema.Engine != "" {
		options = append(options, "ENGINE="+schema.Engine)
	}
	if schema.Charset != "" {
		options = append(options, "DEFAULT CHARSET="+schema.Charset)
	}
	if schema.Collation != "" {
		options = append(options, "COLLATE="+schema.Collation)
	}
	if schema.RowFormat != "" && schema.RowFormat != "DYNAMIC" {
		options = append(options, "ROW_FORMAT="+schema.RowFormat)
	}
	if schema.Comment != "" {
		options = append(options, fmt.Sprintf("COMMENT='%s'", strings.ReplaceAll(schema.Comment, "'", "''")))
	}
	if len(options) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(options, " "))
	}
	b.WriteString(";")
	return b.String()
}

func formatColumnDDL(c ColumnDef) string {
	parts := []string{fmt.Sprintf("  `%s` %s", c.Name, c.ColumnType)}
	if !c.IsNullable {
		parts = append(parts, "NOT NULL")
	}
	if c.HasDefault {
		parts = append(parts, "DEFAULT "+c.DefaultValue)
	}
	if c.IsAutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.HasGeneration {
		kind := "STORED"
		if c.IsVirtual {
			kind = "VIRTUAL"
		}
		parts = append(parts, fmt.Sprintf("GENERATED ALWAYS AS (%s) %s", c.GenerationExpression, kind))
	}
	if c.Comment != "" {
		parts = append(parts, fmt.Sprintf("COMMENT '%s'", strings.ReplaceAll(c.Comment, "'", "''")))
	}
	return strings.Join(parts, " ")
}

func formatIndexDDL(idx IndexDef) string {
	cols := formatIndexColumns(idx.Columns)
	visibility := ""
	if !idx.IsVisible {
		visibility = " /*!80000 INVISIBLE */"
	}
	comment := ""
	if idx.Comment != "" {
		comment = fmt.Sprintf(" COMMENT '%s'", strings.ReplaceAll(idx.Comment, "'", "''"))
	}
	if idx.IndexType == "PRIMARY KEY" {
		return fmt.Sprintf("  PRIMARY KEY (%s)%s%s", cols, comment, visibility)
	}
	return fmt.Sprintf("  %s `%s` (%s)%s%s", idx.IndexType, idx.Name, cols, comment, visibility)
}

func formatIndexColumns(cols []IndexColumnDef) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		s := fmt.Sprintf("`%s`", c.Name)
		if c.HasPrefix {
			s += "(" + strconv.FormatUint(c.PrefixLength, 10) + ")"
		}
		if c.Order != "" {
			s += " " + c.Order
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func formatFKDDL(fk ForeignKeyDef) string {
	cols := quoteJoin(fk.Columns)
	refCols := quoteJoin(fk.ReferencedColumns)
	s := fmt.Sprintf("  CONSTRAINT `%s` FOREIGN KEY (%s) REFERENCES %s (%s)", fk.Name, cols, fk.ReferencedTable, refCols)
	if fk.OnDelete != "NO ACTION" {
		s += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "NO ACTION" {
		s += " ON UPDATE " + fk.OnUpdate
	}
	return s
}

func quoteJoin(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("`%s`", n)
	}
	return strings.Join(parts, ", ")
}

// InferredIndex summarizes one B+Tree index found by scanning page headers,
// used when no SDI metadata is available (pre-8.0 tablespaces).
type InferredIndex struct {
	IndexID   uint64
	LeafPages uint64
	MaxLevel  uint16
}

// InferredSchema is the best-effort result of scanning a tablespace with no
// SDI: the record format in use and every index structure it found.
type InferredSchema struct {
	Source       string
	RecordFormat string // "COMPACT" or "REDUNDANT"
	Indexes      []InferredIndex
}

// InferSchemaFromPages scans every page of a tablespace, collecting index_id
// statistics from INDEX page headers, when SDI metadata isn't present.
func InferSchemaFromPages(h *tablespace.Handle) (InferredSchema, error) {
	type stat struct {
		leafPages uint64
		maxLevel  uint16
	}
	stats := make(map[uint64]*stat)
	isCompact := true

	err := h.ForEachPage(func(_ uint64, data []byte) error {
		fil, err := format.ParseFilHeader(data)
		if err != nil || fil.PageType != format.PageTypeIndex {
			return nil
		}
		idx, err := format.ParsePageHeader(data)
		if err != nil {
			return nil
		}
		if !idx.IsCompact() {
			isCompact = false
		}
		s, ok := stats[idx.IndexID]
		if !ok {
			s = &stat{}
			stats[idx.IndexID] = s
		}
		if idx.IsLeaf() {
			s.leafPages++
		}
		if idx.Level > s.maxLevel {
			s.maxLevel = idx.Level
		}
		return nil
	})
	if err != nil {
		return InferredSchema{}, err
	}

	ids := make([]uint64, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	indexes := make([]InferredIndex, 0, len(ids))
	for _, id := range ids {
		s := stats[id]
		indexes = append(indexes, InferredIndex{IndexID: id, LeafPages: s.leafPages, MaxLevel: s.maxLevel})
	}

	recordFormat := "REDUNDANT"
	if isCompact {
		recordFormat = "COMPACT"
	}

	return InferredSchema{
		Source:       "Inferred (no SDI metadata available)",
		RecordFormat: recordFormat,
		Indexes:      indexes,
	}, nil
}
