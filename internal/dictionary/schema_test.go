package dictionary

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idbkit/idbkit/internal/format"
	"github.com/idbkit/idbkit/internal/tablespace"
	"github.com/idbkit/idbkit/internal/testpage"
)

func TestCollationAndCharsetMapping(t *testing.T) {
	name, ok := CollationName(255)
	assert.True(t, ok)
	assert.Equal(t, "utf8mb4_0900_ai_ci", name)

	_, ok = CollationName(99999)
	assert.False(t, ok)

	cs, ok := CharsetFromCollation(8)
	assert.True(t, ok)
	assert.Equal(t, "latin1", cs)
}

func TestRowFormatName(t *testing.T) {
	assert.Equal(t, "FIXED", RowFormatName(1))
	assert.Equal(t, "DYNAMIC", RowFormatName(2))
	assert.Equal(t, "UNKNOWN", RowFormatName(99))
}

func TestFKRuleName(t *testing.T) {
	assert.Equal(t, "NO ACTION", FKRuleName(0))
	assert.Equal(t, "CASCADE", FKRuleName(2))
}

func TestDdTypeToSQLInt(t *testing.T) {
	assert.Equal(t, "int", ddTypeToSQL(ddColumn{DdType: 4, NumericPrecision: 10}))
}

func TestDdTypeToSQLVarchar(t *testing.T) {
	assert.Equal(t, "varchar(100)", ddTypeToSQL(ddColumn{DdType: 16, CharLength: 400, CollationID: 255}))
}

func TestDdTypeToSQLDecimal(t *testing.T) {
	assert.Equal(t, "decimal(10,2)", ddTypeToSQL(ddColumn{DdType: 6, NumericPrecision: 10, NumericScale: 2}))
}

func TestDdTypeToSQLText(t *testing.T) {
	assert.Equal(t, "text", ddTypeToSQL(ddColumn{DdType: 27, CharLength: 65535}))
	assert.Equal(t, "mediumtext", ddTypeToSQL(ddColumn{DdType: 27, CharLength: 16777215}))
}

func TestFormatMySQLVersion(t *testing.T) {
	assert.Equal(t, "9.0.1", formatMySQLVersion(90001))
	assert.Equal(t, "8.0.40", formatMySQLVersion(80040))
	assert.Equal(t, "unknown", formatMySQLVersion(0))
}

func TestExtractSchemaFromSDIMinimal(t *testing.T) {
	json := `{
		"mysqld_version_id": 90001,
		"dd_object_type": "Table",
		"dd_object": {
			"name": "test_table",
			"schema_ref": "mydb",
			"engine": "InnoDB",
			"collation_id": 255,
			"row_format": 2,
			"columns": [
				{
					"name": "id",
					"type": 4,
					"column_type_utf8": "int",
					"ordinal_position": 1,
					"hidden": 1,
					"is_nullable": false,
					"is_auto_increment": true
				},
				{
					"name": "DB_TRX_ID",
					"type": 10,
					"ordinal_position": 2,
					"hidden": 2
				},
				{
					"name": "DB_ROLL_PTR",
					"type": 9,
					"ordinal_position": 3,
					"hidden": 2
				}
			],
			"indexes": [
				{
					"name": "PRIMARY",
					"type": 1,
					"hidden": false,
					"is_visible": true,
					"elements": [
						{ "column_opx": 0, "hidden": false, "length": 4, "order": 2 }
					]
				}
			],
			"foreign_keys": []
		}
	}`

	schema, err := ExtractSchemaFromSDI(json)
	require.NoError(t, err)
	assert.Equal(t, "test_table", schema.TableName)
	assert.Equal(t, "mydb", schema.SchemaName)
	assert.Len(t, schema.Columns, 1) // DB_TRX_ID / DB_ROLL_PTR are SE-hidden
	assert.Contains(t, schema.DDL, "CREATE TABLE")
	assert.Contains(t, schema.DDL, "PRIMARY KEY (`id`)")
	assert.Contains(t, schema.DDL, "AUTO_INCREMENT")
	assert.Equal(t, "utf8mb4", schema.Charset)
	assert.Equal(t, "9.0.1", schema.MySQLVersion)
}

func TestInferSchemaFromPages(t *testing.T) {
	dir := t.TempDir()
	pageSize := uint32(16384)

	p0 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 0, PageType: format.PageTypeFspHdr})
	p1 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 1, PageType: format.PageTypeIndex})
	testpage.PutIndexHeader(p1, testpage.IndexPageFields{Level: 0, IndexID: 10, NHeap: format.PageNHeapCompactFlag})
	p2 := testpage.NewPage(pageSize, testpage.FilHeaderFields{PageNumber: 2, PageType: format.PageTypeIndex})
	testpage.PutIndexHeader(p2, testpage.IndexPageFields{Level: 1, IndexID: 10, NHeap: format.PageNHeapCompactFlag})

	path := dir + "/infer.ibd"
	all := append(append(append([]byte{}, p0...), p1...), p2...)
	require.NoError(t, os.WriteFile(path, all, 0o644))

	h, err := tablespace.Open(path, tablespace.Options{})
	require.NoError(t, err)
	defer h.Close()

	inferred, err := InferSchemaFromPages(h)
	require.NoError(t, err)
	assert.Equal(t, "COMPACT", inferred.RecordFormat)
	require.Len(t, inferred.Indexes, 1)
	assert.Equal(t, uint64(10), inferred.Indexes[0].IndexID)
	assert.Equal(t, uint64(1), inferred.Indexes[0].LeafPages)
	assert.Equal(t, uint16(1), inferred.Indexes[0].MaxLevel)
}
