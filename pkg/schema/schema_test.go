package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "int32", KindInt32.String())
	assert.Equal(t, "decimal", KindDecimal.String())
	assert.Equal(t, "timestamp", KindTimestamp.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", Kind(999).String())
}

func TestYearSchema(t *testing.T) {
	fs := YearSchema()
	assert.Equal(t, KindInt32, fs.Kind)
	assert.Equal(t, LogicalNameYear, fs.LogicalName)
	assert.False(t, fs.Optional)
}

func TestYearValue(t *testing.T) {
	assert.Equal(t, int32(2016), Year(2016).Value())
	assert.Equal(t, int32(0), Year(0).Value())
}

func TestColumnTypeNameNilSafe(t *testing.T) {
	var col *Column
	assert.Equal(t, "", col.TypeName())
	assert.Equal(t, "int", (&Column{Type: "int"}).TypeName())
}

func TestTableHelpers(t *testing.T) {
	tbl := &Table{
		Schema: "test",
		Name:   "t1",
		Columns: []Column{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "varchar(255)"},
		},
	}
	assert.Equal(t, "`test`.`t1`", tbl.QuotedName())

	col := tbl.ColumnByName("name")
	assert.NotNil(t, col)
	assert.Equal(t, "varchar(255)", col.Type)

	assert.Nil(t, tbl.ColumnByName("missing"))
}
