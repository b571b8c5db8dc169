// Package schema contains column and field metadata for captured tables.
// Columns describe the MySQL side (the declared type as it appears in
// SHOW CREATE TABLE), fields describe the converted output side.
package schema

// Kind is the physical shape of a converted output value.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindString
	KindBytes
	KindDate
	KindTime
	KindDateTime
	KindTimestamp
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindTimestamp:
		return "timestamp"
	case KindJSON:
		return "json"
	}
	return "unknown"
}

// LogicalNameYear marks an int32 field that carries a calendar year number
// rather than a plain integer. Downstream consumers use it to keep the
// semantic meaning of YEAR columns.
const LogicalNameYear = "year"

// FieldSchema is the output-side shape of a converted column.
type FieldSchema struct {
	Kind        Kind
	LogicalName string // optional semantic refinement of Kind
	Optional    bool
}

// NewFieldSchema returns a plain schema of the given kind.
func NewFieldSchema(kind Kind) FieldSchema {
	return FieldSchema{Kind: kind}
}

// YearSchema returns the dedicated calendar-year logical schema.
// The physical shape is int32.
func YearSchema() FieldSchema {
	return FieldSchema{Kind: KindInt32, LogicalName: LogicalNameYear}
}

// Field is the identity of one output field. It is passed through to
// converters so that conversion problems can be reported against a name.
type Field struct {
	Name   string
	Schema FieldSchema
}

// Year is a carrier for a calendar-year value extracted from a YEAR column.
// The binlog deserializer and the metadata loader do not agree on a single
// representation for YEAR, so converters accept this alongside the plain
// numeric shapes.
type Year int

// Value returns the year number.
func (y Year) Value() int32 {
	return int32(y)
}

// Column describes one table column as declared in MySQL.
type Column struct {
	Name       string
	Type       string // full declared type, e.g. "enum('a','b')" or "int unsigned"
	Nullable   bool
	Unsigned   bool
	EnumValues []string // permitted values for ENUM columns
	SetValues  []string // permitted values for SET columns
	Precision  int      // for DECIMAL
	Scale      int      // for DECIMAL
}

// TypeName returns the declared type. It is safe on a nil column, which
// can happen when the binlog carries more values than the cached table
// definition knows about.
func (c *Column) TypeName() string {
	if c == nil {
		return ""
	}
	return c.Type
}

// Table is the full captured definition of one table.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

// QuotedName returns the backtick-quoted schema.table name.
func (t *Table) QuotedName() string {
	return "`" + t.Schema + "`.`" + t.Name + "`"
}

// ColumnByName returns the named column, or nil.
func (t *Table) ColumnByName(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
