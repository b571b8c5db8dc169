package convert

import (
	"time"

	"github.com/block/relay/pkg/schema"
)

// ValueConverters customizes conversion for the MySQL types whose binlog
// representation diverges from their declared type: YEAR, ENUM and SET.
// Every other type delegates to the injected fallback unchanged.
//
// The struct is immutable: the fallback reference is set at construction
// and never modified, so all methods and the converter funcs they return
// are safe for concurrent use.
type ValueConverters struct {
	fallback Fallback
}

// NewValueConverters creates MySQL-specific converters around a fallback.
func NewValueConverters(fallback Fallback) *ValueConverters {
	return &ValueConverters{fallback: fallback}
}

// ResolveSchema returns the output schema for a column. Consulted once per
// column at schema-build time.
func (c *ValueConverters) ResolveSchema(col *schema.Column) schema.FieldSchema {
	switch classifyType(col.TypeName()) {
	case classYear:
		return schema.YearSchema()
	case classEnum:
		return schema.NewFieldSchema(schema.KindInt32)
	case classSet:
		return schema.NewFieldSchema(schema.KindInt64)
	}
	return c.fallback.ResolveSchema(col)
}

// BuildConverter returns the per-row converter for a column. Consulted once
// per column at converter-build time; the returned Func is then invoked once
// per captured row value.
func (c *ValueConverters) BuildConverter(col *schema.Column, field schema.Field) Func {
	switch classifyType(col.TypeName()) {
	case classYear:
		return func(raw any) any {
			return c.convertYear(col, field, raw)
		}
	case classEnum:
		// The binlog deserializer has already reduced ENUM values to
		// their 1-based ordinal. Narrowed to the int32 the resolved
		// schema declares.
		return func(raw any) any {
			return narrowInteger(c.fallback.ConvertInteger(col, field, raw), 32)
		}
	case classSet:
		// SET is conceptually a bitmask and int64 would be the better
		// encoding, but the double conversion here is long-standing and
		// consumers depend on the numeric shape it produces.
		return func(raw any) any {
			return c.fallback.ConvertDouble(col, field, raw)
		}
	}
	return c.fallback.BuildConverter(col, field)
}

// convertYear converts a value from a YEAR column to an int32 year number.
// The upstream libraries do not agree on one representation: the metadata
// loader hands us a schema.Year, some driver paths hand back a date at
// midnight on January 1st, and the binlog deserializer a plain integer.
// The shapes are tried in that order.
func (c *ValueConverters) convertYear(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case schema.Year:
		return v.Value()
	case time.Time:
		return int32(v.Year())
	}
	if n, ok := asInt64(raw); ok {
		return int32(n)
	}
	return c.fallback.HandleUnknownData(col, field, raw)
}
