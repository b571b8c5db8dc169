// Package convert maps a column's declared MySQL type to the canonical
// output schema for its values, and to a per-row converter function that
// transforms whatever shape the binlog deserializer hands us into that
// schema. Conversions are exact, total and side-effect free: every declared
// type has defined behavior, unrecognized value shapes degrade through the
// unknown-data handler rather than aborting the stream.
package convert

import "github.com/block/relay/pkg/schema"

// Func converts one raw row value into its canonical output value.
// A Func is pure: it may be called concurrently and repeatedly, and for
// any input (including nil) it returns a converted value or nil.
type Func func(raw any) any

// Fallback is the generic conversion capability that handles every type
// without a MySQL-specific rule, and provides the shared numeric coercion
// and unknown-data routines.
type Fallback interface {
	// ResolveSchema returns the output schema for a column.
	ResolveSchema(col *schema.Column) schema.FieldSchema

	// BuildConverter returns the per-row converter for a column.
	BuildConverter(col *schema.Column, field schema.Field) Func

	// ConvertInteger coerces a raw value to a signed integer.
	ConvertInteger(col *schema.Column, field schema.Field, raw any) any

	// ConvertDouble coerces a raw value to a float64.
	ConvertDouble(col *schema.Column, field schema.Field, raw any) any

	// HandleUnknownData is called when a raw value's shape matches none of
	// the expected representations for its column type. It owns the
	// degradation policy (log-and-null here; callers only invoke it).
	HandleUnknownData(col *schema.Column, field schema.Field, raw any) any
}
