package convert

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/block/relay/pkg/schema"
	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.999999"
	dateTimeLayout = "2006-01-02 15:04:05.999999"
)

// BaseConverters is the generic fallback: it resolves schemas and builds
// converters for every type without a MySQL-specific rule, and provides the
// shared numeric coercion helpers. Both fields are set at construction and
// never mutated.
type BaseConverters struct {
	// loc is applied to TIMESTAMP values, which MySQL stores and
	// replicates in UTC but deserializes without zone information.
	loc    *time.Location
	logger *slog.Logger
}

var _ Fallback = (*BaseConverters)(nil)

// NewBaseConverters creates the generic fallback. A nil location means UTC,
// which is correct for replicated TIMESTAMP values.
func NewBaseConverters(loc *time.Location, logger *slog.Logger) *BaseConverters {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseConverters{loc: loc, logger: logger}
}

// baseTypeName normalizes a declared type to its bare uppercase keyword:
// "int unsigned" and "bigint(20)" both reduce to their base type.
func baseTypeName(typeName string) string {
	upper := strings.ToUpper(typeName)
	if idx := strings.Index(upper, "("); idx != -1 {
		// Keep a trailing UNSIGNED that follows the width, as in
		// "int(10) unsigned".
		rest := upper[idx:]
		upper = upper[:idx]
		if i := strings.Index(rest, ")"); i != -1 {
			upper += rest[i+1:]
		}
	}
	upper = strings.TrimSpace(strings.Replace(upper, "ZEROFILL", "", 1))
	return strings.Join(strings.Fields(upper), " ")
}

// ResolveSchema returns the output schema for any non-specialized column.
func (c *BaseConverters) ResolveSchema(col *schema.Column) schema.FieldSchema {
	fs := schema.NewFieldSchema(c.resolveKind(col))
	if col != nil {
		fs.Optional = col.Nullable
	}
	return fs
}

func (c *BaseConverters) resolveKind(col *schema.Column) schema.Kind {
	typeName := baseTypeName(col.TypeName())
	unsigned := strings.HasSuffix(typeName, " UNSIGNED")
	typeName = strings.TrimSuffix(typeName, " UNSIGNED")

	switch typeName {
	case "TINYINT":
		// tinyint(1) is the conventional boolean in MySQL.
		if strings.Contains(strings.ToUpper(col.TypeName()), "TINYINT(1)") && !unsigned {
			return schema.KindBool
		}
		if unsigned {
			return schema.KindInt16
		}
		return schema.KindInt8
	case "BOOL", "BOOLEAN":
		return schema.KindBool
	case "SMALLINT":
		if unsigned {
			return schema.KindInt32
		}
		return schema.KindInt16
	case "MEDIUMINT":
		return schema.KindInt32
	case "INT", "INTEGER":
		if unsigned {
			return schema.KindInt64
		}
		return schema.KindInt32
	case "BIGINT":
		return schema.KindInt64
	case "FLOAT":
		return schema.KindFloat32
	case "DOUBLE", "DOUBLE PRECISION", "REAL":
		return schema.KindFloat64
	case "DECIMAL", "NUMERIC", "DEC":
		return schema.KindDecimal
	case "BIT":
		return schema.KindInt64
	case "CHAR", "VARCHAR", "TINYTEXT", "TEXT", "MEDIUMTEXT", "LONGTEXT":
		return schema.KindString
	case "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB":
		return schema.KindBytes
	case "DATE":
		return schema.KindDate
	case "TIME":
		return schema.KindTime
	case "DATETIME":
		return schema.KindDateTime
	case "TIMESTAMP":
		return schema.KindTimestamp
	case "JSON":
		return schema.KindJSON
	}
	// Unrecognized types pass through as strings rather than failing the
	// whole table.
	return schema.KindString
}

// BuildConverter returns the per-row converter for any non-specialized
// column. Dispatch is on the resolved schema kind, so schema resolution and
// value conversion cannot disagree.
func (c *BaseConverters) BuildConverter(col *schema.Column, field schema.Field) Func {
	switch c.resolveKind(col) {
	case schema.KindBool:
		return func(raw any) any { return c.convertBool(col, field, raw) }
	case schema.KindInt8:
		return func(raw any) any { return narrowInteger(c.ConvertInteger(col, field, raw), 8) }
	case schema.KindInt16:
		return func(raw any) any { return narrowInteger(c.ConvertInteger(col, field, raw), 16) }
	case schema.KindInt32:
		return func(raw any) any { return narrowInteger(c.ConvertInteger(col, field, raw), 32) }
	case schema.KindInt64:
		return func(raw any) any { return c.ConvertInteger(col, field, raw) }
	case schema.KindFloat32, schema.KindFloat64:
		return func(raw any) any { return c.ConvertDouble(col, field, raw) }
	case schema.KindDecimal:
		return func(raw any) any { return c.convertDecimal(col, field, raw) }
	case schema.KindBytes:
		return func(raw any) any { return c.convertBytes(col, field, raw) }
	case schema.KindDate:
		return func(raw any) any { return c.convertTemporal(col, field, raw, dateLayout) }
	case schema.KindTime:
		return func(raw any) any { return c.convertTime(col, field, raw) }
	case schema.KindDateTime:
		return func(raw any) any { return c.convertTemporal(col, field, raw, dateTimeLayout) }
	case schema.KindTimestamp:
		return func(raw any) any { return c.convertTimestamp(col, field, raw) }
	}
	return func(raw any) any { return c.convertString(col, field, raw) }
}

// ConvertInteger coerces a raw value to int64. The deserializer may supply
// any integer width, a float, or digits as a string or byte slice.
func (c *BaseConverters) ConvertInteger(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	if n, ok := asInt64(raw); ok {
		return n
	}
	if s, ok := stringValue(raw); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	}
	return c.HandleUnknownData(col, field, raw)
}

// ConvertDouble coerces a raw value to float64.
func (c *BaseConverters) ConvertDouble(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	if f, ok := asFloat64(raw); ok {
		return f
	}
	if s, ok := stringValue(raw); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return c.HandleUnknownData(col, field, raw)
}

// HandleUnknownData is the degradation path for value shapes that match
// nothing we expect: log once per occurrence and substitute NULL, favoring
// availability of the stream over per-value strictness.
func (c *BaseConverters) HandleUnknownData(col *schema.Column, field schema.Field, raw any) any {
	c.logger.Warn("unexpected value shape; substituting NULL",
		"column_type", col.TypeName(),
		"field", field.Name,
		"go_type", fmt.Sprintf("%T", raw))
	return nil
}

func (c *BaseConverters) convertBool(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		return v
	}
	if n, ok := asInt64(raw); ok {
		return n != 0
	}
	return c.HandleUnknownData(col, field, raw)
}

func (c *BaseConverters) convertDecimal(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	}
	if s, ok := stringValue(raw); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d
		}
		return c.HandleUnknownData(col, field, raw)
	}
	if n, ok := asInt64(raw); ok {
		return decimal.NewFromInt(n)
	}
	return c.HandleUnknownData(col, field, raw)
}

func (c *BaseConverters) convertString(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	if s, ok := stringValue(raw); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

func (c *BaseConverters) convertBytes(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return c.HandleUnknownData(col, field, raw)
}

// convertTemporal handles DATE and DATETIME, which are zoneless in MySQL.
// They are parsed into time.Time in UTC so the zone carries no meaning.
func (c *BaseConverters) convertTemporal(col *schema.Column, field schema.Field, raw any, layout string) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v
	}
	if s, ok := stringValue(raw); ok {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return c.HandleUnknownData(col, field, raw)
}

// convertTime handles TIME, which is a duration-like value of up to
// 838 hours, not a clock time. It is kept as its string form.
func (c *BaseConverters) convertTime(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	if s, ok := stringValue(raw); ok {
		return s
	}
	if t, ok := raw.(time.Time); ok {
		return t.Format(timeLayout)
	}
	return c.HandleUnknownData(col, field, raw)
}

// convertTimestamp handles TIMESTAMP, which MySQL stores and replicates in
// UTC. A value that arrives without zone information is interpreted in the
// configured default location.
func (c *BaseConverters) convertTimestamp(col *schema.Column, field schema.Field, raw any) any {
	if raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v.In(c.loc)
	}
	if s, ok := stringValue(raw); ok {
		if t, err := time.ParseInLocation(dateTimeLayout, s, c.loc); err == nil {
			return t
		}
	}
	return c.HandleUnknownData(col, field, raw)
}

// stringValue extracts a string from the two text shapes the driver and
// binlog libraries use interchangeably.
func stringValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

// narrowInteger narrows an int64 produced by ConvertInteger to the target
// bit width by truncation. Conversion failures have already degraded to nil.
func narrowInteger(v any, bits int) any {
	n, ok := v.(int64)
	if !ok {
		return v
	}
	switch bits {
	case 8:
		return int8(n)
	case 16:
		return int16(n)
	case 32:
		return int32(n)
	}
	return n
}
