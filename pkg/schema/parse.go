package schema

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// ParseCreateTable parses a CREATE TABLE statement into a Table.
// It is designed for the output of SHOW CREATE TABLE, which we consider
// the canonical form. Only column definitions are extracted; indexes,
// constraints and table options are not needed for value conversion.
func ParseCreateTable(sql string) (*Table, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse SQL: %w", err)
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(stmts))
	}
	createStmt, ok := stmts[0].(*ast.CreateTableStmt)
	if !ok {
		return nil, fmt.Errorf("expected CREATE TABLE statement, got %T", stmts[0])
	}

	t := &Table{
		Name:    createStmt.Table.Name.String(),
		Columns: make([]Column, 0, len(createStmt.Cols)),
	}
	if createStmt.Table.Schema.String() != "" {
		t.Schema = createStmt.Table.Schema.String()
	}
	for _, col := range createStmt.Cols {
		t.Columns = append(t.Columns, parseColumn(col))
	}
	return t, nil
}

func parseColumn(col *ast.ColumnDef) Column {
	column := Column{
		Name:     col.Name.Name.String(),
		Type:     col.Tp.String(),
		Nullable: true,
	}

	if mysql.HasUnsignedFlag(col.Tp.GetFlag()) {
		column.Unsigned = true
	}

	// ENUM/SET permitted values. The ordinal of an ENUM value is its
	// 1-based position in this list; SET values map to bit positions.
	switch col.Tp.GetType() {
	case mysql.TypeEnum:
		column.EnumValues = col.Tp.GetElems()
	case mysql.TypeSet:
		column.SetValues = col.Tp.GetElems()
	case mysql.TypeNewDecimal:
		column.Precision, column.Scale = extractPrecisionScale(col.Tp.String())
	}

	for _, opt := range col.Options {
		switch opt.Tp { //nolint:exhaustive
		case ast.ColumnOptionNotNull:
			column.Nullable = false
		case ast.ColumnOptionNull:
			column.Nullable = true
		case ast.ColumnOptionPrimaryKey:
			column.Nullable = false // PRIMARY KEY implies NOT NULL
		}
	}
	return column
}

// extractPrecisionScale extracts precision and scale from a type string
// like "decimal(10,2)".
func extractPrecisionScale(typeStr string) (int, int) {
	start := strings.Index(typeStr, "(")
	end := strings.Index(typeStr, ")")
	if start == -1 || end == -1 || start >= end {
		return 0, 0
	}
	paramStr := typeStr[start+1 : end]
	precisionStr, scaleStr, found := strings.Cut(paramStr, ",")
	var precision, scale int
	if n, err := fmt.Sscanf(strings.TrimSpace(precisionStr), "%d", &precision); n != 1 || err != nil {
		return 0, 0
	}
	if found {
		if n, err := fmt.Sscanf(strings.TrimSpace(scaleStr), "%d", &scale); n != 1 || err != nil {
			return precision, 0
		}
	}
	return precision, scale
}
