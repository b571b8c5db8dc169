package repl

import (
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// extractTablesFromDDL parses a query event's statement and returns the
// encoded schema.table names it redefines. Statements that are not DDL
// (BEGIN, GRANT, ...) return no tables. A table name without an explicit
// schema is qualified with the event's default schema.
func extractTablesFromDDL(defaultSchema, statement string) ([]string, error) {
	p := parser.New()
	stmts, _, err := p.Parse(statement, "", "")
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, stmt := range stmts {
		for _, tn := range ddlTableNames(stmt) {
			schemaName := tn.Schema.String()
			if schemaName == "" {
				schemaName = defaultSchema
			}
			tables = append(tables, EncodeSchemaTable(schemaName, tn.Name.String()))
		}
	}
	return tables, nil
}

func ddlTableNames(stmt ast.StmtNode) []*ast.TableName {
	switch s := stmt.(type) {
	case *ast.AlterTableStmt:
		return []*ast.TableName{s.Table}
	case *ast.CreateTableStmt:
		return []*ast.TableName{s.Table}
	case *ast.TruncateTableStmt:
		return []*ast.TableName{s.Table}
	case *ast.DropTableStmt:
		return s.Tables
	case *ast.RenameTableStmt:
		// Both old and new names invalidate cached definitions.
		var names []*ast.TableName
		for _, tt := range s.TableToTables {
			names = append(names, tt.OldTable, tt.NewTable)
		}
		return names
	}
	return nil
}
