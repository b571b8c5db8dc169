package schema

import (
	"context"
	"database/sql"

	"github.com/pingcap/errors"
)

// LoadTable fetches and parses the canonical definition of one table.
func LoadTable(ctx context.Context, db *sql.DB, schemaName, tableName string) (*Table, error) {
	var fake, createStmt string
	query := "SHOW CREATE TABLE `" + schemaName + "`.`" + tableName + "`"
	if err := db.QueryRowContext(ctx, query).Scan(&fake, &createStmt); err != nil {
		return nil, errors.Annotatef(err, "could not read definition of %s.%s", schemaName, tableName)
	}
	t, err := ParseCreateTable(createStmt)
	if err != nil {
		return nil, errors.Annotatef(err, "could not parse definition of %s.%s", schemaName, tableName)
	}
	t.Schema = schemaName
	t.Name = tableName
	return t, nil
}

// ListTables returns the base table names in a schema, excluding views.
func ListTables(ctx context.Context, db *sql.DB, schemaName string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? AND table_type = 'BASE TABLE' ORDER BY table_name",
		schemaName)
	if err != nil {
		return nil, errors.Annotatef(err, "could not list tables in %s", schemaName)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Trace(err)
		}
		tables = append(tables, name)
	}
	return tables, errors.Trace(rows.Err())
}
