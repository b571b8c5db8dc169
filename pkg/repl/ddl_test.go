package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTablesFromDDL(t *testing.T) {
	tables, err := extractTablesFromDDL("test", "ALTER TABLE t1 ADD COLUMN c int")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.t1"}, tables)

	// An explicit schema wins over the event's default schema.
	tables, err = extractTablesFromDDL("test", "ALTER TABLE other.t1 DROP COLUMN c")
	require.NoError(t, err)
	assert.Equal(t, []string{"other.t1"}, tables)

	tables, err = extractTablesFromDDL("test", "CREATE TABLE t2 (id int)")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.t2"}, tables)

	tables, err = extractTablesFromDDL("test", "TRUNCATE TABLE t3")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.t3"}, tables)

	tables, err = extractTablesFromDDL("test", "DROP TABLE t4, other.t5")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.t4", "other.t5"}, tables)

	// Renames invalidate both the old and the new name.
	tables, err = extractTablesFromDDL("test", "RENAME TABLE t6 TO t7")
	require.NoError(t, err)
	assert.Equal(t, []string{"test.t6", "test.t7"}, tables)

	// Non-DDL statements are not an error, they just touch no tables.
	tables, err = extractTablesFromDDL("test", "BEGIN")
	require.NoError(t, err)
	assert.Empty(t, tables)

	tables, err = extractTablesFromDDL("test", "INSERT INTO t1 VALUES (1)")
	require.NoError(t, err)
	assert.Empty(t, tables)

	// Statements the parser does not understand surface the error so the
	// caller can log and skip.
	_, err = extractTablesFromDDL("test", "CREATE DEFINER=`root`@`%` TRIGGER bad BEFORE")
	assert.Error(t, err)
}
