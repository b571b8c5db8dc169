package repl

import (
	"github.com/google/uuid"
)

// Op is the row operation a change event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is one converted row change. Values hold the canonical typed
// values keyed by column name; for updates Before additionally holds the
// previous row image.
type ChangeEvent struct {
	ID       string         `json:"id"`
	Schema   string         `json:"schema"`
	Table    string         `json:"table"`
	Op       Op             `json:"op"`
	File     string         `json:"file"` // binlog file the change was read from
	Pos      uint32         `json:"pos"`  // end position of the event within the file
	Values   map[string]any `json:"values"`
	Before   map[string]any `json:"before,omitempty"`
	Degraded int            `json:"degraded,omitempty"` // values substituted with NULL by the unknown-data path
}

// newEventID returns a unique id for a change event.
func newEventID() string {
	return uuid.New().String()
}

// EncodeSchemaTable encodes a schema and table name into a single
// subscription map key.
func EncodeSchemaTable(schemaName, tableName string) string {
	return schemaName + "." + tableName
}
