package dbconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	config := NewDBConfig()
	dsn := DSN("localhost:3306", "root", "secret", "test", config)
	assert.Equal(t, "root:secret@tcp(localhost:3306)/test?parseTime=true&collation=utf8mb4_general_ci&interpolateParams=false&tls=preferred", dsn)

	config.TLSMode = "REQUIRED"
	dsn = DSN("localhost:3306", "root", "secret", "test", config)
	assert.Contains(t, dsn, "&tls=true")

	config.TLSMode = "DISABLED"
	dsn = DSN("localhost:3306", "root", "secret", "test", config)
	assert.NotContains(t, dsn, "tls=")

	config.InterpolateParams = true
	dsn = DSN("localhost:3306", "root", "", "test", config)
	assert.Contains(t, dsn, "interpolateParams=true")
}

func TestBinlogTLSConfig(t *testing.T) {
	config := NewDBConfig()

	// PREFERRED and REQUIRED both encrypt the replication stream.
	tlsConfig := BinlogTLSConfig(config, "db.example.com")
	assert.NotNil(t, tlsConfig)
	assert.Equal(t, "db.example.com", tlsConfig.ServerName)

	config.TLSMode = "REQUIRED"
	assert.NotNil(t, BinlogTLSConfig(config, "db.example.com"))

	config.TLSMode = "DISABLED"
	assert.Nil(t, BinlogTLSConfig(config, "db.example.com"))

	assert.Nil(t, BinlogTLSConfig(nil, "db.example.com"))
}

func TestNewRejectsInvalidDSN(t *testing.T) {
	_, err := New("not a dsn", NewDBConfig())
	assert.ErrorContains(t, err, "invalid DSN")
}
