package repl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfParamsDefaults(t *testing.T) {
	// A nil receiver and an empty struct both fall back to defaults.
	var nilConf *confParams
	assert.Equal(t, defaultHost, nilConf.GetHost())
	assert.Equal(t, defaultPort, nilConf.GetPort())
	assert.Equal(t, defaultUsername, nilConf.GetUser())
	assert.Equal(t, defaultPassword, nilConf.GetPassword())
	assert.Equal(t, defaultDatabase, nilConf.GetDatabase())
	assert.Equal(t, defaultTLSMode, nilConf.GetTLSMode())

	conf, err := newConfParams("")
	require.NoError(t, err)
	assert.Equal(t, defaultHost, conf.GetHost())
	assert.Equal(t, defaultUsername, conf.GetUser())
}

func TestConfParamsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my.cnf")
	require.NoError(t, os.WriteFile(path, []byte(`[client]
host = db.example.com
port = 3307
user = capture
password = s3cret
database = orders
tls-mode = REQUIRED
`), 0o600))

	conf, err := newConfParams(path)
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", conf.GetHost())
	assert.Equal(t, 3307, conf.GetPort())
	assert.Equal(t, "capture", conf.GetUser())
	assert.Equal(t, "s3cret", conf.GetPassword())
	assert.Equal(t, "orders", conf.GetDatabase())
	assert.Equal(t, "REQUIRED", conf.GetTLSMode())
}

func TestConfParamsEmptyPassword(t *testing.T) {
	// An explicitly empty password is distinct from an absent one.
	path := filepath.Join(t.TempDir(), "my.cnf")
	require.NoError(t, os.WriteFile(path, []byte(`[client]
user = capture
password =
`), 0o600))

	conf, err := newConfParams(path)
	require.NoError(t, err)
	assert.NotNil(t, conf.password)
	assert.Equal(t, "", conf.GetPassword())
}

func TestConfParamsMissingFile(t *testing.T) {
	_, err := newConfParams("/nonexistent/my.cnf")
	assert.Error(t, err)
}

func TestConfParamsNoClientSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my.cnf")
	require.NoError(t, os.WriteFile(path, []byte("[mysqld]\nport = 3307\n"), 0o600))

	conf, err := newConfParams(path)
	require.NoError(t, err)
	assert.Equal(t, defaultPort, conf.GetPort())
}
