// Package dbconn contains database connection helpers for the metadata
// connection. The binlog connection itself is owned by pkg/repl.
package dbconn

import (
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
)

const maxConnLifetime = time.Minute * 3

type DBConfig struct {
	MaxOpenConnections int
	InterpolateParams  bool
	// TLSMode is DISABLED, PREFERRED or REQUIRED. PREFERRED attempts TLS
	// but falls back to plaintext, matching the MySQL client default.
	TLSMode string
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		MaxOpenConnections: 4, // metadata queries only, no copy workload
		InterpolateParams:  false,
		TLSMode:            "PREFERRED",
	}
}

// DSN builds a go-sql-driver DSN from connection parameters. parseTime is
// always enabled so temporal columns scan as time.Time, the shape the
// value converters prefer.
func DSN(host, username, password, database string, config *DBConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&collation=utf8mb4_general_ci", username, password, host, database)
	dsn += fmt.Sprintf("&interpolateParams=%t", config.InterpolateParams)
	switch config.TLSMode {
	case "DISABLED":
		// no tls parameter
	case "REQUIRED":
		dsn += "&tls=" + url.QueryEscape("true")
	default: // PREFERRED
		dsn += "&tls=" + url.QueryEscape("preferred")
	}
	return dsn
}

// BinlogTLSConfig returns the TLS config for the binlog syncer, so the
// replication stream gets the same transport security as the metadata
// connection. DISABLED returns nil; the other modes encrypt without
// certificate verification, matching the driver's tls=preferred/true.
func BinlogTLSConfig(config *DBConfig, host string) *tls.Config {
	if config == nil || config.TLSMode == "DISABLED" {
		return nil
	}
	return &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	}
}

// New is similar to sql.Open except it applies our connection defaults
// and verifies the server is reachable before returning.
func New(inputDSN string, config *DBConfig) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(inputDSN); err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	db, err := sql.Open("mysql", inputDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	return db, nil
}
