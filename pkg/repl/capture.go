package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/block/relay/pkg/dbconn"
	"github.com/block/relay/pkg/metrics"
	"github.com/block/relay/pkg/schema"
)

// Capture is the long-running capture command: it subscribes to the binlog
// for a set of tables and writes one JSON change event per line to stdout.
type Capture struct {
	Host       string   `name:"host" help:"Hostname" optional:""`
	Username   string   `name:"username" help:"User" optional:""`
	Password   string   `name:"password" help:"Password" optional:""`
	Database   string   `name:"database" help:"Database" optional:""`
	Tables     []string `name:"tables" help:"Tables to capture. Defaults to all base tables in the database." optional:""`
	Config     string   `name:"config" help:"Path to a my.cnf-style file with a [client] section" optional:"" type:"path"`
	ServerID   uint32   `name:"server-id" help:"Server ID for the binlog reader. Randomized if not set." optional:""`
	TLSMode    string   `name:"tls-mode" help:"TLS connection mode (case insensitive): DISABLED, PREFERRED (default), REQUIRED" optional:""`
	LogMetrics bool     `name:"log-metrics" help:"Periodically log capture counters" optional:"" default:"false"`
}

func (c *Capture) Run() error {
	logger := slog.Default()
	conf, err := newConfParams(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	c.applyConfDefaults(conf)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbConfig := dbconn.NewDBConfig()
	dbConfig.TLSMode = strings.ToUpper(c.TLSMode)
	db, err := dbconn.New(dbconn.DSN(c.Host, c.Username, c.Password, c.Database, dbConfig), dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.Host, err)
	}
	defer db.Close()

	tables := c.Tables
	if len(tables) == 0 {
		if tables, err = schema.ListTables(ctx, db, c.Database); err != nil {
			return err
		}
	}

	events := make(chan ChangeEvent, 256)
	onDDL := make(chan string, 16)
	clientConfig := NewClientDefaultConfig()
	clientConfig.Logger = logger
	clientConfig.Events = events
	clientConfig.OnDDL = onDDL
	clientConfig.DBConfig = dbConfig
	if c.ServerID != 0 {
		clientConfig.ServerID = c.ServerID
	}
	if c.LogMetrics {
		clientConfig.Sink = metrics.NewLogSink(logger)
	}
	client := NewClient(db, c.Host, c.Username, c.Password, clientConfig)

	for _, tableName := range tables {
		t, err := schema.LoadTable(ctx, db, c.Database, tableName)
		if err != nil {
			return err
		}
		if err := client.AddSubscription(t); err != nil {
			return err
		}
	}
	if err := client.Run(ctx); err != nil {
		return err
	}
	defer client.Close()
	logger.Info("capture started", "tables", len(tables), "position", client.GetCurrentPos())

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := enc.Encode(ev); err != nil {
				return err
			}
		case changed := <-onDDL:
			// The client has already dropped the stale subscription.
			// Reload the definition and resubscribe with fresh converters.
			schemaName, tableName, ok := strings.Cut(changed, ".")
			if !ok || schemaName != c.Database {
				continue
			}
			t, err := schema.LoadTable(ctx, db, schemaName, tableName)
			if err != nil {
				logger.Warn("table dropped or unloadable after DDL, not resubscribing", "table", changed, "error", err)
				continue
			}
			if err := client.AddSubscription(t); err != nil {
				return err
			}
			logger.Info("resubscribed after DDL", "table", changed)
		}
	}
}

// applyConfDefaults fills any flag the user did not set from the config
// file (or its built-in defaults).
func (c *Capture) applyConfDefaults(conf *confParams) {
	if c.Host == "" {
		c.Host = fmt.Sprintf("%s:%d", conf.GetHost(), conf.GetPort())
	}
	if c.Username == "" {
		c.Username = conf.GetUser()
	}
	if c.Password == "" {
		c.Password = conf.GetPassword()
	}
	if c.Database == "" {
		c.Database = conf.GetDatabase()
	}
	if c.TLSMode == "" {
		c.TLSMode = conf.GetTLSMode()
	}
}
