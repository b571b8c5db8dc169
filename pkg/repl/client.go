// Package repl subscribes to the MySQL binary log and converts captured row
// images into typed change events.
package repl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/block/relay/pkg/convert"
	"github.com/block/relay/pkg/dbconn"
	"github.com/block/relay/pkg/metrics"
	"github.com/block/relay/pkg/schema"
	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMetricsInterval is how often accumulated counters are
	// reported to the metrics sink.
	DefaultMetricsInterval = 30 * time.Second
	// Maximum number of consecutive errors before recreating the streamer
	maxConsecutiveErrors = 5
	// Initial backoff duration for streamer recreation
	initialBackoffDuration = time.Second
	// Maximum backoff duration
	maxBackoffDuration = time.Minute
	// Backoff multiplier
	backoffMultiplier = 2
)

// These are really consts, but set to var for testing.
var (
	// maxRecreateAttempts is the maximum number of streamer recreation attempts before giving up.
	maxRecreateAttempts = 10
)

// subscription is one captured table. The output fields and the per-column
// converter funcs are built once, when the subscription is added; the funcs
// are then applied once per captured row value.
type subscription struct {
	table      *schema.Table
	fields     []schema.Field
	converters []convert.Func
}

type Client struct {
	sync.Mutex

	host     string
	username string
	password string

	cfg      replication.BinlogSyncerConfig
	syncer   *replication.BinlogSyncer
	streamer *replication.BinlogStreamer

	// The DB connection is used for queries like SHOW MASTER STATUS
	db *sql.DB

	// dbConfig supplies the TLS mode; the binlog connection uses the same
	// transport security as the metadata connection.
	dbConfig *dbconn.DBConfig

	converters *convert.ValueConverters

	// subscriptions is a map of tables we are actively watching for
	// changes on. The key is schemaName.tableName.
	subscriptions map[string]*subscription

	// events receives one ChangeEvent per converted row change.
	events chan<- ChangeEvent

	// onDDL is notified with the encoded name of any subscribed table
	// whose definition changed. The subscription is dropped at the same
	// time; the caller is expected to reload and resubscribe.
	onDDL chan string

	serverID   uint32         // server ID for the binlog reader
	currentPos mysql.Position // position of the last processed event

	sink            metrics.Sink
	metricsInterval time.Duration
	rowsConverted   atomic.Int64
	valuesDegraded  atomic.Int64
	eventsEmitted   atomic.Int64

	isMySQL84 bool

	cancelFunc func()
	isClosed   atomic.Bool
	logger     *slog.Logger
	g          *errgroup.Group
}

type ClientConfig struct {
	Logger          *slog.Logger
	Events          chan<- ChangeEvent
	OnDDL           chan string
	ServerID        uint32
	Converters      *convert.ValueConverters
	Sink            metrics.Sink
	MetricsInterval time.Duration
	DBConfig        *dbconn.DBConfig
}

// NewClientDefaultConfig returns a default config for the capture client.
// The Events channel must still be set by the caller.
func NewClientDefaultConfig() *ClientConfig {
	return &ClientConfig{
		Logger:          slog.Default(),
		ServerID:        NewServerID(),
		Converters:      convert.NewValueConverters(convert.NewBaseConverters(nil, slog.Default())),
		Sink:            &metrics.NoopSink{},
		MetricsInterval: DefaultMetricsInterval,
	}
}

// NewClient creates a new Client instance.
func NewClient(db *sql.DB, host, username, password string, config *ClientConfig) *Client {
	if config.Sink == nil {
		config.Sink = &metrics.NoopSink{}
	}
	if config.MetricsInterval == 0 {
		config.MetricsInterval = DefaultMetricsInterval
	}
	return &Client{
		db:              db,
		dbConfig:        config.DBConfig,
		host:            host,
		username:        username,
		password:        password,
		logger:          config.Logger,
		events:          config.Events,
		onDDL:           config.OnDDL,
		serverID:        config.ServerID,
		converters:      config.Converters,
		sink:            config.Sink,
		metricsInterval: config.MetricsInterval,
		subscriptions:   make(map[string]*subscription),
	}
}

// NewServerID randomizes the server ID to avoid conflicts with other binlog readers.
// This uses the same logic as canal:
func NewServerID() uint32 {
	return uint32(rand.New(rand.NewSource(time.Now().Unix())).Intn(1000)) + 1001
}

// AddSubscription starts watching a table. The output schema is resolved
// once per column here, and the converter func is built once per column;
// both dispatch off the same classification of the declared type.
func (c *Client) AddSubscription(t *schema.Table) error {
	c.Lock()
	defer c.Unlock()

	subKey := EncodeSchemaTable(t.Schema, t.Name)
	if _, exists := c.subscriptions[subKey]; exists {
		return fmt.Errorf("subscription already exists for table %s", subKey)
	}
	c.subscriptions[subKey] = newSubscription(t, c.converters)
	return nil
}

func newSubscription(t *schema.Table, conv *convert.ValueConverters) *subscription {
	sub := &subscription{
		table:      t,
		fields:     make([]schema.Field, len(t.Columns)),
		converters: make([]convert.Func, len(t.Columns)),
	}
	for i := range t.Columns {
		col := &t.Columns[i]
		sub.fields[i] = schema.Field{
			Name:   col.Name,
			Schema: conv.ResolveSchema(col),
		}
		sub.converters[i] = conv.BuildConverter(col, sub.fields[i])
	}
	return sub
}

// Fields returns the resolved output fields for a subscribed table, in
// column order. Used by callers that register the event schema downstream.
func (c *Client) Fields(schemaName, tableName string) []schema.Field {
	c.Lock()
	defer c.Unlock()
	sub, ok := c.subscriptions[EncodeSchemaTable(schemaName, tableName)]
	if !ok {
		return nil
	}
	return sub.fields
}

func (c *Client) setCurrentPos(pos mysql.Position) {
	c.Lock()
	defer c.Unlock()
	c.currentPos = pos
}

// GetCurrentPos returns the binlog position of the last processed event.
func (c *Client) GetCurrentPos() mysql.Position {
	c.Lock()
	defer c.Unlock()
	return c.currentPos
}

func (c *Client) getCurrentBinlogPosition(ctx context.Context) (mysql.Position, error) {
	var binlogFile, fake string
	var binlogPos uint32
	var binlogPosStmt = "SHOW MASTER STATUS"
	if c.isMySQL84 {
		binlogPosStmt = "SHOW BINARY LOG STATUS"
	}
	err := c.db.QueryRowContext(ctx, binlogPosStmt).Scan(&binlogFile, &binlogPos, &fake, &fake, &fake)
	if err != nil {
		return mysql.Position{}, err
	}
	return mysql.Position{
		Name: binlogFile,
		Pos:  binlogPos,
	}, nil
}

func isMySQL84(ctx context.Context, db *sql.DB) bool {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return false
	}
	return strings.HasPrefix(version, "8.4.")
}

// Run initializes the binlog syncer and starts the binlog reader.
// It returns an error if the initialization fails.
func (c *Client) Run(ctx context.Context) (err error) {
	c.Lock()
	defer c.Unlock()

	host, portStr, err := net.SplitHostPort(c.host)
	if err != nil {
		return fmt.Errorf("failed to parse host: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("failed to parse port: %w", err)
	}
	c.cfg = replication.BinlogSyncerConfig{
		ServerID: c.serverID,
		Flavor:   "mysql",
		Host:     host,
		Port:     uint16(port),
		User:     c.username,
		Password: c.password,
		Logger:   c.logger,
	}
	if c.dbConfig != nil {
		c.cfg.TLSConfig = dbconn.BinlogTLSConfig(c.dbConfig, host)
	}
	if isMySQL84(ctx, c.db) {
		c.isMySQL84 = true
	}
	c.currentPos, err = c.getCurrentBinlogPosition(ctx)
	if err != nil {
		return errors.New("failed to get binlog position, check binary logging is enabled")
	}
	c.syncer = replication.NewBinlogSyncer(c.cfg)
	c.streamer, err = c.syncer.StartSync(c.currentPos)
	if err != nil {
		return fmt.Errorf("failed to start binlog streamer: %w", err)
	}
	ctx, c.cancelFunc = context.WithCancel(ctx)
	c.g, ctx = errgroup.WithContext(ctx)
	c.g.Go(func() error {
		c.readStream(ctx)
		return nil
	})
	c.g.Go(func() error {
		c.reportMetrics(ctx)
		return nil
	})
	return nil
}

// Close stops the binlog reader and releases the syncer connection.
func (c *Client) Close() {
	if !c.isClosed.CompareAndSwap(false, true) {
		return
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	if c.g != nil {
		_ = c.g.Wait()
	}
	c.Lock()
	defer c.Unlock()
	if c.syncer != nil {
		c.syncer.Close()
	}
}

// recreateStreamer recreates the binlog streamer from the current position
func (c *Client) recreateStreamer() error {
	c.logger.Warn("Recreating binlog streamer from position", "position", c.GetCurrentPos())

	if c.syncer != nil {
		c.syncer.Close()
	}
	c.syncer = replication.NewBinlogSyncer(c.cfg)
	startPos := c.GetCurrentPos()
	var err error
	c.streamer, err = c.syncer.StartSync(startPos)
	if err != nil {
		return fmt.Errorf("failed to start binlog streamer: %w", err)
	}
	c.logger.Info("Successfully recreated binlog streamer from position", "position", startPos)
	return nil
}

// readStream continuously reads the binlog stream. It is called in a
// goroutine by Run and reads until the context is closed, continuing on
// any other errors.
func (c *Client) readStream(ctx context.Context) {
	currentLogName := c.GetCurrentPos().Name

	consecutiveErrors := 0
	recreateAttempts := 0
	backoffDuration := initialBackoffDuration
	lastErrorTime := time.Time{}

	c.logger.Debug("readStream started", "position", c.GetCurrentPos())

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("readStream context cancelled", "error", ctx.Err())
			return
		default:
		}

		var ev *replication.BinlogEvent
		var err error

		// If streamer is nil (such as after a failed recreation), treat it
		// as an error so that recreation triggers again below.
		if c.streamer == nil {
			err = errors.New("binlog streamer is nil, cannot read events")
		} else {
			ev, err = c.streamer.GetEvent(ctx)
		}

		if err != nil {
			// We only stop processing for context cancelled errors.
			if errors.Is(err, context.Canceled) || ctx.Err() != nil || c.isClosed.Load() {
				return
			}

			consecutiveErrors++
			currentTime := time.Now()
			c.logger.Error("error reading binlog stream", "consecutive_errors", consecutiveErrors, "error", err, "current_position", c.GetCurrentPos())

			if consecutiveErrors >= maxConsecutiveErrors {
				recreateAttempts++
				c.logger.Warn("Too many consecutive errors, attempting to recreate streamer", "consecutive_errors", consecutiveErrors, "attempt", recreateAttempts, "max_attempts", maxRecreateAttempts)

				// Reset consecutiveErrors BEFORE attempting recreation, so a
				// failed recreation accumulates fresh errors from the nil
				// streamer check before this block triggers again.
				consecutiveErrors = 0

				if recreateAttempts >= maxRecreateAttempts {
					panic(fmt.Sprintf("failed to recreate binlog streamer after %d attempts, current position: %v, giving up",
						recreateAttempts, c.GetCurrentPos()))
				}

				if currentTime.Sub(lastErrorTime) < backoffDuration {
					c.logger.Info("Backing off before recreating streamer", "duration", backoffDuration)
					backoffTimer := time.NewTimer(backoffDuration)
					select {
					case <-ctx.Done():
						backoffTimer.Stop()
						return
					case <-backoffTimer.C:
					}
				}

				if recreateErr := c.recreateStreamer(); recreateErr != nil {
					c.logger.Error("Failed to recreate streamer", "error", recreateErr)
					c.streamer = nil
					backoffDuration *= backoffMultiplier
					if backoffDuration > maxBackoffDuration {
						backoffDuration = maxBackoffDuration
					}
				} else {
					recreateAttempts = 0
					backoffDuration = initialBackoffDuration
				}
				lastErrorTime = currentTime
			}

			retryTimer := time.NewTimer(100 * time.Millisecond)
			select {
			case <-ctx.Done():
				retryTimer.Stop()
				return
			case <-retryTimer.C:
			}
			continue
		}

		if consecutiveErrors > 0 {
			c.logger.Info("Binlog stream recovered after consecutive errors", "consecutive_errors", consecutiveErrors)
			consecutiveErrors = 0
			backoffDuration = initialBackoffDuration
		}

		if ev == nil {
			continue
		}
		switch event := ev.Event.(type) {
		case *replication.RotateEvent:
			currentLogName = string(event.NextLogName)
			c.logger.Debug("Binlog rotated to", "log_name", currentLogName)
		case *replication.RowsEvent:
			c.processRowsEvent(ctx, ev, event, currentLogName)
		case *replication.QueryEvent:
			// A DDL statement may have changed the definition of a table
			// we cache converters for.
			tables, err := extractTablesFromDDL(string(event.Schema), string(event.Query))
			if err != nil {
				// The parser does not understand all syntax (e.g. CREATE
				// TRIGGER). We can't print the statement because it could
				// contain user-data; file + pos are the breadcrumb instead.
				c.logger.Error("Skipping query that was unable to parse", "file", currentLogName, "pos", ev.Header.LogPos)
				continue
			}
			for _, table := range tables {
				c.processDDLNotification(table)
			}
		default:
			c.logger.Debug("Received unknown event type", "type", fmt.Sprintf("%T", ev.Event))
		}
		c.setCurrentPos(mysql.Position{
			Name: currentLogName,
			Pos:  ev.Header.LogPos,
		})
	}
}

// processDDLNotification drops the stale subscription for a table whose
// definition changed and notifies the onDDL channel. The caller reloads
// the definition and resubscribes.
func (c *Client) processDDLNotification(encodedTable string) {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.subscriptions[encodedTable]; !ok {
		return
	}
	delete(c.subscriptions, encodedTable)
	c.logger.Warn("table definition changed, dropping subscription", "table", encodedTable)
	if c.onDDL == nil {
		return // no one is listening for DDL events
	}
	// Use non-blocking send to prevent deadlock. DDL notifications are
	// best-effort; the dropped subscription is the real safety mechanism.
	select {
	case c.onDDL <- encodedTable:
	default:
	}
}

// processRowsEvent converts the row images of one binlog event and emits
// change events. Conversion never fails a row: unexpected value shapes
// degrade to NULL via the unknown-data handler inside the converter funcs.
func (c *Client) processRowsEvent(ctx context.Context, ev *replication.BinlogEvent, event *replication.RowsEvent, logName string) {
	c.Lock()
	sub, ok := c.subscriptions[EncodeSchemaTable(string(event.Table.Schema), string(event.Table.Table))]
	c.Unlock()
	if !ok {
		return // not subscribed
	}

	var op Op
	switch ev.Header.EventType {
	case replication.WRITE_ROWS_EVENTv0, replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		op = OpInsert
	case replication.UPDATE_ROWS_EVENTv0, replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2, replication.PARTIAL_UPDATE_ROWS_EVENT:
		op = OpUpdate
	case replication.DELETE_ROWS_EVENTv0, replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		op = OpDelete
	default:
		c.logger.Debug("Received unknown rows event type", "type", ev.Header.EventType)
		return
	}

	if op == OpUpdate {
		// Update events interleave before/after row images.
		for i := 0; i < len(event.Rows)-1; i += 2 {
			before, _ := c.convertRow(sub, event.Rows[i])
			values, degraded := c.convertRow(sub, event.Rows[i+1])
			c.emit(ctx, ChangeEvent{
				ID:       newEventID(),
				Schema:   sub.table.Schema,
				Table:    sub.table.Name,
				Op:       op,
				File:     logName,
				Pos:      ev.Header.LogPos,
				Values:   values,
				Before:   before,
				Degraded: degraded,
			})
		}
		return
	}
	for _, row := range event.Rows {
		values, degraded := c.convertRow(sub, row)
		c.emit(ctx, ChangeEvent{
			ID:       newEventID(),
			Schema:   sub.table.Schema,
			Table:    sub.table.Name,
			Op:       op,
			File:     logName,
			Pos:      ev.Header.LogPos,
			Values:   values,
			Degraded: degraded,
		})
	}
}

// convertRow applies the prebuilt converter funcs to one row image.
// It returns the converted values and the count that degraded to NULL.
func (c *Client) convertRow(sub *subscription, row []any) (map[string]any, int) {
	values := make(map[string]any, len(row))
	degraded := 0
	for i, raw := range row {
		if i >= len(sub.converters) {
			// The binlog can carry more values than our cached definition
			// if we raced a DDL. The DDL notification will follow shortly.
			c.logger.Warn("row has more values than known columns", "table", sub.table.QuotedName(), "values", len(row), "columns", len(sub.converters))
			break
		}
		converted := sub.converters[i](raw)
		if converted == nil && raw != nil {
			degraded++
		}
		values[sub.fields[i].Name] = converted
	}
	c.rowsConverted.Add(1)
	c.valuesDegraded.Add(int64(degraded))
	return values, degraded
}

func (c *Client) emit(ctx context.Context, event ChangeEvent) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- event:
		c.eventsEmitted.Add(1)
	case <-ctx.Done():
	}
}

// reportMetrics periodically sends accumulated counters to the sink.
func (c *Client) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(c.metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := metrics.NewCounters(map[string]float64{
				metrics.RowsConvertedMetricName:  float64(c.rowsConverted.Swap(0)),
				metrics.ValuesDegradedMetricName: float64(c.valuesDegraded.Swap(0)),
				metrics.EventsEmittedMetricName:  float64(c.eventsEmitted.Swap(0)),
			})
			sendCtx, cancel := context.WithTimeout(ctx, metrics.SinkTimeout)
			if err := c.sink.Send(sendCtx, m); err != nil {
				c.logger.Error("failed to send metrics", "error", err)
			}
			cancel()
		}
	}
}
