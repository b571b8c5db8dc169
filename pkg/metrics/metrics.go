// Package metrics defines the sink that capture statistics are reported to.
// A NoopSink and a log-based sink are provided; anything else (statsd,
// prometheus, ...) is implemented by the embedding application.
package metrics

import (
	"context"
	"log/slog"
	"time"
)

// Metric types.
const (
	UNKNOWN byte = iota
	COUNTER
	GAUGE
)

const (
	// SinkTimeout bounds a single Send call so a slow sink can not stall
	// the binlog reader.
	SinkTimeout = 1 * time.Second

	RowsConvertedMetricName  = "rows_converted"  // row images converted to typed values
	ValuesDegradedMetricName = "values_degraded" // values routed through the unknown-data path
	EventsEmittedMetricName  = "events_emitted"  // change events delivered to the consumer
)

// Metrics are a collection of MetricValues reported in one Send.
type Metrics struct {
	Values []MetricValue
}

type MetricValue struct {
	Name  string
	Value float64
	Type  byte // COUNTER, GAUGE
}

// NewCounters packages counter values for a Send call. Order of the names
// is not significant.
func NewCounters(values map[string]float64) *Metrics {
	m := &Metrics{}
	for name, value := range values {
		m.Values = append(m.Values, MetricValue{Name: name, Value: value, Type: COUNTER})
	}
	return m
}

// Sink sends metrics to an external destination.
type Sink interface {
	// Send sends metrics to the sink. It must respect the context timeout, if any.
	Send(ctx context.Context, metrics *Metrics) error
}

// NoopSink is the default sink which does nothing.
type NoopSink struct{}

var _ Sink = &NoopSink{}

func (s *NoopSink) Send(_ context.Context, _ *Metrics) error {
	return nil
}

// logSink reports metrics to the logger. Useful for debugging captures.
type logSink struct {
	logger *slog.Logger
}

var _ Sink = &logSink{}

func NewLogSink(logger *slog.Logger) *logSink {
	return &logSink{logger: logger}
}

func (l *logSink) Send(_ context.Context, m *Metrics) error {
	for _, v := range m.Values {
		switch v.Type {
		case COUNTER:
			l.logger.Info("metric", "name", v.Name, "type", "counter", "value", v.Value)
		case GAUGE:
			l.logger.Info("metric", "name", v.Name, "type", "gauge", "value", v.Value)
		default:
			l.logger.Error("Received invalid metric type", "type", v.Type, "name", v.Name, "value", v.Value)
		}
	}
	return nil
}
