package ftsearch

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// clientMetrics holds prometheus metrics registered for the client.
type clientMetrics struct {
	commands  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	batchDocs *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftsearch",
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Total search module commands by command and status.",
		}, []string{"command", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ftsearch",
			Subsystem: "client",
			Name:      "command_duration_seconds",
			Help:      "Round-trip duration of search module commands in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		batchDocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ftsearch",
			Subsystem: "client",
			Name:      "batch_documents_total",
			Help:      "Documents sent through the batch indexer by status.",
		}, []string{"status"}),
	}
	if err := registerOrReuse(reg, &m.commands); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.batchDocs); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("ftsearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("ftsearch: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for commands.
type observer struct {
	logger  *zap.Logger
	metrics *clientMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(index, command string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.commands.WithLabelValues(command, status).Inc()
		o.metrics.duration.WithLabelValues(command).Observe(dur.Seconds())
	}

	if err != nil {
		o.logger.Warn("command failed",
			zap.String("index", index),
			zap.String("command", command),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("command completed",
		zap.String("index", index),
		zap.String("command", command),
		zap.Duration("duration", dur),
	)
}

func (o *observer) batchDocuments(ok, failed int) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.batchDocs.WithLabelValues("ok").Add(float64(ok))
	o.metrics.batchDocs.WithLabelValues("error").Add(float64(failed))
}
