// Package metrics exposes Prometheus metrics gathered at scrape time.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prankline/prankline/internal/database/models"
)

// SessionCounter returns session counts grouped by state.
type SessionCounter interface {
	CountByState(ctx context.Context) (map[models.SessionState]int64, error)
}

// WorkerCounter exposes the number of live timeout workers.
type WorkerCounter interface {
	ActiveCount() int
}

// Collector is a prometheus.Collector that gathers Prankline metrics at scrape time.
type Collector struct {
	sessions  SessionCounter
	workers   WorkerCounter
	startTime time.Time

	// Metric descriptors.
	sessionsDesc *prometheus.Desc
	workersDesc  *prometheus.Desc
	uptimeDesc   *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if unavailable.
func NewCollector(sessions SessionCounter, workers WorkerCounter, startTime time.Time) *Collector {
	return &Collector{
		sessions:  sessions,
		workers:   workers,
		startTime: startTime,

		sessionsDesc: prometheus.NewDesc(
			"prankline_sessions",
			"Number of prank sessions per state",
			[]string{"state"}, nil,
		),
		workersDesc: prometheus.NewDesc(
			"prankline_timeout_workers_active",
			"Number of running call-duration timeout workers",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"prankline_uptime_seconds",
			"Seconds since the Prankline process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsDesc
	ch <- c.workersDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Session counts per state. Every known state is emitted so the series
	// exist even at zero.
	if c.sessions != nil {
		counts, err := c.sessions.CountByState(ctx)
		if err != nil {
			slog.Error("metrics: failed to count sessions by state", "error", err)
		} else {
			for _, state := range models.AllSessionStates() {
				ch <- prometheus.MustNewConstMetric(
					c.sessionsDesc, prometheus.GaugeValue,
					float64(counts[state]), string(state),
				)
			}
		}
	}

	// Live timeout workers gauge.
	if c.workers != nil {
		ch <- prometheus.MustNewConstMetric(
			c.workersDesc, prometheus.GaugeValue,
			float64(c.workers.ActiveCount()),
		)
	}

	// Uptime.
	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
