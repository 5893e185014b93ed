package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/hyperfeed/internal/connection"
)

// Source is the slice of the connection manager the collector reads.
type Source interface {
	State() connection.State
	MetricsSnapshot() connection.MetricsSnapshot
}

// Collector implements prometheus.Collector over a feed connection. Values
// are read fresh on every scrape, so nothing here needs its own bookkeeping.
type Collector struct {
	source Source

	up                  *prometheus.Desc
	uptimeSeconds       *prometheus.Desc
	messagesTotal       *prometheus.Desc
	reconnectsTotal     *prometheus.Desc
	disconnectsTotal    *prometheus.Desc
	consecutiveFailures *prometheus.Desc
	lastMessageAge      *prometheus.Desc
}

// NewCollector creates a Collector reading from the given source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		up: prometheus.NewDesc(
			"hyperfeed_connection_up",
			"Whether the feed connection is established (1) or not (0), labelled by state.",
			[]string{"state"}, nil,
		),
		uptimeSeconds: prometheus.NewDesc(
			"hyperfeed_connection_uptime_seconds",
			"Seconds since the current connection was established.",
			nil, nil,
		),
		messagesTotal: prometheus.NewDesc(
			"hyperfeed_messages_received_total",
			"Total data frames received and dispatched.",
			nil, nil,
		),
		reconnectsTotal: prometheus.NewDesc(
			"hyperfeed_reconnects_total",
			"Total reconnection attempts.",
			nil, nil,
		),
		disconnectsTotal: prometheus.NewDesc(
			"hyperfeed_disconnects_total",
			"Total times an established connection was lost or closed.",
			nil, nil,
		),
		consecutiveFailures: prometheus.NewDesc(
			"hyperfeed_consecutive_failures",
			"Connection attempts failed in a row since the last success.",
			nil, nil,
		),
		lastMessageAge: prometheus.NewDesc(
			"hyperfeed_last_message_age_seconds",
			"Seconds since any frame arrived. Absent until the first frame.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.uptimeSeconds
	ch <- c.messagesTotal
	ch <- c.reconnectsTotal
	ch <- c.disconnectsTotal
	ch <- c.consecutiveFailures
	ch <- c.lastMessageAge
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	state := c.source.State()
	snap := c.source.MetricsSnapshot()

	up := 0.0
	if state == connection.StateConnected {
		up = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up, state.String())
	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue, snap.Uptime.Seconds())
	ch <- prometheus.MustNewConstMetric(c.messagesTotal, prometheus.CounterValue, float64(snap.MessagesReceived))
	ch <- prometheus.MustNewConstMetric(c.reconnectsTotal, prometheus.CounterValue, float64(snap.ReconnectCount))
	ch <- prometheus.MustNewConstMetric(c.disconnectsTotal, prometheus.CounterValue, float64(snap.TotalDisconnects))
	ch <- prometheus.MustNewConstMetric(c.consecutiveFailures, prometheus.GaugeValue, float64(snap.ConsecutiveFailures))

	if !snap.LastMessageTime.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastMessageAge, prometheus.GaugeValue, snap.TimeSinceLastMessage.Seconds())
	}
}
