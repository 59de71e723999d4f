// Package metrics exposes observational-only Prometheus collectors
// for the transport and replication layers (SPEC_FULL.md [METRICS]).
// Nothing here ever gates a decision in the tick loop; these are
// read-only reflections of state already tracked elsewhere.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionSample is a per-connection snapshot fed into Collect.
type ConnectionSample struct {
	Addr        string
	Bandwidth   float64
	RTTSeconds  float64
	PacketsLost float64
}

// Collector is a custom prometheus.Collector tracking every live
// connection's bandwidth estimate, RTT and packet-loss count, plus a
// connected-peer gauge and a replication-channel update counter.
// Grounded on runZeroInc-sockstats/pkg/exporter/exporter.go's
// TCPInfoCollector: a mutex-guarded map of per-connection state,
// Add/Remove managed by the caller, Describe/Collect satisfying
// prometheus.Collector directly instead of relying on the default
// registry's auto-registered vectors.
type Collector struct {
	mu      sync.Mutex
	samples map[string]ConnectionSample

	bandwidthDesc   *prometheus.Desc
	rttDesc         *prometheus.Desc
	packetLossDesc  *prometheus.Desc
	peerCountDesc   *prometheus.Desc
	channelUpdateCt prometheus.Counter
}

// New builds a Collector. Register it with a prometheus.Registry (or
// prometheus.MustRegister for the default one) to expose it.
func New(namespace string) *Collector {
	return &Collector{
		samples: map[string]ConnectionSample{},
		bandwidthDesc: prometheus.NewDesc(
			namespace+"_connection_bandwidth_bytes_per_second",
			"Estimated outbound bandwidth for a connection.",
			[]string{"addr"}, nil,
		),
		rttDesc: prometheus.NewDesc(
			namespace+"_connection_rtt_seconds",
			"Most recent round-trip latency sample for a connection.",
			[]string{"addr"}, nil,
		),
		packetLossDesc: prometheus.NewDesc(
			namespace+"_connection_packets_lost_total",
			"Packets, reliable or not, that aged out of the ack window unacknowledged.",
			[]string{"addr"}, nil,
		),
		peerCountDesc: prometheus.NewDesc(
			namespace+"_connected_peers",
			"Number of currently connected peers.",
			nil, nil,
		),
		channelUpdateCt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: namespace + "_channel_updates_total",
			Help: "Attribute updates flushed across every replication channel.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bandwidthDesc
	ch <- c.rttDesc
	ch <- c.packetLossDesc
	ch <- c.peerCountDesc
	c.channelUpdateCt.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for addr, s := range c.samples {
		ch <- prometheus.MustNewConstMetric(c.bandwidthDesc, prometheus.GaugeValue, s.Bandwidth, addr)
		ch <- prometheus.MustNewConstMetric(c.rttDesc, prometheus.GaugeValue, s.RTTSeconds, addr)
		ch <- prometheus.MustNewConstMetric(c.packetLossDesc, prometheus.CounterValue, s.PacketsLost, addr)
	}
	ch <- prometheus.MustNewConstMetric(c.peerCountDesc, prometheus.GaugeValue, float64(len(c.samples)))
	c.channelUpdateCt.Collect(ch)
}

// Observe records or replaces the sample for a connection, keyed by
// address.
func (c *Collector) Observe(s ConnectionSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[s.Addr] = s
}

// Remove drops a connection's sample once it disconnects.
func (c *Collector) Remove(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.samples, addr)
}

// IncChannelUpdates increments the replication-channel update counter.
func (c *Collector) IncChannelUpdates(n int) {
	c.channelUpdateCt.Add(float64(n))
}
