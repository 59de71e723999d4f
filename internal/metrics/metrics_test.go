package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func collectDescs(t *testing.T, c *Collector) []*prometheus.Desc {
	t.Helper()
	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	close(ch)
	var descs []*prometheus.Desc
	for d := range ch {
		descs = append(descs, d)
	}
	return descs
}

func TestCollectorDescribesEveryMetric(t *testing.T) {
	c := New("testns")
	descs := collectDescs(t, c)
	if len(descs) != 5 {
		t.Fatalf("got %d descriptors, want 5", len(descs))
	}
}

func TestCollectorReflectsObservedSamples(t *testing.T) {
	c := New("testns")
	c.Observe(ConnectionSample{Addr: "1.2.3.4:7777", Bandwidth: 1500, RTTSeconds: 0.05, PacketsLost: 2})

	ch := make(chan prometheus.Metric, 10)
	c.Collect(ch)
	close(ch)

	var sawBandwidth bool
	for m := range ch {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if out.Gauge != nil && out.Gauge.GetValue() == 1500 {
			sawBandwidth = true
		}
	}
	if !sawBandwidth {
		t.Errorf("expected a gauge sample with value 1500")
	}
}

func TestCollectorRemoveDropsSample(t *testing.T) {
	c := New("testns")
	c.Observe(ConnectionSample{Addr: "peer", Bandwidth: 1000})
	c.Remove("peer")

	ch := make(chan prometheus.Metric, 10)
	c.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	// only the connected-peer gauge and channel-update counter remain
	if count != 2 {
		t.Errorf("got %d metrics after remove, want 2", count)
	}
}
