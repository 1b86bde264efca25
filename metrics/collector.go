// Package metrics exports FixedMapOf statistics as Prometheus metrics.
package metrics

import (
	"github.com/llxisdsh/fixedmap"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "fixedmap"

// StatsSource is anything that can report map statistics, typically a
// *fixedmap.FixedMapOf of any key and value type.
type StatsSource interface {
	Stats() *fixedmap.FixedMapStats
}

// Collector is a prometheus.Collector that scans its source on every
// collection. Stats is O(capacity), so register one collector per map
// and scrape at a diagnostic cadence.
type Collector struct {
	src StatsSource

	capacity   *prometheus.Desc
	size       *prometheus.Desc
	emptySlots *prometheus.Desc
	exhausted  *prometheus.Desc
	maxProbe   *prometheus.Desc
}

// NewCollector creates a Collector for src. constLabels, if any, are
// attached to every metric and distinguish several maps registered in
// the same registry.
func NewCollector(namespace string, src StatsSource, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, constLabels)
	}
	return &Collector{
		src:        src,
		capacity:   desc("capacity", "Number of slots in the map."),
		size:       desc("size", "Number of published elements."),
		emptySlots: desc("empty_slots", "Number of slots not yet claimed."),
		exhausted:  desc("probe_exhausted_total", "Lookups and insertions that ran out of probe budget."),
		maxProbe:   desc("max_probe", "Longest probe sequence needed to reach a published element."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.size
	ch <- c.emptySlots
	ch <- c.exhausted
	ch <- c.maxProbe
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.emptySlots, prometheus.GaugeValue, float64(s.EmptySlots))
	ch <- prometheus.MustNewConstMetric(c.exhausted, prometheus.CounterValue, float64(s.Exhausted))
	ch <- prometheus.MustNewConstMetric(c.maxProbe, prometheus.GaugeValue, float64(s.MaxProbe))
}
