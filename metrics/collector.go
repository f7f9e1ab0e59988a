// Package metrics publishes filter statistics as VictoriaMetrics gauges and counters.
package metrics

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	bamboo "github.com/livekit/bamboofilter"
)

// Collector exposes the last Stats snapshot it was given. Filters are not
// safe for concurrent use, so the owner of a filter takes snapshots under its
// own lock and hands them to Update; scrapes only read the snapshot.
type Collector struct {
	mu   sync.Mutex
	last bamboo.Stats

	expansions      *metrics.Counter
	kicks           *metrics.Counter
	chainsExhausted *metrics.Counter
	rollbacks       *metrics.Counter
}

// NewCollector registers the metrics of one filter in set, labelled
// filter=name. Registering the same name twice in a set panics.
func NewCollector(set *metrics.Set, name string) *Collector {
	c := &Collector{}
	label := fmt.Sprintf(`{filter=%q}`, name)

	gauge := func(metric string, value func(st *bamboo.Stats) float64) {
		set.NewGauge("bamboo_"+metric+label, func() float64 {
			c.mu.Lock()
			defer c.mu.Unlock()
			return value(&c.last)
		})
	}
	gauge("items", func(st *bamboo.Stats) float64 { return float64(st.Items) })
	gauge("occupancy", func(st *bamboo.Stats) float64 { return float64(st.Occupancy) })
	gauge("capacity", func(st *bamboo.Stats) float64 { return float64(st.Capacity) })
	gauge("load_factor", func(st *bamboo.Stats) float64 { return st.LoadFactor() })
	gauge("bytes", func(st *bamboo.Stats) float64 { return float64(st.Bytes) })
	gauge("segments", func(st *bamboo.Stats) float64 { return float64(st.Segments) })
	gauge("overflow_segments", func(st *bamboo.Stats) float64 { return float64(st.OverflowSegments) })
	gauge("max_depth", func(st *bamboo.Stats) float64 { return float64(st.MaxDepth) })

	c.expansions = set.NewCounter("bamboo_expansions_total" + label)
	c.kicks = set.NewCounter("bamboo_kicks_total" + label)
	c.chainsExhausted = set.NewCounter("bamboo_chains_exhausted_total" + label)
	c.rollbacks = set.NewCounter("bamboo_rollbacks_total" + label)
	return c
}

// Update replaces the snapshot served to scrapes.
func (c *Collector) Update(st bamboo.Stats) {
	c.mu.Lock()
	c.last = st
	c.mu.Unlock()

	c.expansions.Set(st.Expansions)
	c.kicks.Set(st.Kicks)
	c.chainsExhausted.Set(st.ChainsExhausted)
	c.rollbacks.Set(st.Rollbacks)
}
