package metrics

import (
	"bytes"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/require"

	bamboo "github.com/livekit/bamboofilter"
	"github.com/livekit/bamboofilter/abacus"
)

func TestCollector(t *testing.T) {
	cfg := bamboo.DefaultConfig()
	cfg.Seed = 1
	f, err := bamboo.NewFilter(cfg)
	require.NoError(t, err)
	for key := int32(0); key < 100; key++ {
		require.NoError(t, f.Insert(key))
	}

	set := metrics.NewSet()
	c := NewCollector(set, "users")
	c.Update(f.Stats())

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()
	require.Contains(t, out, `bamboo_items{filter="users"} 100`)
	require.Contains(t, out, `bamboo_segments{filter="users"} 16`)
	require.Contains(t, out, `bamboo_expansions_total{filter="users"} 0`)

	// Scrapes see the snapshot, not the live filter.
	require.NoError(t, f.Insert(100))
	buf.Reset()
	set.WritePrometheus(&buf)
	require.Contains(t, buf.String(), `bamboo_items{filter="users"} 100`)

	c.Update(f.Stats())
	buf.Reset()
	set.WritePrometheus(&buf)
	require.Contains(t, buf.String(), `bamboo_items{filter="users"} 101`)
}

func TestCollector_Abacus(t *testing.T) {
	cfg := abacus.DefaultConfig()
	cfg.Filter.Seed = 1
	a, err := abacus.New(cfg)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Increment(5))
	}

	set := metrics.NewSet()
	c := NewCollector(set, "counts")
	c.Update(a.Stats())

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	require.Contains(t, buf.String(), `bamboo_occupancy{filter="counts"} 2`)
	require.Contains(t, buf.String(), `bamboo_segments{filter="counts"} 32`)
}
