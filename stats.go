package bamboo

type counters struct {
	Expansions       uint64
	OverflowSegments int
	Kicks            uint64
	ChainsExhausted  uint64
	Rollbacks        uint64
	SegmentLookups   uint64
}

// Stats is a snapshot of a filter's shape and activity.
type Stats struct {
	Items     uint
	Occupancy uint
	Capacity  uint
	// Bytes is the size of all slot arrays.
	Bytes uint64

	Segments         int
	OverflowSegments int
	MinDepth         uint
	MaxDepth         uint

	// Expansions counts segment splits.
	Expansions uint64
	// Kicks counts cuckoo relocations, including rolled back ones.
	Kicks           uint64
	ChainsExhausted uint64
	Rollbacks       uint64
	SegmentLookups  uint64
}

func (f *Filter) Stats() Stats {
	st := Stats{
		Items:            f.items,
		Segments:         f.index.len(),
		OverflowSegments: f.stats.OverflowSegments,
		MinDepth:         ^uint(0),
		Expansions:       f.stats.Expansions,
		Kicks:            f.stats.Kicks,
		ChainsExhausted:  f.stats.ChainsExhausted,
		Rollbacks:        f.stats.Rollbacks,
		SegmentLookups:   f.stats.SegmentLookups,
	}
	f.index.each(func(_ uint64, depth uint, seg *segment) {
		st.MinDepth = min(st.MinDepth, depth)
		st.MaxDepth = max(st.MaxDepth, depth)
		seg.chain(func(s *segment) {
			st.Occupancy += s.occupancy()
			st.Capacity += s.capacity()
			st.Bytes += uint64(len(s.data))
		})
	})
	return st
}

// LoadFactor returns Occupancy / Capacity.
func (s Stats) LoadFactor() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Occupancy) / float64(s.Capacity)
}
