package bamboo

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// DumpInfo writes the filter parameters and statistics in human readable form.
func (f *Filter) DumpInfo(w io.Writer) error {
	st := f.Stats()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Bamboo filter (%s, %s, %s)\n", f.cfg.Mode, f.cfg.Strategy, f.cfg.Hash)
	fmt.Fprintf(bw, "  fingerprint bits: %d, slots per bucket: %d, buckets per segment: %d, base segments: %d\n",
		f.fingerprintBits, f.cfg.SlotsPerBucket, 1<<f.cfg.BucketIndexBits, 1<<f.cfg.SegmentIndexBits)
	fmt.Fprintf(bw, "  items: %s, occupancy: %s / %s (%.2f%%), memory: %s\n",
		humanize.Comma(int64(st.Items)), humanize.Comma(int64(st.Occupancy)), humanize.Comma(int64(st.Capacity)),
		100*st.LoadFactor(), humanize.Bytes(st.Bytes))
	fmt.Fprintf(bw, "  segments: %d (+%d overflow), depth: %d..%d\n",
		st.Segments, st.OverflowSegments, st.MinDepth, st.MaxDepth)
	fmt.Fprintf(bw, "  expansions: %d, kicks: %s, exhausted chains: %d, rollbacks: %d\n",
		st.Expansions, humanize.Comma(int64(st.Kicks)), st.ChainsExhausted, st.Rollbacks)
	return bw.Flush()
}

// DumpPercentage writes a histogram of segment load factors in 10% steps.
func (f *Filter) DumpPercentage(w io.Writer) error {
	var hist [11]int
	f.index.each(func(_ uint64, _ uint, seg *segment) {
		hist[seg.chainOccupancy()*10/(seg.capacity()*uint(seg.chainLen()))]++
	})
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Segment load:")
	for i, n := range hist[:10] {
		fmt.Fprintf(bw, "  %3d%% - %3d%%: %d\n", i*10, i*10+10, n)
	}
	if hist[10] > 0 {
		fmt.Fprintf(bw, "  full:        %d\n", hist[10])
	}
	return bw.Flush()
}

// DumpSuccinct writes one line: items, occupancy, capacity, segments,
// overflow segments and expansions.
func (f *Filter) DumpSuccinct(w io.Writer) error {
	st := f.Stats()
	_, err := fmt.Fprintf(w, "%d %d %d %d %d %d\n",
		st.Items, st.Occupancy, st.Capacity, st.Segments, st.OverflowSegments, st.Expansions)
	return err
}

// DumpSegments writes one line per segment: its address bits, most
// significant first, and its occupancy.
func (f *Filter) DumpSegments(w io.Writer) error {
	bw := bufio.NewWriter(w)
	f.index.each(func(idx uint64, depth uint, seg *segment) {
		fmt.Fprintf(bw, "%0*b %d/%d", int(depth), idx, seg.occupancy(), seg.capacity())
		if n := seg.chainLen(); n > 1 {
			fmt.Fprintf(bw, " +%d overflow", n-1)
		}
		fmt.Fprintln(bw)
	})
	return bw.Flush()
}
