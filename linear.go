package bamboo

import (
	"errors"
	"fmt"
)

// linearIndex grows the table by linear hashing: segments live in a flat
// vector and every interval insertions the next segment of the current
// generation is split into a new segment appended at the end. Segments that
// run out of room before their turn chain overflow segments.
type linearIndex struct {
	f    *Filter
	segs []*segment
	// level is the generation: 2^level <= len(segs) < 2^(level+1).
	level uint
	// next is the segment split by the next expansion.
	next      int
	interval  uint
	pending   uint
	exhausted bool
}

func newLinearIndex(f *Filter) *linearIndex {
	n := 1 << f.cfg.SegmentIndexBits
	l := &linearIndex{
		f:        f,
		segs:     make([]*segment, n),
		level:    f.cfg.SegmentIndexBits,
		interval: f.cfg.ExpandInterval,
	}
	for i := range l.segs {
		l.segs[i] = f.newSegment()
	}
	if l.interval == 0 {
		l.interval = max(l.segs[0].capacity()/2, 1)
	}
	return l
}

// resolve tries masks from one bit wider than the current generation down
// until the masked prefix is a valid index.
func (l *linearIndex) resolve(prefix uint64) (*segment, uint64, error) {
	for mask := uint64(1)<<(l.level+1) - 1; ; mask >>= 1 {
		if idx := prefix & mask; idx < uint64(len(l.segs)) {
			return l.segs[idx], idx, nil
		}
		if mask == 0 {
			return nil, 0, fmt.Errorf("%w: prefix %b", ErrSegmentNotFound, prefix)
		}
	}
}

func (l *linearIndex) escalate(seg *segment, idx, _ uint64) (*segment, uint64, error) {
	next, allocated := seg.overflowSegment()
	if allocated {
		l.f.stats.OverflowSegments++
		l.f.log.Debug().Uint64("segment", idx).Msg("overflow segment allocated")
	}
	return next, idx, nil
}

func (l *linearIndex) inserted() {
	if l.exhausted {
		return
	}
	if l.pending++; l.pending < l.interval {
		return
	}
	l.pending = 0
	if err := l.expand(); errors.Is(err, ErrMaxExpansionCapacityExceeded) {
		l.exhausted = true
		l.f.log.Warn().Err(err).Int("segments", len(l.segs)).Msg("scheduled expansion stopped")
	}
}

// expand splits segment next on address bit level, which is fingerprint bit
// level-SegmentIndexBits, and flattens its overflow chain into the two halves.
func (l *linearIndex) expand() error {
	f := l.f
	bit := l.level - f.cfg.SegmentIndexBits
	if bit >= f.fingerprintBits {
		return fmt.Errorf("%w: no fingerprint bit left for generation %d", ErrMaxExpansionCapacityExceeded, l.level)
	}
	idx := l.next
	seg := l.segs[idx]
	seg.expansionCount++
	sibling := seg.sibling(seg.expansionCount)
	l.segs = append(l.segs, sibling)
	if l.next++; l.next == 1<<l.level {
		l.next = 0
		l.level++
	}

	for i := 0; i < seg.numBuckets(); i++ {
		seg.bucket(uint32(i)).split(sibling.bucket(uint32(i)), bit)
	}

	overflow := seg.overflow
	seg.overflow = nil
	drained := 0
	for o := overflow; o != nil; o = o.overflow {
		drained++
		for i := 0; i < o.numBuckets(); i++ {
			for _, e := range o.bucket(uint32(i)).entries() {
				dst := seg
				if e.fp>>bit&1 == 1 {
					dst = sibling
				}
				f.relocate(dst, pending{fp: e.fp, count: e.count, i1: uint32(i), i2: f.getAltIndex(e.fp, uint32(i))})
			}
		}
	}
	f.stats.OverflowSegments -= drained

	f.stats.Expansions++
	f.log.Debug().
		Int("segment", idx).
		Int("sibling", len(l.segs)-1).
		Int("drained", drained).
		Msg("scheduled expansion")
	return nil
}

func (l *linearIndex) each(fn func(idx uint64, depth uint, seg *segment)) {
	for i, seg := range l.segs {
		depth := l.level
		if i < l.next || i >= 1<<l.level {
			depth++
		}
		fn(uint64(i), depth, seg)
	}
}

func (l *linearIndex) len() int {
	return len(l.segs)
}
