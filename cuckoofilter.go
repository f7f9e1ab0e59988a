// Package bamboo implements the Bamboo filter, a cuckoo filter that grows one
// segment at a time instead of rehashing the whole table.
//
// The table is made of segments of 2^BucketIndexBits buckets. A key hashes to
// a fingerprint, two candidate buckets and a segment prefix. When cuckoo
// relocation runs out inside a segment the filter either splits that segment
// on the next fingerprint bit (Expand) or chains an overflow segment to it and
// grows by linear hashing on a schedule (Overflow).
//
// A Filter is not safe for concurrent use.
package bamboo

import (
	"errors"
	"math/rand"

	"github.com/rs/zerolog"
)

// maxCuckooKickouts is the maximum number of relocations tried in a
// segment before it is escalated.
const maxCuckooKickouts = 500

type Filter struct {
	cfg             Config
	fingerprintBits uint
	bucketIndexMask uint32
	codec           *entryCodec

	hasher hasher
	rng    *rand.Rand
	log    zerolog.Logger

	index   segmentIndex
	journal journal
	items   uint
	stats   counters
}

// pending is an entry waiting for a slot: count occurrences of fp whose
// candidate buckets are i1 and i2.
type pending struct {
	fp, count uint32
	i1, i2    uint32
}

// NewFilter returns an empty filter with 2^SegmentIndexBits segments.
func NewFilter(cfg Config) (*Filter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	f := &Filter{
		cfg:             cfg,
		fingerprintBits: cfg.fingerprintBits(),
		bucketIndexMask: 1<<cfg.BucketIndexBits - 1,
		rng:             rng,
		hasher: hasher{
			fn:      cfg.Hash.hashFunc(),
			seed:    rng.Uint64(),
			altSeed: rng.Uint64(),
		},
		log: zerolog.Nop(),
	}
	f.codec = newEntryCodec(f.fingerprintBits, cfg.Mode)
	if cfg.Logger != nil {
		f.log = *cfg.Logger
	}
	f.index = f.newIndex()
	return f, nil
}

func (f *Filter) newSegment() *segment {
	return newSegment(1<<f.cfg.BucketIndexBits, f.codec, int(f.cfg.SlotsPerBucket), 0)
}

// Insert adds one occurrence of key.
//
// On error the filter is left as it was before the call; only segment splits
// performed on the way are kept, and those do not change any count.
func (f *Filter) Insert(key int32) error {
	a := f.getAddress(key)
	if err := f.insert(pending{fp: a.fp, count: 1, i1: a.i1, i2: a.i2}, a.prefix); err != nil {
		return err
	}
	f.items++
	f.index.inserted()
	return nil
}

func (f *Filter) insert(p pending, prefix uint64) error {
	seg, idx, err := f.index.resolve(prefix)
	if err != nil {
		return err
	}
	for {
		_, err := f.place(seg, p, &f.journal)
		if err == nil {
			f.journal.reset()
			return nil
		}
		if n := f.journal.rollback(); n > 0 {
			f.stats.Rollbacks++
			f.log.Debug().Err(err).Uint64("segment", idx).Int("slots", n).Msg("insertion rolled back")
		}
		if !errors.Is(err, errChainExhausted) {
			return err
		}
		f.stats.ChainsExhausted++
		if seg, idx, err = f.index.escalate(seg, idx, prefix); err != nil {
			return err
		}
	}
}

// place stores p in seg, directly or by relocating entries inside seg. On
// failure it returns the entry left without a slot, which is p itself only if
// nothing was relocated.
func (f *Filter) place(seg *segment, p pending, j *journal) (pending, error) {
	if p.count = seg.bucket(p.i1).insertCount(p.fp, p.count, j); p.count == 0 {
		return p, nil
	}
	if p.count = seg.bucket(p.i2).insertCount(p.fp, p.count, j); p.count == 0 {
		return p, nil
	}
	return f.cuckoo(seg, p, j)
}

// cuckoo applies kickouts until a free slot is found. p.i2 is the bucket the
// victim is preferably taken from, p.i1 the bucket p came from.
func (f *Filter) cuckoo(seg *segment, p pending, j *journal) (pending, error) {
	for k := 0; k < maxCuckooKickouts; k++ {
		bi, slot, ok := f.victim(seg, p)
		if !ok {
			return p, ErrBucketCapacityExceeded
		}
		b := seg.bucket(bi)
		fp, count := b.evictAt(slot, j)
		b.insertAt(slot, p.fp, p.count, j)
		f.stats.Kicks++

		// Move kicked out entry to alternate location.
		p = pending{fp: fp, count: count, i1: bi, i2: f.getAltIndex(fp, bi)}
		if p.count = seg.bucket(p.i2).insertCount(p.fp, p.count, j); p.count == 0 {
			return p, nil
		}
	}
	return p, errChainExhausted
}

// victim picks the slot to evict: a random slot of the alternate bucket, or
// failing that the first slot of the alternate then the main bucket holding
// another fingerprint.
func (f *Filter) victim(seg *segment, p pending) (uint32, int, bool) {
	alt := seg.bucket(p.i2)
	if j := f.rng.Intn(alt.size()); alt.fingerprintAt(j) != p.fp {
		return p.i2, j, true
	}
	for _, bi := range [2]uint32{p.i2, p.i1} {
		b := seg.bucket(bi)
		for j := 0; j < b.size(); j++ {
			if b.fingerprintAt(j) != p.fp {
				return bi, j, true
			}
		}
	}
	return 0, 0, false
}

// relocate stores an entry that is already counted in the filter, walking
// down the overflow chain of seg until it fits. It never fails.
func (f *Filter) relocate(seg *segment, p pending) {
	for s := seg; ; {
		left, err := f.place(s, p, nil)
		if err == nil {
			return
		}
		p = left
		var allocated bool
		if s, allocated = s.overflowSegment(); allocated {
			f.stats.OverflowSegments++
		}
	}
}

func (f *Filter) segmentFor(a address) *segment {
	f.stats.SegmentLookups++
	seg, _, err := f.index.resolve(a.prefix)
	if err != nil {
		f.log.Error().Err(err).Msg("segment lookup failed")
		return nil
	}
	return seg
}

// Count returns how many times key was inserted, possibly more because of
// fingerprint collisions.
func (f *Filter) Count(key int32) uint32 {
	a := f.getAddress(key)
	var n uint32
	for s := f.segmentFor(a); s != nil; s = s.overflow {
		n += s.bucket(a.i1).count(a.fp) + s.bucket(a.i2).count(a.fp)
	}
	return n
}

// Contains returns true if key may be in the filter.
func (f *Filter) Contains(key int32) bool {
	a := f.getAddress(key)
	for s := f.segmentFor(a); s != nil; s = s.overflow {
		if s.bucket(a.i1).contains(a.fp) || s.bucket(a.i2).contains(a.fp) {
			return true
		}
	}
	return false
}

// Remove deletes one occurrence of key. Returns true if it was found.
func (f *Filter) Remove(key int32) bool {
	a := f.getAddress(key)
	for s := f.segmentFor(a); s != nil; s = s.overflow {
		if s.bucket(a.i1).remove(a.fp) || s.bucket(a.i2).remove(a.fp) {
			if f.items > 0 {
				f.items--
			}
			return true
		}
	}
	return false
}

// Occupancy returns the number of occupied slots, overflow segments included.
func (f *Filter) Occupancy() uint {
	var n uint
	f.index.each(func(_ uint64, _ uint, seg *segment) {
		n += seg.chainOccupancy()
	})
	return n
}

// Capacity returns the number of slots, overflow segments included.
func (f *Filter) Capacity() uint {
	var n uint
	f.index.each(func(_ uint64, _ uint, seg *segment) {
		seg.chain(func(s *segment) { n += s.capacity() })
	})
	return n
}

// Len returns the number of successful insertions minus successful removals.
func (f *Filter) Len() uint {
	return f.items
}

// LoadFactor returns the fraction slots that are occupied.
func (f *Filter) LoadFactor() float64 {
	return float64(f.Occupancy()) / float64(f.Capacity())
}

// Reset removes all items and segments, returning the filter to the shape it
// had when created. Hash seeds are kept.
func (f *Filter) Reset() {
	f.index = f.newIndex()
	f.journal.reset()
	f.items = 0
	f.stats = counters{}
}

func (f *Filter) Config() Config {
	return f.cfg
}
