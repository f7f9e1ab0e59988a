package bamboo

import (
	"fmt"
)

// segmentIndex maps a key's segment prefix to the segment storing it and
// decides how the table grows.
type segmentIndex interface {
	// resolve returns the segment owning prefix and its index.
	resolve(prefix uint64) (*segment, uint64, error)
	// escalate is called once a cuckoo chain in seg ran out. It makes room
	// and returns the segment the insertion is retried in.
	escalate(seg *segment, idx, prefix uint64) (*segment, uint64, error)
	// inserted is called after every successful insertion.
	inserted()
	// each visits every primary segment with its index and address depth.
	each(fn func(idx uint64, depth uint, seg *segment))
	len() int
}

func (f *Filter) newIndex() segmentIndex {
	if f.cfg.Strategy == Overflow {
		return newLinearIndex(f)
	}
	return newTrieIndex(f)
}

// trieIndex splits exactly the segment that ran out of room. Segments are
// addressed by prefixes of different lengths held in a bit trie.
type trieIndex struct {
	f    *Filter
	trie *bitTrie
}

func newTrieIndex(f *Filter) *trieIndex {
	t := &trieIndex{f: f, trie: newBitTrie()}
	for idx := uint64(0); idx < 1<<f.cfg.SegmentIndexBits; idx++ {
		t.trie.insert(idx, f.cfg.SegmentIndexBits, f.newSegment())
	}
	return t
}

func (t *trieIndex) resolve(prefix uint64) (*segment, uint64, error) {
	seg, depth := t.trie.retrieve(prefix)
	if seg == nil {
		return nil, 0, fmt.Errorf("%w: prefix %b at depth %d", ErrSegmentNotFound, prefix, depth)
	}
	return seg, prefix & (1<<depth - 1), nil
}

func (t *trieIndex) escalate(seg *segment, idx, prefix uint64) (*segment, uint64, error) {
	if err := t.split(seg, idx); err != nil {
		return nil, 0, err
	}
	return t.resolve(prefix)
}

// split moves the half of seg whose next fingerprint bit is set into a new
// segment one trie level deeper.
func (t *trieIndex) split(seg *segment, idx uint64) error {
	f := t.f
	if seg.expansionCount >= f.fingerprintBits {
		f.log.Warn().Uint64("segment", idx).Uint("expansions", seg.expansionCount).Msg("segment cannot be split any further")
		return fmt.Errorf("%w: segment %d already split %d times", ErrMaxExpansionCapacityExceeded, idx, seg.expansionCount)
	}
	depth := f.cfg.SegmentIndexBits + seg.expansionCount
	bit := seg.expansionCount
	seg.expansionCount++
	siblingIdx := idx | 1<<(bit+f.cfg.SegmentIndexBits)
	sibling := seg.sibling(seg.expansionCount)

	t.trie.insert(siblingIdx, depth+1, sibling)
	t.trie.insert(idx, depth+1, seg)
	t.trie.clear(idx, depth)
	for i := 0; i < seg.numBuckets(); i++ {
		seg.bucket(uint32(i)).split(sibling.bucket(uint32(i)), bit)
	}

	f.stats.Expansions++
	f.log.Debug().
		Uint64("segment", idx).
		Uint64("sibling", siblingIdx).
		Uint("depth", depth+1).
		Msg("segment split")
	return nil
}

func (t *trieIndex) inserted() {}

func (t *trieIndex) each(fn func(idx uint64, depth uint, seg *segment)) {
	t.trie.walk(fn)
}

func (t *trieIndex) len() int {
	return t.trie.leaves
}
