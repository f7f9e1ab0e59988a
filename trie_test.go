package bamboo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type visit struct {
	Prefix uint64
	Depth  uint
}

func TestBitTrie(t *testing.T) {
	tr := newBitTrie()
	segs := map[uint64]*segment{}
	for idx := uint64(0); idx < 4; idx++ {
		segs[idx] = &segment{}
		tr.insert(idx, 2, segs[idx])
	}
	if tr.leaves != 4 {
		t.Fatalf("leaves = %d, want 4", tr.leaves)
	}
	if seg, depth := tr.retrieve(0b110); seg != segs[2] || depth != 2 {
		t.Errorf("retrieve(110) = (%p, %d), want (%p, 2)", seg, depth, segs[2])
	}

	// Split segment 2 on the third bit.
	segs[6] = &segment{}
	tr.insert(6, 3, segs[6])
	tr.insert(2, 3, segs[2])
	tr.clear(2, 2)
	if tr.leaves != 5 {
		t.Errorf("leaves after split = %d, want 5", tr.leaves)
	}
	if seg, depth := tr.retrieve(0b0110); seg != segs[6] || depth != 3 {
		t.Errorf("retrieve(0110) = (%p, %d), want (%p, 3)", seg, depth, segs[6])
	}
	if seg, depth := tr.retrieve(0b1010); seg != segs[2] || depth != 3 {
		t.Errorf("retrieve(1010) = (%p, %d), want (%p, 3)", seg, depth, segs[2])
	}

	var got []visit
	tr.walk(func(prefix uint64, depth uint, seg *segment) {
		if seg != segs[prefix] {
			t.Errorf("walk visited prefix %b with the wrong segment", prefix)
		}
		got = append(got, visit{prefix, depth})
	})
	want := []visit{{0, 2}, {2, 3}, {6, 3}, {1, 2}, {3, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestBitTrie_RetrieveMissing(t *testing.T) {
	tr := newBitTrie()
	tr.insert(0, 1, &segment{})
	if seg, _ := tr.retrieve(1); seg != nil {
		t.Errorf("retrieve of an unmapped prefix returned %p", seg)
	}
}

// Leaves of the segment trie must partition the address space: every prefix
// maps to exactly one leaf and the leaf fractions add up to one.
func TestTrieIndex_Partition(t *testing.T) {
	f := newTestFilter(t, func(c *Config) {
		c.BucketIndexBits = 3
		c.SegmentIndexBits = 2
		c.SlotsPerBucket = 2
	})
	for key := int32(0); key < 2000; key++ {
		if err := f.Insert(key); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}
	st := f.Stats()
	if st.Expansions == 0 {
		t.Fatal("expected segment splits")
	}
	if st.Segments != 4+int(st.Expansions) {
		t.Errorf("segments = %d, want %d", st.Segments, 4+st.Expansions)
	}

	var total uint64
	f.index.each(func(idx uint64, depth uint, _ *segment) {
		total += 1 << (st.MaxDepth - depth)
		if _, got, err := f.index.resolve(idx); err != nil || got != idx {
			t.Errorf("resolve(%b) = (%b, %v), want %b", idx, got, err, idx)
		}
	})
	if total != 1<<st.MaxDepth {
		t.Errorf("leaves cover %d/%d of the address space", total, uint64(1)<<st.MaxDepth)
	}
}
