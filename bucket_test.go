package bamboo

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestBucket(mode Mode, fpBits uint, slots int) bucket {
	codec := newEntryCodec(fpBits, mode)
	return bucket{slots: make([]byte, slots*codec.width), codec: codec}
}

func TestEntryCodec(t *testing.T) {
	tests := []struct {
		mode   Mode
		fpBits uint
		width  int
	}{
		{Counting, 7, 2},
		{Counting, 15, 3},
		{Counting, 23, 4},
		{Set, 7, 1},
		{Set, 15, 2},
		{Set, 23, 3},
	}
	for _, tc := range tests {
		c := newEntryCodec(tc.fpBits, tc.mode)
		if c.width != tc.width {
			t.Errorf("%s/%d: width = %d, want %d", tc.mode, tc.fpBits, c.width, tc.width)
		}
		maxFp := uint32(1)<<tc.fpBits - 1
		for _, fp := range []uint32{1, maxFp/2 + 1, maxFp} {
			count := uint32(1)
			if tc.mode == Counting {
				count = maxCount
			}
			buf := make([]byte, c.width)
			c.store(buf, c.encode(fp, count))
			if bytes.Equal(buf, make([]byte, c.width)) {
				t.Errorf("%s/%d: fingerprint %d encoded as a vacant slot", tc.mode, tc.fpBits, fp)
			}
			gotFp, gotCount := c.decode(c.load(buf))
			if gotFp != fp || gotCount != count {
				t.Errorf("%s/%d: decode = (%d, %d), want (%d, %d)", tc.mode, tc.fpBits, gotFp, gotCount, fp, count)
			}
			switch tc.mode {
			case Counting:
				if uint32(buf[0]) != count {
					t.Errorf("%s/%d: low byte = %d, want count %d", tc.mode, tc.fpBits, buf[0], count)
				}
			case Set:
				if buf[c.width-1]&0x80 == 0 {
					t.Errorf("%s/%d: occupancy flag not set in %x", tc.mode, tc.fpBits, buf)
				}
			}
		}
	}
}

func TestBucket_Insert(t *testing.T) {
	bkt := newTestBucket(Set, 15, 4)
	for i := uint32(0); i < 4; i++ {
		if !bkt.insert(i+1, nil) {
			t.Error("bucket insert failed")
		}
	}
	if bkt.insert(5, nil) {
		t.Error("expected bucket insert to fail after overflow")
	}
	if got := bkt.occupancy(); got != 4 {
		t.Errorf("occupancy = %d, want 4", got)
	}
}

func TestBucket_InsertDuplicates(t *testing.T) {
	bkt := newTestBucket(Set, 15, 4)
	for i := 0; i < 4; i++ {
		if !bkt.insert(7, nil) {
			t.Fatalf("insert %d of a duplicate failed", i)
		}
	}
	if got := bkt.count(7); got != 4 {
		t.Errorf("count = %d, want 4", got)
	}
	if bkt.insert(7, nil) {
		t.Error("set bucket accepted a fifth occurrence")
	}
}

func TestBucket_CountingSaturates(t *testing.T) {
	bkt := newTestBucket(Counting, 15, 4)
	if left := bkt.insertCount(5, 300, nil); left != 0 {
		t.Fatalf("insertCount left %d", left)
	}
	if got := bkt.count(5); got != 300 {
		t.Errorf("count = %d, want 300", got)
	}
	if got := bkt.occupancy(); got != 2 {
		t.Errorf("occupancy = %d, want 2", got)
	}
	want := []entry{{fp: 5, count: maxCount}, {fp: 5, count: 300 - maxCount}}
	if diff := cmp.Diff(want, bkt.entries(), cmp.AllowUnexported(entry{})); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// The partially filled slot is topped up before a vacant one is used.
	bkt.insertCount(5, 10, nil)
	if got := bkt.occupancy(); got != 2 {
		t.Errorf("occupancy after top up = %d, want 2", got)
	}
	if left := bkt.insertCount(9, 3*maxCount, nil); left != maxCount {
		t.Errorf("insertCount left %d, want %d", left, maxCount)
	}
}

func TestBucket_Remove(t *testing.T) {
	bkt := newTestBucket(Counting, 15, 4)
	bkt.insertCount(3, 2, nil)
	bkt.insert(4, nil)

	if !bkt.remove(3) {
		t.Error("bucket remove failed")
	}
	if got := bkt.count(3); got != 1 {
		t.Errorf("count after remove = %d, want 1", got)
	}
	if !bkt.remove(3) || bkt.contains(3) {
		t.Error("fingerprint still present after removing every occurrence")
	}
	if bkt.remove(3) {
		t.Error("removed a missing fingerprint")
	}
	if !bkt.contains(4) {
		t.Error("unrelated fingerprint removed")
	}
}

func TestBucket_Reset(t *testing.T) {
	bkt := newTestBucket(Set, 7, 8)
	for i := uint32(0); i < 8; i++ {
		bkt.insert(i+1, nil)
	}

	bkt.reset()

	if diff := cmp.Diff(make([]byte, 8), bkt.slots); diff != "" {
		t.Errorf("bucket.reset() mismatch (-want +got):\n%s", diff)
	}
}

func TestBucket_EvictAt(t *testing.T) {
	bkt := newTestBucket(Counting, 15, 4)
	bkt.insertCount(123, 3, nil)
	fp, count := bkt.evictAt(0, nil)
	if fp != 123 || count != 3 {
		t.Errorf("evictAt = (%d, %d), want (123, 3)", fp, count)
	}
	bkt.insertAt(0, 321, 1, nil)
	if !bkt.contains(321) || bkt.contains(123) {
		t.Errorf("contains after swap failed: %v", bkt)
	}
}

func TestBucket_Split(t *testing.T) {
	src := newTestBucket(Set, 15, 8)
	dst := newTestBucket(Set, 15, 8)
	for fp := uint32(1); fp <= 8; fp++ {
		src.insert(fp, nil)
	}

	src.split(dst, 1)

	for _, e := range src.entries() {
		if e.fp>>1&1 != 0 {
			t.Errorf("fingerprint %b stayed in the source bucket", e.fp)
		}
	}
	want := []entry{{2, 1}, {3, 1}, {6, 1}, {7, 1}}
	if diff := cmp.Diff(want, dst.entries(), cmp.AllowUnexported(entry{})); diff != "" {
		t.Errorf("split mismatch (-want +got):\n%s", diff)
	}
}

func TestJournal_Rollback(t *testing.T) {
	bkt := newTestBucket(Counting, 15, 4)
	bkt.insertCount(11, 4, nil)
	before := bytes.Clone(bkt.slots)

	var j journal
	bkt.insertCount(11, 600, &j)
	bkt.evictAt(0, &j)
	bkt.insertAt(0, 99, 1, &j)

	if n := j.rollback(); n == 0 {
		t.Fatal("nothing recorded")
	}
	if diff := cmp.Diff(before, bkt.slots); diff != "" {
		t.Errorf("rollback mismatch (-want +got):\n%s", diff)
	}
	if n := j.rollback(); n != 0 {
		t.Errorf("second rollback restored %d slots", n)
	}
}

func TestBucket_String(t *testing.T) {
	bkt := newTestBucket(Set, 15, 2)
	bkt.insert(3, nil)
	if got, want := bkt.String(), "[    3     0 ]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
