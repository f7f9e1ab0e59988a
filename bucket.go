package bamboo

import (
	"bytes"
	"fmt"
)

// bucket keeps track of fingerprints hashing to the same index.
// It is a view into the byte array of its segment.
type bucket struct {
	slots []byte
	codec *entryCodec
}

type entry struct {
	fp    uint32
	count uint32
}

func (b bucket) size() int {
	return len(b.slots) / b.codec.width
}

func (b bucket) slot(i int) []byte {
	lo := i * b.codec.width
	hi := lo + b.codec.width
	return b.slots[lo:hi:hi]
}

func (b bucket) entryAt(i int) uint32 {
	return b.codec.load(b.slot(i))
}

func (b bucket) setEntryAt(i int, e uint32) {
	b.codec.store(b.slot(i), e)
}

func (b bucket) fingerprintAt(i int) uint32 {
	fp, _ := b.codec.decode(b.entryAt(i))
	return fp
}

func (b bucket) countAt(i int) uint32 {
	_, count := b.codec.decode(b.entryAt(i))
	return count
}

func (b bucket) vacantIndex() int {
	for i := 0; i < b.size(); i++ {
		if b.entryAt(i) == 0 {
			return i
		}
	}
	return -1
}

// count sums the counts of every slot holding fp.
func (b bucket) count(fp uint32) uint32 {
	var total uint32
	for i := 0; i < b.size(); i++ {
		if f, c := b.codec.decode(b.entryAt(i)); c > 0 && f == fp {
			total += c
		}
	}
	return total
}

// find returns the first slot holding fp, or -1.
func (b bucket) find(fp uint32) int {
	for i := 0; i < b.size(); i++ {
		if f, c := b.codec.decode(b.entryAt(i)); c > 0 && f == fp {
			return i
		}
	}
	return -1
}

func (b bucket) contains(fp uint32) bool {
	return b.find(fp) >= 0
}

// insert a fingerprint into a bucket. Returns true if there was enough space and insertion succeeded.
// Note it allows inserting the same fingerprint multiple times.
func (b bucket) insert(fp uint32, j *journal) bool {
	return b.insertCount(fp, 1, j) == 0
}

// insertCount adds n occurrences of fp and returns how many did not fit.
// Counting buckets first top up slots already holding fp, then take vacant
// slots; set buckets spend one vacant slot per occurrence.
func (b bucket) insertCount(fp, n uint32, j *journal) uint32 {
	if b.codec.counting {
		for i := 0; i < b.size() && n > 0; i++ {
			f, c := b.codec.decode(b.entryAt(i))
			if c == 0 || c == maxCount || f != fp {
				continue
			}
			d := min(n, maxCount-c)
			j.record(b, i)
			b.setEntryAt(i, b.codec.encode(fp, c+d))
			n -= d
		}
	}
	for i := 0; i < b.size() && n > 0; i++ {
		if b.entryAt(i) != 0 {
			continue
		}
		d := min(n, b.codec.slotCount())
		j.record(b, i)
		b.setEntryAt(i, b.codec.encode(fp, d))
		n -= d
	}
	return n
}

// insertAt overwrites slot i.
func (b bucket) insertAt(i int, fp, count uint32, j *journal) {
	j.record(b, i)
	b.setEntryAt(i, b.codec.encode(fp, count))
}

// insertEntry copies a raw entry into the first vacant slot.
func (b bucket) insertEntry(e uint32) bool {
	i := b.vacantIndex()
	if i < 0 {
		return false
	}
	b.setEntryAt(i, e)
	return true
}

// remove one occurrence of fp.
// Returns true if the fingerprint was present and successfully removed.
func (b bucket) remove(fp uint32) bool {
	i := b.find(fp)
	if i < 0 {
		return false
	}
	if c := b.countAt(i); c > 1 {
		b.setEntryAt(i, b.codec.encode(fp, c-1))
	} else {
		b.setEntryAt(i, 0)
	}
	return true
}

// evictAt clears slot i and returns what it held.
func (b bucket) evictAt(i int, j *journal) (fp, count uint32) {
	j.record(b, i)
	fp, count = b.codec.decode(b.entryAt(i))
	b.setEntryAt(i, 0)
	return fp, count
}

// split moves every entry whose fingerprint has the given bit set into dst.
func (b bucket) split(dst bucket, bit uint) {
	for i := 0; i < b.size(); i++ {
		e := b.entryAt(i)
		if e == 0 {
			continue
		}
		if fp, _ := b.codec.decode(e); fp>>bit&1 == 1 && dst.insertEntry(e) {
			b.setEntryAt(i, 0)
		}
	}
}

func (b bucket) entries() []entry {
	var res []entry
	for i := 0; i < b.size(); i++ {
		if fp, c := b.codec.decode(b.entryAt(i)); c > 0 {
			res = append(res, entry{fp: fp, count: c})
		}
	}
	return res
}

// occupancy counts occupied slots.
func (b bucket) occupancy() uint {
	var n uint
	for i := 0; i < b.size(); i++ {
		if b.entryAt(i) != 0 {
			n++
		}
	}
	return n
}

// reset deletes all fingerprints in the bucket.
func (b bucket) reset() {
	clear(b.slots)
}

func (b bucket) String() string {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i := 0; i < b.size(); i++ {
		fp, c := b.codec.decode(b.entryAt(i))
		if b.codec.counting {
			buf.WriteString(fmt.Sprintf("%5d:%-3d ", fp, c))
		} else {
			buf.WriteString(fmt.Sprintf("%5d ", fp))
		}
	}
	buf.WriteString("]")
	return buf.String()
}
