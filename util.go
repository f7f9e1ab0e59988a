package bamboo

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	metro "github.com/dgryski/go-metro"
	"github.com/zeebo/wyhash"
	"github.com/zeebo/xxh3"
)

// HashAlgorithm selects the keyed 64 bit hash used for addressing and fingerprints.
type HashAlgorithm uint

const (
	HashXXH3 HashAlgorithm = iota
	HashWyHash
	HashMetro
	HashXXHash
)

func (a HashAlgorithm) String() string {
	switch a {
	case HashWyHash:
		return "wyhash"
	case HashMetro:
		return "metro"
	case HashXXHash:
		return "xxhash"
	default:
		return "xxh3"
	}
}

type hashFunc func(data []byte, seed uint64) uint64

func (a HashAlgorithm) hashFunc() hashFunc {
	switch a {
	case HashWyHash:
		return wyhash.Hash
	case HashMetro:
		return metro.Hash64
	case HashXXHash:
		return xxhashSeed
	default:
		return xxh3.HashSeed
	}
}

func xxhashSeed(data []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(data)
	return d.Sum64()
}

type hasher struct {
	fn      hashFunc
	seed    uint64
	altSeed uint64
}

func (h *hasher) key(key int32) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(key))
	return h.fn(b[:], h.seed)
}

func (h *hasher) rehash(x, seed uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], x)
	return h.fn(b[:], seed)
}

// address is everything derived from a key's hash.
type address struct {
	fp uint32
	// prefix feeds the segment index: the base segment bits followed by the
	// fingerprint, whose low bits are consumed one by one as segments split.
	prefix uint64
	i1, i2 uint32
}

// getAddress splits the key hash into disjoint bit ranges: bucket index in the
// least significant bits, base segment bits right above and the fingerprint in
// the most significant bits.
func (f *Filter) getAddress(key int32) address {
	hash := f.hasher.key(key)
	i1 := uint32(hash) & f.bucketIndexMask
	base := (hash >> f.cfg.BucketIndexBits) & (1<<f.cfg.SegmentIndexBits - 1)
	fp := getFingerprint(hash, f.fingerprintBits)
	for fp == nullFp {
		hash = f.hasher.rehash(hash, f.hasher.seed)
		fp = getFingerprint(hash, f.fingerprintBits)
	}
	return address{
		fp:     fp,
		prefix: base | uint64(fp)<<f.cfg.SegmentIndexBits,
		i1:     i1,
		i2:     f.getAltIndex(fp, i1),
	}
}

func getFingerprint(hash uint64, fingerprintSizeBits uint) uint32 {
	return uint32(hash >> (64 - fingerprintSizeBits))
}

// getAltIndex is its own inverse: getAltIndex(fp, getAltIndex(fp, i)) == i.
// The xor offset is never zero, so both indexes always differ.
func (f *Filter) getAltIndex(fp uint32, i uint32) uint32 {
	x := uint64(fp)
	for {
		x = f.hasher.rehash(x, f.hasher.altSeed)
		if offset := uint32(x) & f.bucketIndexMask; offset != 0 {
			return (i ^ offset) & f.bucketIndexMask
		}
	}
}
