package bamboo

import (
	"fmt"

	"github.com/rs/zerolog"
)

// FilterPrecision selects the fingerprint width when Config.FingerprintBits is unset.
type FilterPrecision uint

const (
	Medium FilterPrecision = iota // 15 bit fingerprints
	Low                           // 7 bit fingerprints
	High                          // 23 bit fingerprints
)

func (p FilterPrecision) fingerprintBits() uint {
	switch p {
	case Low:
		return 7
	case High:
		return 23
	default:
		return 15
	}
}

// Mode selects the slot layout.
type Mode uint

const (
	// Counting slots hold a fingerprint and an 8 bit saturating count.
	Counting Mode = iota
	// Set slots hold a fingerprint and an occupancy flag; duplicates take one slot each.
	Set
)

func (m Mode) String() string {
	if m == Set {
		return "set"
	}
	return "counting"
}

// Strategy selects what happens when a cuckoo chain runs out inside a segment.
type Strategy uint

const (
	// Expand splits the full segment in two, addressed by a bit trie.
	Expand Strategy = iota
	// Overflow chains an overflow segment off the full one and grows the
	// table by linear hashing on a fixed insertion schedule.
	Overflow
)

func (s Strategy) String() string {
	if s == Overflow {
		return "overflow"
	}
	return "expand"
}

type Config struct {
	// BucketIndexBits is log2 of the number of buckets per segment.
	BucketIndexBits uint
	// FingerprintBits must be 7, 15 or 23. Zero falls back to Precision.
	FingerprintBits uint
	Precision       FilterPrecision
	SlotsPerBucket  uint
	// SegmentIndexBits is log2 of the number of segments the filter starts with.
	SegmentIndexBits uint

	Mode     Mode
	Strategy Strategy
	Hash     HashAlgorithm

	// Seed drives the hash seeds and the eviction slot choice. Zero picks a random seed.
	Seed int64

	// ExpandInterval is the number of successful insertions between two
	// scheduled expansions of the Overflow strategy. Zero means half the
	// slots of one segment.
	ExpandInterval uint

	Logger *zerolog.Logger
}

// DefaultConfig returns the parameters the filter was tuned with:
// 16 segments of 256 buckets with 8 slots each.
func DefaultConfig() Config {
	return Config{
		BucketIndexBits:  8,
		Precision:        Medium,
		SlotsPerBucket:   8,
		SegmentIndexBits: 4,
	}
}

const (
	maxBucketIndexBits  = 24
	maxSegmentIndexBits = 16
	maxSlotsPerBucket   = 64
)

func (c *Config) fingerprintBits() uint {
	if c.FingerprintBits == 0 {
		return c.Precision.fingerprintBits()
	}
	return c.FingerprintBits
}

func (c *Config) validate() error {
	switch c.fingerprintBits() {
	case 7, 15, 23:
	default:
		return fmt.Errorf("%w: fingerprint size must be 7, 15 or 23 bits, got %d", ErrInvalidConfig, c.FingerprintBits)
	}
	if c.BucketIndexBits == 0 || c.BucketIndexBits > maxBucketIndexBits {
		return fmt.Errorf("%w: bucket index bits must be in [1, %d], got %d", ErrInvalidConfig, maxBucketIndexBits, c.BucketIndexBits)
	}
	if c.SegmentIndexBits > maxSegmentIndexBits {
		return fmt.Errorf("%w: segment index bits must be at most %d, got %d", ErrInvalidConfig, maxSegmentIndexBits, c.SegmentIndexBits)
	}
	if c.SlotsPerBucket == 0 || c.SlotsPerBucket > maxSlotsPerBucket {
		return fmt.Errorf("%w: slots per bucket must be in [1, %d], got %d", ErrInvalidConfig, maxSlotsPerBucket, c.SlotsPerBucket)
	}
	if c.BucketIndexBits+c.SegmentIndexBits+c.fingerprintBits() > 64 {
		return fmt.Errorf("%w: bucket, segment and fingerprint bits exceed the 64 bit hash", ErrInvalidConfig)
	}
	if c.Mode > Set {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	}
	if c.Strategy > Overflow {
		return fmt.Errorf("%w: unknown strategy %d", ErrInvalidConfig, c.Strategy)
	}
	if c.Hash > HashXXHash {
		return fmt.Errorf("%w: unknown hash algorithm %d", ErrInvalidConfig, c.Hash)
	}
	return nil
}
