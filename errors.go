package bamboo

import "errors"

var (
	// ErrBucketCapacityExceeded is returned when both candidate buckets hold
	// nothing but the fingerprint being inserted, so no entry can be evicted.
	ErrBucketCapacityExceeded = errors.New("bamboo: bucket capacity exceeded")

	// ErrMaxExpansionCapacityExceeded is returned when a segment has used
	// every fingerprint bit for addressing and cannot be split again.
	ErrMaxExpansionCapacityExceeded = errors.New("bamboo: max expansion capacity exceeded")

	// ErrSegmentNotFound means the segment index has no segment for an
	// address. It indicates a bug in index maintenance.
	ErrSegmentNotFound = errors.New("bamboo: segment not found")

	ErrInvalidConfig = errors.New("bamboo: invalid config")

	// errChainExhausted stops a cuckoo chain after maxCuckooKickouts relocations.
	errChainExhausted = errors.New("bamboo: cuckoo chain exhausted")
)
