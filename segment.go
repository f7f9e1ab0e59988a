package bamboo

// segment is one shard of the table: 2^BucketIndexBits buckets stored back to
// back in a single byte array.
type segment struct {
	data           []byte
	bucketBytes    int
	codec          *entryCodec
	expansionCount uint
	// overflow is only used by the Overflow strategy.
	overflow *segment
}

func newSegment(numBuckets int, codec *entryCodec, slotsPerBucket int, expansionCount uint) *segment {
	bucketBytes := slotsPerBucket * codec.width
	return &segment{
		data:           make([]byte, numBuckets*bucketBytes),
		bucketBytes:    bucketBytes,
		codec:          codec,
		expansionCount: expansionCount,
	}
}

// sibling allocates an empty segment of the same shape.
func (s *segment) sibling(expansionCount uint) *segment {
	return &segment{
		data:           make([]byte, len(s.data)),
		bucketBytes:    s.bucketBytes,
		codec:          s.codec,
		expansionCount: expansionCount,
	}
}

func (s *segment) numBuckets() int {
	return len(s.data) / s.bucketBytes
}

func (s *segment) bucket(i uint32) bucket {
	lo := int(i) * s.bucketBytes
	hi := lo + s.bucketBytes
	return bucket{slots: s.data[lo:hi:hi], codec: s.codec}
}

func (s *segment) capacity() uint {
	return uint(len(s.data) / s.codec.width)
}

// occupancy counts occupied slots of this segment, overflow excluded.
func (s *segment) occupancy() uint {
	var n uint
	for i := 0; i < s.numBuckets(); i++ {
		n += s.bucket(uint32(i)).occupancy()
	}
	return n
}

// chainOccupancy counts occupied slots of the segment and its overflow chain.
func (s *segment) chainOccupancy() uint {
	var n uint
	s.chain(func(c *segment) { n += c.occupancy() })
	return n
}

// chainLen returns the number of segments in the chain, s included.
func (s *segment) chainLen() int {
	n := 0
	s.chain(func(*segment) { n++ })
	return n
}

// chain calls fn for the segment and every segment of its overflow chain.
func (s *segment) chain(fn func(*segment)) {
	for c := s; c != nil; c = c.overflow {
		fn(c)
	}
}

// overflowSegment returns the next segment of the chain, allocating it when missing.
func (s *segment) overflowSegment() (next *segment, allocated bool) {
	if s.overflow == nil {
		s.overflow = s.sibling(s.expansionCount)
		return s.overflow, true
	}
	return s.overflow, false
}
