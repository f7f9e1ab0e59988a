package bamboo

const (
	nullFp = 0
	// maxCount is the largest count a counting slot holds; the rest spills
	// into further slots.
	maxCount = 1<<8 - 1
)

// entryCodec packs (fingerprint, count) pairs into little endian slots of
// width bytes.
//
// Counting layout: count in the low byte, fingerprint above it.
// Set layout: fingerprint in the low fpBits bits and an occupancy flag in the
// most significant bit of the top byte.
//
// An all zero slot is vacant in both layouts.
type entryCodec struct {
	fpBits   uint
	fpMask   uint32
	width    int
	counting bool
}

func newEntryCodec(fpBits uint, mode Mode) *entryCodec {
	entryBits := fpBits + 1
	if mode == Counting {
		entryBits = fpBits + 8
	}
	return &entryCodec{
		fpBits:   fpBits,
		fpMask:   1<<fpBits - 1,
		width:    int(entryBits+7) / 8,
		counting: mode == Counting,
	}
}

func (c *entryCodec) encode(fp, count uint32) uint32 {
	if count == 0 {
		return 0
	}
	if c.counting {
		return fp<<8 | count
	}
	return 1<<c.fpBits | fp&c.fpMask
}

func (c *entryCodec) decode(e uint32) (fp, count uint32) {
	if e == 0 {
		return nullFp, 0
	}
	if c.counting {
		return e >> 8, e & maxCount
	}
	return e & c.fpMask, 1
}

// load reads exactly len(b) == c.width bytes.
func (c *entryCodec) load(b []byte) uint32 {
	var e uint32
	for i := c.width - 1; i >= 0; i-- {
		e = e<<8 | uint32(b[i])
	}
	return e
}

func (c *entryCodec) store(b []byte, e uint32) {
	for i := 0; i < c.width; i++ {
		b[i] = byte(e)
		e >>= 8
	}
}

// slotCount is the largest count one slot can carry.
func (c *entryCodec) slotCount() uint32 {
	if c.counting {
		return maxCount
	}
	return 1
}
