package bamboo

type slotWrite struct {
	b    bucket
	i    int
	prev uint32
}

// journal records the previous value of every slot an insertion overwrites,
// so that a failed insertion leaves the filter exactly as it found it.
// A nil journal records nothing.
type journal struct {
	writes []slotWrite
}

func (j *journal) record(b bucket, i int) {
	if j == nil {
		return
	}
	j.writes = append(j.writes, slotWrite{b: b, i: i, prev: b.entryAt(i)})
}

// rollback restores recorded slots newest first and returns how many were restored.
func (j *journal) rollback() int {
	n := len(j.writes)
	for k := n - 1; k >= 0; k-- {
		w := j.writes[k]
		w.b.setEntryAt(w.i, w.prev)
	}
	j.reset()
	return n
}

func (j *journal) reset() {
	clear(j.writes)
	j.writes = j.writes[:0]
}
