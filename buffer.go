package pdcp

import (
	"sort"

	"github.com/opd-ai/pdcp/count"
)

// bufferedSDU is one out-of-sequence arrival parked until its
// predecessors show up or the reordering timer releases it.
type bufferedSDU struct {
	cnt count.Value
	sdu []byte
}

// reorderBuffer holds not-yet-deliverable SDUs sorted by ascending COUNT.
// It contains only COUNTs at or above the entity's delivery edge and
// never two entries for the same COUNT.
type reorderBuffer struct {
	entries []bufferedSDU
}

// insert adds an entry at its sorted position.
func (b *reorderBuffer) insert(cnt count.Value, sdu []byte) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].cnt >= cnt
	})
	b.entries = append(b.entries, bufferedSDU{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = bufferedSDU{cnt: cnt, sdu: sdu}
}

// take removes and returns the SDU buffered under exactly cnt.
func (b *reorderBuffer) take(cnt count.Value) ([]byte, bool) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].cnt >= cnt
	})
	if i >= len(b.entries) || b.entries[i].cnt != cnt {
		return nil, false
	}
	sdu := b.entries[i].sdu
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return sdu, true
}

// popBelow removes and returns, in ascending COUNT order, every entry
// with a COUNT strictly below limit.
func (b *reorderBuffer) popBelow(limit count.Value) []bufferedSDU {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].cnt >= limit
	})
	if i == 0 {
		return nil
	}
	popped := make([]bufferedSDU, i)
	copy(popped, b.entries[:i])
	b.entries = append(b.entries[:0], b.entries[i:]...)
	return popped
}
