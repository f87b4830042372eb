package writer

import (
	"sort"
	"strings"

	"github.com/tagvalue/tvf/internal/dupcheck"
)

// frameKind distinguishes the three shapes a writer frame can take.
type frameKind uint8

const (
	frameRoot frameKind = iota
	frameArray
	frameDict
)

// slotKind classifies how a staged child slot will be packed when its frame
// closes.
type slotKind uint8

const (
	slotInline slotKind = iota
	slotPointerLocal
	slotPointerExtern
)

// stagedSlot is one child of a frame, staged but not yet packed into its
// final 2- or 4-byte wire form: that depends on the frame's width, which
// isn't known until every sibling has been staged.
type stagedSlot struct {
	kind slotKind

	// Valid when kind == slotInline: the Value's own encoded bytes (2 or 4
	// bytes), already padded to an even length.
	inline []byte

	// Valid when kind == slotPointerLocal: the absolute position, within
	// this writer's output buffer, of the already-written Value the
	// pointer refers to.
	//
	// Valid when kind == slotPointerExtern: the absolute position of the
	// referenced Value within the base buffer.
	target int
}

// rawKeyLite mirrors value.rawKey: the ordering a dict's encoded keys use is
// defined by their wire representation (integer keys before string keys),
// not by any resolved name, so the writer needs to sort on the same terms
// the reader's binary search does.
type rawKeyLite struct {
	isInt bool
	i     int32
	s     string
}

func compareRawKeyLite(a, b rawKeyLite) int {
	switch {
	case a.isInt && b.isInt:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	case !a.isInt && !b.isInt:
		return strings.Compare(a.s, b.s)
	case a.isInt:
		return -1
	default:
		return 1
	}
}

// frame is one level of the writer's container stack: the implicit root
// frame that holds the single top-level Value, or an explicit array/dict
// opened by BeginArray/BeginDictionary.
type frame struct {
	kind frameKind

	// slots holds staged children in write order for frameArray and
	// frameRoot. For frameDict, slots holds the same pairs flattened as
	// key0, value0, key1, value1, ... once EndDictionary sorts them; while
	// the dict is still open, keySlots/valSlots/keys are used instead.
	slots []stagedSlot

	keys    []rawKeyLite
	keySlot []stagedSlot
	valSlot []stagedSlot

	// expectKey is only meaningful for frameDict: true when the next write
	// must be a key, false when it must be a value.
	expectKey bool

	// forceWide is set as soon as any staged child needs a 4-byte slot,
	// either because it's a 4-byte inline Value or because resolving its
	// pointer distance will require one; the latter is only discovered
	// once the frame closes, see needsWide.
	forceWide bool

	dup *dupcheck.Tracker
}

func newFrame(kind frameKind) *frame {
	f := &frame{kind: kind}
	if kind == frameDict {
		f.expectKey = true
		f.dup = dupcheck.NewTracker()
	}

	return f
}

// pairCount returns the number of staged dict pairs (keys, regardless of
// whether their matching value has been written yet).
func (f *frame) pairCount() int {
	return len(f.keys)
}

// sortPairs orders a closed dict frame's pairs by their encoded key and
// flattens them into slots as key0, value0, key1, value1, ...
func (f *frame) sortPairs() {
	order := make([]int, len(f.keys))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return compareRawKeyLite(f.keys[order[a]], f.keys[order[b]]) < 0
	})

	f.slots = make([]stagedSlot, 0, 2*len(order))
	for _, idx := range order {
		f.slots = append(f.slots, f.keySlot[idx], f.valSlot[idx])
	}
}
