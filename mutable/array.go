package mutable

import (
	"iter"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/value"
	"github.com/tagvalue/tvf/writer"
)

type arraySlotKind uint8

const (
	arraySlotUnset arraySlotKind = iota // falls through to source
	arraySlotImmutable
	arraySlotMutable
)

type arraySlot struct {
	kind arraySlotKind
	imm  value.Value
	heap Collection
}

// HeapArray is a mutable overlay on top of an optional immutable source
// array. Indices beyond the local slot vector, and any local slot left
// unset, read through to the source.
type HeapArray struct {
	source  value.Array
	slots   []arraySlot
	changed bool
	gen     uint64
}

var _ Collection = (*HeapArray)(nil)

// NewArray creates a HeapArray over source (which may be the zero Array,
// for a mutable array with no backing document). flags controls whether
// source's elements are copied into local slots immediately or left to
// fall through lazily.
func NewArray(source value.Array, flags CopyFlags) *HeapArray {
	a := &HeapArray{source: source}

	if flags.eager() && source.IsValid() {
		n := source.Count()
		a.slots = make([]arraySlot, n)
		for i := 0; i < n; i++ {
			a.slots[i] = wrapChildValue(source.Get(i), flags)
		}
	}

	return a
}

func wrapChildValue(v value.Value, flags CopyFlags) arraySlot {
	if flags.recursive() {
		switch v.Type() {
		case format.TypeArray:
			return arraySlot{kind: arraySlotMutable, heap: NewArray(v.AsArray(), flags)}
		case format.TypeDict:
			return arraySlot{kind: arraySlotMutable, heap: NewDict(v.AsDict(), flags)}
		}
	}

	return arraySlot{kind: arraySlotImmutable, imm: v}
}

// Changed reports whether a has any local edits.
func (a *HeapArray) Changed() bool {
	return a.changed
}

func (a *HeapArray) markChanged() {
	a.changed = true
	a.gen++
}

// Count returns a's effective length: the larger of its source's length and
// its local slot vector's length.
func (a *HeapArray) Count() int {
	n := 0
	if a.source.IsValid() {
		n = a.source.Count()
	}

	if len(a.slots) > n {
		return len(a.slots)
	}

	return n
}

// Get returns the Value at index i: the local slot if set, else the
// source's element, else the zero Value. If the slot holds a child
// promoted to a mutable collection (see GetMutableArray/GetMutableDict),
// Get returns the zero Value; use those accessors instead.
func (a *HeapArray) Get(i int) value.Value {
	if i < 0 || i >= a.Count() {
		return value.Value{}
	}

	if i < len(a.slots) {
		switch a.slots[i].kind {
		case arraySlotImmutable:
			return a.slots[i].imm
		case arraySlotMutable:
			return value.Value{}
		}
	}

	if a.source.IsValid() && i < a.source.Count() {
		return a.source.Get(i)
	}

	return value.Value{}
}

// IsMutable reports whether the slot at i holds a child already promoted to
// a mutable collection.
func (a *HeapArray) IsMutable(i int) bool {
	return i >= 0 && i < len(a.slots) && a.slots[i].kind == arraySlotMutable
}

func (a *HeapArray) ensureLen(n int) {
	for len(a.slots) < n {
		a.slots = append(a.slots, arraySlot{})
	}
}

// Set replaces the Value at index i. i must be within [0, Count()).
func (a *HeapArray) Set(i int, v value.Value) error {
	if i < 0 || i >= a.Count() {
		return errs.ErrIndexOutOfRange
	}

	a.ensureLen(i + 1)
	a.slots[i] = arraySlot{kind: arraySlotImmutable, imm: v}
	a.markChanged()

	return nil
}

// materializeThrough resolves every unset slot in [0, n) against the
// source, so a subsequent slice insert/delete can operate purely on the
// local slot vector without breaking the fallthrough-to-source semantics
// of the indices it shifts.
func (a *HeapArray) materializeThrough(n int) {
	a.ensureLen(n)

	for i := 0; i < n; i++ {
		if a.slots[i].kind != arraySlotUnset {
			continue
		}

		if a.source.IsValid() && i < a.source.Count() {
			a.slots[i] = arraySlot{kind: arraySlotImmutable, imm: a.source.Get(i)}
		}
	}
}

// Insert inserts vs starting at index i, shifting later elements up. i may
// equal Count() to append.
func (a *HeapArray) Insert(i int, vs ...value.Value) error {
	n := a.Count()
	if i < 0 || i > n {
		return errs.ErrIndexOutOfRange
	}
	if len(vs) == 0 {
		return nil
	}

	a.materializeThrough(n)

	grown := make([]arraySlot, 0, n+len(vs))
	grown = append(grown, a.slots[:i]...)
	for _, v := range vs {
		grown = append(grown, arraySlot{kind: arraySlotImmutable, imm: v})
	}
	grown = append(grown, a.slots[i:]...)

	a.slots = grown
	a.markChanged()

	return nil
}

// Remove deletes count elements starting at index i, shifting later
// elements down.
func (a *HeapArray) Remove(i, count int) error {
	n := a.Count()
	if i < 0 || count < 0 || i+count > n {
		return errs.ErrIndexOutOfRange
	}
	if count == 0 {
		return nil
	}

	a.materializeThrough(n)

	a.slots = append(a.slots[:i], a.slots[i+count:]...)
	// Every remaining element now lives in a.slots; dropping the source
	// keeps Count from reporting the pre-removal source length.
	a.source = value.Array{}
	a.markChanged()

	return nil
}

// GetMutableArray promotes the child array at index i to a HeapArray,
// returning the same instance on repeated calls until i is overwritten by
// Set.
func (a *HeapArray) GetMutableArray(i int, flags CopyFlags) (*HeapArray, error) {
	heap, err := a.getMutableChild(i, flags, format.TypeArray)
	if err != nil {
		return nil, err
	}

	return heap.(*HeapArray), nil
}

// GetMutableDict promotes the child dict at index i to a HeapDict, returning
// the same instance on repeated calls until i is overwritten by Set.
func (a *HeapArray) GetMutableDict(i int, flags CopyFlags) (*HeapDict, error) {
	heap, err := a.getMutableChild(i, flags, format.TypeDict)
	if err != nil {
		return nil, err
	}

	return heap.(*HeapDict), nil
}

func (a *HeapArray) getMutableChild(i int, flags CopyFlags, want format.Type) (Collection, error) {
	if i < 0 || i >= a.Count() {
		return nil, errs.ErrIndexOutOfRange
	}

	a.ensureLen(i + 1)

	if a.slots[i].kind == arraySlotMutable {
		return a.slots[i].heap, nil
	}

	var v value.Value
	if a.slots[i].kind == arraySlotImmutable {
		v = a.slots[i].imm
	} else if a.source.IsValid() && i < a.source.Count() {
		v = a.source.Get(i)
	}

	var heap Collection
	switch want {
	case format.TypeArray:
		heap = NewArray(v.AsArray(), flags)
	default:
		heap = NewDict(v.AsDict(), flags)
	}

	a.slots[i] = arraySlot{kind: arraySlotMutable, heap: heap}
	a.markChanged()

	return heap, nil
}

// All returns a pull iterator over a's effective elements. Promoted mutable
// children yield the zero Value; use GetMutableArray/GetMutableDict to
// reach them directly. The iterator panics with errs.ErrIteratorInvalidated
// if a is structurally mutated while it is in progress.
func (a *HeapArray) All() iter.Seq2[int, value.Value] {
	return func(yield func(int, value.Value) bool) {
		gen := a.gen
		n := a.Count()

		for i := 0; i < n; i++ {
			if a.gen != gen {
				panic(errs.ErrIteratorInvalidated)
			}
			if !yield(i, a.Get(i)) {
				return
			}
		}
	}
}

// WriteTo emits a's effective elements as a TVF array through w. Arrays
// have no inheritance form in the wire format, so this always writes every
// element (never a parent-referencing delta).
func (a *HeapArray) WriteTo(w *writer.Writer) error {
	n := a.Count()

	if err := w.BeginArray(n); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := a.writeElement(w, i); err != nil {
			return err
		}
	}

	return w.EndArray()
}

func (a *HeapArray) writeElement(w *writer.Writer, i int) error {
	if i < len(a.slots) {
		switch a.slots[i].kind {
		case arraySlotImmutable:
			return w.WriteValue(a.slots[i].imm)
		case arraySlotMutable:
			return a.slots[i].heap.WriteTo(w)
		}
	}

	if a.source.IsValid() && i < a.source.Count() {
		return w.WriteValue(a.source.Get(i))
	}

	return w.WriteNull()
}
