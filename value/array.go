package value

import (
	"iter"

	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/varint"
)

// Array is a read-only view of a TagArray Value.
type Array struct {
	v Value
}

// IsValid reports whether a refers to an actual array.
func (a Array) IsValid() bool {
	return a.v.IsValid()
}

func (a Array) wide() bool {
	return a.v.header()&0x08 != 0
}

func (a Array) width() format.Width {
	if a.wide() {
		return format.Wide
	}

	return format.Narrow
}

// header returns (count, childrenStart).
func (a Array) header() (count int, childrenStart int) {
	data := a.v.data
	pos := a.v.pos

	inline := (int(data[pos]&0x07) << 8) | int(data[pos+1])
	if inline != format.ArrayCountOverflow {
		return inline, pos + 2
	}

	excess, size, ok := varint.Decode(data[pos+2:])
	if !ok {
		return 0, pos + 2
	}

	start := pos + 2 + size
	start = padEven(start-pos) + pos

	return format.ArrayCountOverflow + int(excess), start
}

// Count returns the number of elements in a.
func (a Array) Count() int {
	if !a.IsValid() {
		return 0
	}

	count, _ := a.header()

	return count
}

// Get returns the element at index i, or the zero Value if i is out of
// range.
func (a Array) Get(i int) Value {
	if !a.IsValid() || i < 0 {
		return Value{}
	}

	count, childrenStart := a.header()
	if i >= count {
		return Value{}
	}

	width := a.width()
	pos := childrenStart + i*int(width)

	return readSlot(a.v.data, pos, width, a.v.scope)
}

// All returns an iterator over a's elements in order.
func (a Array) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		if !a.IsValid() {
			return
		}

		count, childrenStart := a.header()
		width := a.width()

		for i := 0; i < count; i++ {
			pos := childrenStart + i*int(width)
			if !yield(i, readSlot(a.v.data, pos, width, a.v.scope)) {
				return
			}
		}
	}
}

func containerSize(v Value) int {
	a := Array{v: v}

	count, childrenStart := a.header()

	slots := count
	if v.tag() == format.TagDict {
		slots = count * 2
	}

	return padEven(childrenStart - v.pos + slots*int(a.width()))
}
