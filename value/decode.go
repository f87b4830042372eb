package value

import "github.com/tagvalue/tvf/format"

// FromTrustedData locates the root Value of data without validating its
// structure. Callers must already trust data was produced by this module's
// writer (or an equally careful producer); behavior on malformed input is
// unspecified but never reads outside data.
func FromTrustedData(data []byte) Value {
	return FromTrustedDataWithScope(data, nil)
}

// FromTrustedDataWithScope is FromTrustedData with an explicit Scope for
// resolving shared keys and extern pointers.
func FromTrustedDataWithScope(data []byte, scope *Scope) Value {
	if len(data) < 2 {
		return Value{}
	}

	return readSlot(data, len(data)-2, format.Narrow, scope)
}

// FromData locates and validates the root Value of data, returning the zero
// Value if any structural invariant is violated. Validation never reads
// outside data and never panics, regardless of how data is corrupted.
func FromData(data []byte) Value {
	return FromDataWithScope(data, nil)
}

// FromDataWithScope is FromData with an explicit Scope.
func FromDataWithScope(data []byte, scope *Scope) Value {
	if len(data) < 2 {
		return Value{}
	}

	root := readSlot(data, len(data)-2, format.Narrow, scope)
	if !validate(data, root) {
		return Value{}
	}

	return root
}

// validate walks v and everything reachable from it with an explicit
// worklist rather than recursion, so input depth can never exhaust the call
// stack or blow a recursion bound.
func validate(data []byte, root Value) bool {
	if !root.IsValid() {
		return false
	}

	work := []Value{root}

	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]

		if v.data == nil || len(v.data) == 0 {
			return false
		}
		if v.pos < 0 || v.pos+1 >= len(v.data) {
			return false
		}

		switch v.tag() {
		case format.TagShortInt, format.TagSpecial:
			// Fixed 2-byte Values, already bounds-checked above.

		case format.TagInt:
			n := v.intByteCount()
			if v.pos+1+n > len(v.data) {
				return false
			}

		case format.TagFloat:
			payloadLen := 4
			if v.floatSize() == format.FloatSize64 {
				payloadLen = 8
			}
			if v.pos+1+payloadLen > len(v.data) {
				return false
			}

		case format.TagString, format.TagBinary:
			start, end := v.payloadBounds()
			if start < 0 || end < start || end > len(v.data) {
				return false
			}

		case format.TagArray, format.TagDict:
			a := Array{v: v}
			count, childrenStart := a.header()
			if count < 0 || childrenStart < v.pos {
				return false
			}

			slots := count
			if v.tag() == format.TagDict {
				slots *= 2
			}

			width := int(a.width())
			end := childrenStart + slots*width
			if end > len(v.data) {
				return false
			}

			for i := 0; i < slots; i++ {
				slotPos := childrenStart + i*width
				if !validateSlotBounds(v.data, slotPos, width) {
					return false
				}

				child := readSlot(v.data, slotPos, a.width(), v.scope)
				if slotIsPointer(v.data, slotPos) && !child.IsValid() {
					return false
				}
				if child.IsValid() {
					work = append(work, child)
				}
			}

		default:
			return false
		}
	}

	return true
}

func slotIsPointer(data []byte, pos int) bool {
	return data[pos]&0x80 != 0
}

func validateSlotBounds(data []byte, pos, width int) bool {
	return pos >= 0 && pos+width <= len(data)
}
